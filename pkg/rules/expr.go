// Copyright 2026 The Hegel Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rules

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// exprEnv declares the variables an `expr` rule's CEL expression may
// reference: the same aggregated figures the typed variants compute over.
var exprEnv = mustNewExprEnv()

func mustNewExprEnv() *cel.Env {
	env, err := cel.NewEnv(
		cel.Variable("input_tokens", cel.IntType),
		cel.Variable("output_tokens", cel.IntType),
		cel.Variable("cache_read_tokens", cel.IntType),
		cel.Variable("cache_creation_tokens", cel.IntType),
		cel.Variable("bash_command_count", cel.IntType),
		cel.Variable("file_modification_count", cel.IntType),
		cel.Variable("phase_duration_seconds", cel.DoubleType),
		cel.Variable("commits_in_phase", cel.IntType),
	)
	if err != nil {
		panic(fmt.Sprintf("rules: building expr environment: %v", err))
	}
	return env
}

func compileExpr(expr string) (cel.Program, error) {
	ast, issues := exprEnv.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("expr must evaluate to bool, got %s", ast.OutputType())
	}
	return exprEnv.Program(ast)
}

// exprVars builds the CEL activation map from an EvalContext's aggregates.
func exprVars(ctx EvalContext) map[string]any {
	return map[string]any{
		"input_tokens":            int64(ctx.PhaseTokens.Input),
		"output_tokens":           int64(ctx.PhaseTokens.Output),
		"cache_read_tokens":       int64(ctx.PhaseTokens.CacheRead),
		"cache_creation_tokens":   int64(ctx.PhaseTokens.CacheCreation),
		"bash_command_count":      int64(len(ctx.BashCommands)),
		"file_modification_count": int64(len(ctx.FileMods)),
		"phase_duration_seconds":  ctx.PhaseDurationSeconds(),
		"commits_in_phase":        int64(len(ctx.PhaseCommits)),
	}
}

func evalExpr(r *Rule, ctx EvalContext) (bool, error) {
	out, _, err := r.compiledExpr.Eval(exprVars(ctx))
	if err != nil {
		return false, err
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expr did not return bool: %v", out)
	}
	return b, nil
}
