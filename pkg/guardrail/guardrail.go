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

// Package guardrail implements command wrapping: evaluate a named command's
// argument vector against a loaded rule list and either block it or let it
// run as a subprocess, logging the outcome either way.
package guardrail

import (
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hegel-dev/hegel/pkg/herr"
	"github.com/hegel-dev/hegel/pkg/ratelimit"
	"github.com/hegel-dev/hegel/pkg/storage"
	"gopkg.in/yaml.v3"
)

// Action is what a matched rule does to the command.
type Action string

const (
	ActionBlock Action = "block"
	ActionAllow Action = "allow"
)

// Rule is one pattern entry in a command's rule list. Rules are evaluated
// in declaration order; the first whose pattern matches the joined argument
// vector wins.
type Rule struct {
	Pattern string `yaml:"pattern"`
	Action  Action `yaml:"action"`
	Reason  string `yaml:"reason,omitempty"`

	compiled *regexp.Regexp
}

// Config is the parsed form of guardrails.yaml: a rule list per wrapped
// command name.
type Config struct {
	Commands map[string][]*Rule `yaml:"commands"`
}

// BlockedExitCode is the distinguished non-zero exit code returned when a
// command is blocked, per the specification's external-interfaces section.
const BlockedExitCode = 1

// Parse decodes and validates guardrails.yaml content.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, herr.New(herr.KindWorkflowLoad, "parse guardrails.yaml", err)
	}
	for name, rules := range cfg.Commands {
		for i, r := range rules {
			if r.Action != ActionBlock && r.Action != ActionAllow {
				return nil, herr.Newf(herr.KindWorkflowLoad, nil, "guardrails: command %q rule %d: unknown action %q", name, i, r.Action)
			}
			compiled, err := regexp.Compile(r.Pattern)
			if err != nil {
				return nil, herr.Newf(herr.KindWorkflowLoad, err, "guardrails: command %q rule %d: invalid pattern", name, i)
			}
			r.compiled = compiled
		}
	}
	return &cfg, nil
}

// Load reads and parses a guardrails.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, herr.New(herr.KindStorageIO, "read "+path, err)
	}
	return Parse(data)
}

// LoadFrom fetches guardrails.yaml content through p and parses it. p is
// typically a pkg/config/provider.Provider, letting the rule list live in a
// local file, Consul, or Zookeeper rather than binding this package to a
// disk path directly.
func LoadFrom(p interface{ Load() ([]byte, error) }) (*Config, error) {
	data, err := p.Load()
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Verdict is the result of evaluating a command's argument vector against
// its rule list.
type Verdict struct {
	Blocked bool
	Reason  string
}

// Evaluate matches args (joined by a space, per the specification's "regex
// over the joined argument vector" rule) against the rule list for the
// named command. No matching rule, or no rule list at all, is Allowed.
func Evaluate(cfg *Config, name string, args []string) Verdict {
	joined := strings.Join(args, " ")
	for _, r := range cfg.Commands[name] {
		if r.compiled != nil && r.compiled.MatchString(joined) {
			return Verdict{Blocked: r.Action == ActionBlock, Reason: r.Reason}
		}
	}
	return Verdict{}
}

// Runner abstracts subprocess execution so tests can substitute a fake
// without actually forking.
type Runner func(name string, args []string) (exitCode int, err error)

// ExecRunner runs the named command as a real subprocess, inheriting the
// current process's stdio, and reports its exit code.
func ExecRunner(name string, args []string) (int, error) {
	cmd := exec.Command(name, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode(), nil
	}
	return -1, herr.New(herr.KindStorageIO, "run "+name, err)
}

// recentBlockWindowSize is how many past blocked invocations of a command
// feed the repeat count surfaced on the next block.
const recentBlockWindowSize = 10

// recentBlockedCount replays name's past blocked invocations from
// commands.log into a fresh Window, one slot per invocation, and returns
// how many fall within the retained window. commands.log outlives any
// single CLI process, so this is the only way the rate limiter's "recurred
// N times" question means anything for a tool with no long-running
// process. A blocked invocation is a record with a non-empty BlockedReason;
// an allowed run that exited non-zero is not counted.
func recentBlockedCount(store *storage.Store, name string) int {
	records, _ := store.ReadCommandLog()
	w := ratelimit.NewWindow(recentBlockWindowSize)
	for _, rec := range records {
		if rec.Name == name && !rec.Success && rec.BlockedReason != "" {
			w.Observe(rec.Timestamp, name)
		}
	}
	return w.Count(name)
}

// Wrap evaluates a wrapped command invocation, logs the result, and either
// blocks it or hands it to run. A blocked command that repeats within the
// rate-limit window gets a "(blocked N times recently)" suffix on the block
// reason written to commands.log, escalating friction without the guardrail
// itself changing the block decision — the decision is always made fresh
// from the rule list. The returned value is only the exit code.
func Wrap(store *storage.Store, cfg *Config, now func() time.Time, name string, args []string, run Runner) (int, error) {
	if now == nil {
		now = time.Now
	}
	verdict := Evaluate(cfg, name, args)

	if verdict.Blocked {
		if n := recentBlockedCount(store, name); n > 0 {
			verdict.Reason = verdict.Reason + " (blocked " + strconv.Itoa(n+1) + " times recently)"
		}
		_ = store.LogCommand(storage.CommandLogRecord{
			Timestamp:     now().UTC().Format(time.RFC3339),
			Name:          name,
			Args:          args,
			Success:       false,
			BlockedReason: verdict.Reason,
		})
		return BlockedExitCode, nil
	}

	if run == nil {
		run = ExecRunner
	}
	code, err := run(name, args)
	if err != nil {
		return code, err
	}
	_ = store.LogCommand(storage.CommandLogRecord{
		Timestamp: now().UTC().Format(time.RFC3339),
		Name:      name,
		Args:      args,
		Success:   code == 0,
	})
	return code, nil
}
