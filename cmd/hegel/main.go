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

// Command hegel is the CLI entry point: every subcommand opens the state
// directory, does one thing, and exits. There is no long-running server —
// the state directory on disk is the only thing that outlives a single
// invocation.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/kong"

	"github.com/hegel-dev/hegel/pkg/adapter"
	"github.com/hegel-dev/hegel/pkg/archive"
	"github.com/hegel-dev/hegel/pkg/config"
	"github.com/hegel-dev/hegel/pkg/config/provider"
	"github.com/hegel-dev/hegel/pkg/guardrail"
	"github.com/hegel-dev/hegel/pkg/herr"
	"github.com/hegel-dev/hegel/pkg/hook"
	"github.com/hegel-dev/hegel/pkg/logger"
	"github.com/hegel-dev/hegel/pkg/metrics"
	"github.com/hegel-dev/hegel/pkg/storage"
	"github.com/hegel-dev/hegel/pkg/transition"
)

// cli is the root command tree. kong binds flags/positionals on these
// structs and dispatches to the Run method of whichever leaf is selected.
var cli struct {
	StateDir    string `help:"State directory root (overrides flag > env > ancestor search)." type:"path"`
	WorkflowDir string `help:"Directory of workflow YAML files (defaults to <state-dir>/workflows)." type:"path"`
	LogLevel    string `help:"debug, info, warn, or error." default:"info" enum:"debug,info,warn,error"`
	LogFormat   string `help:"console or json." default:"console" enum:"console,json"`

	Hook      HookCmd      `cmd:"" help:"Ingest one hook event from stdin."`
	Start     StartCmd     `cmd:"" help:"Start a new workflow."`
	Advance   AdvanceCmd   `cmd:"" help:"Advance the active workflow."`
	Abort     AbortCmd     `cmd:"" help:"Abort the active workflow."`
	Prev      PrevCmd      `cmd:"" help:"Return to the previous node in history."`
	Status    StatusCmd    `cmd:"" help:"Print the current workflow state and prompt."`
	Repair    RepairCmd    `cmd:"" help:"Run the archive repair pipeline."`
	Metrics   MetricsCmd   `cmd:"" help:"Print aggregated metrics."`
	Stash     StashCmd     `cmd:"" help:"Save, list, load, or delete a stashed workflow state."`
	Guardrail GuardrailCmd `cmd:"" help:"Evaluate and run a guarded command."`
}

type appContext struct {
	store    *storage.Store
	registry *adapter.Registry
	loader   transition.WorkflowLoader
	cfg      *config.Config
	git      archive.GitLog
	log      *slog.Logger
}

func main() {
	k := kong.Parse(&cli, kong.Name("hegel"), kong.UsageOnError())
	ctx, err := newAppContext()
	if err != nil {
		fail(err)
	}
	err = k.Run(ctx)
	if err != nil {
		fail(err)
	}
}

func newAppContext() (*appContext, error) {
	dir, err := storage.ResolveDir(cli.StateDir)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(dir)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(filepath.Join(dir, "config.toml"))
	if err != nil {
		return nil, err
	}

	workflowDir := cli.WorkflowDir
	if workflowDir == "" {
		workflowDir = filepath.Join(dir, "workflows")
	}

	lvl := map[string]slog.Level{"debug": slog.LevelDebug, "info": slog.LevelInfo, "warn": slog.LevelWarn, "error": slog.LevelError}[cli.LogLevel]
	format := logger.FormatConsole
	if cli.LogFormat == "json" {
		format = logger.FormatJSON
	}
	log := logger.New(logger.Options{
		Level:           lvl,
		Format:          format,
		NoisyComponents: []string{"consul", "zookeeper"},
	})

	return &appContext{
		store:    store,
		registry: adapter.NewRegistry(),
		loader:   transition.DirLoader{Dir: workflowDir},
		cfg:      cfg,
		git:      archive.ShellGitLog{Dir: dir},
		log:      log,
	}, nil
}

func (c *appContext) controller() *transition.Controller {
	return &transition.Controller{Store: c.store, Registry: c.registry, Loader: c.loader, Git: c.git}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, err)
	code := 2
	var herrv *herr.Error
	if e, ok := err.(*herr.Error); ok {
		herrv = e
	}
	if herrv != nil {
		code = herr.ExitCode(herrv.Kind)
	}
	os.Exit(code)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// HookCmd ingests a single hook event and always exits 0, per the
// external-interfaces contract that a hook's exit code never signals
// upstream: an ingest failure is logged, not surfaced as a process error.
type HookCmd struct{}

func (cmd *HookCmd) Run(app *appContext) error {
	if err := hook.Ingest(app.store, os.Stdin, time.Now); err != nil {
		app.log.Error("hook ingest failed", "error", err)
	}
	return nil
}

type StartCmd struct {
	Mode     string `arg:"" help:"Workflow mode name (resolves to <workflow-dir>/<mode>.yaml)."`
	MetaMode string `help:"Meta-mode governing inter-workflow hand-off (learning, standard)." default:""`
}

func (cmd *StartCmd) Run(app *appContext) error {
	metaMode := cmd.MetaMode
	if metaMode == "" {
		metaMode = app.cfg.DefaultMetaMode
	}
	out, err := app.controller().StartWorkflow(cmd.Mode, metaMode)
	if err != nil {
		return err
	}
	return printOutcome(out)
}

type AdvanceCmd struct {
	Claim string            `help:"next, repeat, restart, or a literal claim name." default:"next"`
	Force map[string]string `help:"Force additional claims as key=value pairs, bypassing rule evaluation."`
}

func (cmd *AdvanceCmd) Run(app *appContext) error {
	alias := parseClaimAlias(cmd.Claim)
	forced := map[string]bool{}
	for k, v := range cmd.Force {
		forced[k] = strings.EqualFold(v, "true") || v == "1"
	}
	out, err := app.controller().Advance(alias, forced)
	if err != nil {
		return err
	}
	return printOutcome(out)
}

func parseClaimAlias(claim string) transition.ClaimAlias {
	switch claim {
	case "next", "":
		return transition.Next()
	case "repeat":
		return transition.Repeat()
	case "restart":
		return transition.Restart()
	default:
		return transition.Custom(claim)
	}
}

type AbortCmd struct{}

func (cmd *AbortCmd) Run(app *appContext) error {
	return app.controller().AbortWorkflow()
}

type PrevCmd struct{}

func (cmd *PrevCmd) Run(app *appContext) error {
	out, err := app.controller().PrevPrompt()
	if err != nil {
		return err
	}
	return printOutcome(out)
}

type StatusCmd struct{}

func (cmd *StatusCmd) Run(app *appContext) error {
	st, err := app.store.LoadState()
	if err != nil {
		return err
	}
	return printJSON(st)
}

type RepairCmd struct{}

func (cmd *RepairCmd) Run(app *appContext) error {
	report, err := archive.Repair(app.store, app.git, time.Now())
	if err != nil {
		return err
	}
	return printJSON(report)
}

type MetricsCmd struct {
	Format          string `help:"json or prom." default:"json" enum:"json,prom"`
	IncludeArchives bool   `help:"Fold prior archives into the result." default:"true"`
}

func (cmd *MetricsCmd) Run(app *appContext) error {
	m, err := metrics.Aggregate(app.store, app.registry, metrics.Options{IncludeArchives: cmd.IncludeArchives, Now: time.Now()})
	if err != nil {
		return err
	}
	if cmd.Format == "prom" {
		out, err := metrics.RenderProm(m)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(out)
		return err
	}
	return printJSON(m)
}

type StashCmd struct {
	Save   StashSaveCmd   `cmd:"" help:"Freeze the active workflow state as a new stash entry."`
	List   StashListCmd   `cmd:"" help:"List stashed entries, newest first."`
	Load   StashLoadCmd   `cmd:"" help:"Restore a stashed entry as the active workflow state."`
	Delete StashDeleteCmd `cmd:"" help:"Delete a stashed entry."`
}

type StashSaveCmd struct {
	Message string `help:"Optional note describing why this was stashed."`
}

func (cmd *StashSaveCmd) Run(app *appContext) error {
	st, err := app.store.LoadState()
	if err != nil {
		return err
	}
	if st.Workflow == nil {
		return herr.New(herr.KindTransitionNotAllowed, "no workflow is active to stash", nil)
	}
	return app.store.SaveStash(st.Workflow, cmd.Message, time.Now().UTC().Format(time.RFC3339))
}

type StashListCmd struct{}

func (cmd *StashListCmd) Run(app *appContext) error {
	entries, err := app.store.ListStashes()
	if err != nil {
		return err
	}
	return printJSON(entries)
}

type StashLoadCmd struct {
	Index int `arg:"" help:"Stash index to restore."`
}

func (cmd *StashLoadCmd) Run(app *appContext) error {
	entry, err := app.store.LoadStash(cmd.Index)
	if err != nil {
		return err
	}
	st, err := app.store.LoadState()
	if err != nil {
		return err
	}
	st.Workflow = entry.State
	return app.store.SaveState(st)
}

type StashDeleteCmd struct {
	Index int `arg:"" help:"Stash index to delete."`
}

func (cmd *StashDeleteCmd) Run(app *appContext) error {
	return app.store.DeleteStash(cmd.Index)
}

// GuardrailCmd wraps a command behind guardrails.yaml. The wrapped command
// and its arguments follow "--": `hegel guardrail -- git push --force`.
type GuardrailCmd struct {
	Command []string `arg:"" passthrough:"" help:"The command and arguments to evaluate and run."`
}

func (cmd *GuardrailCmd) Run(app *appContext) error {
	if len(cmd.Command) == 0 {
		return herr.New(herr.KindTransitionNotAllowed, "no command given to guardrail", nil)
	}
	if !app.cfg.Guardrails.Enabled {
		code, err := guardrail.ExecRunner(cmd.Command[0], cmd.Command[1:])
		os.Exit(code)
		return err
	}
	rulesProvider, err := newGuardrailProvider(app)
	if err != nil {
		return err
	}
	defer rulesProvider.Close()
	rules, err := guardrail.LoadFrom(rulesProvider)
	if err != nil {
		return err
	}
	code, err := guardrail.Wrap(app.store, rules, time.Now, cmd.Command[0], cmd.Command[1:], guardrail.ExecRunner)
	if err != nil {
		return err
	}
	os.Exit(code)
	return nil
}

// newGuardrailProvider builds the provider.Provider that serves
// guardrails.yaml, per app.cfg.Guardrails.Provider. An empty or "file" type
// resolves a relative RulesPath against the state directory, preserving the
// pre-provider default layout.
func newGuardrailProvider(app *appContext) (provider.Provider, error) {
	pc := app.cfg.Guardrails.Provider
	typ := provider.Type(pc.Type)
	if typ == "" {
		typ = provider.TypeFile
	}

	opts := provider.Options{
		ConsulKey:        pc.ConsulKey,
		ZookeeperServers: pc.ZookeeperServers,
		ZookeeperPath:    pc.ZookeeperPath,
	}
	if typ == provider.TypeFile {
		rulesPath := app.cfg.Guardrails.RulesPath
		if !filepath.IsAbs(rulesPath) {
			rulesPath = filepath.Join(app.store.Dir, rulesPath)
		}
		opts.Path = rulesPath
	}
	return provider.New(typ, opts)
}

func printOutcome(out *transition.Outcome) error {
	return printJSON(out)
}
