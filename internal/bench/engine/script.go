package engine

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/DjordjeVuckovic/engine-bench/internal/bench/command"
)

const (
	pingTimeout        = 5 * time.Second
	diagnosticsTimeout = 10 * time.Second
	maxDiagnostics     = 64 * 1024
)

type Commands struct {
	Init        command.Template
	Start       map[Mode]command.Template
	Stop        command.Template
	Diagnostics command.Template
}

// ScriptEngine drives an engine through shell commands (systemctl,
// mysqld_safe, pg_ctl, ...) and checks liveness through a Prober.
type ScriptEngine struct {
	name    string
	process string
	cmds    Commands
	prober  Prober
}

func NewScriptEngine(name, process string, cmds Commands, prober Prober) *ScriptEngine {
	return &ScriptEngine{
		name:    name,
		process: process,
		cmds:    cmds,
		prober:  prober,
	}
}

func (e *ScriptEngine) Init(ctx context.Context) error {
	if e.cmds.Init.IsZero() {
		return nil
	}
	return e.run(ctx, "init", e.cmds.Init)
}

func (e *ScriptEngine) Start(ctx context.Context, mode Mode) error {
	tmpl, ok := e.cmds.Start[mode]
	if !ok || tmpl.IsZero() {
		return fmt.Errorf("engine %q has no start command for mode %q", e.name, mode)
	}
	return e.run(ctx, "start", tmpl)
}

func (e *ScriptEngine) Stop(ctx context.Context) error {
	return e.run(ctx, "stop", e.cmds.Stop)
}

func (e *ScriptEngine) Ping(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return e.prober.Ping(ctx) == nil
}

func (e *ScriptEngine) Diagnostics(ctx context.Context) string {
	if e.cmds.Diagnostics.IsZero() {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, diagnosticsTimeout)
	defer cancel()

	out, err := e.output(ctx, e.cmds.Diagnostics)
	if err != nil {
		return fmt.Sprintf("%s\n(diagnostics command failed: %v)", out, err)
	}
	return out
}

func (e *ScriptEngine) Name() string    { return e.name }
func (e *ScriptEngine) Process() string { return e.process }
func (e *ScriptEngine) Close() error    { return e.prober.Close() }

func (e *ScriptEngine) run(ctx context.Context, step string, tmpl command.Template) error {
	out, err := e.output(ctx, tmpl)
	if err != nil {
		return fmt.Errorf("engine %q %s: %w: %s", e.name, step, err, strings.TrimSpace(out))
	}
	return nil
}

func (e *ScriptEngine) output(ctx context.Context, tmpl command.Template) (string, error) {
	cmd, err := tmpl.Render(command.Params{"engine": e.name, "process": e.process})
	if err != nil {
		return "", err
	}
	out, err := exec.CommandContext(ctx, cmd.Path, cmd.Args...).CombinedOutput()
	if len(out) > maxDiagnostics {
		out = out[len(out)-maxDiagnostics:]
	}
	return string(out), err
}
