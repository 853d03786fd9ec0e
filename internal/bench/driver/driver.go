package driver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"syscall"
	"time"

	"github.com/DjordjeVuckovic/engine-bench/internal/bench/command"
	"github.com/DjordjeVuckovic/engine-bench/internal/bench/spec"
	"golang.org/x/sys/unix"
)

// DefaultWaitDelay bounds how long a killed driver may hold its output pipes.
const DefaultWaitDelay = 5 * time.Second

var ErrDriverMissing = errors.New("workload driver not found")

// Result is the outcome of one driver invocation. ExitCode is -1 when the
// process did not exit on its own.
type Result struct {
	Output   []byte
	ExitCode int
	Elapsed  time.Duration
	TimedOut bool
	// Err is set when the driver could not be started or awaited.
	Err error
}

// Driver runs a workload against an engine that is already up.
type Driver interface {
	Run(ctx context.Context, cfg spec.Configuration, timeout time.Duration) Result
}

// CommandDriver executes the workload's templated command, e.g.
// sysbench oltp_read_write --threads={{threads}} run.
type CommandDriver struct {
	commands map[string]command.Template
	lookPath func(string) (string, error)
	now      func() time.Time
}

type Option func(*CommandDriver)

func WithLookPath(fn func(string) (string, error)) Option {
	return func(d *CommandDriver) { d.lookPath = fn }
}

func NewCommandDriver(workloads []spec.Workload, opts ...Option) *CommandDriver {
	d := &CommandDriver{
		commands: make(map[string]command.Template, len(workloads)),
		lookPath: exec.LookPath,
		now:      time.Now,
	}
	for _, w := range workloads {
		d.commands[w.Name] = w.Command
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Preflight verifies every workload's executable is on PATH. A missing
// driver invalidates every trial that would use it.
func (d *CommandDriver) Preflight() error {
	var errs []error
	for name, tmpl := range d.commands {
		if _, err := d.lookPath(tmpl.Path); err != nil {
			errs = append(errs, fmt.Errorf("%w: workload %q: %s: %v", ErrDriverMissing, name, tmpl.Path, err))
		}
	}
	return errors.Join(errs...)
}

func (d *CommandDriver) Run(ctx context.Context, cfg spec.Configuration, timeout time.Duration) Result {
	tmpl, ok := d.commands[cfg.Workload]
	if !ok {
		return Result{ExitCode: -1, Err: fmt.Errorf("unknown workload %q", cfg.Workload)}
	}

	c, err := tmpl.Render(params(cfg, timeout))
	if err != nil {
		return Result{ExitCode: -1, Err: err}
	}

	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var out bytes.Buffer
	cmd := exec.CommandContext(runCtx, c.Path, c.Args...)
	cmd.Stdout = &out
	cmd.Stderr = &out
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		// the driver may fork client processes; take down the whole group
		return unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	}
	cmd.WaitDelay = DefaultWaitDelay

	start := d.now()
	err = cmd.Run()
	res := Result{
		Output:   out.Bytes(),
		ExitCode: -1,
		Elapsed:  d.now().Sub(start),
	}

	if timeout > 0 && timedOut(err, runCtx, ctx) {
		res.TimedOut = true
		res.Elapsed = timeout
		return res
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		res.ExitCode = 0
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		res.Err = fmt.Errorf("run %s: %w", c.String(), err)
	}
	if res.Err == nil && ctx.Err() != nil {
		res.Err = ctx.Err()
	}
	return res
}

// timedOut reports whether the run was cut short by its own deadline. A
// driver that exited cleanly counts as finished even if the deadline passed
// before the result was inspected.
func timedOut(runErr error, runCtx, parent context.Context) bool {
	return runErr != nil &&
		errors.Is(runCtx.Err(), context.DeadlineExceeded) &&
		parent.Err() == nil
}

func params(cfg spec.Configuration, timeout time.Duration) command.Params {
	return command.Params{
		"engine":   cfg.Engine,
		"workload": cfg.Workload,
		"threads":  cfg.Threads,
		"timeout":  strconv.Itoa(int(timeout.Seconds())),
	}
}
