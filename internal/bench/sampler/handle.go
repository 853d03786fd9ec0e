package sampler

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// handle owns one running sampling process and the file it writes to.
type handle struct {
	axis Axis
	path string
	cmd  *exec.Cmd
	out  *os.File

	done    chan struct{}
	waitErr error
}

func startHandle(axis Axis, binary string, args []string, path string) (*handle, error) {
	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create sample file for %q: %w", axis.Name, err)
	}

	cmd := exec.Command(binary, args...)
	cmd.Stdout = out
	cmd.Env = append(os.Environ(), "LC_ALL=C", "S_TIME_FORMAT=ISO")
	// own process group: a terminal ^C must not cut samplers off mid-line
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		_ = out.Close()
		return nil, fmt.Errorf("start sampler %q: %w", axis.Name, err)
	}

	h := &handle{
		axis: axis,
		path: path,
		cmd:  cmd,
		out:  out,
		done: make(chan struct{}),
	}
	go func() {
		h.waitErr = cmd.Wait()
		close(h.done)
	}()

	return h, nil
}

func (h *handle) exited() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// stop interrupts the process, escalates to SIGKILL after grace and only
// returns once the process has been reaped and its file closed.
func (h *handle) stop(grace time.Duration) error {
	var killErr error

	if !h.exited() {
		if err := h.cmd.Process.Signal(os.Interrupt); err != nil && !errors.Is(err, os.ErrProcessDone) {
			killErr = err
		}

		select {
		case <-h.done:
		case <-time.After(grace):
			if err := h.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
				killErr = err
			}
			<-h.done
		}
	}

	if err := h.out.Close(); err != nil {
		return fmt.Errorf("close sample file for %q: %w", h.axis.Name, err)
	}
	if killErr != nil {
		return fmt.Errorf("signal sampler %q: %w", h.axis.Name, killErr)
	}
	return nil
}
