package coldstate

import (
	"errors"
	"fmt"

	"github.com/prometheus/procfs"
	"golang.org/x/sys/unix"
)

// comm(5) values are truncated to 15 bytes by the kernel.
const maxCommLen = 15

// ProcessFinder lists running processes by executable name.
type ProcessFinder interface {
	Find(name string) ([]int, error)
}

type ProcFinder struct {
	fs procfs.FS
}

func NewProcFinder(mountPoint string) (*ProcFinder, error) {
	if mountPoint == "" {
		mountPoint = procfs.DefaultMountPoint
	}
	fs, err := procfs.NewFS(mountPoint)
	if err != nil {
		return nil, fmt.Errorf("open procfs %s: %w", mountPoint, err)
	}
	return &ProcFinder{fs: fs}, nil
}

func (f *ProcFinder) Find(name string) ([]int, error) {
	procs, err := f.fs.AllProcs()
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}
	if len(name) > maxCommLen {
		name = name[:maxCommLen]
	}

	var pids []int
	for _, p := range procs {
		comm, err := p.Comm()
		if err != nil {
			// exited between listing and reading
			continue
		}
		if comm == name {
			pids = append(pids, p.PID)
		}
	}
	return pids, nil
}

// Killer force-terminates a process.
type Killer func(pid int) error

func SigKill(pid int) error {
	if err := unix.Kill(pid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
		return fmt.Errorf("kill %d: %w", pid, err)
	}
	return nil
}
