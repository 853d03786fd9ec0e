package sampler

import (
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/DjordjeVuckovic/engine-bench/internal/bench/command"
	"golang.org/x/sync/errgroup"
)

const DefaultStopGrace = 5 * time.Second

var ErrAxisUnavailable = errors.New("sampler axis unavailable")

type Sampler struct {
	axes     []Axis
	grace    time.Duration
	lookPath func(string) (string, error)
	log      *slog.Logger
}

type Option func(*Sampler)

func WithStopGrace(d time.Duration) Option {
	return func(s *Sampler) { s.grace = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Sampler) { s.log = l }
}

func WithLookPath(fn func(string) (string, error)) Option {
	return func(s *Sampler) { s.lookPath = fn }
}

func New(axes []Axis, opts ...Option) *Sampler {
	s := &Sampler{
		axes:     axes,
		grace:    DefaultStopGrace,
		lookPath: exec.LookPath,
		log:      slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// AxisFile is where one axis wrote its samples during a session.
type AxisFile struct {
	Axis Axis
	Path string
}

// Session is the set of sampling processes for one trial.
type Session struct {
	handles []*handle
	absent  []string
	grace   time.Duration

	stopOnce sync.Once
	stopErr  error
}

// Start launches one sampling process per axis, each writing to
// dir/<axis>.txt. An axis whose tool is missing on the host is recorded as
// absent instead of failing the session.
func (s *Sampler) Start(dir string, params command.Params) (*Session, error) {
	sess := &Session{grace: s.grace}

	for _, axis := range s.axes {
		cmd, err := axis.Command.Render(params)
		if err != nil {
			_ = sess.Stop()
			return nil, fmt.Errorf("render sampler %q: %w", axis.Name, err)
		}

		binary, err := s.lookPath(cmd.Path)
		if err != nil {
			err = fmt.Errorf("%w: %s: %v", ErrAxisUnavailable, cmd.Path, err)
			s.log.Warn("Sampler axis skipped", "axis", axis.Name, "error", err)
			sess.absent = append(sess.absent, axis.Name)
			continue
		}

		h, err := startHandle(axis, binary, cmd.Args, filepath.Join(dir, axis.Name+".txt"))
		if err != nil {
			s.log.Warn("Sampler axis failed to start", "axis", axis.Name, "error", err)
			sess.absent = append(sess.absent, axis.Name)
			continue
		}
		sess.handles = append(sess.handles, h)
	}

	s.log.Debug("Sampling started", "axes", len(sess.handles), "absent", sess.absent)
	return sess, nil
}

// Stop signals every sampling process and blocks until all of them have
// exited. It is safe to call more than once.
func (sess *Session) Stop() error {
	sess.stopOnce.Do(func() {
		var g errgroup.Group
		for _, h := range sess.handles {
			g.Go(func() error {
				return h.stop(sess.grace)
			})
		}
		sess.stopErr = g.Wait()
	})
	return sess.stopErr
}

func (sess *Session) Absent() []string {
	return sess.absent
}

// Files lists the sample files of every axis that was started.
func (sess *Session) Files() []AxisFile {
	files := make([]AxisFile, 0, len(sess.handles))
	for _, h := range sess.handles {
		files = append(files, AxisFile{Axis: h.axis, Path: h.path})
	}
	return files
}

// Running reports how many sampling processes have not exited yet.
func (sess *Session) Running() int {
	n := 0
	for _, h := range sess.handles {
		if !h.exited() {
			n++
		}
	}
	return n
}
