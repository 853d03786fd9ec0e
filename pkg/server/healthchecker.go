package server

import (
	"context"
	"os"
)

type HealthChecker interface {
	Healthy(ctx context.Context) bool
}

// DirHealthChecker is healthy while a directory can be listed.
type DirHealthChecker struct {
	dir string
}

func NewDirHealthChecker(dir string) *DirHealthChecker {
	return &DirHealthChecker{dir: dir}
}

func (hc *DirHealthChecker) Healthy(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	st, err := os.Stat(hc.dir)
	return err == nil && st.IsDir()
}
