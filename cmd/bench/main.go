// Package main Engine Bench
// @title Engine Bench Results API
// @version 1.0
// @description Read-only browser over benchmark runs: trials, merged tables and engine comparisons
// @BasePath /
package main

import (
	"errors"
	"log/slog"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}
