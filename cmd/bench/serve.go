package main

import (
	"log/slog"

	"github.com/DjordjeVuckovic/engine-bench/internal/api/results"
	"github.com/DjordjeVuckovic/engine-bench/internal/api/router"
	"github.com/DjordjeVuckovic/engine-bench/internal/api/server"
	pkgserver "github.com/DjordjeVuckovic/engine-bench/pkg/server"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	overrides := server.Config{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve finished runs over HTTP",
		Long: `Starts a read-only results browser over an output directory:
GET /runs, /runs/{id}/trials, /runs/{id}/tables/{engine} and /compare.
API docs are served at /swagger/index.html.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := server.LoadConfig(overrides)
			if err != nil {
				return err
			}

			s := server.New(cfg, pkgserver.NewDirHealthChecker(cfg.ResultsDir)).
				SetupMiddlewares().
				SetupErrorHandler().
				SetupHealthChecks("/health").
				SetupOpenApi("/swagger/*")

			router.NewResultsRouter(s.Echo, results.NewBrowser(cfg.ResultsDir)).Bind()

			slog.Info("Serving results", "dir", cfg.ResultsDir, "port", cfg.Port)
			return s.Start()
		},
	}

	f := cmd.Flags()
	f.StringVarP(&overrides.Port, "port", "p", "", "Listen port (default $PORT or 8080)")
	f.StringVarP(&overrides.ResultsDir, "dir", "d", "", "Results directory (default $BENCH_RESULTS_DIR or results)")
	f.BoolVar(&overrides.UseHttp2, "http2", false, "Enable HTTP/2")

	return cmd
}
