package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/molprop/platform/internal/application/bioisostere"
	"github.com/molprop/platform/internal/application/lookup"
	"github.com/molprop/platform/internal/application/mmp"
	"github.com/molprop/platform/internal/application/pareto"
	"github.com/molprop/platform/internal/application/pipeline"
	"github.com/molprop/platform/internal/application/runs"
	"github.com/molprop/platform/internal/application/sar"
	"github.com/molprop/platform/internal/application/visualize"
	"github.com/molprop/platform/internal/domain/run"
	"github.com/molprop/platform/internal/infrastructure/monitoring/logging"
	"github.com/molprop/platform/internal/infrastructure/monitoring/prometheus"
	httpapi "github.com/molprop/platform/internal/interfaces/http"
	"github.com/molprop/platform/internal/interfaces/http/handlers"
	"github.com/molprop/platform/internal/interfaces/http/middleware"
)

// newWebCmd serves the dashboard from the CLI with everything running
// in-process: no Postgres, no Redis, no queue. Analyses execute
// synchronously and runs live on the local filesystem. The full
// deployment lives in cmd/apiserver.
func newWebCmd(a *app) *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "web",
		Short: "Serve the dashboard API locally",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg.Server
			if host != "" {
				cfg.Host = host
			}
			if port != 0 {
				cfg.Port = port
			}

			metrics := prometheus.NewMetrics(a.logger)
			toolkit := run.NewToolkit(
				a.cfg.Toolkit.CalcCommand,
				a.cfg.Toolkit.ReportCommand,
				a.cfg.Toolkit.PicklistsCommand,
				a.cfg.Toolkit.StepTimeout,
				a.logger,
			)
			viz := visualize.NewService(a.logger, metrics)
			pipelineSvc := pipeline.NewService(a.cfg.Runs.BaseDir, toolkit, viz,
				pipeline.Options{Metrics: metrics}, a.logger)
			runsSvc := runs.NewService(a.cfg.Runs.BaseDir, nil, nil, a.logger)

			router := httpapi.NewRouter(httpapi.RouterConfig{
				Tables: handlers.NewTableHandler(
					filepath.Join(a.cfg.Runs.BaseDir, "uploads"), metrics, a.logger),
				Analyses: handlers.NewAnalysisHandler(handlers.AnalysisServices{
					Visualize:   viz,
					Pareto:      pareto.NewService(a.logger, metrics),
					MMP:         mmp.NewService(a.logger, metrics),
					SAR:         sar.NewService(a.logger, metrics),
					Lookup:      lookup.NewService(a.logger, metrics, nil, nil),
					Bioisostere: bioisostere.NewService(a.logger, metrics),
				}, nil, nil, metrics, a.logger),
				Runs:    handlers.NewRunHandler(pipelineSvc, runsSvc, a.logger),
				Health:  handlers.NewHealthHandler(Version, nil, a.logger),
				CORS:    middleware.DefaultCORSConfig(),
				Logging: middleware.DefaultLoggingConfig(),
				Metrics: metrics,
				Logger:  a.logger,
			})

			srv := httpapi.NewServer(cfg, router, a.logger)

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()
			fmt.Fprintf(cmd.OutOrStdout(), "Dashboard listening on %s:%d\n", cfg.Host, cfg.Port)

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				a.logger.Info("shutting down", logging.String("signal", sig.String()))
				return srv.Stop(context.Background())
			}
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "bind address (overrides config)")
	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides config)")
	return cmd
}
