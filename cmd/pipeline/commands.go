package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/riskibarqy/fixture-pipeline/internal/app"
	"github.com/riskibarqy/fixture-pipeline/internal/config"
	"github.com/riskibarqy/fixture-pipeline/internal/observability"
	"github.com/riskibarqy/fixture-pipeline/internal/platform/logging"
	"github.com/riskibarqy/fixture-pipeline/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

// runtime bundles the process-wide setup shared by every subcommand.
type runtime struct {
	cfg    config.Config
	logger *logging.Logger
	app    *app.App

	closers []func(context.Context) error
}

func bootstrap(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	format := "json"
	if cfg.AppEnv == config.EnvDev {
		format = "console"
	}
	logger := logging.New(cfg.LogLevel, format).With("service", cfg.ServiceName, "env", cfg.AppEnv)
	logging.SetDefault(logger)

	rt := &runtime{cfg: cfg, logger: logger}

	shutdownTracing, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init uptrace: %w", err)
	}
	rt.closers = append(rt.closers, shutdownTracing)

	stopProfiling, err := observability.StartProfiling(cfg, logger)
	if err != nil {
		rt.close()
		return nil, err
	}
	rt.closers = append(rt.closers, stopProfiling)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		rt.close()
		return nil, fmt.Errorf("build app: %w", err)
	}
	rt.app = a
	rt.closers = append(rt.closers, func(context.Context) error { return a.Close() })

	return rt, nil
}

// close releases resources in reverse order of acquisition.
func (rt *runtime) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](ctx); err != nil {
			rt.logger.Error("shutdown step failed", "error", err)
		}
	}
	_ = rt.logger.Sync()
}

func newRunCmd() *cobra.Command {
	var maxMatches int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one reconcile and drain cycle, then exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rt, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer rt.close()

			result, err := rt.app.Pipeline.RunOnce(ctx, usecase.RunOptions{MaxMatches: maxMatches})
			if err != nil {
				return fmt.Errorf("pipeline run %s: %w", result.RunID, err)
			}

			rt.logger.Info("pipeline run finished",
				"run_id", result.RunID,
				"status", result.Status,
				"inserted", result.Inserted,
				"updated", result.Updated,
				"failed", result.Failed,
				"skipped", result.Skipped,
				"duration_ms", result.DurationMs,
			)
			return nil
		},
	}
	cmd.Flags().IntVar(&maxMatches, "max-matches", 0, "Override the per-run drain budget (0 uses PIPELINE_MAX_MATCHES)")
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the fixture API and run the pipeline on PIPELINE_SCHEDULE",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rt, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer rt.close()

			srv, err := rt.app.HTTPServer()
			if err != nil {
				return err
			}

			var scheduler *app.Scheduler
			if rt.cfg.PipelineSchedule != "" {
				scheduler, err = app.NewScheduler(rt.cfg.PipelineSchedule, rt.app.Pipeline, rt.cfg.PipelineMaxDuration+time.Minute, rt.logger.Named("scheduler"))
				if err != nil {
					return err
				}
				scheduler.Start(ctx)
			}

			serveErr := make(chan error, 1)
			go func() {
				rt.logger.Info("http server starting", "addr", rt.cfg.HTTPAddr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
				}
				close(serveErr)
			}()

			select {
			case <-ctx.Done():
			case err := <-serveErr:
				if err != nil {
					rt.logger.Error("http server failed", "error", err)
					return err
				}
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if scheduler != nil {
				if err := scheduler.Stop(shutdownCtx); err != nil {
					rt.logger.Warn("scheduler stop timed out", "error", err)
				}
			}
			if err := srv.Shutdown(shutdownCtx); err != nil {
				rt.logger.Error("graceful shutdown failed", "error", err)
				return err
			}

			rt.logger.Info("http server stopped")
			return nil
		},
	}
}
