package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/riskibarqy/fixture-pipeline/internal/platform/logging"
	"github.com/riskibarqy/fixture-pipeline/internal/usecase"
)

type pipelineRunner interface {
	RunOnce(ctx context.Context, opts usecase.RunOptions) (usecase.RunResult, error)
}

// Scheduler triggers pipeline runs on a cron expression evaluated in UTC.
// A tick that fires while the previous run is still going is skipped.
type Scheduler struct {
	cron    *cron.Cron
	runner  pipelineRunner
	logger  *logging.Logger
	timeout time.Duration

	mu      sync.Mutex
	baseCtx context.Context
	cancel  context.CancelFunc
}

func NewScheduler(spec string, runner pipelineRunner, timeout time.Duration, logger *logging.Logger) (*Scheduler, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, fmt.Errorf("schedule cannot be empty")
	}
	if runner == nil {
		return nil, fmt.Errorf("pipeline runner is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	cronLog := cronLogger{logger: logger}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		runner:  runner,
		logger:  logger,
		timeout: timeout,
		baseCtx: context.Background(),
	}
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start begins ticking. Runs started by the scheduler are canceled when ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.baseCtx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("pipeline scheduler started", "entries", len(s.cron.Entries()))
}

// Stop halts new ticks and waits for an in-flight run to return or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()

	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	select {
	case <-done.Done():
		if cancel != nil {
			cancel()
		}
		return nil
	case <-ctx.Done():
		if cancel != nil {
			cancel()
		}
		return ctx.Err()
	}
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	base := s.baseCtx
	s.mu.Unlock()

	ctx := base
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(base, s.timeout)
		defer cancel()
	}

	result, err := s.runner.RunOnce(ctx, usecase.RunOptions{})
	switch {
	case errors.Is(err, usecase.ErrRunInProgress):
		s.logger.WarnContext(ctx, "scheduled pipeline run skipped, another run is active")
	case err != nil:
		s.logger.ErrorContext(ctx, "scheduled pipeline run failed", "run_id", result.RunID, "error", err)
	default:
		s.logger.InfoContext(ctx, "scheduled pipeline run finished",
			"run_id", result.RunID,
			"status", result.Status,
			"inserted", result.Inserted,
			"updated", result.Updated,
			"failed", result.Failed,
			"duration_ms", result.DurationMs,
		)
	}
}

// cronLogger adapts logging.Logger to cron.Logger.
type cronLogger struct {
	logger *logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron "+msg, append(keysAndValues, "error", err)...)
}
