package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/riskibarqy/fixture-pipeline/internal/domain/fixture"
	"github.com/riskibarqy/fixture-pipeline/internal/domain/synclog"
	"github.com/riskibarqy/fixture-pipeline/internal/platform/id"
	"github.com/riskibarqy/fixture-pipeline/internal/platform/logging"
)

const SourceName = "365scores"

var ErrRunInProgress = errors.New("pipeline run already in progress")

// PipelineMetrics receives run outcomes. Implementations must be safe for
// concurrent use.
type PipelineMetrics interface {
	ObserveRun(status string, elapsed time.Duration)
	ObserveReconcile(result ReconcileResult)
	ObserveDrain(result DrainResult)
}

type RunOptions struct {
	MaxMatches int
}

type RunResult struct {
	RunID      string          `json:"run_id"`
	Status     string          `json:"status"`
	Reconcile  ReconcileResult `json:"reconcile"`
	Drain      DrainResult     `json:"drain"`
	Inserted   int             `json:"inserted"`
	Updated    int             `json:"updated"`
	Failed     int             `json:"failed"`
	Skipped    int             `json:"skipped"`
	DurationMs int64           `json:"duration_ms"`
}

type PipelineServiceConfig struct {
	// OnRunCompleted runs after the sync log entry is closed.
	OnRunCompleted func(ctx context.Context)
}

// PipelineService runs one audited pipeline invocation: reconcile, then drain.
type PipelineService struct {
	reconciler *ReconcileService
	processor  *BatchProcessor
	syncLogs   synclog.Repository
	ids        id.Generator
	metrics    PipelineMetrics
	cfg        PipelineServiceConfig
	logger     *logging.Logger
	now        func() time.Time

	running sync.Mutex
}

func NewPipelineService(
	reconciler *ReconcileService,
	processor *BatchProcessor,
	syncLogs synclog.Repository,
	ids id.Generator,
	metrics PipelineMetrics,
	cfg PipelineServiceConfig,
	logger *logging.Logger,
) *PipelineService {
	if logger == nil {
		logger = logging.Default()
	}
	if ids == nil {
		ids = id.NewRunIDGenerator("pipeline")
	}
	return &PipelineService{
		reconciler: reconciler,
		processor:  processor,
		syncLogs:   syncLogs,
		ids:        ids,
		metrics:    metrics,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// RunOnce executes one full pipeline invocation. Overlapping calls in the same
// process return ErrRunInProgress.
func (s *PipelineService) RunOnce(ctx context.Context, opts RunOptions) (RunResult, error) {
	if !s.running.TryLock() {
		return RunResult{}, ErrRunInProgress
	}
	defer s.running.Unlock()

	if opts.MaxMatches < 0 {
		return RunResult{}, fmt.Errorf("%w: max matches must be >= 0", ErrInvalidInput)
	}

	runID, err := s.ids.NewID()
	if err != nil {
		return RunResult{}, fmt.Errorf("generate run id: %w", err)
	}

	ctx, span := startRunSpan(ctx, "usecase.PipelineService.RunOnce", attribute.String("pipeline.run_id", runID))
	startedAt := s.now()
	result := RunResult{RunID: runID, Status: synclog.StatusRunning}

	var runErr error
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveRun(result.Status, s.now().Sub(startedAt))
		}
		endSpan(span, runErr)
	}()

	logger := s.logger.With("run_id", runID)
	if err := s.syncLogs.Start(ctx, synclog.Entry{
		RunID:     runID,
		Source:    SourceName,
		Status:    synclog.StatusRunning,
		StartedAt: startedAt.UTC(),
	}); err != nil {
		runErr = fmt.Errorf("start sync log: %w", err)
		result.Status = synclog.StatusFailed
		result.DurationMs = s.now().Sub(startedAt).Milliseconds()
		return result, runErr
	}
	logger.InfoContext(ctx, "pipeline run started")

	reconciled, err := s.reconciler.Reconcile(ctx)
	result.Reconcile = reconciled
	if s.metrics != nil {
		s.metrics.ObserveReconcile(reconciled)
	}
	if err != nil {
		runErr = fmt.Errorf("reconcile: %w", err)
		s.finish(ctx, logger, &result, startedAt, runErr)
		return result, runErr
	}

	budget := s.processor.DefaultBudget()
	if opts.MaxMatches > 0 {
		budget.MaxMatches = opts.MaxMatches
	}
	drained, err := s.processor.Drain(ctx, budget)
	result.Drain = drained
	if s.metrics != nil {
		s.metrics.ObserveDrain(drained)
	}
	if err != nil {
		runErr = fmt.Errorf("drain queue: %w", err)
		s.finish(ctx, logger, &result, startedAt, runErr)
		return result, runErr
	}

	s.finish(ctx, logger, &result, startedAt, nil)
	return result, nil
}

func (s *PipelineService) finish(ctx context.Context, logger *logging.Logger, result *RunResult, startedAt time.Time, runErr error) {
	rec := result.Reconcile
	result.DurationMs = s.now().Sub(startedAt).Milliseconds()
	result.Inserted = rec.Upcoming.Inserted + rec.Finished.Inserted
	result.Updated = rec.Upcoming.Updated + rec.Finished.Updated
	result.Failed = rec.Upcoming.Failed + rec.Finished.Failed + result.Drain.Failed
	result.Skipped = rec.Skipped

	completion := synclog.Completion{
		Status:            synclog.StatusSuccess,
		FinishedFetched:   rec.FinishedFetched,
		UnfinishedFetched: rec.UpcomingFetched,
	}
	if runErr != nil {
		completion.Status = synclog.StatusFailed
		completion.ErrorMessage = fixture.TruncateError(runErr)
	}
	result.Status = completion.Status

	// The audit row must be closed even when the run context was cancelled.
	completeCtx := context.WithoutCancel(ctx)
	if err := s.syncLogs.Complete(completeCtx, result.RunID, completion); err != nil {
		logger.ErrorContext(ctx, "complete sync log failed", "error", err)
	}
	if s.cfg.OnRunCompleted != nil {
		s.cfg.OnRunCompleted(completeCtx)
	}

	if runErr != nil {
		logger.ErrorContext(ctx, "pipeline run failed", "error", runErr, "failed", result.Failed)
		return
	}
	logger.InfoContext(ctx, "pipeline run completed",
		"mode", string(rec.Mode),
		"inserted", result.Inserted,
		"updated", result.Updated,
		"failed", result.Failed,
		"skipped", result.Skipped,
		"processed", result.Drain.Processed,
	)
}
