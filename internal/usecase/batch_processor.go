package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/riskibarqy/fixture-pipeline/internal/domain/fixture"
	"github.com/riskibarqy/fixture-pipeline/internal/domain/matchstats"
	"github.com/riskibarqy/fixture-pipeline/internal/platform/logging"
)

const (
	StageFetch   = "fetch"
	StageProcess = "process"
	StageStatus  = "status"

	staleProcessingReason = "stale processing reset"
)

// DrainBudget bounds one drain. Zero values mean unbounded.
type DrainBudget struct {
	MaxMatches  int
	MaxDuration time.Duration
}

type MatchFailure struct {
	FixtureID int64  `json:"fixture_id"`
	Stage     string `json:"stage"`
	Error     string `json:"error"`
}

type DrainResult struct {
	Attempted       int            `json:"attempted"`
	Processed       int            `json:"processed"`
	Failed          int            `json:"failed"`
	StaleReset      int            `json:"stale_reset"`
	BudgetExhausted bool           `json:"budget_exhausted"`
	Failures        []MatchFailure `json:"failures,omitempty"`
}

type BatchProcessorConfig struct {
	StaleAfter time.Duration
	Budget     DrainBudget
}

// BatchProcessor drains the unprocessed queue one match at a time.
type BatchProcessor struct {
	ledger fixture.Ledger
	source MatchSource
	stats  matchstats.Repository
	cfg    BatchProcessorConfig
	logger *logging.Logger
	now    func() time.Time
}

func NewBatchProcessor(ledger fixture.Ledger, source MatchSource, stats matchstats.Repository, cfg BatchProcessorConfig, logger *logging.Logger) *BatchProcessor {
	if logger == nil {
		logger = logging.Default()
	}
	return &BatchProcessor{
		ledger: ledger,
		source: source,
		stats:  stats,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// DefaultBudget returns the configured per-run budget.
func (p *BatchProcessor) DefaultBudget() DrainBudget {
	return p.cfg.Budget
}

// Drain processes queued matches oldest first until none is eligible, the
// budget runs out or ctx is cancelled. A failing match never stops the loop.
func (p *BatchProcessor) Drain(ctx context.Context, budget DrainBudget) (DrainResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.BatchProcessor.Drain",
		attribute.Int("budget.max_matches", budget.MaxMatches),
		attribute.String("budget.max_duration", budget.MaxDuration.String()),
	)
	defer span.End()

	var result DrainResult
	startedAt := p.now()

	if p.cfg.StaleAfter > 0 {
		reset, err := p.ledger.ResetStaleProcessing(ctx, startedAt.Add(-p.cfg.StaleAfter), staleProcessingReason)
		if err != nil {
			return result, fmt.Errorf("reset stale processing: %w", err)
		}
		result.StaleReset = reset
		if reset > 0 {
			p.logger.WarnContext(ctx, "reset stale processing matches", "count", reset, "stale_after", p.cfg.StaleAfter.String())
		}
	}

	attempted := make([]int64, 0, 16)
	for {
		if err := ctx.Err(); err != nil {
			p.logDrain(ctx, result)
			return result, err
		}
		if budget.MaxMatches > 0 && result.Attempted >= budget.MaxMatches {
			result.BudgetExhausted = true
			break
		}
		if budget.MaxDuration > 0 && p.now().Sub(startedAt) >= budget.MaxDuration {
			result.BudgetExhausted = true
			break
		}

		entry, ok, err := p.ledger.NextQueued(ctx, fixture.QueueFilter{ExcludeIDs: attempted})
		if err != nil {
			return result, fmt.Errorf("select next queued match: %w", err)
		}
		if !ok {
			break
		}

		attempted = append(attempted, entry.FixtureID)
		result.Attempted++

		if failure := p.processOne(ctx, entry); failure != nil {
			result.Failed++
			result.Failures = append(result.Failures, *failure)
			continue
		}
		result.Processed++
	}

	p.logDrain(ctx, result)
	return result, nil
}

func (p *BatchProcessor) logDrain(ctx context.Context, result DrainResult) {
	p.logger.InfoContext(ctx, "queue drain finished",
		"attempted", result.Attempted,
		"processed", result.Processed,
		"failed", result.Failed,
		"stale_reset", result.StaleReset,
		"budget_exhausted", result.BudgetExhausted,
	)
}

// processOne runs fetch, process and save for one match. A non-nil failure
// means the match stays queued with a failed status.
func (p *BatchProcessor) processOne(ctx context.Context, entry fixture.QueueEntry) *MatchFailure {
	ctx, span := startUsecaseSpan(ctx, "usecase.BatchProcessor.processOne", attribute.Int64("fixture.id", entry.FixtureID))
	defer span.End()

	id := entry.FixtureID
	// Failure marks must land even when the run is cancelled mid-match.
	markCtx := context.WithoutCancel(ctx)
	p.logger.InfoContext(ctx, "processing match", "fixture_id", id, "round", entry.Round, "home", entry.HomeTeam, "away", entry.AwayTeam)

	if err := p.ledger.BeginProcessing(ctx, id); err != nil {
		return p.fail(ctx, id, StageStatus, fmt.Errorf("mark processing: %w", err))
	}

	if err := p.ledger.BeginFetch(ctx, id); err != nil {
		return p.fail(ctx, id, StageStatus, fmt.Errorf("mark fetch processing: %w", err))
	}
	detail, err := p.source.FetchMatchDetail(ctx, id)
	if err != nil {
		if markErr := p.ledger.FetchFailed(markCtx, id, fixture.TruncateError(err)); markErr != nil {
			err = errors.Join(err, fmt.Errorf("mark fetch failed: %w", markErr))
		}
		return p.fail(ctx, id, StageFetch, err)
	}
	if err := p.ledger.FetchSucceeded(ctx, id); err != nil {
		return p.fail(ctx, id, StageStatus, fmt.Errorf("mark fetch succeeded: %w", err))
	}

	if err := p.ledger.BeginProcess(ctx, id); err != nil {
		return p.fail(ctx, id, StageStatus, fmt.Errorf("mark process processing: %w", err))
	}
	if err := p.extractAndSave(ctx, id, detail); err != nil {
		if markErr := p.ledger.ProcessFailed(markCtx, id, fixture.TruncateError(err)); markErr != nil {
			err = errors.Join(err, fmt.Errorf("mark process failed: %w", markErr))
		}
		return p.fail(ctx, id, StageProcess, err)
	}

	if err := p.ledger.Complete(ctx, id); err != nil {
		wrapped := fmt.Errorf("complete match: %w", err)
		if markErr := p.ledger.ProcessFailed(markCtx, id, fixture.TruncateError(wrapped)); markErr != nil {
			wrapped = errors.Join(wrapped, fmt.Errorf("mark process failed: %w", markErr))
		}
		return p.fail(ctx, id, StageProcess, wrapped)
	}

	p.logger.InfoContext(ctx, "match processed", "fixture_id", id)
	return nil
}

func (p *BatchProcessor) extractAndSave(ctx context.Context, id int64, detail fixture.MatchDetail) error {
	detail.ID = id
	set, err := ExtractMatchStats(detail)
	if err != nil {
		return fmt.Errorf("extract stats: %w", err)
	}
	if err := p.stats.SaveMatchStats(ctx, set); err != nil {
		return fmt.Errorf("save stats: %w", err)
	}
	p.logger.DebugContext(ctx, "match stats saved",
		"fixture_id", id,
		"players", len(set.Players),
		"goalkeepers", len(set.Goalkeepers),
		"teams", len(set.Teams),
	)
	return nil
}

func (p *BatchProcessor) fail(ctx context.Context, id int64, stage string, err error) *MatchFailure {
	p.logger.WarnContext(ctx, "match processing failed", "fixture_id", id, "stage", stage, "error", err)
	return &MatchFailure{FixtureID: id, Stage: stage, Error: fixture.TruncateError(err)}
}
