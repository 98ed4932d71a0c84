package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
	"go.opentelemetry.io/otel/attribute"

	"github.com/riskibarqy/fixture-pipeline/internal/domain/fixture"
	"github.com/riskibarqy/fixture-pipeline/internal/platform/logging"
)

type ReconcileMode string

const (
	ReconcileModeBootstrap   ReconcileMode = "bootstrap"
	ReconcileModeIncremental ReconcileMode = "incremental"
)

type ReconcileResult struct {
	Mode            ReconcileMode `json:"mode"`
	FinishedFetched int           `json:"finished_fetched"`
	UpcomingFetched int           `json:"upcoming_fetched"`
	Candidates      int           `json:"candidates"`
	NewlyFinished   int           `json:"newly_finished"`
	StillLive       int           `json:"still_live"`
	Rescheduled     int           `json:"rescheduled"`
	Skipped         int           `json:"skipped"`
	Pruned          int           `json:"pruned"`
	Upcoming        BatchResult   `json:"upcoming"`
	Finished        BatchResult   `json:"finished"`
}

// ReconcileService diffs the provider schedule against the ledger and moves
// matches that left the schedule into the finished set.
type ReconcileService struct {
	source  MatchSource
	ledger  fixture.Ledger
	batches *LedgerService
	logger  *logging.Logger
}

func NewReconcileService(source MatchSource, ledger fixture.Ledger, logger *logging.Logger) *ReconcileService {
	if logger == nil {
		logger = logging.Default()
	}
	return &ReconcileService{
		source:  source,
		ledger:  ledger,
		batches: NewLedgerService(ledger, logger),
		logger:  logger,
	}
}

// Reconcile picks bootstrap mode when the ledger has no finished matches and
// incremental mode otherwise.
func (s *ReconcileService) Reconcile(ctx context.Context) (ReconcileResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ReconcileService.Reconcile")
	defer span.End()

	finishedCount, err := s.ledger.CountFinished(ctx)
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("count finished matches: %w", err)
	}

	if finishedCount == 0 {
		span.SetAttributes(attribute.String("reconcile.mode", string(ReconcileModeBootstrap)))
		return s.bootstrap(ctx)
	}
	span.SetAttributes(attribute.String("reconcile.mode", string(ReconcileModeIncremental)))
	return s.incremental(ctx)
}

func (s *ReconcileService) bootstrap(ctx context.Context) (ReconcileResult, error) {
	result := ReconcileResult{Mode: ReconcileModeBootstrap}
	s.logger.InfoContext(ctx, "ledger is empty, running bootstrap reconciliation")

	history, upcoming, err := s.fetchBootstrapLists(ctx)
	if err != nil {
		return result, err
	}
	result.FinishedFetched = len(history)
	result.UpcomingFetched = len(upcoming)

	result.Finished = s.batches.MarkFinishedBatch(ctx, history)
	result.NewlyFinished = result.Finished.Queued
	result.Upcoming = s.batches.SaveUpcoming(ctx, upcoming)

	s.logger.InfoContext(ctx, "bootstrap reconciliation completed",
		"finished_fetched", result.FinishedFetched,
		"upcoming_fetched", result.UpcomingFetched,
		"queued", result.Finished.Queued,
		"failed", result.Finished.Failed+result.Upcoming.Failed,
	)
	return result, nil
}

// fetchBootstrapLists runs the two read-only list fetches concurrently.
func (s *ReconcileService) fetchBootstrapLists(ctx context.Context) ([]fixture.Match, []fixture.Match, error) {
	pool, err := ants.NewPool(2)
	if err != nil {
		return nil, nil, fmt.Errorf("create fetch pool: %w", err)
	}
	defer pool.Release()

	var (
		wg          sync.WaitGroup
		history     []fixture.Match
		upcoming    []fixture.Match
		historyErr  error
		upcomingErr error
	)

	wg.Add(2)
	if err := pool.Submit(func() {
		defer wg.Done()
		history, historyErr = s.source.FetchFinishedHistory(ctx)
	}); err != nil {
		wg.Done()
		historyErr = fmt.Errorf("submit history fetch: %w", err)
	}
	if err := pool.Submit(func() {
		defer wg.Done()
		upcoming, upcomingErr = s.source.FetchUpcoming(ctx)
	}); err != nil {
		wg.Done()
		upcomingErr = fmt.Errorf("submit upcoming fetch: %w", err)
	}
	wg.Wait()

	if historyErr != nil {
		return nil, nil, fmt.Errorf("fetch finished history: %w", historyErr)
	}
	if upcomingErr != nil {
		return nil, nil, fmt.Errorf("fetch upcoming fixtures: %w", upcomingErr)
	}
	return history, upcoming, nil
}

func (s *ReconcileService) incremental(ctx context.Context) (ReconcileResult, error) {
	result := ReconcileResult{Mode: ReconcileModeIncremental}

	storedIDs, err := s.ledger.UpcomingIDs(ctx)
	if err != nil {
		return result, fmt.Errorf("load stored upcoming ids: %w", err)
	}

	fresh, err := s.source.FetchUpcoming(ctx)
	if err != nil {
		return result, fmt.Errorf("fetch upcoming fixtures: %w", err)
	}
	result.UpcomingFetched = len(fresh)

	candidates := DiffUpcoming(storedIDs, fresh)
	result.Candidates = len(candidates)
	s.logger.InfoContext(ctx, "incremental reconciliation diff computed",
		"stored_upcoming", len(storedIDs),
		"fresh_upcoming", len(fresh),
		"candidates", len(candidates),
	)

	keep := make([]int64, 0, len(fresh)+len(candidates))
	for _, m := range fresh {
		keep = append(keep, m.ID)
	}

	for _, candidateID := range candidates {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		kept := s.resolveCandidate(ctx, candidateID, &result)
		if kept {
			keep = append(keep, candidateID)
		}
	}

	result.Upcoming = result.Upcoming.Add(s.batches.SaveUpcoming(ctx, fresh))

	pruned, err := s.ledger.PruneUpcoming(ctx, keep)
	if err != nil {
		s.logger.WarnContext(ctx, "prune upcoming snapshot failed", "error", err)
	}
	result.Pruned = pruned

	s.logger.InfoContext(ctx, "incremental reconciliation completed",
		"candidates", result.Candidates,
		"newly_finished", result.NewlyFinished,
		"still_live", result.StillLive,
		"rescheduled", result.Rescheduled,
		"skipped", result.Skipped,
		"pruned", result.Pruned,
	)
	return result, nil
}

// resolveCandidate looks up a match that left the schedule. It reports whether
// the match stays in the upcoming snapshot.
func (s *ReconcileService) resolveCandidate(ctx context.Context, matchID int64, result *ReconcileResult) bool {
	detail, err := s.source.FetchMatchDetail(ctx, matchID)
	if err != nil {
		result.Skipped++
		s.logger.WarnContext(ctx, "candidate detail fetch failed, keeping last known state", "fixture_id", matchID, "error", err)
		return true
	}

	match := detail.Match
	match.ID = matchID

	switch match.StatusGroup {
	case fixture.StatusGroupFinished:
		outcome := s.batches.markFinished(ctx, match)
		result.Finished = result.Finished.Add(outcome)
		result.FinishedFetched++
		if outcome.Failed > 0 {
			return true
		}
		result.NewlyFinished++
		s.logger.InfoContext(ctx, "match finished", "fixture_id", matchID, "home", match.HomeTeam, "away", match.AwayTeam, "score", fmt.Sprintf("%d-%d", match.HomeScore, match.AwayScore))
		return false
	case fixture.StatusGroupLive:
		result.StillLive++
	default:
		result.Rescheduled++
	}

	result.Upcoming = result.Upcoming.Add(s.batches.SaveUpcoming(ctx, []fixture.Match{match}))
	return true
}

// DiffUpcoming returns stored ids missing from the fresh list, in stored order.
func DiffUpcoming(stored []int64, fresh []fixture.Match) []int64 {
	freshIDs := make(map[int64]struct{}, len(fresh))
	for _, m := range fresh {
		freshIDs[m.ID] = struct{}{}
	}

	out := make([]int64, 0)
	seen := make(map[int64]struct{}, len(stored))
	for _, id := range stored {
		if _, ok := freshIDs[id]; ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
