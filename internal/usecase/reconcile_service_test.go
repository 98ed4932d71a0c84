package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/riskibarqy/fixture-pipeline/internal/domain/fixture"
	"github.com/riskibarqy/fixture-pipeline/internal/infrastructure/repository/memory"
	sourcemock "github.com/riskibarqy/fixture-pipeline/internal/mocks/usecase"
)

var reconcileBase = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func scheduledMatch(id int64, round int) fixture.Match {
	return fixture.Match{
		ID:          id,
		Round:       round,
		HomeTeam:    "Home",
		AwayTeam:    "Away",
		KickoffAt:   reconcileBase.Add(time.Duration(id) * time.Hour),
		Status:      "Scheduled",
		StatusGroup: fixture.StatusGroupScheduled,
	}
}

func endedMatch(id int64, round int) fixture.Match {
	m := scheduledMatch(id, round)
	m.Status = "Ended"
	m.StatusGroup = fixture.StatusGroupFinished
	m.HomeScore = 2
	m.AwayScore = 1
	return m
}

func detailFor(m fixture.Match) fixture.MatchDetail {
	return fixture.MatchDetail{
		Match:   m,
		HasHome: true,
		HasAway: true,
		Home:    fixture.Competitor{ID: 1, Name: m.HomeTeam, Score: m.HomeScore},
		Away:    fixture.Competitor{ID: 2, Name: m.AwayTeam, Score: m.AwayScore},
	}
}

// seedIncremental puts one archived match in the ledger so reconciliation runs
// incrementally, then stores the given upcoming ids.
func seedIncremental(t *testing.T, ledger *memory.LedgerRepository, upcoming ...int64) {
	t.Helper()
	ctx := context.Background()
	if _, err := ledger.MarkFinished(ctx, endedMatch(9000, 1)); err != nil {
		t.Fatalf("seed finished: %v", err)
	}
	for _, id := range upcoming {
		if _, err := ledger.UpsertUpcoming(ctx, scheduledMatch(id, 5)); err != nil {
			t.Fatalf("seed upcoming: %v", err)
		}
	}
}

func TestDiffUpcoming(t *testing.T) {
	t.Parallel()

	fresh := []fixture.Match{scheduledMatch(2, 1), scheduledMatch(3, 1)}
	got := DiffUpcoming([]int64{1, 2, 3}, fresh)
	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("expected [1], got %v", got)
	}

	if got := DiffUpcoming(nil, fresh); len(got) != 0 {
		t.Fatalf("expected no candidates for empty store, got %v", got)
	}
	if got := DiffUpcoming([]int64{4, 4, 5}, nil); len(got) != 2 || got[0] != 4 || got[1] != 5 {
		t.Fatalf("expected deduplicated stored order, got %v", got)
	}
}

func TestReconcileService_BootstrapThenIncremental(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ledger := memory.NewLedgerRepository()
	source := sourcemock.NewMatchSource(t)

	history := make([]fixture.Match, 0, 8)
	for i := int64(1); i <= 8; i++ {
		history = append(history, endedMatch(i, int(i)))
	}
	upcoming := make([]fixture.Match, 0, 6)
	for i := int64(101); i <= 106; i++ {
		upcoming = append(upcoming, scheduledMatch(i, 10))
	}

	source.On("FetchFinishedHistory", mock.Anything).Return(history, nil).Once()
	source.On("FetchUpcoming", mock.Anything).Return(upcoming, nil).Once()

	svc := NewReconcileService(source, ledger, nil)

	first, err := svc.Reconcile(ctx)
	if err != nil {
		t.Fatalf("bootstrap reconcile: %v", err)
	}
	if first.Mode != ReconcileModeBootstrap || first.Finished.Queued != 8 || first.Upcoming.Inserted != 6 {
		t.Fatalf("unexpected bootstrap result %+v", first)
	}
	counts, _ := ledger.Counts(ctx)
	if counts.Finished != 8 || counts.Queued != 8 || counts.Upcoming != 6 {
		t.Fatalf("unexpected counts after bootstrap %+v", counts)
	}

	finished := scheduledMatch(101, 10)
	finished.StatusGroup = fixture.StatusGroupFinished
	finished.Status = "Ended"
	source.On("FetchUpcoming", mock.Anything).Return(upcoming[1:], nil).Once()
	source.On("FetchMatchDetail", mock.Anything, int64(101)).Return(detailFor(finished), nil).Once()

	second, err := svc.Reconcile(ctx)
	if err != nil {
		t.Fatalf("incremental reconcile: %v", err)
	}
	if second.Mode != ReconcileModeIncremental || second.Candidates != 1 || second.NewlyFinished != 1 {
		t.Fatalf("unexpected incremental result %+v", second)
	}
	counts, _ = ledger.Counts(ctx)
	if counts.Finished != 9 || counts.Queued != 9 || counts.Upcoming != 5 {
		t.Fatalf("unexpected counts after incremental %+v", counts)
	}
}

func TestReconcileService_CandidateFinished(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ledger := memory.NewLedgerRepository()
	seedIncremental(t, ledger, 1, 2, 3)

	source := sourcemock.NewMatchSource(t)
	source.On("FetchUpcoming", mock.Anything).Return([]fixture.Match{scheduledMatch(2, 5), scheduledMatch(3, 5)}, nil).Once()
	source.On("FetchMatchDetail", mock.Anything, int64(1)).Return(detailFor(endedMatch(1, 5)), nil).Once()

	result, err := NewReconcileService(source, ledger, nil).Reconcile(ctx)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if result.Candidates != 1 || result.NewlyFinished != 1 {
		t.Fatalf("unexpected result %+v", result)
	}

	ids, _ := ledger.UpcomingIDs(ctx)
	if len(ids) != 2 || ids[0] != 2 || ids[1] != 3 {
		t.Fatalf("expected upcoming [2 3], got %v", ids)
	}
	status, ok, _ := ledger.GetStatus(ctx, 1)
	if !ok || status.OverallStatus != fixture.OverallPending {
		t.Fatalf("expected pending status for newly finished match, got %+v ok=%v", status, ok)
	}
	counts, _ := ledger.Counts(ctx)
	if counts.Queued != 2 {
		t.Fatalf("expected seed match and match 1 queued, got %+v", counts)
	}
}

func TestReconcileService_CandidateStillLive(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ledger := memory.NewLedgerRepository()
	seedIncremental(t, ledger, 1, 2)

	live := scheduledMatch(1, 5)
	live.StatusGroup = fixture.StatusGroupLive
	live.Status = "65'"

	source := sourcemock.NewMatchSource(t)
	source.On("FetchUpcoming", mock.Anything).Return([]fixture.Match{scheduledMatch(2, 5)}, nil).Once()
	source.On("FetchMatchDetail", mock.Anything, int64(1)).Return(detailFor(live), nil).Once()

	result, err := NewReconcileService(source, ledger, nil).Reconcile(ctx)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if result.StillLive != 1 || result.NewlyFinished != 0 {
		t.Fatalf("unexpected result %+v", result)
	}

	ids, _ := ledger.UpcomingIDs(ctx)
	if len(ids) != 2 {
		t.Fatalf("live match must stay in upcoming, got %v", ids)
	}
	views, _ := ledger.ListUpcoming(ctx)
	for _, v := range views {
		if v.ID == 1 && v.Status != "65'" {
			t.Fatalf("expected refreshed live status, got %q", v.Status)
		}
	}
	counts, _ := ledger.Counts(ctx)
	if counts.Finished != 1 {
		t.Fatalf("live match must not be finished, got %+v", counts)
	}
}

func TestReconcileService_CandidateRescheduled(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ledger := memory.NewLedgerRepository()
	seedIncremental(t, ledger, 7)

	postponed := scheduledMatch(7, 5)
	postponed.Status = "Postponed"
	postponed.KickoffAt = reconcileBase.Add(30 * 24 * time.Hour)

	source := sourcemock.NewMatchSource(t)
	source.On("FetchUpcoming", mock.Anything).Return([]fixture.Match{}, nil).Once()
	source.On("FetchMatchDetail", mock.Anything, int64(7)).Return(detailFor(postponed), nil).Once()

	result, err := NewReconcileService(source, ledger, nil).Reconcile(ctx)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if result.Rescheduled != 1 || result.Pruned != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
	views, _ := ledger.ListUpcoming(ctx)
	if len(views) != 1 || !views[0].KickoffAt.Equal(postponed.KickoffAt) {
		t.Fatalf("expected rescheduled kickoff to be stored, got %+v", views)
	}
}

func TestReconcileService_CandidateDetailErrorKeepsState(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ledger := memory.NewLedgerRepository()
	seedIncremental(t, ledger, 1, 2)

	source := sourcemock.NewMatchSource(t)
	source.On("FetchUpcoming", mock.Anything).Return([]fixture.Match{scheduledMatch(2, 5)}, nil).Once()
	source.On("FetchMatchDetail", mock.Anything, int64(1)).Return(fixture.MatchDetail{}, errors.New("upstream 502")).Once()

	result, err := NewReconcileService(source, ledger, nil).Reconcile(ctx)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if result.Skipped != 1 {
		t.Fatalf("expected one skipped candidate, got %+v", result)
	}
	ids, _ := ledger.UpcomingIDs(ctx)
	if len(ids) != 2 || ids[0] != 1 {
		t.Fatalf("skipped candidate must be kept for the next run, got %v", ids)
	}
}

func TestReconcileService_IncrementalPrunesVanishedRows(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ledger := memory.NewLedgerRepository()
	seedIncremental(t, ledger, 1)

	finished := endedMatch(1, 5)
	source := sourcemock.NewMatchSource(t)
	source.On("FetchUpcoming", mock.Anything).Return([]fixture.Match{scheduledMatch(50, 6)}, nil).Once()
	source.On("FetchMatchDetail", mock.Anything, int64(1)).Return(detailFor(finished), nil).Once()

	result, err := NewReconcileService(source, ledger, nil).Reconcile(ctx)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if result.Upcoming.Inserted != 1 {
		t.Fatalf("expected new fixture inserted, got %+v", result.Upcoming)
	}
	ids, _ := ledger.UpcomingIDs(ctx)
	if len(ids) != 1 || ids[0] != 50 {
		t.Fatalf("expected upcoming snapshot to equal fresh list, got %v", ids)
	}
}

func TestReconcileService_UpcomingFetchErrorAborts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ledger := memory.NewLedgerRepository()
	seedIncremental(t, ledger, 1)

	source := sourcemock.NewMatchSource(t)
	source.On("FetchUpcoming", mock.Anything).Return(nil, ErrDependencyUnavailable).Once()

	_, err := NewReconcileService(source, ledger, nil).Reconcile(ctx)
	if !errors.Is(err, ErrDependencyUnavailable) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	ids, _ := ledger.UpcomingIDs(ctx)
	if len(ids) != 1 {
		t.Fatalf("ledger must be untouched on fetch failure, got %v", ids)
	}
}

func TestReconcileService_BootstrapEmptyProvider(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ledger := memory.NewLedgerRepository()
	source := sourcemock.NewMatchSource(t)
	source.On("FetchFinishedHistory", mock.Anything).Return(nil, nil).Once()
	source.On("FetchUpcoming", mock.Anything).Return(nil, nil).Once()

	result, err := NewReconcileService(source, ledger, nil).Reconcile(ctx)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if result.FinishedFetched != 0 || result.UpcomingFetched != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
}

type flakyLedger struct {
	*memory.LedgerRepository
	failUpsert int64
}

func (l *flakyLedger) UpsertUpcoming(ctx context.Context, m fixture.Match) (fixture.UpsertOutcome, error) {
	if m.ID == l.failUpsert {
		return fixture.UpsertOutcome{}, errors.New("constraint violation")
	}
	return l.LedgerRepository.UpsertUpcoming(ctx, m)
}

func TestLedgerService_SaveUpcomingCountsFailuresPerRecord(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ledger := &flakyLedger{LedgerRepository: memory.NewLedgerRepository(), failUpsert: 2}
	svc := NewLedgerService(ledger, nil)

	first := svc.SaveUpcoming(ctx, []fixture.Match{scheduledMatch(1, 1), scheduledMatch(2, 1), scheduledMatch(3, 1)})
	if first.Inserted != 2 || first.Failed != 1 {
		t.Fatalf("unexpected first batch %+v", first)
	}

	second := svc.SaveUpcoming(ctx, []fixture.Match{scheduledMatch(1, 1)})
	if second.Updated != 1 || second.Inserted != 0 {
		t.Fatalf("expected update on second save, got %+v", second)
	}
}

func TestLedgerService_MarkFinishedBatch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := NewLedgerService(memory.NewLedgerRepository(), nil)

	result := svc.MarkFinishedBatch(ctx, []fixture.Match{endedMatch(1, 1), endedMatch(2, 1), endedMatch(1, 1)})
	if result.Inserted != 2 || result.Updated != 1 || result.Queued != 2 {
		t.Fatalf("unexpected result %+v", result)
	}
}
