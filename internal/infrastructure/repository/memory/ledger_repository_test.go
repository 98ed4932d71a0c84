package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/riskibarqy/fixture-pipeline/internal/domain/fixture"
)

func finishedMatch(id int64, round int, kickoff time.Time) fixture.Match {
	return fixture.Match{
		ID:          id,
		Round:       round,
		HomeTeam:    "Home",
		AwayTeam:    "Away",
		HomeScore:   1,
		AwayScore:   0,
		KickoffAt:   kickoff,
		Status:      "Ended",
		StatusGroup: fixture.StatusGroupFinished,
	}
}

func TestLedgerRepository_MarkFinishedQueuesOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewLedgerRepository()
	kickoff := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	if _, err := repo.UpsertUpcoming(ctx, finishedMatch(1, 1, kickoff)); err != nil {
		t.Fatalf("upsert upcoming: %v", err)
	}

	first, err := repo.MarkFinished(ctx, finishedMatch(1, 1, kickoff))
	if err != nil {
		t.Fatalf("mark finished: %v", err)
	}
	if !first.Inserted || !first.Queued {
		t.Fatalf("expected first mark to insert and queue, got %+v", first)
	}

	second, err := repo.MarkFinished(ctx, finishedMatch(1, 1, kickoff))
	if err != nil {
		t.Fatalf("mark finished again: %v", err)
	}
	if second.Inserted || second.Queued {
		t.Fatalf("expected second mark to update only, got %+v", second)
	}

	counts, _ := repo.Counts(ctx)
	if counts.Finished != 1 || counts.Queued != 1 || counts.Upcoming != 0 {
		t.Fatalf("unexpected counts %+v", counts)
	}
}

func TestLedgerRepository_ArchivedMatchIsNeverRequeued(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewLedgerRepository()
	m := finishedMatch(7, 3, time.Now())

	if _, err := repo.MarkFinished(ctx, m); err != nil {
		t.Fatalf("mark finished: %v", err)
	}
	if err := repo.BeginProcessing(ctx, 7); err != nil {
		t.Fatalf("begin processing: %v", err)
	}
	if err := repo.Complete(ctx, 7); err != nil {
		t.Fatalf("complete: %v", err)
	}

	result, err := repo.MarkFinished(ctx, m)
	if err != nil {
		t.Fatalf("mark finished after archive: %v", err)
	}
	if result.Queued {
		t.Fatalf("archived match must not be queued again")
	}

	counts, _ := repo.Counts(ctx)
	if counts.Queued != 0 || counts.Processed != 1 {
		t.Fatalf("expected queue/archive exclusivity, got %+v", counts)
	}

	status, ok, _ := repo.GetStatus(ctx, 7)
	if !ok || status.OverallStatus != fixture.OverallCompleted || status.SaveTeamsStatus != fixture.StageSuccess {
		t.Fatalf("unexpected status after complete %+v", status)
	}
}

func TestLedgerRepository_NextQueuedOrderingAndExclusions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewLedgerRepository()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for _, m := range []fixture.Match{
		finishedMatch(30, 2, base),
		finishedMatch(10, 1, base.Add(2*time.Hour)),
		finishedMatch(20, 1, base.Add(time.Hour)),
	} {
		if _, err := repo.MarkFinished(ctx, m); err != nil {
			t.Fatalf("mark finished: %v", err)
		}
	}

	next, ok, err := repo.NextQueued(ctx, fixture.QueueFilter{})
	if err != nil || !ok || next.FixtureID != 20 {
		t.Fatalf("expected fixture 20 first, got %+v ok=%v err=%v", next, ok, err)
	}

	if err := repo.BeginProcessing(ctx, 20); err != nil {
		t.Fatalf("begin processing: %v", err)
	}
	next, ok, _ = repo.NextQueued(ctx, fixture.QueueFilter{})
	if !ok || next.FixtureID != 10 {
		t.Fatalf("expected processing row to be skipped, got %+v", next)
	}

	next, ok, _ = repo.NextQueued(ctx, fixture.QueueFilter{ExcludeIDs: []int64{10}})
	if !ok || next.FixtureID != 30 {
		t.Fatalf("expected excluded id to be skipped, got %+v", next)
	}

	_, ok, _ = repo.NextQueued(ctx, fixture.QueueFilter{ExcludeIDs: []int64{10, 30}})
	if ok {
		t.Fatalf("expected no eligible match")
	}
}

func TestLedgerRepository_ResetStaleProcessing(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	repo := NewLedgerRepository().WithClock(func() time.Time { return now })

	if _, err := repo.MarkFinished(ctx, finishedMatch(5, 1, now)); err != nil {
		t.Fatalf("mark finished: %v", err)
	}
	_ = repo.BeginProcessing(ctx, 5)
	_ = repo.BeginFetch(ctx, 5)

	reset, err := repo.ResetStaleProcessing(ctx, now.Add(-time.Minute), "stale processing reset")
	if err != nil || reset != 0 {
		t.Fatalf("expected fresh row to be left alone, got %d err=%v", reset, err)
	}

	reset, err = repo.ResetStaleProcessing(ctx, now.Add(time.Minute), "stale processing reset")
	if err != nil || reset != 1 {
		t.Fatalf("expected one stale row reset, got %d err=%v", reset, err)
	}

	status, _, _ := repo.GetStatus(ctx, 5)
	if status.OverallStatus != fixture.OverallFailed || status.FetchStatus != fixture.StageFailed || status.FetchError != "stale processing reset" {
		t.Fatalf("unexpected status after reset %+v", status)
	}
	if status.FetchAttempts != 1 {
		t.Fatalf("expected attempts to be kept, got %d", status.FetchAttempts)
	}
}

func TestLedgerRepository_StatusTransitionRequiresQueuedMatch(t *testing.T) {
	t.Parallel()

	err := NewLedgerRepository().BeginFetch(context.Background(), 99)
	if !errors.Is(err, fixture.ErrStatusNotFound) {
		t.Fatalf("expected status not found, got %v", err)
	}
}

func TestLedgerRepository_PruneUpcoming(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewLedgerRepository()
	for _, id := range []int64{1, 2, 3} {
		if _, err := repo.UpsertUpcoming(ctx, fixture.Match{ID: id, HomeTeam: "A", AwayTeam: "B", Status: "scheduled"}); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	removed, err := repo.PruneUpcoming(ctx, []int64{2, 3})
	if err != nil || removed != 1 {
		t.Fatalf("expected 1 removed, got %d err=%v", removed, err)
	}
	ids, _ := repo.UpcomingIDs(ctx)
	if len(ids) != 2 || ids[0] != 2 || ids[1] != 3 {
		t.Fatalf("unexpected remaining ids %v", ids)
	}
}
