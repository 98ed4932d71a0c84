package fixture

import (
	"context"
	"errors"
	"time"
)

// ErrStatusNotFound is returned by status transitions for a match that was
// never queued.
var ErrStatusNotFound = errors.New("processing status not found")

// UpsertOutcome reports whether an upsert created a new row.
type UpsertOutcome struct {
	Inserted bool
}

// MarkFinishedResult reports what MarkFinished changed.
type MarkFinishedResult struct {
	Inserted bool
	Queued   bool
}

// QueueFilter narrows NextQueued. ExcludeIDs holds matches already attempted in
// the current run.
type QueueFilter struct {
	ExcludeIDs []int64
}

// Ledger owns persistent fixture state: the upcoming snapshot, finished matches,
// the unprocessed queue, the processed archive and per-match processing status.
type Ledger interface {
	CountFinished(ctx context.Context) (int, error)
	UpcomingIDs(ctx context.Context) ([]int64, error)
	UpsertUpcoming(ctx context.Context, m Match) (UpsertOutcome, error)
	MarkFinished(ctx context.Context, m Match) (MarkFinishedResult, error)
	PruneUpcoming(ctx context.Context, keep []int64) (int, error)

	NextQueued(ctx context.Context, filter QueueFilter) (QueueEntry, bool, error)
	ResetStaleProcessing(ctx context.Context, olderThan time.Time, reason string) (int, error)
	GetStatus(ctx context.Context, fixtureID int64) (ProcessingStatus, bool, error)

	BeginProcessing(ctx context.Context, fixtureID int64) error
	BeginFetch(ctx context.Context, fixtureID int64) error
	FetchSucceeded(ctx context.Context, fixtureID int64) error
	FetchFailed(ctx context.Context, fixtureID int64, message string) error
	BeginProcess(ctx context.Context, fixtureID int64) error
	ProcessFailed(ctx context.Context, fixtureID int64, message string) error
	Complete(ctx context.Context, fixtureID int64) error

	ListFinished(ctx context.Context) ([]FinishedView, error)
	ListUpcoming(ctx context.Context) ([]UpcomingView, error)
	Counts(ctx context.Context) (Counts, error)
}
