package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/riskibarqy/fixture-pipeline/internal/domain/synclog"
)

type SyncLogRepository struct {
	mu      sync.RWMutex
	entries []synclog.Entry
	now     func() time.Time
}

func NewSyncLogRepository() *SyncLogRepository {
	return &SyncLogRepository{now: time.Now}
}

func (r *SyncLogRepository) Start(_ context.Context, entry synclog.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.entries {
		if existing.RunID == entry.RunID {
			return fmt.Errorf("sync log run_id=%s already exists", entry.RunID)
		}
	}
	r.entries = append(r.entries, entry)
	return nil
}

func (r *SyncLogRepository) Complete(_ context.Context, runID string, completion synclog.Completion) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.entries {
		if r.entries[i].RunID != runID {
			continue
		}
		completedAt := r.now().UTC()
		r.entries[i].Status = completion.Status
		r.entries[i].FinishedFetched = completion.FinishedFetched
		r.entries[i].UnfinishedFetched = completion.UnfinishedFetched
		r.entries[i].ErrorMessage = completion.ErrorMessage
		r.entries[i].CompletedAt = &completedAt
		return nil
	}
	return fmt.Errorf("sync log run_id=%s not found", runID)
}

func (r *SyncLogRepository) Latest(_ context.Context) (synclog.Entry, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.entries) == 0 {
		return synclog.Entry{}, false, nil
	}
	return r.entries[len(r.entries)-1], true, nil
}

// Entries returns every run in start order.
func (r *SyncLogRepository) Entries() []synclog.Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]synclog.Entry, len(r.entries))
	copy(out, r.entries)
	return out
}
