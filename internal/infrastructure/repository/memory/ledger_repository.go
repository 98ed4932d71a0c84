package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/riskibarqy/fixture-pipeline/internal/domain/fixture"
)

type upcomingRow struct {
	match     fixture.Match
	createdAt time.Time
	updatedAt time.Time
}

type finishedRow struct {
	match     fixture.Match
	createdAt time.Time
	updatedAt time.Time
}

type archiveRow struct {
	round       int
	processedAt time.Time
}

// LedgerRepository is an in-process fixture.Ledger used by tests and dry runs.
type LedgerRepository struct {
	mu       sync.RWMutex
	upcoming map[int64]upcomingRow
	finished map[int64]finishedRow
	queue    map[int64]fixture.QueueEntry
	archive  map[int64]archiveRow
	statuses map[int64]fixture.ProcessingStatus
	now      func() time.Time
}

func NewLedgerRepository() *LedgerRepository {
	return &LedgerRepository{
		upcoming: make(map[int64]upcomingRow),
		finished: make(map[int64]finishedRow),
		queue:    make(map[int64]fixture.QueueEntry),
		archive:  make(map[int64]archiveRow),
		statuses: make(map[int64]fixture.ProcessingStatus),
		now:      time.Now,
	}
}

// WithClock swaps the time source. Tests use it to age processing rows.
func (r *LedgerRepository) WithClock(now func() time.Time) *LedgerRepository {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
	return r
}

func (r *LedgerRepository) CountFinished(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.finished), nil
}

func (r *LedgerRepository) UpcomingIDs(_ context.Context) ([]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]int64, 0, len(r.upcoming))
	for id := range r.upcoming {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (r *LedgerRepository) UpsertUpcoming(_ context.Context, m fixture.Match) (fixture.UpsertOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	existing, ok := r.upcoming[m.ID]
	row := upcomingRow{match: cloneMatch(m), createdAt: now, updatedAt: now}
	if ok {
		row.createdAt = existing.createdAt
	}
	r.upcoming[m.ID] = row
	return fixture.UpsertOutcome{Inserted: !ok}, nil
}

func (r *LedgerRepository) MarkFinished(_ context.Context, m fixture.Match) (fixture.MarkFinishedResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	var result fixture.MarkFinishedResult

	existing, ok := r.finished[m.ID]
	row := finishedRow{match: cloneMatch(m), createdAt: now, updatedAt: now}
	if ok {
		row.createdAt = existing.createdAt
	}
	r.finished[m.ID] = row
	result.Inserted = !ok

	_, queued := r.queue[m.ID]
	_, archived := r.archive[m.ID]
	if !queued && !archived {
		r.queue[m.ID] = fixture.QueueEntry{
			FixtureID: m.ID,
			Round:     m.Round,
			HomeTeam:  m.HomeTeam,
			AwayTeam:  m.AwayTeam,
			HomeScore: m.HomeScore,
			AwayScore: m.AwayScore,
			MatchDate: m.KickoffAt,
			Payload:   append([]byte(nil), m.RawPayload...),
		}
		result.Queued = true
	}

	if _, exists := r.statuses[m.ID]; !exists {
		r.statuses[m.ID] = fixture.NewProcessingStatus(m, now)
	}

	delete(r.upcoming, m.ID)
	return result, nil
}

func (r *LedgerRepository) PruneUpcoming(_ context.Context, keep []int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	keepSet := make(map[int64]struct{}, len(keep))
	for _, id := range keep {
		keepSet[id] = struct{}{}
	}

	removed := 0
	for id := range r.upcoming {
		if _, ok := keepSet[id]; ok {
			continue
		}
		delete(r.upcoming, id)
		removed++
	}
	return removed, nil
}

func (r *LedgerRepository) NextQueued(_ context.Context, filter fixture.QueueFilter) (fixture.QueueEntry, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	excluded := make(map[int64]struct{}, len(filter.ExcludeIDs))
	for _, id := range filter.ExcludeIDs {
		excluded[id] = struct{}{}
	}

	candidates := make([]fixture.QueueEntry, 0, len(r.queue))
	for id, entry := range r.queue {
		if _, skip := excluded[id]; skip {
			continue
		}
		if status, ok := r.statuses[id]; ok && status.OverallStatus == fixture.OverallProcessing {
			continue
		}
		candidates = append(candidates, entry)
	}
	if len(candidates) == 0 {
		return fixture.QueueEntry{}, false, nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		left, right := candidates[i], candidates[j]
		if left.Round != right.Round {
			return left.Round < right.Round
		}
		if !left.MatchDate.Equal(right.MatchDate) {
			return left.MatchDate.Before(right.MatchDate)
		}
		return left.FixtureID < right.FixtureID
	})
	return candidates[0], true, nil
}

func (r *LedgerRepository) ResetStaleProcessing(_ context.Context, olderThan time.Time, reason string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	reset := 0
	for id, status := range r.statuses {
		if status.OverallStatus != fixture.OverallProcessing || !status.UpdatedAt.Before(olderThan) {
			continue
		}
		status.OverallStatus = fixture.OverallFailed
		switch {
		case status.FetchStatus == fixture.StageProcessing:
			status.FetchStatus = fixture.StageFailed
			status.FetchError = fixture.Truncate(reason, fixture.MaxErrorLength)
		case status.ProcessStatus == fixture.StageProcessing:
			status.ProcessStatus = fixture.StageFailed
			status.ProcessError = fixture.Truncate(reason, fixture.MaxErrorLength)
		}
		status.UpdatedAt = now
		r.statuses[id] = status
		reset++
	}
	return reset, nil
}

func (r *LedgerRepository) GetStatus(_ context.Context, fixtureID int64) (fixture.ProcessingStatus, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	status, ok := r.statuses[fixtureID]
	return status, ok, nil
}

func (r *LedgerRepository) BeginProcessing(_ context.Context, fixtureID int64) error {
	return r.updateStatus(fixtureID, func(s *fixture.ProcessingStatus, _ time.Time) {
		s.OverallStatus = fixture.OverallProcessing
	})
}

func (r *LedgerRepository) BeginFetch(_ context.Context, fixtureID int64) error {
	return r.updateStatus(fixtureID, func(s *fixture.ProcessingStatus, _ time.Time) {
		s.FetchStatus = fixture.StageProcessing
		s.FetchAttempts++
	})
}

func (r *LedgerRepository) FetchSucceeded(_ context.Context, fixtureID int64) error {
	return r.updateStatus(fixtureID, func(s *fixture.ProcessingStatus, now time.Time) {
		s.FetchStatus = fixture.StageSuccess
		s.FetchError = ""
		s.FetchCompletedAt = &now
	})
}

func (r *LedgerRepository) FetchFailed(_ context.Context, fixtureID int64, message string) error {
	return r.updateStatus(fixtureID, func(s *fixture.ProcessingStatus, _ time.Time) {
		s.FetchStatus = fixture.StageFailed
		s.FetchError = fixture.Truncate(message, fixture.MaxErrorLength)
		s.OverallStatus = fixture.OverallFailed
	})
}

func (r *LedgerRepository) BeginProcess(_ context.Context, fixtureID int64) error {
	return r.updateStatus(fixtureID, func(s *fixture.ProcessingStatus, _ time.Time) {
		s.ProcessStatus = fixture.StageProcessing
	})
}

func (r *LedgerRepository) ProcessFailed(_ context.Context, fixtureID int64, message string) error {
	return r.updateStatus(fixtureID, func(s *fixture.ProcessingStatus, _ time.Time) {
		s.ProcessStatus = fixture.StageFailed
		s.ProcessError = fixture.Truncate(message, fixture.MaxErrorLength)
		s.OverallStatus = fixture.OverallFailed
	})
}

func (r *LedgerRepository) Complete(_ context.Context, fixtureID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	status, ok := r.statuses[fixtureID]
	if !ok {
		return fmt.Errorf("%w: fixture_id=%d", fixture.ErrStatusNotFound, fixtureID)
	}
	entry, queued := r.queue[fixtureID]
	if !queued {
		return fmt.Errorf("complete fixture_id=%d: not in unprocessed queue", fixtureID)
	}

	now := r.now().UTC()
	status.ProcessStatus = fixture.StageSuccess
	status.ProcessError = ""
	status.ProcessCompletedAt = &now
	status.SavePlayersStatus = fixture.StageSuccess
	status.SaveGKsStatus = fixture.StageSuccess
	status.SaveTeamsStatus = fixture.StageSuccess
	status.SaveCompletedAt = &now
	status.OverallStatus = fixture.OverallCompleted
	status.UpdatedAt = now
	r.statuses[fixtureID] = status

	r.archive[fixtureID] = archiveRow{round: entry.Round, processedAt: now}
	delete(r.queue, fixtureID)
	return nil
}

func (r *LedgerRepository) updateStatus(fixtureID int64, apply func(s *fixture.ProcessingStatus, now time.Time)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	status, ok := r.statuses[fixtureID]
	if !ok {
		return fmt.Errorf("%w: fixture_id=%d", fixture.ErrStatusNotFound, fixtureID)
	}
	now := r.now().UTC()
	apply(&status, now)
	status.UpdatedAt = now
	r.statuses[fixtureID] = status
	return nil
}

func (r *LedgerRepository) ListFinished(_ context.Context) ([]fixture.FinishedView, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]fixture.FinishedView, 0, len(r.finished))
	for _, row := range r.finished {
		m := row.match
		out = append(out, fixture.FinishedView{
			ID:        m.ID,
			Round:     m.Round,
			HomeTeam:  m.HomeTeam,
			AwayTeam:  m.AwayTeam,
			HomeScore: m.HomeScore,
			AwayScore: m.AwayScore,
			MatchDate: m.KickoffAt,
		})
	}
	return out, nil
}

func (r *LedgerRepository) ListUpcoming(_ context.Context) ([]fixture.UpcomingView, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]fixture.UpcomingView, 0, len(r.upcoming))
	for _, row := range r.upcoming {
		m := row.match
		out = append(out, fixture.UpcomingView{
			ID:        m.ID,
			Round:     m.Round,
			HomeTeam:  m.HomeTeam,
			AwayTeam:  m.AwayTeam,
			KickoffAt: m.KickoffAt,
			Status:    m.Status,
		})
	}
	return out, nil
}

func (r *LedgerRepository) Counts(_ context.Context) (fixture.Counts, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return fixture.Counts{
		Finished:  len(r.finished),
		Upcoming:  len(r.upcoming),
		Queued:    len(r.queue),
		Processed: len(r.archive),
	}, nil
}

func cloneMatch(m fixture.Match) fixture.Match {
	m.CompetitionIDs = append([]int64(nil), m.CompetitionIDs...)
	m.RawPayload = append([]byte(nil), m.RawPayload...)
	return m
}
