package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/riskibarqy/fixture-pipeline/internal/domain/fixture"
	"github.com/riskibarqy/fixture-pipeline/internal/domain/synclog"
	"github.com/riskibarqy/fixture-pipeline/internal/platform/cache"
)

const (
	boardCacheKey    = "fixtures:board"
	boardCachePrefix = "fixtures:"
)

// FixtureBoard is the dashboard read model.
type FixtureBoard struct {
	Finished []fixture.FinishedView
	Upcoming []fixture.UpcomingView
}

type PipelineStatus struct {
	Counts  fixture.Counts
	LastRun *synclog.Entry
}

// ReadService serves the read-only fixture views.
type ReadService struct {
	ledger   fixture.Ledger
	syncLogs synclog.Repository
	boards   *cache.Store[FixtureBoard]
}

func NewReadService(ledger fixture.Ledger, syncLogs synclog.Repository, ttl time.Duration) *ReadService {
	return &ReadService{
		ledger:   ledger,
		syncLogs: syncLogs,
		boards:   cache.NewStore[FixtureBoard](ttl),
	}
}

// Board returns finished matches (latest round first) and upcoming fixtures
// (soonest kickoff first).
func (s *ReadService) Board(ctx context.Context) (FixtureBoard, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ReadService.Board")
	defer span.End()

	return s.boards.GetOrLoad(ctx, boardCacheKey, s.loadBoard)
}

func (s *ReadService) loadBoard(ctx context.Context) (FixtureBoard, error) {
	var board FixtureBoard

	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) error {
		finished, err := s.ledger.ListFinished(ctx)
		if err != nil {
			return fmt.Errorf("list finished matches: %w", err)
		}
		board.Finished = finished
		return nil
	})
	p.Go(func(ctx context.Context) error {
		upcoming, err := s.ledger.ListUpcoming(ctx)
		if err != nil {
			return fmt.Errorf("list upcoming fixtures: %w", err)
		}
		board.Upcoming = upcoming
		return nil
	})
	if err := p.Wait(); err != nil {
		return FixtureBoard{}, err
	}

	sort.SliceStable(board.Finished, func(i, j int) bool {
		left, right := board.Finished[i], board.Finished[j]
		if left.Round != right.Round {
			return left.Round > right.Round
		}
		return left.MatchDate.After(right.MatchDate)
	})
	sort.SliceStable(board.Upcoming, func(i, j int) bool {
		return board.Upcoming[i].KickoffAt.Before(board.Upcoming[j].KickoffAt)
	})

	if board.Finished == nil {
		board.Finished = []fixture.FinishedView{}
	}
	if board.Upcoming == nil {
		board.Upcoming = []fixture.UpcomingView{}
	}
	return board, nil
}

func (s *ReadService) Status(ctx context.Context) (PipelineStatus, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ReadService.Status")
	defer span.End()

	counts, err := s.ledger.Counts(ctx)
	if err != nil {
		return PipelineStatus{}, fmt.Errorf("count ledger rows: %w", err)
	}

	status := PipelineStatus{Counts: counts}
	latest, ok, err := s.syncLogs.Latest(ctx)
	if err != nil {
		return PipelineStatus{}, fmt.Errorf("load latest sync log: %w", err)
	}
	if ok {
		status.LastRun = &latest
	}
	return status, nil
}

// Invalidate drops cached read models after the ledger changed.
func (s *ReadService) Invalidate(ctx context.Context) {
	s.boards.DeletePrefix(ctx, boardCachePrefix)
}
