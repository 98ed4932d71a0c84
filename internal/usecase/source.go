package usecase

import (
	"context"

	"github.com/riskibarqy/fixture-pipeline/internal/domain/fixture"
)

// MatchSource is the upstream provider of fixtures and match details.
type MatchSource interface {
	FetchUpcoming(ctx context.Context) ([]fixture.Match, error)
	FetchFinishedHistory(ctx context.Context) ([]fixture.Match, error)
	FetchMatchDetail(ctx context.Context, matchID int64) (fixture.MatchDetail, error)
}
