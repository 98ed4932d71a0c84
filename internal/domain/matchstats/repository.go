package matchstats

import "context"

// Repository persists derived stats. SaveMatchStats writes the whole set
// atomically and upserts on (name, game, venue).
type Repository interface {
	SaveMatchStats(ctx context.Context, set Set) error
}
