package memory

import (
	"context"
	"strconv"
	"sync"

	"github.com/riskibarqy/fixture-pipeline/internal/domain/matchstats"
)

// StatsRepository keeps stat rows keyed like the database unique
// constraints: (player id, game, venue) for players, (team, game, venue) for teams.
type StatsRepository struct {
	mu          sync.RWMutex
	players     map[string]matchstats.PlayerStat
	goalkeepers map[string]matchstats.GoalkeeperStat
	teams       map[string]matchstats.TeamStat
}

func NewStatsRepository() *StatsRepository {
	return &StatsRepository{
		players:     make(map[string]matchstats.PlayerStat),
		goalkeepers: make(map[string]matchstats.GoalkeeperStat),
		teams:       make(map[string]matchstats.TeamStat),
	}
}

func (r *StatsRepository) SaveMatchStats(_ context.Context, set matchstats.Set) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range set.Players {
		r.players[statKey(strconv.FormatInt(item.PlayerID, 10), item.GameID, item.Venue)] = item
	}
	for _, item := range set.Goalkeepers {
		r.goalkeepers[statKey(strconv.FormatInt(item.PlayerID, 10), item.GameID, item.Venue)] = item
	}
	for _, item := range set.Teams {
		r.teams[statKey(item.TeamName, item.GameID, item.Venue)] = item
	}
	return nil
}

// Snapshot returns copies of every stored row.
func (r *StatsRepository) Snapshot() matchstats.Set {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := matchstats.Set{
		Players:     make([]matchstats.PlayerStat, 0, len(r.players)),
		Goalkeepers: make([]matchstats.GoalkeeperStat, 0, len(r.goalkeepers)),
		Teams:       make([]matchstats.TeamStat, 0, len(r.teams)),
	}
	for _, item := range r.players {
		out.Players = append(out.Players, item)
	}
	for _, item := range r.goalkeepers {
		out.Goalkeepers = append(out.Goalkeepers, item)
	}
	for _, item := range r.teams {
		out.Teams = append(out.Teams, item)
	}
	return out
}

func statKey(name string, gameID int64, venue string) string {
	return name + "::" + strconv.FormatInt(gameID, 10) + "::" + venue
}
