package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/fixture-pipeline/internal/domain/matchstats"
	qb "github.com/riskibarqy/fixture-pipeline/internal/platform/querybuilder"
)

type playerStatUpsertModel struct {
	PlayerID        int64     `db:"player_id"`
	PlayerName      string    `db:"player_name"`
	TeamName        string    `db:"team_name"`
	ShirtNumber     *int      `db:"shirt_number"`
	RoundNum        int       `db:"round_num"`
	GameID          int64     `db:"game_id"`
	Venue           string    `db:"venue"`
	MP              int       `db:"mp"`
	Goals           int       `db:"goals"`
	XG              float64   `db:"xg"`
	NPXG            float64   `db:"npxg"`
	Assists         int       `db:"assists"`
	XA              float64   `db:"xa"`
	PenaltiesScored int       `db:"penalties_scored"`
	PenaltiesMissed int       `db:"penalties_missed"`
	GameTimestamp   time.Time `db:"game_timestamp"`
}

type goalkeeperStatUpsertModel struct {
	PlayerID       int64     `db:"player_id"`
	PlayerName     string    `db:"player_name"`
	TeamName       string    `db:"team_name"`
	ShirtNumber    *int      `db:"shirt_number"`
	RoundNum       int       `db:"round_num"`
	GameID         int64     `db:"game_id"`
	Venue          string    `db:"venue"`
	MP             int       `db:"mp"`
	CleanSheets    int       `db:"clean_sheets"`
	Saves          int       `db:"saves"`
	XGPrevented    float64   `db:"xg_prevented"`
	PenaltiesSaved int       `db:"penalties_saved"`
	PenaltiesFaced int       `db:"penalties_faced"`
	GameTimestamp  time.Time `db:"game_timestamp"`
}

type teamStatUpsertModel struct {
	TeamName          string    `db:"team_name"`
	RoundNum          int       `db:"round_num"`
	GameID            int64     `db:"game_id"`
	Venue             string    `db:"venue"`
	MP                int       `db:"mp"`
	GoalsFor          int       `db:"goals_for"`
	GoalsAgainst      int       `db:"goals_against"`
	PenaltiesScored   int       `db:"penalties_scored"`
	PenaltiesMissed   int       `db:"penalties_missed"`
	PenaltiesConceded int       `db:"penalties_conceded"`
	XGFor             float64   `db:"xg_for"`
	NPXGFor           float64   `db:"npxg_for"`
	XGAgainst         float64   `db:"xg_against"`
	NPXGAgainst       float64   `db:"npxg_against"`
	ScoreStr          string    `db:"score_str"`
	NPScoreStr        string    `db:"npscore_str"`
	GameTimestamp     time.Time `db:"game_timestamp"`
}

var (
	playerConflictCols = []string{"player_id", "game_id", "venue"}
	teamConflictCols   = []string{"team_name", "game_id", "venue"}
)

// StatsRepository persists derived match stats. Player rows are keyed by
// (player id, game, venue) and team rows by (team, game, venue) so
// reprocessing a match overwrites instead of duplicating.
type StatsRepository struct {
	db *sqlx.DB
}

func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

func (r *StatsRepository) SaveMatchStats(ctx context.Context, set matchstats.Set) error {
	if set.Empty() {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx save match stats: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, item := range set.Players {
		query, args, err := qb.UpsertModel("score365_players", playerStatUpsertModel{
			PlayerID:        item.PlayerID,
			PlayerName:      item.PlayerName,
			TeamName:        item.TeamName,
			ShirtNumber:     item.ShirtNumber,
			RoundNum:        item.Round,
			GameID:          item.GameID,
			Venue:           item.Venue,
			MP:              item.MatchesPlayed,
			Goals:           item.Goals,
			XG:              item.XG,
			NPXG:            item.NPXG,
			Assists:         item.Assists,
			XA:              item.XA,
			PenaltiesScored: item.PenaltiesScored,
			PenaltiesMissed: item.PenaltiesMissed,
			GameTimestamp:   item.GameTimestamp.UTC(),
		}, playerConflictCols, "round_num")
		if err != nil {
			return fmt.Errorf("build upsert player stat query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert player stat player_id=%d game_id=%d: %w", item.PlayerID, item.GameID, err)
		}
	}

	for _, item := range set.Goalkeepers {
		query, args, err := qb.UpsertModel("score365_goalkeepers", goalkeeperStatUpsertModel{
			PlayerID:       item.PlayerID,
			PlayerName:     item.PlayerName,
			TeamName:       item.TeamName,
			ShirtNumber:    item.ShirtNumber,
			RoundNum:       item.Round,
			GameID:         item.GameID,
			Venue:          item.Venue,
			MP:             item.MatchesPlayed,
			CleanSheets:    item.CleanSheets,
			Saves:          item.Saves,
			XGPrevented:    item.XGPrevented,
			PenaltiesSaved: item.PenaltiesSaved,
			PenaltiesFaced: item.PenaltiesFaced,
			GameTimestamp:  item.GameTimestamp.UTC(),
		}, playerConflictCols, "round_num")
		if err != nil {
			return fmt.Errorf("build upsert goalkeeper stat query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert goalkeeper stat player_id=%d game_id=%d: %w", item.PlayerID, item.GameID, err)
		}
	}

	for _, item := range set.Teams {
		query, args, err := qb.UpsertModel("score365_teams", teamStatUpsertModel{
			TeamName:          item.TeamName,
			RoundNum:          item.Round,
			GameID:            item.GameID,
			Venue:             item.Venue,
			MP:                item.MatchesPlayed,
			GoalsFor:          item.GoalsFor,
			GoalsAgainst:      item.GoalsAgainst,
			PenaltiesScored:   item.PenaltiesScored,
			PenaltiesMissed:   item.PenaltiesMissed,
			PenaltiesConceded: item.PenaltiesConceded,
			XGFor:             item.XGFor,
			NPXGFor:           item.NPXGFor,
			XGAgainst:         item.XGAgainst,
			NPXGAgainst:       item.NPXGAgainst,
			ScoreStr:          item.ScoreStr,
			NPScoreStr:        item.NPScoreStr,
			GameTimestamp:     item.GameTimestamp.UTC(),
		}, teamConflictCols, "round_num")
		if err != nil {
			return fmt.Errorf("build upsert team stat query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert team stat team=%s game_id=%d: %w", item.TeamName, item.GameID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save match stats tx: %w", err)
	}
	return nil
}
