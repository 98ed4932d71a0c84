package postgres

import (
	"database/sql"
	"time"

	"github.com/riskibarqy/fixture-pipeline/internal/domain/fixture"
)

type upcomingFixtureUpsertModel struct {
	FixtureID   int64     `db:"fixture_id"`
	RoundNum    int       `db:"round_num"`
	HomeTeam    string    `db:"home_team"`
	AwayTeam    string    `db:"away_team"`
	KickoffTime time.Time `db:"kickoff_time"`
	Status      string    `db:"status"`
	FullData    *string   `db:"full_data"`
	UpdatedAt   time.Time `db:"updated_at"`
}

type finishedMatchUpsertModel struct {
	FixtureID int64     `db:"fixture_id"`
	RoundNum  int       `db:"round_num"`
	HomeTeam  string    `db:"home_team"`
	AwayTeam  string    `db:"away_team"`
	HomeScore int       `db:"home_score"`
	AwayScore int       `db:"away_score"`
	MatchDate time.Time `db:"match_date"`
	Status    string    `db:"status"`
	FullData  *string   `db:"full_data"`
	UpdatedAt time.Time `db:"updated_at"`
}

type unprocessedFixtureInsertModel struct {
	FixtureID int64     `db:"fixture_id"`
	RoundNum  int       `db:"round_num"`
	HomeTeam  string    `db:"home_team"`
	AwayTeam  string    `db:"away_team"`
	HomeScore int       `db:"home_score"`
	AwayScore int       `db:"away_score"`
	MatchDate time.Time `db:"match_date"`
	FullData  *string   `db:"full_data"`
}

type processingStatusInsertModel struct {
	FixtureID     int64     `db:"fixture_id"`
	RoundNum      int       `db:"round_num"`
	HomeTeam      string    `db:"home_team"`
	AwayTeam      string    `db:"away_team"`
	MatchDate     time.Time `db:"match_date"`
	OverallStatus string    `db:"overall_status"`
}

type queueEntryTableModel struct {
	FixtureID int64          `db:"fixture_id"`
	RoundNum  int            `db:"round_num"`
	HomeTeam  string         `db:"home_team"`
	AwayTeam  string         `db:"away_team"`
	HomeScore int            `db:"home_score"`
	AwayScore int            `db:"away_score"`
	MatchDate time.Time      `db:"match_date"`
	FullData  sql.NullString `db:"full_data"`
}

type processingStatusTableModel struct {
	FixtureID          int64          `db:"fixture_id"`
	RoundNum           int            `db:"round_num"`
	HomeTeam           string         `db:"home_team"`
	AwayTeam           string         `db:"away_team"`
	MatchDate          time.Time      `db:"match_date"`
	FetchStatus        string         `db:"fetch_status"`
	FetchAttempts      int            `db:"fetch_attempts"`
	FetchError         sql.NullString `db:"fetch_error"`
	FetchCompletedAt   sql.NullTime   `db:"fetch_completed_at"`
	ProcessStatus      string         `db:"process_status"`
	ProcessError       sql.NullString `db:"process_error"`
	ProcessCompletedAt sql.NullTime   `db:"process_completed_at"`
	SavePlayersStatus  string         `db:"save_players_status"`
	SaveGKsStatus      string         `db:"save_gks_status"`
	SaveTeamsStatus    string         `db:"save_teams_status"`
	SaveCompletedAt    sql.NullTime   `db:"save_completed_at"`
	OverallStatus      string         `db:"overall_status"`
	CreatedAt          time.Time      `db:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at"`
}

type finishedViewTableModel struct {
	FixtureID int64     `db:"fixture_id"`
	RoundNum  int       `db:"round_num"`
	HomeTeam  string    `db:"home_team"`
	AwayTeam  string    `db:"away_team"`
	HomeScore int       `db:"home_score"`
	AwayScore int       `db:"away_score"`
	MatchDate time.Time `db:"match_date"`
}

type upcomingViewTableModel struct {
	FixtureID   int64     `db:"fixture_id"`
	RoundNum    int       `db:"round_num"`
	HomeTeam    string    `db:"home_team"`
	AwayTeam    string    `db:"away_team"`
	KickoffTime time.Time `db:"kickoff_time"`
	Status      string    `db:"status"`
}

func queueEntryFromRow(row queueEntryTableModel) fixture.QueueEntry {
	entry := fixture.QueueEntry{
		FixtureID: row.FixtureID,
		Round:     row.RoundNum,
		HomeTeam:  row.HomeTeam,
		AwayTeam:  row.AwayTeam,
		HomeScore: row.HomeScore,
		AwayScore: row.AwayScore,
		MatchDate: row.MatchDate.UTC(),
	}
	if row.FullData.Valid {
		entry.Payload = []byte(row.FullData.String)
	}
	return entry
}

func processingStatusFromRow(row processingStatusTableModel) fixture.ProcessingStatus {
	return fixture.ProcessingStatus{
		FixtureID:          row.FixtureID,
		Round:              row.RoundNum,
		HomeTeam:           row.HomeTeam,
		AwayTeam:           row.AwayTeam,
		MatchDate:          row.MatchDate.UTC(),
		FetchStatus:        row.FetchStatus,
		FetchAttempts:      row.FetchAttempts,
		FetchError:         row.FetchError.String,
		FetchCompletedAt:   timePtr(row.FetchCompletedAt),
		ProcessStatus:      row.ProcessStatus,
		ProcessError:       row.ProcessError.String,
		ProcessCompletedAt: timePtr(row.ProcessCompletedAt),
		SavePlayersStatus:  row.SavePlayersStatus,
		SaveGKsStatus:      row.SaveGKsStatus,
		SaveTeamsStatus:    row.SaveTeamsStatus,
		SaveCompletedAt:    timePtr(row.SaveCompletedAt),
		OverallStatus:      row.OverallStatus,
		UpdatedAt:          row.UpdatedAt.UTC(),
	}
}
