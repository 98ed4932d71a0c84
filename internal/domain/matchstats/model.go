package matchstats

import "time"

const (
	VenueHome = "home"
	VenueAway = "away"
)

// PlayerStat is one outfield player's line for one match. PlayerID is the
// provider's player id and, with GameID and Venue, identifies the row.
type PlayerStat struct {
	PlayerID        int64
	PlayerName      string
	TeamName        string
	ShirtNumber     *int
	Round           int
	GameID          int64
	Venue           string
	MatchesPlayed   int
	Goals           int
	XG              float64
	NPXG            float64
	Assists         int
	XA              float64
	PenaltiesScored int
	PenaltiesMissed int
	GameTimestamp   time.Time
}

// GoalkeeperStat is one goalkeeper's line for one match.
type GoalkeeperStat struct {
	PlayerID       int64
	PlayerName     string
	TeamName       string
	ShirtNumber    *int
	Round          int
	GameID         int64
	Venue          string
	MatchesPlayed  int
	CleanSheets    int
	Saves          int
	XGPrevented    float64
	PenaltiesSaved int
	PenaltiesFaced int
	GameTimestamp  time.Time
}

// TeamStat is one side's aggregate for one match.
type TeamStat struct {
	TeamName          string
	Round             int
	GameID            int64
	Venue             string
	MatchesPlayed     int
	GoalsFor          int
	GoalsAgainst      int
	PenaltiesScored   int
	PenaltiesMissed   int
	PenaltiesConceded int
	XGFor             float64
	NPXGFor           float64
	XGAgainst         float64
	NPXGAgainst       float64
	ScoreStr          string
	NPScoreStr        string
	GameTimestamp     time.Time
}

// Set holds every stat row derived from one match.
type Set struct {
	Players     []PlayerStat
	Goalkeepers []GoalkeeperStat
	Teams       []TeamStat
}

func (s Set) Empty() bool {
	return len(s.Players) == 0 && len(s.Goalkeepers) == 0 && len(s.Teams) == 0
}
