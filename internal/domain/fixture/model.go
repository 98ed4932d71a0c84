package fixture

import (
	"hash/fnv"
	"strconv"
	"strings"
	"time"
	"unicode"
)

const (
	DefaultTeamName = "Unknown"
	DefaultStatus   = "scheduled"
)

// Provider status groups.
const (
	StatusGroupScheduled = 2
	StatusGroupLive      = 3
	StatusGroupFinished  = 4
)

// Stage and overall states of a processing status record.
const (
	StagePending    = "pending"
	StageProcessing = "processing"
	StageSuccess    = "success"
	StageFailed     = "failed"

	OverallPending    = "pending"
	OverallProcessing = "processing"
	OverallCompleted  = "completed"
	OverallFailed     = "failed"
)

// MaxErrorLength bounds stored stage errors.
const MaxErrorLength = 500

// Match is the canonical fixture record after provider defaults are applied.
type Match struct {
	ID             int64     `validate:"required"`
	Round          int       `validate:"gte=0"`
	HomeTeam       string    `validate:"required"`
	AwayTeam       string    `validate:"required"`
	HomeScore      int       `validate:"gte=0"`
	AwayScore      int       `validate:"gte=0"`
	KickoffAt      time.Time `validate:"required"`
	Status         string    `validate:"required"`
	StatusGroup    int
	SeasonNum      int
	CompetitionIDs []int64
	RawPayload     []byte
}

func (m Match) IsFinished() bool {
	return m.StatusGroup == StatusGroupFinished
}

func (m Match) IsLive() bool {
	return m.StatusGroup == StatusGroupLive
}

// HasCompetition reports whether the match belongs to competitionID.
func (m Match) HasCompetition(competitionID int64) bool {
	for _, id := range m.CompetitionIDs {
		if id == competitionID {
			return true
		}
	}
	return false
}

// FallbackKey builds the composite key used when the provider omits an id.
func FallbackKey(round int, home, away string) string {
	key := strconv.Itoa(round) + "_" + home + "_" + away
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return '_'
		}
		return r
	}, key)
}

// FallbackID hashes FallbackKey into a stable positive id.
func FallbackID(round int, home, away string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(FallbackKey(round, home, away)))
	id := int64(h.Sum64() & (1<<63 - 1))
	if id == 0 {
		return 1
	}
	return id
}

// Lineup member of one competitor.
type LineupPlayer struct {
	PlayerID    int64
	ShirtNumber int
	PositionID  int
	Stats       []StatValue
}

// StatValue keeps the provider text so formatted values like "2 (1Pk)" survive.
type StatValue struct {
	Type  int
	Value string
}

type Competitor struct {
	ID      int64
	Name    string
	Score   int
	Lineups []LineupPlayer
}

type ChartEvent struct {
	SubType     int
	PlayerID    int64
	XG          float64
	OutcomeName string
}

// MatchDetail is the full payload needed by stats extraction.
type MatchDetail struct {
	Match
	Home        Competitor
	Away        Competitor
	HasHome     bool
	HasAway     bool
	Members     map[int64]string
	ChartEvents []ChartEvent
}

// QueueEntry is one finished match waiting for stats extraction.
type QueueEntry struct {
	FixtureID int64
	Round     int
	HomeTeam  string
	AwayTeam  string
	HomeScore int
	AwayScore int
	MatchDate time.Time
	Payload   []byte
}

// ProcessingStatus tracks the fetch, process and save stages of one queued match.
type ProcessingStatus struct {
	FixtureID          int64
	Round              int
	HomeTeam           string
	AwayTeam           string
	MatchDate          time.Time
	FetchStatus        string
	FetchAttempts      int
	FetchError         string
	FetchCompletedAt   *time.Time
	ProcessStatus      string
	ProcessError       string
	ProcessCompletedAt *time.Time
	SavePlayersStatus  string
	SaveGKsStatus      string
	SaveTeamsStatus    string
	SaveCompletedAt    *time.Time
	OverallStatus      string
	UpdatedAt          time.Time
}

// NewProcessingStatus returns the pending record created when a match is queued.
func NewProcessingStatus(m Match, now time.Time) ProcessingStatus {
	return ProcessingStatus{
		FixtureID:         m.ID,
		Round:             m.Round,
		HomeTeam:          m.HomeTeam,
		AwayTeam:          m.AwayTeam,
		MatchDate:         m.KickoffAt,
		FetchStatus:       StagePending,
		ProcessStatus:     StagePending,
		SavePlayersStatus: StagePending,
		SaveGKsStatus:     StagePending,
		SaveTeamsStatus:   StagePending,
		OverallStatus:     OverallPending,
		UpdatedAt:         now,
	}
}

// FinishedView is the read model row for finished matches.
type FinishedView struct {
	ID        int64
	Round     int
	HomeTeam  string
	AwayTeam  string
	HomeScore int
	AwayScore int
	MatchDate time.Time
}

// UpcomingView is the read model row for scheduled or live matches.
type UpcomingView struct {
	ID        int64
	Round     int
	HomeTeam  string
	AwayTeam  string
	KickoffAt time.Time
	Status    string
}

type Counts struct {
	Finished  int
	Upcoming  int
	Queued    int
	Processed int
}

// TruncateError shortens err text to MaxErrorLength runes.
func TruncateError(err error) string {
	if err == nil {
		return ""
	}
	return Truncate(err.Error(), MaxErrorLength)
}

func Truncate(value string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}
