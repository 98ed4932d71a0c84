package usecase

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/riskibarqy/fixture-pipeline/internal/domain/fixture"
	"github.com/riskibarqy/fixture-pipeline/internal/domain/matchstats"
)

// Provider stat type codes.
const (
	statMinutes        = 30
	statGoals          = 27
	statAssists        = 26
	statXG             = 76
	statXA             = 78
	statSaves          = 23
	statGoalsConceded  = 35
	statXGPrevented    = 83
	statPenaltiesSaved = 44

	positionGoalkeeper  = 1
	eventSubTypePenalty = 9
	penaltyOutcomeGoal  = "Goal"
	unknownPlayerName   = "Unknown Player"
)

var penaltyGoalsRegex = regexp.MustCompile(`(\d+)Pk`)

type penaltyTally struct {
	xg     float64
	missed int
}

type teamTally struct {
	xg              float64
	npxg            float64
	penaltiesScored int
	penaltiesMissed int
}

// ExtractMatchStats derives player, goalkeeper and team rows from one match
// detail. It only fails when a competitor is structurally absent.
func ExtractMatchStats(detail fixture.MatchDetail) (matchstats.Set, error) {
	if !detail.HasHome || !detail.HasAway {
		return matchstats.Set{}, fmt.Errorf("%w: fixture_id=%d home=%t away=%t", ErrMissingCompetitor, detail.ID, detail.HasHome, detail.HasAway)
	}

	penalties := buildPenaltyMap(detail.ChartEvents)
	set := matchstats.Set{
		Players:     make([]matchstats.PlayerStat, 0, 32),
		Goalkeepers: make([]matchstats.GoalkeeperStat, 0, 4),
		Teams:       make([]matchstats.TeamStat, 0, 2),
	}

	home := extractSide(detail, detail.Home, matchstats.VenueHome, penalties, &set)
	away := extractSide(detail, detail.Away, matchstats.VenueAway, penalties, &set)

	set.Teams = append(set.Teams,
		buildTeamStat(detail, detail.Home, matchstats.VenueHome, home, away, detail.Away.Score),
		buildTeamStat(detail, detail.Away, matchstats.VenueAway, away, home, detail.Home.Score),
	)
	return set, nil
}

func buildPenaltyMap(events []fixture.ChartEvent) map[int64]penaltyTally {
	out := make(map[int64]penaltyTally)
	for _, event := range events {
		if event.SubType != eventSubTypePenalty {
			continue
		}
		tally := out[event.PlayerID]
		tally.xg += sanitizeFloat(event.XG)
		if event.OutcomeName != penaltyOutcomeGoal {
			tally.missed++
		}
		out[event.PlayerID] = tally
	}
	return out
}

func extractSide(detail fixture.MatchDetail, side fixture.Competitor, venue string, penalties map[int64]penaltyTally, set *matchstats.Set) teamTally {
	var tally teamTally
	for _, player := range side.Lineups {
		if int(statFloat(player.Stats, statMinutes)) <= 0 {
			continue
		}

		name := strings.TrimSpace(detail.Members[player.PlayerID])
		if name == "" {
			name = unknownPlayerName
		}
		shirt := shirtNumber(player.ShirtNumber)

		if player.PositionID == positionGoalkeeper {
			saved, faced := penaltiesSavedFaced(player.Stats)
			cleanSheet := 0
			if statFloat(player.Stats, statGoalsConceded) == 0 {
				cleanSheet = 1
			}
			set.Goalkeepers = append(set.Goalkeepers, matchstats.GoalkeeperStat{
				PlayerID:       player.PlayerID,
				PlayerName:     name,
				TeamName:       side.Name,
				ShirtNumber:    shirt,
				Round:          detail.Round,
				GameID:         detail.ID,
				Venue:          venue,
				MatchesPlayed:  1,
				CleanSheets:    cleanSheet,
				Saves:          int(statFloat(player.Stats, statSaves)),
				XGPrevented:    round4(statFloat(player.Stats, statXGPrevented)),
				PenaltiesSaved: saved,
				PenaltiesFaced: faced,
				GameTimestamp:  detail.KickoffAt,
			})
			continue
		}

		penalty := penalties[player.PlayerID]
		xg := statFloat(player.Stats, statXG)
		npxg := math.Max(0, xg-penalty.xg)
		row := matchstats.PlayerStat{
			PlayerID:        player.PlayerID,
			PlayerName:      name,
			TeamName:        side.Name,
			ShirtNumber:     shirt,
			Round:           detail.Round,
			GameID:          detail.ID,
			Venue:           venue,
			MatchesPlayed:   1,
			Goals:           int(statFloat(player.Stats, statGoals)),
			XG:              round4(xg),
			NPXG:            round4(npxg),
			Assists:         int(statFloat(player.Stats, statAssists)),
			XA:              round4(statFloat(player.Stats, statXA)),
			PenaltiesScored: penaltiesScored(player.Stats),
			PenaltiesMissed: penalty.missed,
			GameTimestamp:   detail.KickoffAt,
		}
		set.Players = append(set.Players, row)

		tally.xg += xg
		tally.npxg += npxg
		tally.penaltiesScored += row.PenaltiesScored
		tally.penaltiesMissed += row.PenaltiesMissed
	}
	return tally
}

func buildTeamStat(detail fixture.MatchDetail, side fixture.Competitor, venue string, own, opponent teamTally, opponentScore int) matchstats.TeamStat {
	npScore := maxInt(side.Score-own.penaltiesScored, 0)
	opponentNPScore := maxInt(opponentScore-opponent.penaltiesScored, 0)

	scoreStr := fmt.Sprintf("%d-%d", side.Score, opponentScore)
	npScoreStr := fmt.Sprintf("%d-%d", npScore, opponentNPScore)
	if venue == matchstats.VenueAway {
		scoreStr = fmt.Sprintf("%d-%d", opponentScore, side.Score)
		npScoreStr = fmt.Sprintf("%d-%d", opponentNPScore, npScore)
	}

	return matchstats.TeamStat{
		TeamName:          side.Name,
		Round:             detail.Round,
		GameID:            detail.ID,
		Venue:             venue,
		MatchesPlayed:     1,
		GoalsFor:          side.Score,
		GoalsAgainst:      opponentScore,
		PenaltiesScored:   own.penaltiesScored,
		PenaltiesMissed:   own.penaltiesMissed,
		PenaltiesConceded: opponent.penaltiesScored,
		XGFor:             round4(own.xg),
		NPXGFor:           round4(own.npxg),
		XGAgainst:         round4(opponent.xg),
		NPXGAgainst:       round4(opponent.npxg),
		ScoreStr:          scoreStr,
		NPScoreStr:        npScoreStr,
		GameTimestamp:     detail.KickoffAt,
	}
}

// statFloat reads the leading number of the first stat with the given type.
// Missing or malformed values are 0.
func statFloat(stats []fixture.StatValue, statType int) float64 {
	value, ok := statText(stats, statType)
	if !ok {
		return 0
	}
	return parseLeadingFloat(value)
}

func statText(stats []fixture.StatValue, statType int) (string, bool) {
	for _, stat := range stats {
		if stat.Type == statType {
			return stat.Value, true
		}
	}
	return "", false
}

func penaltiesScored(stats []fixture.StatValue) int {
	value, ok := statText(stats, statGoals)
	if !ok || !strings.Contains(value, "Pk") {
		return 0
	}
	match := penaltyGoalsRegex.FindStringSubmatch(value)
	if len(match) < 2 {
		return 0
	}
	parsed, err := strconv.Atoi(match[1])
	if err != nil {
		return 0
	}
	return parsed
}

// penaltiesSavedFaced parses the "saved/faced" goalkeeper stat.
func penaltiesSavedFaced(stats []fixture.StatValue) (int, int) {
	value, ok := statText(stats, statPenaltiesSaved)
	if !ok {
		return 0, 0
	}
	savedText, facedText, found := strings.Cut(value, "/")
	saved := int(parseLeadingFloat(savedText))
	if !found {
		return maxInt(saved, 0), 0
	}
	return maxInt(saved, 0), maxInt(int(parseLeadingFloat(facedText)), 0)
}

func shirtNumber(value int) *int {
	if value <= 0 {
		return nil
	}
	return &value
}

func parseLeadingFloat(text string) float64 {
	text = strings.TrimSpace(text)
	end := 0
	for end < len(text) {
		ch := text[end]
		if (ch >= '0' && ch <= '9') || ch == '.' || (ch == '-' && end == 0) {
			end++
			continue
		}
		break
	}
	for end > 0 {
		if parsed, err := strconv.ParseFloat(text[:end], 64); err == nil {
			return sanitizeFloat(parsed)
		}
		end--
	}
	return 0
}

func sanitizeFloat(value float64) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	return value
}

func round4(value float64) float64 {
	return math.Round(sanitizeFloat(value)*10000) / 10000
}

func maxInt(left, right int) int {
	if left > right {
		return left
	}
	return right
}
