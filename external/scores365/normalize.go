package scores365

import (
	"strings"
	"time"

	"github.com/riskibarqy/fixture-pipeline/internal/domain/fixture"
)

var startTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// normalizeMatch applies provider defaults and returns the canonical record.
func normalizeMatch(game gamePayload, raw []byte, fetchedAt time.Time) fixture.Match {
	homeName, homeScore := competitorSummary(game.HomeCompetitor)
	awayName, awayScore := competitorSummary(game.AwayCompetitor)
	round := maxInt(game.RoundNum.Int(), 0)

	match := fixture.Match{
		ID:          game.ID.Int64(),
		Round:       round,
		HomeTeam:    homeName,
		AwayTeam:    awayName,
		HomeScore:   homeScore,
		AwayScore:   awayScore,
		KickoffAt:   parseStartTime(game.StartTime.Label(), fetchedAt),
		Status:      firstNonEmpty(game.StatusText.Label(), game.Status.String(), fixture.DefaultStatus),
		StatusGroup: game.StatusGroup.Int(),
		SeasonNum:   game.SeasonNum.Int(),
		RawPayload:  raw,
	}
	if match.ID <= 0 {
		match.ID = fixture.FallbackID(match.Round, match.HomeTeam, match.AwayTeam)
	}

	if id := game.CompetitionID.Int64(); id > 0 {
		match.CompetitionIDs = append(match.CompetitionIDs, id)
	}
	for _, item := range game.Competitions {
		if id := item.ID.Int64(); id > 0 {
			match.CompetitionIDs = append(match.CompetitionIDs, id)
		}
	}
	return match
}

func normalizeDetail(game gamePayload, raw []byte, fetchedAt time.Time) fixture.MatchDetail {
	detail := fixture.MatchDetail{
		Match:   normalizeMatch(game, raw, fetchedAt),
		HasHome: game.HomeCompetitor != nil,
		HasAway: game.AwayCompetitor != nil,
		Members: make(map[int64]string, len(game.Members)),
	}
	if game.HomeCompetitor != nil {
		detail.Home = normalizeCompetitor(*game.HomeCompetitor)
	}
	if game.AwayCompetitor != nil {
		detail.Away = normalizeCompetitor(*game.AwayCompetitor)
	}

	for _, member := range game.Members {
		id := member.ID.Int64()
		name := member.Name.Label()
		if id == 0 || name == "" {
			continue
		}
		detail.Members[id] = name
	}

	if game.ChartEvents != nil {
		detail.ChartEvents = make([]fixture.ChartEvent, 0, len(game.ChartEvents.Events))
		for _, event := range game.ChartEvents.Events {
			item := fixture.ChartEvent{
				SubType:  event.SubType.Int(),
				PlayerID: event.PlayerID.Int64(),
				XG:       event.XG.Float(),
			}
			if event.Outcome != nil {
				item.OutcomeName = event.Outcome.Name.Label()
			}
			detail.ChartEvents = append(detail.ChartEvents, item)
		}
	}
	return detail
}

func normalizeCompetitor(source competitorPayload) fixture.Competitor {
	name, score := competitorSummary(&source)
	out := fixture.Competitor{
		ID:    source.ID.Int64(),
		Name:  name,
		Score: score,
	}
	if source.Lineups == nil {
		return out
	}

	out.Lineups = make([]fixture.LineupPlayer, 0, len(source.Lineups.Members))
	for _, member := range source.Lineups.Members {
		player := fixture.LineupPlayer{
			PlayerID:    member.ID.Int64(),
			ShirtNumber: maxInt(member.ShirtNum.Int(), 0),
		}
		if member.Position != nil {
			player.PositionID = member.Position.ID.Int()
		}
		player.Stats = make([]fixture.StatValue, 0, len(member.Stats))
		for _, stat := range member.Stats {
			if !stat.Type.Set {
				continue
			}
			player.Stats = append(player.Stats, fixture.StatValue{Type: stat.Type.Int(), Value: stat.Value.String()})
		}
		out.Lineups = append(out.Lineups, player)
	}
	return out
}

// competitorSummary reads name and score. The provider reports -1 for matches
// that have not kicked off.
func competitorSummary(source *competitorPayload) (string, int) {
	if source == nil {
		return fixture.DefaultTeamName, 0
	}
	return firstNonEmpty(source.Name.Label(), fixture.DefaultTeamName), maxInt(source.Score.Int(), 0)
}

func parseStartTime(raw string, fallback time.Time) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback.UTC()
	}
	for _, layout := range startTimeLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed.UTC()
		}
	}
	return fallback.UTC()
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func maxInt(left, right int) int {
	if left > right {
		return left
	}
	return right
}
