package scores365

import (
	"bytes"
	"math"
	"strconv"
	"strings"

	sonic "github.com/bytedance/sonic"
)

type listEnvelope struct {
	Games  []rawGame `json:"games"`
	Paging paging    `json:"paging"`
}

type paging struct {
	NextPage     string `json:"nextPage"`
	PreviousPage string `json:"previousPage"`
}

type detailEnvelope struct {
	Game *rawGame `json:"game"`
}

// rawGame keeps the provider bytes next to the decoded view so the ledger can
// store the raw payload. A game whose shape cannot be decoded keeps the error
// instead of failing the whole page.
type rawGame struct {
	gamePayload
	raw       []byte
	decodeErr error
}

func (g *rawGame) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	g.raw = append([]byte(nil), trimmed...)
	if err := sonic.Unmarshal(trimmed, &g.gamePayload); err != nil {
		g.gamePayload = gamePayload{}
		g.decodeErr = err
	}
	return nil
}

type gamePayload struct {
	ID             flexValue          `json:"id"`
	SeasonNum      flexValue          `json:"seasonNum"`
	CompetitionID  flexValue          `json:"competitionId"`
	Competitions   []competitionRef   `json:"competitions"`
	RoundNum       flexValue          `json:"roundNum"`
	StartTime      flexValue          `json:"startTime"`
	StatusGroup    flexValue          `json:"statusGroup"`
	StatusText     flexValue          `json:"statusText"`
	Status         flexValue          `json:"status"`
	HomeCompetitor *competitorPayload `json:"homeCompetitor"`
	AwayCompetitor *competitorPayload `json:"awayCompetitor"`
	Members        []memberPayload    `json:"members"`
	ChartEvents    *chartEventsBlock  `json:"chartEvents"`
}

type competitionRef struct {
	ID flexValue `json:"id"`
}

type competitorPayload struct {
	ID      flexValue       `json:"id"`
	Name    flexValue       `json:"name"`
	Score   flexValue       `json:"score"`
	Lineups *lineupsPayload `json:"lineups"`
}

type lineupsPayload struct {
	Members []lineupMember `json:"members"`
}

type lineupMember struct {
	ID       flexValue     `json:"id"`
	ShirtNum flexValue     `json:"shirtNum"`
	Position *positionRef  `json:"position"`
	Stats    []statPayload `json:"stats"`
}

type positionRef struct {
	ID flexValue `json:"id"`
}

type statPayload struct {
	Type  flexValue `json:"type"`
	Value flexValue `json:"value"`
}

type memberPayload struct {
	ID   flexValue `json:"id"`
	Name flexValue `json:"name"`
}

type chartEventsBlock struct {
	Events []chartEventPayload `json:"events"`
}

type chartEventPayload struct {
	SubType  flexValue     `json:"subType"`
	PlayerID flexValue     `json:"playerId"`
	XG       flexValue     `json:"xg"`
	Outcome  *outcomeEntry `json:"outcome"`
}

type outcomeEntry struct {
	Name flexValue `json:"name"`
}

// flexValue accepts a JSON string, number or null. The provider mixes all three
// for the same field across endpoints.
type flexValue struct {
	Text   string
	Set    bool
	Quoted bool
}

func (v *flexValue) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*v = flexValue{}
		return nil
	}
	if trimmed[0] == '"' {
		var text string
		if err := sonic.Unmarshal(trimmed, &text); err != nil {
			return err
		}
		*v = flexValue{Text: strings.TrimSpace(text), Set: true, Quoted: true}
		return nil
	}
	if trimmed[0] == '{' || trimmed[0] == '[' {
		*v = flexValue{}
		return nil
	}
	*v = flexValue{Text: string(trimmed), Set: true}
	return nil
}

// Float parses the leading number of the value, so "90'" and "2 (1Pk)" read
// as 90 and 2. Anything unparseable is 0.
func (v flexValue) Float() float64 {
	if !v.Set {
		return 0
	}
	parsed, ok := leadingFloat(v.Text)
	if !ok || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
		return 0
	}
	return parsed
}

func (v flexValue) Int() int {
	return int(v.Float())
}

func (v flexValue) Int64() int64 {
	if !v.Set {
		return 0
	}
	if parsed, err := strconv.ParseInt(v.Text, 10, 64); err == nil {
		return parsed
	}
	return int64(v.Float())
}

func (v flexValue) String() string {
	if !v.Set || v.Text == "true" || v.Text == "false" {
		return ""
	}
	return v.Text
}

// Label returns the value only when the provider sent a JSON string. Names and
// status texts of any other type fall back to their defaults.
func (v flexValue) Label() string {
	if !v.Quoted {
		return ""
	}
	return v.Text
}

func leadingFloat(text string) (float64, bool) {
	text = strings.TrimSpace(text)
	end := 0
	for end < len(text) {
		ch := text[end]
		if (ch >= '0' && ch <= '9') || ch == '.' || ((ch == '-' || ch == '+') && end == 0) {
			end++
			continue
		}
		if (ch == 'e' || ch == 'E') && end > 0 && end+1 < len(text) {
			end++
			continue
		}
		break
	}
	for end > 0 {
		parsed, err := strconv.ParseFloat(text[:end], 64)
		if err == nil {
			return parsed, true
		}
		end--
	}
	return 0, false
}
