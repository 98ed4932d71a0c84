package httpapi

import (
	"time"

	"github.com/riskibarqy/fixture-pipeline/internal/domain/fixture"
	"github.com/riskibarqy/fixture-pipeline/internal/domain/synclog"
	"github.com/riskibarqy/fixture-pipeline/internal/usecase"
)

type finishedMatchDTO struct {
	ID        int64     `json:"id"`
	Round     int       `json:"round"`
	Home      string    `json:"home"`
	Away      string    `json:"away"`
	HomeScore int       `json:"home_score"`
	AwayScore int       `json:"away_score"`
	MatchDate time.Time `json:"match_date"`
}

type upcomingFixtureDTO struct {
	ID      int64     `json:"id"`
	Round   int       `json:"round"`
	Home    string    `json:"home"`
	Away    string    `json:"away"`
	Kickoff time.Time `json:"kickoff"`
	Status  string    `json:"status"`
}

type fixtureBoardDTO struct {
	FinishedMatches  []finishedMatchDTO   `json:"finished_matches"`
	UpcomingFixtures []upcomingFixtureDTO `json:"upcoming_fixtures"`
}

type ledgerCountsDTO struct {
	Finished  int `json:"finished"`
	Upcoming  int `json:"upcoming"`
	Queued    int `json:"queued"`
	Processed int `json:"processed"`
}

type syncRunDTO struct {
	RunID             string     `json:"run_id"`
	Source            string     `json:"source"`
	Status            string     `json:"status"`
	FinishedFetched   int        `json:"finished_fetched"`
	UnfinishedFetched int        `json:"unfinished_fetched"`
	ErrorMessage      string     `json:"error_message,omitempty"`
	StartedAt         time.Time  `json:"started_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
}

type pipelineStatusDTO struct {
	Counts  ledgerCountsDTO `json:"counts"`
	LastRun *syncRunDTO     `json:"last_run"`
}

type pipelineRunDTO struct {
	RunID      string                  `json:"run_id"`
	Status     string                  `json:"status"`
	Inserted   int                     `json:"inserted"`
	Updated    int                     `json:"updated"`
	Failed     int                     `json:"failed"`
	Skipped    int                     `json:"skipped"`
	DurationMs int64                   `json:"duration_ms"`
	Reconcile  usecase.ReconcileResult `json:"reconcile"`
	Drain      usecase.DrainResult     `json:"drain"`
}

func fixtureBoardToDTO(board usecase.FixtureBoard) fixtureBoardDTO {
	out := fixtureBoardDTO{
		FinishedMatches:  make([]finishedMatchDTO, 0, len(board.Finished)),
		UpcomingFixtures: make([]upcomingFixtureDTO, 0, len(board.Upcoming)),
	}
	for _, item := range board.Finished {
		out.FinishedMatches = append(out.FinishedMatches, finishedMatchToDTO(item))
	}
	for _, item := range board.Upcoming {
		out.UpcomingFixtures = append(out.UpcomingFixtures, upcomingFixtureToDTO(item))
	}
	return out
}

func finishedMatchToDTO(item fixture.FinishedView) finishedMatchDTO {
	return finishedMatchDTO{
		ID:        item.ID,
		Round:     item.Round,
		Home:      item.HomeTeam,
		Away:      item.AwayTeam,
		HomeScore: item.HomeScore,
		AwayScore: item.AwayScore,
		MatchDate: item.MatchDate.UTC(),
	}
}

func upcomingFixtureToDTO(item fixture.UpcomingView) upcomingFixtureDTO {
	return upcomingFixtureDTO{
		ID:      item.ID,
		Round:   item.Round,
		Home:    item.HomeTeam,
		Away:    item.AwayTeam,
		Kickoff: item.KickoffAt.UTC(),
		Status:  item.Status,
	}
}

func pipelineStatusToDTO(status usecase.PipelineStatus) pipelineStatusDTO {
	out := pipelineStatusDTO{
		Counts: ledgerCountsDTO{
			Finished:  status.Counts.Finished,
			Upcoming:  status.Counts.Upcoming,
			Queued:    status.Counts.Queued,
			Processed: status.Counts.Processed,
		},
	}
	if status.LastRun != nil {
		run := syncRunToDTO(*status.LastRun)
		out.LastRun = &run
	}
	return out
}

func syncRunToDTO(entry synclog.Entry) syncRunDTO {
	return syncRunDTO{
		RunID:             entry.RunID,
		Source:            entry.Source,
		Status:            entry.Status,
		FinishedFetched:   entry.FinishedFetched,
		UnfinishedFetched: entry.UnfinishedFetched,
		ErrorMessage:      entry.ErrorMessage,
		StartedAt:         entry.StartedAt.UTC(),
		CompletedAt:       entry.CompletedAt,
	}
}

func runResultToDTO(result usecase.RunResult) pipelineRunDTO {
	return pipelineRunDTO{
		RunID:      result.RunID,
		Status:     result.Status,
		Inserted:   result.Inserted,
		Updated:    result.Updated,
		Failed:     result.Failed,
		Skipped:    result.Skipped,
		DurationMs: result.DurationMs,
		Reconcile:  result.Reconcile,
		Drain:      result.Drain,
	}
}
