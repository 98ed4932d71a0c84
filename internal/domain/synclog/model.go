package synclog

import "time"

const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Entry audits one pipeline invocation.
type Entry struct {
	RunID             string
	Source            string
	FinishedFetched   int
	UnfinishedFetched int
	Status            string
	ErrorMessage      string
	StartedAt         time.Time
	CompletedAt       *time.Time
}

// Completion is the single update applied when a run ends.
type Completion struct {
	Status            string
	FinishedFetched   int
	UnfinishedFetched int
	ErrorMessage      string
}
