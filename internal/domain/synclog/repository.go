package synclog

import "context"

type Repository interface {
	Start(ctx context.Context, entry Entry) error
	Complete(ctx context.Context, runID string, completion Completion) error
	Latest(ctx context.Context) (Entry, bool, error)
}
