package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/fixture-pipeline/internal/domain/synclog"
	qb "github.com/riskibarqy/fixture-pipeline/internal/platform/querybuilder"
)

type syncLogInsertModel struct {
	RunID     string    `db:"run_id"`
	Source    string    `db:"source"`
	Status    string    `db:"status"`
	StartedAt time.Time `db:"started_at"`
}

type syncLogTableModel struct {
	ID                int64          `db:"id"`
	RunID             string         `db:"run_id"`
	Source            string         `db:"source"`
	FinishedFetched   int            `db:"finished_fetched"`
	UnfinishedFetched int            `db:"unfinished_fetched"`
	Status            string         `db:"status"`
	ErrorMessage      sql.NullString `db:"error_message"`
	StartedAt         time.Time      `db:"started_at"`
	CompletedAt       sql.NullTime   `db:"completed_at"`
}

type SyncLogRepository struct {
	db *sqlx.DB
}

func NewSyncLogRepository(db *sqlx.DB) *SyncLogRepository {
	return &SyncLogRepository{db: db}
}

func (r *SyncLogRepository) Start(ctx context.Context, entry synclog.Entry) error {
	query, args, err := qb.InsertModel("sync_log", syncLogInsertModel{
		RunID:     entry.RunID,
		Source:    entry.Source,
		Status:    entry.Status,
		StartedAt: entry.StartedAt.UTC(),
	}, "")
	if err != nil {
		return fmt.Errorf("build insert sync log query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert sync log run_id=%s: %w", entry.RunID, err)
	}
	return nil
}

func (r *SyncLogRepository) Complete(ctx context.Context, runID string, completion synclog.Completion) error {
	query, args, err := qb.Update("sync_log").
		Set("status", completion.Status).
		Set("finished_fetched", completion.FinishedFetched).
		Set("unfinished_fetched", completion.UnfinishedFetched).
		Set("error_message", nullString(completion.ErrorMessage)).
		SetExpr("completed_at", "NOW()").
		Where(qb.Eq("run_id", runID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build complete sync log query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("complete sync log run_id=%s: %w", runID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete sync log rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("sync log run_id=%s not found", runID)
	}
	return nil
}

func (r *SyncLogRepository) Latest(ctx context.Context) (synclog.Entry, bool, error) {
	query, args, err := qb.Select("*").From("sync_log").OrderBy("started_at DESC", "id DESC").Limit(1).ToSQL()
	if err != nil {
		return synclog.Entry{}, false, fmt.Errorf("build latest sync log query: %w", err)
	}

	var row syncLogTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return synclog.Entry{}, false, nil
		}
		return synclog.Entry{}, false, fmt.Errorf("select latest sync log: %w", err)
	}

	return synclog.Entry{
		RunID:             row.RunID,
		Source:            row.Source,
		FinishedFetched:   row.FinishedFetched,
		UnfinishedFetched: row.UnfinishedFetched,
		Status:            row.Status,
		ErrorMessage:      row.ErrorMessage.String,
		StartedAt:         row.StartedAt.UTC(),
		CompletedAt:       timePtr(row.CompletedAt),
	}, true, nil
}
