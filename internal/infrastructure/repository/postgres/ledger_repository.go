package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/fixture-pipeline/internal/domain/fixture"
	qb "github.com/riskibarqy/fixture-pipeline/internal/platform/querybuilder"
)

const (
	tableUpcoming    = "upcoming_fixtures"
	tableFinished    = "finished_matches"
	tableUnprocessed = "unprocessed_fixtures"
	tableProcessed   = "processed_fixtures"
	tableStatus      = "match_processing_status"

	returningInserted = " RETURNING (xmax = 0) AS inserted"
)

type LedgerRepository struct {
	db *sqlx.DB
}

func NewLedgerRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) CountFinished(ctx context.Context) (int, error) {
	return r.count(ctx, tableFinished)
}

func (r *LedgerRepository) count(ctx context.Context, table string) (int, error) {
	query, args, err := qb.Select("COUNT(*)").From(table).ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build count %s query: %w", table, err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return total, nil
}

func (r *LedgerRepository) UpcomingIDs(ctx context.Context) ([]int64, error) {
	query, args, err := qb.Select("fixture_id").From(tableUpcoming).OrderBy("fixture_id").ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select upcoming ids query: %w", err)
	}

	ids := make([]int64, 0)
	if err := r.db.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("select upcoming ids: %w", err)
	}
	return ids, nil
}

func (r *LedgerRepository) UpsertUpcoming(ctx context.Context, m fixture.Match) (fixture.UpsertOutcome, error) {
	model := upcomingFixtureUpsertModel{
		FixtureID:   m.ID,
		RoundNum:    m.Round,
		HomeTeam:    m.HomeTeam,
		AwayTeam:    m.AwayTeam,
		KickoffTime: m.KickoffAt.UTC(),
		Status:      m.Status,
		FullData:    nullablePayload(m.RawPayload),
		UpdatedAt:   time.Now().UTC(),
	}
	query, args, err := qb.UpsertModel(tableUpcoming, model, []string{"fixture_id"})
	if err != nil {
		return fixture.UpsertOutcome{}, fmt.Errorf("build upsert upcoming fixture query: %w", err)
	}

	var inserted bool
	if err := r.db.GetContext(ctx, &inserted, query+returningInserted, args...); err != nil {
		return fixture.UpsertOutcome{}, fmt.Errorf("upsert upcoming fixture_id=%d: %w", m.ID, err)
	}
	return fixture.UpsertOutcome{Inserted: inserted}, nil
}

// MarkFinished records the final result, queues the match unless it was
// queued or processed before, and drops it from the upcoming snapshot in one
// transaction.
func (r *LedgerRepository) MarkFinished(ctx context.Context, m fixture.Match) (fixture.MarkFinishedResult, error) {
	var result fixture.MarkFinishedResult

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("begin tx mark finished: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	payload := nullablePayload(m.RawPayload)
	kickoff := m.KickoffAt.UTC()

	query, args, err := qb.UpsertModel(tableFinished, finishedMatchUpsertModel{
		FixtureID: m.ID,
		RoundNum:  m.Round,
		HomeTeam:  m.HomeTeam,
		AwayTeam:  m.AwayTeam,
		HomeScore: m.HomeScore,
		AwayScore: m.AwayScore,
		MatchDate: kickoff,
		Status:    m.Status,
		FullData:  payload,
		UpdatedAt: time.Now().UTC(),
	}, []string{"fixture_id"})
	if err != nil {
		return result, fmt.Errorf("build upsert finished match query: %w", err)
	}
	if err := tx.GetContext(ctx, &result.Inserted, query+returningInserted, args...); err != nil {
		return result, fmt.Errorf("upsert finished match fixture_id=%d: %w", m.ID, err)
	}

	archived, err := existsIn(ctx, tx, tableProcessed, m.ID)
	if err != nil {
		return result, err
	}
	if !archived {
		query, args, err = qb.InsertModel(tableUnprocessed, unprocessedFixtureInsertModel{
			FixtureID: m.ID,
			RoundNum:  m.Round,
			HomeTeam:  m.HomeTeam,
			AwayTeam:  m.AwayTeam,
			HomeScore: m.HomeScore,
			AwayScore: m.AwayScore,
			MatchDate: kickoff,
			FullData:  payload,
		}, "ON CONFLICT (fixture_id) DO NOTHING")
		if err != nil {
			return result, fmt.Errorf("build queue insert query: %w", err)
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return result, fmt.Errorf("queue fixture_id=%d: %w", m.ID, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return result, fmt.Errorf("queue fixture_id=%d rows affected: %w", m.ID, err)
		}
		result.Queued = affected > 0
	}

	query, args, err = qb.InsertModel(tableStatus, processingStatusInsertModel{
		FixtureID:     m.ID,
		RoundNum:      m.Round,
		HomeTeam:      m.HomeTeam,
		AwayTeam:      m.AwayTeam,
		MatchDate:     kickoff,
		OverallStatus: fixture.OverallPending,
	}, "ON CONFLICT (fixture_id) DO NOTHING")
	if err != nil {
		return result, fmt.Errorf("build processing status insert query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return result, fmt.Errorf("insert processing status fixture_id=%d: %w", m.ID, err)
	}

	query, args, err = qb.DeleteFrom(tableUpcoming).Where(qb.Eq("fixture_id", m.ID)).ToSQL()
	if err != nil {
		return result, fmt.Errorf("build delete upcoming query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return result, fmt.Errorf("remove upcoming fixture_id=%d: %w", m.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fixture.MarkFinishedResult{}, fmt.Errorf("commit mark finished tx: %w", err)
	}
	return result, nil
}

func existsIn(ctx context.Context, tx *sqlx.Tx, table string, fixtureID int64) (bool, error) {
	query, args, err := qb.Select("1").From(table).Where(qb.Eq("fixture_id", fixtureID)).Limit(1).ToSQL()
	if err != nil {
		return false, fmt.Errorf("build %s lookup query: %w", table, err)
	}

	var found int
	if err := tx.GetContext(ctx, &found, query, args...); err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("lookup %s fixture_id=%d: %w", table, fixtureID, err)
	}
	return true, nil
}

func (r *LedgerRepository) PruneUpcoming(ctx context.Context, keep []int64) (int, error) {
	query, args, err := qb.DeleteFrom(tableUpcoming).Where(qb.NotIn("fixture_id", int64sToAny(keep))).ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build prune upcoming query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("prune upcoming fixtures: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune upcoming rows affected: %w", err)
	}
	return int(affected), nil
}

func (r *LedgerRepository) NextQueued(ctx context.Context, filter fixture.QueueFilter) (fixture.QueueEntry, bool, error) {
	query, args, err := qb.Select(
		"u.fixture_id",
		"u.round_num",
		"u.home_team",
		"u.away_team",
		"u.home_score",
		"u.away_score",
		"u.match_date",
		"u.full_data",
	).From(tableUnprocessed+" u").
		LeftJoin(tableStatus+" m", "m.fixture_id = u.fixture_id").
		Where(
			qb.Expr("(m.overall_status IS NULL OR m.overall_status <> ?)", fixture.OverallProcessing),
			qb.NotIn("u.fixture_id", int64sToAny(filter.ExcludeIDs)),
		).
		OrderBy("u.round_num ASC", "u.match_date ASC", "u.fixture_id ASC").
		Limit(1).
		ToSQL()
	if err != nil {
		return fixture.QueueEntry{}, false, fmt.Errorf("build next queued query: %w", err)
	}

	var row queueEntryTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return fixture.QueueEntry{}, false, nil
		}
		return fixture.QueueEntry{}, false, fmt.Errorf("select next queued match: %w", err)
	}
	return queueEntryFromRow(row), true, nil
}

func (r *LedgerRepository) ResetStaleProcessing(ctx context.Context, olderThan time.Time, reason string) (int, error) {
	reason = fixture.Truncate(reason, fixture.MaxErrorLength)

	// Every SET expression reads the pre-update row, so the CASE branches see
	// the stage that was stuck.
	query, args, err := qb.Update(tableStatus).
		SetExpr("fetch_error", "CASE WHEN fetch_status = ? THEN ? ELSE fetch_error END", fixture.StageProcessing, reason).
		SetExpr("process_error", "CASE WHEN fetch_status <> ? AND process_status = ? THEN ? ELSE process_error END", fixture.StageProcessing, fixture.StageProcessing, reason).
		SetExpr("fetch_status", "CASE WHEN fetch_status = ? THEN ? ELSE fetch_status END", fixture.StageProcessing, fixture.StageFailed).
		SetExpr("process_status", "CASE WHEN fetch_status <> ? AND process_status = ? THEN ? ELSE process_status END", fixture.StageProcessing, fixture.StageProcessing, fixture.StageFailed).
		Set("overall_status", fixture.OverallFailed).
		SetExpr("updated_at", "NOW()").
		Where(
			qb.Eq("overall_status", fixture.OverallProcessing),
			qb.Expr("updated_at < ?", olderThan.UTC()),
		).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build reset stale processing query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("reset stale processing: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reset stale processing rows affected: %w", err)
	}
	return int(affected), nil
}

func (r *LedgerRepository) GetStatus(ctx context.Context, fixtureID int64) (fixture.ProcessingStatus, bool, error) {
	query, args, err := qb.Select("*").From(tableStatus).Where(qb.Eq("fixture_id", fixtureID)).Limit(1).ToSQL()
	if err != nil {
		return fixture.ProcessingStatus{}, false, fmt.Errorf("build select processing status query: %w", err)
	}

	var row processingStatusTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return fixture.ProcessingStatus{}, false, nil
		}
		return fixture.ProcessingStatus{}, false, fmt.Errorf("select processing status fixture_id=%d: %w", fixtureID, err)
	}
	return processingStatusFromRow(row), true, nil
}

func (r *LedgerRepository) BeginProcessing(ctx context.Context, fixtureID int64) error {
	return r.updateStatus(ctx, fixtureID, "begin processing", func(b *qb.UpdateBuilder) {
		b.Set("overall_status", fixture.OverallProcessing)
	})
}

func (r *LedgerRepository) BeginFetch(ctx context.Context, fixtureID int64) error {
	return r.updateStatus(ctx, fixtureID, "begin fetch", func(b *qb.UpdateBuilder) {
		b.Set("fetch_status", fixture.StageProcessing).
			SetExpr("fetch_attempts", "fetch_attempts + 1")
	})
}

func (r *LedgerRepository) FetchSucceeded(ctx context.Context, fixtureID int64) error {
	return r.updateStatus(ctx, fixtureID, "fetch succeeded", func(b *qb.UpdateBuilder) {
		b.Set("fetch_status", fixture.StageSuccess).
			Set("fetch_error", nil).
			SetExpr("fetch_completed_at", "NOW()")
	})
}

func (r *LedgerRepository) FetchFailed(ctx context.Context, fixtureID int64, message string) error {
	return r.updateStatus(ctx, fixtureID, "fetch failed", func(b *qb.UpdateBuilder) {
		b.Set("fetch_status", fixture.StageFailed).
			Set("fetch_error", nullString(fixture.Truncate(message, fixture.MaxErrorLength))).
			Set("overall_status", fixture.OverallFailed)
	})
}

func (r *LedgerRepository) BeginProcess(ctx context.Context, fixtureID int64) error {
	return r.updateStatus(ctx, fixtureID, "begin process", func(b *qb.UpdateBuilder) {
		b.Set("process_status", fixture.StageProcessing)
	})
}

func (r *LedgerRepository) ProcessFailed(ctx context.Context, fixtureID int64, message string) error {
	return r.updateStatus(ctx, fixtureID, "process failed", func(b *qb.UpdateBuilder) {
		b.Set("process_status", fixture.StageFailed).
			Set("process_error", nullString(fixture.Truncate(message, fixture.MaxErrorLength))).
			Set("overall_status", fixture.OverallFailed)
	})
}

func (r *LedgerRepository) updateStatus(ctx context.Context, fixtureID int64, op string, apply func(b *qb.UpdateBuilder)) error {
	return execStatusUpdate(ctx, r.db, fixtureID, op, apply)
}

func execStatusUpdate(ctx context.Context, db sqlx.ExecerContext, fixtureID int64, op string, apply func(b *qb.UpdateBuilder)) error {
	builder := qb.Update(tableStatus)
	apply(builder)
	query, args, err := builder.
		SetExpr("updated_at", "NOW()").
		Where(qb.Eq("fixture_id", fixtureID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build %s query: %w", op, err)
	}

	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s fixture_id=%d: %w", op, fixtureID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s fixture_id=%d rows affected: %w", op, fixtureID, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: fixture_id=%d", fixture.ErrStatusNotFound, fixtureID)
	}
	return nil
}

// Complete marks every save stage successful and moves the match from the
// queue to the archive in one transaction.
func (r *LedgerRepository) Complete(ctx context.Context, fixtureID int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx complete match: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	err = execStatusUpdate(ctx, tx, fixtureID, "complete", func(b *qb.UpdateBuilder) {
		b.Set("process_status", fixture.StageSuccess).
			Set("process_error", nil).
			SetExpr("process_completed_at", "NOW()").
			Set("save_players_status", fixture.StageSuccess).
			Set("save_gks_status", fixture.StageSuccess).
			Set("save_teams_status", fixture.StageSuccess).
			SetExpr("save_completed_at", "NOW()").
			Set("overall_status", fixture.OverallCompleted)
	})
	if err != nil {
		return err
	}

	archive := `INSERT INTO ` + tableProcessed + ` (fixture_id, round_num, processed_at)
SELECT fixture_id, round_num, NOW() FROM ` + tableUnprocessed + ` WHERE fixture_id = $1
ON CONFLICT (fixture_id) DO NOTHING`
	if _, err := tx.ExecContext(ctx, archive, fixtureID); err != nil {
		return fmt.Errorf("archive fixture_id=%d: %w", fixtureID, err)
	}

	query, args, err := qb.DeleteFrom(tableUnprocessed).Where(qb.Eq("fixture_id", fixtureID)).ToSQL()
	if err != nil {
		return fmt.Errorf("build dequeue query: %w", err)
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("dequeue fixture_id=%d: %w", fixtureID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("dequeue fixture_id=%d rows affected: %w", fixtureID, err)
	}
	if affected == 0 {
		return fmt.Errorf("complete fixture_id=%d: not in unprocessed queue", fixtureID)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit complete match tx: %w", err)
	}
	return nil
}

func (r *LedgerRepository) ListFinished(ctx context.Context) ([]fixture.FinishedView, error) {
	query, args, err := qb.Select("fixture_id", "round_num", "home_team", "away_team", "home_score", "away_score", "match_date").
		From(tableFinished).
		OrderBy("round_num DESC", "match_date DESC").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select finished matches query: %w", err)
	}

	var rows []finishedViewTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select finished matches: %w", err)
	}

	out := make([]fixture.FinishedView, 0, len(rows))
	for _, row := range rows {
		out = append(out, fixture.FinishedView{
			ID:        row.FixtureID,
			Round:     row.RoundNum,
			HomeTeam:  row.HomeTeam,
			AwayTeam:  row.AwayTeam,
			HomeScore: row.HomeScore,
			AwayScore: row.AwayScore,
			MatchDate: row.MatchDate.UTC(),
		})
	}
	return out, nil
}

func (r *LedgerRepository) ListUpcoming(ctx context.Context) ([]fixture.UpcomingView, error) {
	query, args, err := qb.Select("fixture_id", "round_num", "home_team", "away_team", "kickoff_time", "status").
		From(tableUpcoming).
		OrderBy("kickoff_time ASC").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select upcoming fixtures query: %w", err)
	}

	var rows []upcomingViewTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select upcoming fixtures: %w", err)
	}

	out := make([]fixture.UpcomingView, 0, len(rows))
	for _, row := range rows {
		out = append(out, fixture.UpcomingView{
			ID:        row.FixtureID,
			Round:     row.RoundNum,
			HomeTeam:  row.HomeTeam,
			AwayTeam:  row.AwayTeam,
			KickoffAt: row.KickoffTime.UTC(),
			Status:    row.Status,
		})
	}
	return out, nil
}

func (r *LedgerRepository) Counts(ctx context.Context) (fixture.Counts, error) {
	var (
		counts fixture.Counts
		err    error
	)
	if counts.Finished, err = r.count(ctx, tableFinished); err != nil {
		return fixture.Counts{}, err
	}
	if counts.Upcoming, err = r.count(ctx, tableUpcoming); err != nil {
		return fixture.Counts{}, err
	}
	if counts.Queued, err = r.count(ctx, tableUnprocessed); err != nil {
		return fixture.Counts{}, err
	}
	if counts.Processed, err = r.count(ctx, tableProcessed); err != nil {
		return fixture.Counts{}, err
	}
	return counts, nil
}
