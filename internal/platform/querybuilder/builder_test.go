package querybuilder

import "testing"

func TestSelectBuilder(t *testing.T) {
	query, args, err := Select("fixture_id", "round_num").
		From("upcoming_fixtures").
		Where(Eq("status", "scheduled"), IsNull("deleted_at")).
		OrderBy("kickoff_time").
		Limit(10).
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT fixture_id, round_num FROM upcoming_fixtures WHERE status = $1 AND deleted_at IS NULL ORDER BY kickoff_time LIMIT 10"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 1 || args[0] != "scheduled" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestSelectBuilder_LeftJoinAndNotIn(t *testing.T) {
	query, args, err := Select("u.fixture_id").
		From("unprocessed_fixtures u").
		LeftJoin("match_processing_status m", "m.fixture_id = u.fixture_id").
		Where(
			Expr("(m.overall_status IS NULL OR m.overall_status <> ?)", "processing"),
			NotIn("u.fixture_id", []any{int64(7), int64(9)}),
		).
		OrderBy("u.round_num ASC", "u.match_date ASC").
		Limit(1).
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT u.fixture_id FROM unprocessed_fixtures u LEFT JOIN match_processing_status m ON m.fixture_id = u.fixture_id WHERE (m.overall_status IS NULL OR m.overall_status <> $1) AND u.fixture_id NOT IN ($2, $3) ORDER BY u.round_num ASC, u.match_date ASC LIMIT 1"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 3 || args[0] != "processing" || args[2] != int64(9) {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestNotIn_EmptyMatchesAll(t *testing.T) {
	query, args, err := Select("fixture_id").From("upcoming_fixtures").Where(NotIn("fixture_id", nil)).ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}
	if query != "SELECT fixture_id FROM upcoming_fixtures WHERE 1=1" || len(args) != 0 {
		t.Fatalf("unexpected query %s args %+v", query, args)
	}
}

func TestInsertBuilder(t *testing.T) {
	query, args, err := InsertInto("sync_log").
		Columns("run_id", "status").
		Values("pipeline-1", "running").
		Suffix("RETURNING id").
		ToSQL()
	if err != nil {
		t.Fatalf("build insert query: %v", err)
	}

	wantQuery := "INSERT INTO sync_log (run_id, status) VALUES ($1, $2) RETURNING id"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[0] != "pipeline-1" || args[1] != "running" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestUpdateBuilder(t *testing.T) {
	query, args, err := Update("match_processing_status").
		Set("fetch_status", "processing").
		SetExpr("fetch_attempts", "fetch_attempts + 1").
		SetExpr("updated_at", "NOW()").
		Where(Eq("fixture_id", int64(4011))).
		ToSQL()
	if err != nil {
		t.Fatalf("build update query: %v", err)
	}

	wantQuery := "UPDATE match_processing_status SET fetch_status = $1, fetch_attempts = fetch_attempts + 1, updated_at = NOW() WHERE fixture_id = $2"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[0] != "processing" || args[1] != int64(4011) {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestDeleteBuilder(t *testing.T) {
	query, args, err := DeleteFrom("unprocessed_fixtures").Where(Eq("fixture_id", int64(3))).ToSQL()
	if err != nil {
		t.Fatalf("build delete query: %v", err)
	}
	if query != "DELETE FROM unprocessed_fixtures WHERE fixture_id = $1" {
		t.Fatalf("unexpected query: %s", query)
	}
	if len(args) != 1 {
		t.Fatalf("unexpected args: %+v", args)
	}

	if _, _, err := DeleteFrom("unprocessed_fixtures").ToSQL(); err == nil {
		t.Fatalf("expected error for delete without where")
	}
}

func TestUpsertModel(t *testing.T) {
	type row struct {
		FixtureID int64  `db:"fixture_id"`
		Status    string `db:"status"`
		CreatedAt string `db:"created_at"`
		internal  string
	}

	query, args, err := UpsertModel("finished_matches", row{FixtureID: 1, Status: "finished", CreatedAt: "now"}, []string{"fixture_id"}, "created_at")
	if err != nil {
		t.Fatalf("build upsert query: %v", err)
	}

	wantQuery := "INSERT INTO finished_matches (fixture_id, status, created_at) VALUES ($1, $2, $3) ON CONFLICT (fixture_id) DO UPDATE SET status = EXCLUDED.status"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 3 {
		t.Fatalf("unexpected args: %+v", args)
	}
}
