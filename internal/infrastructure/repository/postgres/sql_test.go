package postgres

import (
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestIsNotFound(t *testing.T) {
	t.Run("matches wrapped no rows", func(t *testing.T) {
		if !isNotFound(fmt.Errorf("select: %w", sql.ErrNoRows)) {
			t.Fatalf("expected wrapped sql.ErrNoRows to match")
		}
	})

	t.Run("ignores unrelated error", func(t *testing.T) {
		if isNotFound(fakeErr("pq: relation sync_log does not exist")) {
			t.Fatalf("expected false for unrelated error")
		}
	})
}

func TestNullablePayload(t *testing.T) {
	if got := nullablePayload(nil); got != nil {
		t.Fatalf("expected nil for empty payload, got %q", *got)
	}
	got := nullablePayload([]byte(`{"id":1}`))
	if got == nil || *got != `{"id":1}` {
		t.Fatalf("unexpected payload %v", got)
	}
}

func TestTimePtr(t *testing.T) {
	if timePtr(sql.NullTime{}) != nil {
		t.Fatalf("expected nil for invalid time")
	}
	local := time.Date(2026, 1, 1, 19, 0, 0, 0, time.FixedZone("WIB", 7*3600))
	got := timePtr(sql.NullTime{Time: local, Valid: true})
	if got == nil || got.Location() != time.UTC || !got.Equal(local) {
		t.Fatalf("expected UTC copy, got %v", got)
	}
}

func TestInt64sToAny(t *testing.T) {
	got := int64sToAny([]int64{3, 5})
	if len(got) != 2 || got[0] != int64(3) || got[1] != int64(5) {
		t.Fatalf("unexpected conversion %+v", got)
	}
}

func TestSchemaStatements(t *testing.T) {
	stmts := schemaStatements(schemaSQL)
	if len(stmts) == 0 {
		t.Fatalf("expected embedded schema statements")
	}

	tables := []string{
		"upcoming_fixtures",
		"finished_matches",
		"unprocessed_fixtures",
		"processed_fixtures",
		"match_processing_status",
		"sync_log",
		"score365_players",
		"score365_goalkeepers",
		"score365_teams",
	}
	for _, table := range tables {
		found := false
		for _, stmt := range stmts {
			if strings.HasPrefix(stmt, "CREATE TABLE IF NOT EXISTS "+table+" (") {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("schema is missing table %s", table)
		}
	}
	for _, stmt := range stmts {
		if !strings.Contains(stmt, "IF NOT EXISTS") {
			t.Fatalf("schema statement must be idempotent: %s", firstLine(stmt))
		}
	}
}

type fakeErr string

func (e fakeErr) Error() string { return string(e) }
