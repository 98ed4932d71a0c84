package postgres

import (
	"database/sql"
	"errors"
	"time"
)

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// nullablePayload keeps JSONB columns NULL when the provider payload is empty.
func nullablePayload(raw []byte) *string {
	if len(raw) == 0 {
		return nil
	}
	value := string(raw)
	return &value
}

func nullString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func timePtr(value sql.NullTime) *time.Time {
	if !value.Valid {
		return nil
	}
	t := value.Time.UTC()
	return &t
}

func int64sToAny(items []int64) []any {
	out := make([]any, 0, len(items))
	for _, item := range items {
		out = append(out, item)
	}
	return out
}
