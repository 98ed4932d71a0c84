package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"

	"github.com/riskibarqy/fixture-pipeline/internal/config"
)

const (
	dbPingTimeout     = 10 * time.Second
	maxTracedQueryLen = 512
)

// OpenDB opens a traced connection pool and verifies it with a ping.
func OpenDB(ctx context.Context, cfg config.Config) (*sqlx.DB, error) {
	dsn, err := postgresDSN(cfg.DBURL, cfg.ServiceName, cfg.DBBinaryParameters)
	if err != nil {
		return nil, err
	}
	dbName := dsnParams(dsn)["dbname"]

	db, err := otelsqlx.Open("postgres", dsn,
		otelsql.WithDBName(dbName),
		otelsql.WithQueryFormatter(traceQuery),
		otelsql.WithDBSystem("postgresql"),
	)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxOpenConns)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, dbPingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database %s: %w", dbName, err)
	}
	return db, nil
}

// postgresDSN converts DB_URL into a lib/pq key/value DSN and tags the session
// with the service name. binary_parameters lets the batch upserts run through
// transaction poolers that reject named prepared statements. Keys already set
// in DB_URL win.
func postgresDSN(raw, applicationName string, binaryParameters bool) (string, error) {
	dsn := strings.TrimSpace(raw)
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		converted, err := pq.ParseURL(dsn)
		if err != nil {
			return "", fmt.Errorf("parse DB_URL: %w", err)
		}
		dsn = converted
	}

	params := dsnParams(dsn)
	if _, ok := params["application_name"]; !ok && applicationName != "" {
		dsn += " application_name=" + applicationName
	}
	if _, ok := params["binary_parameters"]; !ok && binaryParameters {
		dsn += " binary_parameters=yes"
	}
	return strings.TrimSpace(dsn), nil
}

func dsnParams(dsn string) map[string]string {
	params := make(map[string]string)
	for _, token := range strings.Fields(dsn) {
		key, value, ok := strings.Cut(token, "=")
		if !ok {
			continue
		}
		params[key] = strings.Trim(value, `'`)
	}
	return params
}

// traceQuery collapses the multi-line upsert statements into one span-friendly line.
func traceQuery(query string) string {
	line := strings.Join(strings.Fields(query), " ")
	if len(line) > maxTracedQueryLen {
		return line[:maxTracedQueryLen] + "..."
	}
	return line
}
