package infra

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// ErrSQLMarker is returned when a statement does not open with its audit
// marker line.
var ErrSQLMarker = errors.New("infra: sql audit marker missing or invalid")

// SQLExecutor is the query surface shared by the project and account
// repositories and the credentials store. Every statement carries a
// "--sql <uuid>" first line so log lines can be traced back to the
// statement constant in internal/sqlinline.
type SQLExecutor interface {
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
	Query(ctx context.Context, query string, args ...any) (pgx.Rows, error)
}

var auditMarker = regexp.MustCompile(`^--sql ([0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12})$`)

// SQLRunner runs marked statements on a pool and logs each one under its
// marker id.
type SQLRunner struct {
	Pool   *pgxpool.Pool
	Logger zerolog.Logger
}

func NewSQLRunner(pool *pgxpool.Pool, logger zerolog.Logger) *SQLRunner {
	return &SQLRunner{Pool: pool, Logger: logger.With().Str("component", "sql").Logger()}
}

// Exec runs a write such as a ledger entry or a project upsert.
func (r *SQLRunner) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	id, stmt, err := splitMarker(query)
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	start := time.Now()
	tag, err := r.Pool.Exec(ctx, stmt, args...)
	if err != nil {
		r.Logger.Error().Err(err).Str("sql_id", id).Msg("sql: exec failed")
		return tag, err
	}
	r.Logger.Debug().Str("sql_id", id).Int64("rows", tag.RowsAffected()).Dur("took", time.Since(start)).Msg("sql: exec")
	return tag, nil
}

// QueryRow defers errors to Scan, as pgx does. A missing marker surfaces
// there too.
func (r *SQLRunner) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	id, stmt, err := splitMarker(query)
	if err != nil {
		return failedRow{err: err}
	}
	r.Logger.Debug().Str("sql_id", id).Msg("sql: query row")
	return tracedRow{Row: r.Pool.QueryRow(ctx, stmt, args...), logger: r.Logger, id: id}
}

func (r *SQLRunner) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	id, stmt, err := splitMarker(query)
	if err != nil {
		return nil, err
	}
	rows, err := r.Pool.Query(ctx, stmt, args...)
	if err != nil {
		r.Logger.Error().Err(err).Str("sql_id", id).Msg("sql: query failed")
		return nil, err
	}
	return tracedRows{Rows: rows, logger: r.Logger, id: id, start: time.Now()}, nil
}

// tracedRow logs scan failures. No rows is an expected lookup miss and is
// left to the repository.
type tracedRow struct {
	pgx.Row
	logger zerolog.Logger
	id     string
}

func (t tracedRow) Scan(dest ...any) error {
	err := t.Row.Scan(dest...)
	if err != nil && !IsNoRows(err) {
		t.logger.Error().Err(err).Str("sql_id", t.id).Msg("sql: scan failed")
	}
	return err
}

type tracedRows struct {
	pgx.Rows
	logger zerolog.Logger
	id     string
	start  time.Time
}

func (t tracedRows) Close() {
	t.Rows.Close()
	ev := t.logger.Debug()
	if err := t.Rows.Err(); err != nil {
		ev = t.logger.Error().Err(err)
	}
	ev.Str("sql_id", t.id).Dur("took", time.Since(t.start)).Msg("sql: query")
}

type failedRow struct {
	err error
}

func (f failedRow) Scan(...any) error { return f.err }

// splitMarker returns the marker id and the statement below it.
func splitMarker(query string) (string, string, error) {
	head, body, _ := strings.Cut(strings.TrimSpace(query), "\n")
	m := auditMarker.FindStringSubmatch(strings.TrimSpace(head))
	if m == nil {
		return "", "", fmt.Errorf("%w: %q", ErrSQLMarker, firstWords(head))
	}
	if strings.TrimSpace(body) == "" {
		return "", "", fmt.Errorf("%w: marker %s has no statement", ErrSQLMarker, m[1])
	}
	return m[1], body, nil
}

func firstWords(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 40 {
		return s[:40] + "..."
	}
	return s
}

// IsNoRows reports whether err means a lookup matched nothing.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

var _ SQLExecutor = (*SQLRunner)(nil)
