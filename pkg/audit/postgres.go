package audit

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSink writes audit events to a Postgres table, one row per
// event, using a single batched round trip per delivery.
//
// Expected schema:
//
//	CREATE TABLE audit_events (
//	    id         UUID PRIMARY KEY,
//	    kind       TEXT NOT NULL,
//	    action     TEXT NOT NULL,
//	    payload    JSONB NOT NULL,
//	    created_at TIMESTAMPTZ NOT NULL
//	);
type PostgresSink struct {
	pool  *pgxpool.Pool
	table string
}

// PostgresSinkOption configures a PostgresSink.
type PostgresSinkOption func(*PostgresSink)

// WithTable sets the table name. Defaults to "audit_events".
func WithTable(table string) PostgresSinkOption {
	return func(s *PostgresSink) {
		if table != "" {
			s.table = table
		}
	}
}

// NewPostgresSink creates a sink writing to the given pool.
func NewPostgresSink(pool *pgxpool.Pool, opts ...PostgresSinkOption) *PostgresSink {
	if pool == nil {
		panic("audit: postgres pool cannot be nil")
	}
	s := &PostgresSink{
		pool:  pool,
		table: "audit_events",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Deliver inserts the batch inside one transaction so a partial delivery
// never leaves half a batch behind to be retried into duplicates.
func (s *PostgresSink) Deliver(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	stmt := "INSERT INTO " + s.table + " (id, kind, action, payload, created_at) VALUES ($1, $2, $3, $4, $5)"
	for _, e := range events {
		payload, err := json.Marshal(e)
		if err != nil {
			return errors.Join(ErrSinkUnavailable, err)
		}
		batch.Queue(stmt, e.ID, string(e.Kind), e.Action, payload, e.CreatedAt)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return errors.Join(ErrSinkUnavailable, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return errors.Join(ErrSinkUnavailable, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return errors.Join(ErrSinkUnavailable, err)
	}
	return nil
}
