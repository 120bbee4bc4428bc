package eventlog

import (
	"context"
	"database/sql"
)

type PostgresSink struct {
	db *sql.DB
}

func NewPostgresSink(db *sql.DB) *PostgresSink {
	return &PostgresSink{db: db}
}

func (s *PostgresSink) Append(ctx context.Context, e Event) error {
	query := `INSERT INTO ingest_events (occurred_at, source_tag, target_ref, outcome, error) VALUES ($1, $2, $3, $4, $5)`
	_, err := s.db.ExecContext(ctx, query, e.Timestamp, e.SourceTag, e.TargetRef, e.Outcome, e.Error)
	return err
}

func (s *PostgresSink) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ingest_events`).Scan(&count)
	return count, err
}
