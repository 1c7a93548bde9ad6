// Package postgres persists composed analysis results.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/takjakim/method-studio/domain/core"
	"github.com/takjakim/method-studio/ports"
)

// resultStore implements ports.ResultStore on a results table keyed by
// analysis ID, with the composed result held as a JSONB payload.
type resultStore struct {
	db *sqlx.DB
}

func NewResultStore(db *sqlx.DB) ports.ResultStore {
	return &resultStore{db: db}
}

// Connect opens and pings a connection using a standard postgres DSN.
func Connect(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the results table if it does not exist.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	const ddl = `CREATE TABLE IF NOT EXISTS analysis_results (
		id         TEXT PRIMARY KEY,
		analysis   TEXT NOT NULL,
		payload    JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to ensure results schema: %w", err)
	}
	return nil
}

func (s *resultStore) Save(ctx context.Context, rec ports.ResultRecord) error {
	const query = `INSERT INTO analysis_results (id, analysis, payload, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET analysis = $2, payload = $3`

	_, err := s.db.ExecContext(ctx, query, rec.ID, rec.Analysis, rec.Payload, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save result %s: %w", rec.ID, err)
	}
	return nil
}

func (s *resultStore) Get(ctx context.Context, id core.AnalysisID) (*ports.ResultRecord, error) {
	const query = `SELECT id, analysis, payload, created_at
		FROM analysis_results WHERE id = $1`

	var rec ports.ResultRecord
	if err := s.db.GetContext(ctx, &rec, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("result not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get result %s: %w", id, err)
	}
	return &rec, nil
}

func (s *resultStore) List(ctx context.Context, analysis string, limit int) ([]ports.ResultRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	var recs []ports.ResultRecord
	var err error
	if analysis == "" {
		const query = `SELECT id, analysis, payload, created_at
			FROM analysis_results ORDER BY created_at DESC LIMIT $1`
		err = s.db.SelectContext(ctx, &recs, query, limit)
	} else {
		const query = `SELECT id, analysis, payload, created_at
			FROM analysis_results WHERE analysis = $1 ORDER BY created_at DESC LIMIT $2`
		err = s.db.SelectContext(ctx, &recs, query, analysis, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	return recs, nil
}
