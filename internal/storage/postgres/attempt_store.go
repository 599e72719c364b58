package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/matchaops/cafeleads/internal/leads"
)

// AttemptStoreConfig controls the Postgres connection pool used for
// search-attempt audit rows.
type AttemptStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// AttemptStore persists search attempts in Postgres.
type AttemptStore struct {
	pool  dbPool
	table string
}

// NewAttemptStore creates a Postgres-backed AttemptStore using the provided config.
func NewAttemptStore(ctx context.Context, cfg AttemptStoreConfig) (*AttemptStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "search_attempts"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &AttemptStore{pool: pool, table: table}, nil
}

// NewAttemptStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewAttemptStoreWithPool(pool dbPool, table string) (*AttemptStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "search_attempts"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &AttemptStore{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *AttemptStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Create inserts a new attempt row.
func (s *AttemptStore) Create(ctx context.Context, attempt leads.SearchAttempt) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("attempt store is not configured")
	}
	if attempt.ID == "" {
		return fmt.Errorf("attempt id is required")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	id, query_text, provider, search_type, status, initiator, error_text, created_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8
)`, s.table)

	_, err := s.pool.Exec(ctx, query,
		attempt.ID,
		attempt.QueryText,
		string(attempt.Provider),
		attempt.SearchType,
		string(attempt.Status),
		attempt.Initiator,
		attempt.ErrorText,
		attempt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

// UpdateStatus transitions the attempt. Terminal rows are left untouched:
// the WHERE clause refuses to overwrite done or failed.
func (s *AttemptStore) UpdateStatus(ctx context.Context, id string, status leads.AttemptStatus, errText string) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("attempt store is not configured")
	}
	query := fmt.Sprintf(
		`UPDATE %s SET status = $1, error_text = $2 WHERE id = $3 AND status NOT IN ('done', 'failed')`,
		s.table)

	tag, err := s.pool.Exec(ctx, query, string(status), errText, id)
	if err != nil {
		return fmt.Errorf("update attempt status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("attempt %s not updatable: %w", id, leads.ErrNotFound)
	}
	return nil
}

// Get returns one attempt by id.
func (s *AttemptStore) Get(ctx context.Context, id string) (leads.SearchAttempt, error) {
	if s == nil || s.pool == nil {
		return leads.SearchAttempt{}, fmt.Errorf("attempt store is not configured")
	}
	query := fmt.Sprintf(`
SELECT id, query_text, provider, search_type, status, initiator, error_text, created_at
FROM %s WHERE id = $1`, s.table)

	var a leads.SearchAttempt
	var provider, status string
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.QueryText, &provider, &a.SearchType, &status,
		&a.Initiator, &a.ErrorText, &a.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return leads.SearchAttempt{}, fmt.Errorf("attempt %s: %w", id, leads.ErrNotFound)
	}
	if err != nil {
		return leads.SearchAttempt{}, fmt.Errorf("get attempt: %w", err)
	}
	a.Provider = leads.Source(provider)
	a.Status = leads.AttemptStatus(status)
	return a, nil
}

// ListRecent returns the initiator's latest attempts, newest first.
func (s *AttemptStore) ListRecent(ctx context.Context, initiator string, limit int) ([]leads.SearchAttempt, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("attempt store is not configured")
	}
	if limit <= 0 {
		limit = 20
	}
	query := fmt.Sprintf(`
SELECT id, query_text, provider, search_type, status, initiator, error_text, created_at
FROM %s WHERE initiator = $1 ORDER BY created_at DESC LIMIT $2`, s.table)

	rows, err := s.pool.Query(ctx, query, initiator, limit)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var out []leads.SearchAttempt
	for rows.Next() {
		var a leads.SearchAttempt
		var provider, status string
		if err := rows.Scan(
			&a.ID, &a.QueryText, &provider, &a.SearchType, &status,
			&a.Initiator, &a.ErrorText, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		a.Provider = leads.Source(provider)
		a.Status = leads.AttemptStatus(status)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read attempts: %w", err)
	}
	return out, nil
}
