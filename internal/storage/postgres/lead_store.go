// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/matchaops/cafeleads/internal/leads"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// dbPool is the subset of pgxpool.Pool the stores use; pgxmock satisfies it.
type dbPool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Close()
}

// LeadStoreConfig controls the Postgres connection pool used for lead rows.
type LeadStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// LeadStore persists leads in Postgres. Natural-key uniqueness is enforced
// by the leads_source_natural_key constraint, so concurrent inserts of the
// same key resolve to exactly one row without application-level locking.
type LeadStore struct {
	pool  dbPool
	table string
}

// NewLeadStore creates a Postgres-backed LeadStore using the provided config.
func NewLeadStore(ctx context.Context, cfg LeadStoreConfig) (*LeadStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "leads"
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
	return &LeadStore{pool: pool, table: table}, nil
}

// NewLeadStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewLeadStoreWithPool(pool dbPool, table string) (*LeadStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "leads"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &LeadStore{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *LeadStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Insert writes the lead unless its (source, natural_key) pair already
// exists. Returns false with a nil error for duplicates.
func (s *LeadStore) Insert(ctx context.Context, lead leads.Lead) (bool, error) {
	if s == nil || s.pool == nil {
		return false, fmt.Errorf("lead store is not configured")
	}
	if lead.ID == "" {
		return false, fmt.Errorf("lead id is required")
	}
	if lead.Name == "" {
		return false, fmt.Errorf("lead name is required")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	name,
	city,
	address,
	website,
	instagram_handle,
	tiktok_handle,
	source,
	external_id,
	follower_count,
	profile_url,
	notes,
	natural_key,
	created_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14
) ON CONFLICT ON CONSTRAINT leads_source_natural_key DO NOTHING`, s.table)

	args := []any{
		lead.ID,
		lead.Name,
		lead.City,
		lead.Address,
		lead.Website,
		lead.InstagramHandle,
		lead.TikTokHandle,
		string(lead.Source),
		lead.ExternalID,
		lead.FollowerCount,
		lead.ProfileURL,
		lead.Notes,
		lead.NaturalKey(),
		lead.CreatedAt,
	}
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("insert lead: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ExistingKeys returns the subset of the given natural keys already
// persisted for the source.
func (s *LeadStore) ExistingKeys(ctx context.Context, source leads.Source, keys []string) (map[string]bool, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("lead store is not configured")
	}
	out := make(map[string]bool, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	query := fmt.Sprintf(
		`SELECT natural_key FROM %s WHERE source = $1 AND natural_key = ANY($2)`, s.table)

	rows, err := s.pool.Query(ctx, query, string(source), keys)
	if err != nil {
		return nil, fmt.Errorf("query existing keys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan existing key: %w", err)
		}
		out[key] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read existing keys: %w", err)
	}
	return out, nil
}

// List returns persisted leads, newest first.
func (s *LeadStore) List(ctx context.Context, filter leads.LeadFilter) ([]leads.Lead, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("lead store is not configured")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	query := fmt.Sprintf(`
SELECT id, name, city, address, website, instagram_handle, tiktok_handle,
	source, external_id, follower_count, profile_url, notes, created_at
FROM %s`, s.table)
	args := []any{}
	if filter.Source != "" {
		query += " WHERE source = $1"
		args = append(args, string(filter.Source))
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, filter.Offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query leads: %w", err)
	}
	defer rows.Close()

	var out []leads.Lead
	for rows.Next() {
		var l leads.Lead
		var source string
		if err := rows.Scan(
			&l.ID, &l.Name, &l.City, &l.Address, &l.Website,
			&l.InstagramHandle, &l.TikTokHandle, &source, &l.ExternalID,
			&l.FollowerCount, &l.ProfileURL, &l.Notes, &l.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		l.Source = leads.Source(source)
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read leads: %w", err)
	}
	return out, nil
}
