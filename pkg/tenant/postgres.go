package tenant

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store on PostgreSQL through a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// PostgresConfig configures the PostgreSQL store.
type PostgresConfig struct {
	// DSN is a libpq connection string or postgres:// URL.
	DSN string

	// MaxConns caps the pool size. Zero keeps the pgx default.
	MaxConns int32

	// MinConns keeps idle connections warm.
	MinConns int32

	// CreateSchema creates the tenants table when it does not exist.
	CreateSchema bool
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS tenants (
	id TEXT PRIMARY KEY,
	tier TEXT NOT NULL DEFAULT '',
	monthly_usage BIGINT NOT NULL DEFAULT 0,
	monthly_limit BIGINT NOT NULL DEFAULT 0,
	per_minute_limit BIGINT NOT NULL DEFAULT 0,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	seq BIGSERIAL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_tenants_active_created ON tenants(is_active, created_at, seq);
`

// NewPostgresStore connects to PostgreSQL and verifies the connection.
func NewPostgresStore(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres dsn cannot be empty")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, NewStorageError("postgres", "connect", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, NewStorageError("postgres", "ping", err)
	}

	if cfg.CreateSchema {
		if _, err := pool.Exec(ctx, postgresSchema); err != nil {
			pool.Close()
			return nil, NewStorageError("postgres", "create_schema", err)
		}
	}

	return &PostgresStore{pool: pool}, nil
}

// NewPostgresStoreFromPool wraps an existing pool.
func NewPostgresStoreFromPool(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// ListActive returns at most limit active tenants in creation order.
func (s *PostgresStore) ListActive(ctx context.Context, limit int) ([]*Tenant, error) {
	query := `
		SELECT id, tier, monthly_usage, monthly_limit, per_minute_limit, is_active, created_at, updated_at
		FROM tenants
		WHERE is_active
		ORDER BY created_at ASC, seq ASC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, NewStorageError("postgres", "list_active", err)
	}
	defer rows.Close()

	var tenants []*Tenant
	for rows.Next() {
		var t Tenant
		if err := rows.Scan(&t.ID, &t.Tier, &t.MonthlyUsage, &t.MonthlyLimit, &t.PerMinuteLimit,
			&t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, NewStorageError("postgres", "scan", err)
		}
		tenants = append(tenants, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError("postgres", "list_active", err)
	}

	return tenants, nil
}

// Get returns the tenant with the given ID.
func (s *PostgresStore) Get(ctx context.Context, id string) (*Tenant, error) {
	query := `
		SELECT id, tier, monthly_usage, monthly_limit, per_minute_limit, is_active, created_at, updated_at
		FROM tenants
		WHERE id = $1
	`

	var t Tenant
	err := s.pool.QueryRow(ctx, query, id).Scan(&t.ID, &t.Tier, &t.MonthlyUsage, &t.MonthlyLimit,
		&t.PerMinuteLimit, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, NewStorageError("postgres", "get", err)
	}
	return &t, nil
}

// Upsert creates or replaces a tenant row.
func (s *PostgresStore) Upsert(ctx context.Context, t *Tenant) error {
	if err := validate(t); err != nil {
		return err
	}

	query := `
		INSERT INTO tenants (id, tier, monthly_usage, monthly_limit, per_minute_limit, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7::timestamptz, now()), now())
		ON CONFLICT (id) DO UPDATE SET
			tier = EXCLUDED.tier,
			monthly_usage = EXCLUDED.monthly_usage,
			monthly_limit = EXCLUDED.monthly_limit,
			per_minute_limit = EXCLUDED.per_minute_limit,
			is_active = EXCLUDED.is_active,
			updated_at = now()
	`

	var createdAt any
	if !t.CreatedAt.IsZero() {
		createdAt = t.CreatedAt
	}

	_, err := s.pool.Exec(ctx, query, t.ID, t.Tier, t.MonthlyUsage, t.MonthlyLimit,
		t.PerMinuteLimit, t.IsActive, createdAt)
	if err != nil {
		return NewStorageError("postgres", "upsert", err)
	}
	return nil
}

// ResetMonthlyUsage sets the tenant's monthly usage to zero.
func (s *PostgresStore) ResetMonthlyUsage(ctx context.Context, id string) error {
	return s.execByID(ctx, "reset",
		`UPDATE tenants SET monthly_usage = 0, updated_at = now() WHERE id = $1`, id)
}

// IncrementMonthlyUsage adds one to the tenant's monthly usage.
func (s *PostgresStore) IncrementMonthlyUsage(ctx context.Context, id string) error {
	return s.execByID(ctx, "increment",
		`UPDATE tenants SET monthly_usage = monthly_usage + 1, updated_at = now() WHERE id = $1`, id)
}

func (s *PostgresStore) execByID(ctx context.Context, op, query, id string) error {
	tag, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return NewStorageError("postgres", op, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
