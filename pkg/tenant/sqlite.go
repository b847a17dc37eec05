package tenant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteStore implements Store using SQLite.
// It is suitable for single-instance deployments.
type SQLiteStore struct {
	db        *sql.DB
	path      string
	closeOnce sync.Once

	listStmt   *sql.Stmt
	getStmt    *sql.Stmt
	upsertStmt *sql.Stmt
	resetStmt  *sql.Stmt
	incrStmt   *sql.Stmt
}

// SQLiteConfig configures the SQLite store.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 1
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 1
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging. NewSQLiteStore turns it on.
	WALMode bool

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

const tenantSchema = `
CREATE TABLE IF NOT EXISTS tenants (
	id TEXT PRIMARY KEY,
	tier TEXT NOT NULL DEFAULT '',
	monthly_usage INTEGER NOT NULL DEFAULT 0,
	monthly_limit INTEGER NOT NULL DEFAULT 0,
	per_minute_limit INTEGER NOT NULL DEFAULT 0,
	is_active INTEGER NOT NULL DEFAULT 1,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tenants_active_created ON tenants(is_active, created_at);
`

// NewSQLiteStore opens (or creates) a tenant database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	return NewSQLiteStoreWithConfig(SQLiteConfig{Path: path, WALMode: true})
}

// NewSQLiteStoreWithConfig opens a tenant database with custom configuration.
func NewSQLiteStoreWithConfig(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = 1
	}
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = 1
	}

	// Pragmas in the DSN apply to every pooled connection
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)", cfg.Path, cfg.BusyTimeout.Milliseconds())
	if cfg.WALMode {
		dsn += "&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, NewStorageError("sqlite", "open", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

	s := &SQLiteStore{db: db, path: cfg.Path}

	if _, err := db.Exec(tenantSchema); err != nil {
		db.Close()
		return nil, NewStorageError("sqlite", "create_schema", err)
	}

	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.listStmt, err = s.db.Prepare(`
		SELECT id, tier, monthly_usage, monthly_limit, per_minute_limit, is_active, created_at, updated_at
		FROM tenants
		WHERE is_active = 1
		ORDER BY created_at ASC, rowid ASC
		LIMIT ?
	`)
	if err != nil {
		return NewStorageError("sqlite", "prepare_list", err)
	}

	s.getStmt, err = s.db.Prepare(`
		SELECT id, tier, monthly_usage, monthly_limit, per_minute_limit, is_active, created_at, updated_at
		FROM tenants
		WHERE id = ?
	`)
	if err != nil {
		return NewStorageError("sqlite", "prepare_get", err)
	}

	s.upsertStmt, err = s.db.Prepare(`
		INSERT INTO tenants (id, tier, monthly_usage, monthly_limit, per_minute_limit, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			tier = excluded.tier,
			monthly_usage = excluded.monthly_usage,
			monthly_limit = excluded.monthly_limit,
			per_minute_limit = excluded.per_minute_limit,
			is_active = excluded.is_active,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return NewStorageError("sqlite", "prepare_upsert", err)
	}

	s.resetStmt, err = s.db.Prepare(`UPDATE tenants SET monthly_usage = 0, updated_at = ? WHERE id = ?`)
	if err != nil {
		return NewStorageError("sqlite", "prepare_reset", err)
	}

	s.incrStmt, err = s.db.Prepare(`UPDATE tenants SET monthly_usage = monthly_usage + 1, updated_at = ? WHERE id = ?`)
	if err != nil {
		return NewStorageError("sqlite", "prepare_increment", err)
	}

	return nil
}

// ListActive returns at most limit active tenants in creation order.
func (s *SQLiteStore) ListActive(ctx context.Context, limit int) ([]*Tenant, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := s.listStmt.QueryContext(ctx, limit)
	if err != nil {
		return nil, NewStorageError("sqlite", "list_active", err)
	}
	defer rows.Close()

	var tenants []*Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, NewStorageError("sqlite", "scan", err)
		}
		tenants = append(tenants, t)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError("sqlite", "list_active", err)
	}

	return tenants, nil
}

// Get returns the tenant with the given ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Tenant, error) {
	t, err := scanTenant(s.getStmt.QueryRowContext(ctx, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, NewStorageError("sqlite", "get", err)
	}
	return t, nil
}

// Upsert creates or replaces a tenant row.
func (s *SQLiteStore) Upsert(ctx context.Context, t *Tenant) error {
	if err := validate(t); err != nil {
		return err
	}

	now := time.Now()
	createdAt := t.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	_, err := s.upsertStmt.ExecContext(ctx,
		t.ID, t.Tier, t.MonthlyUsage, t.MonthlyLimit, t.PerMinuteLimit,
		boolToInt(t.IsActive), createdAt.UnixNano(), now.UnixNano(),
	)
	if err != nil {
		return NewStorageError("sqlite", "upsert", err)
	}
	return nil
}

// ResetMonthlyUsage sets the tenant's monthly usage to zero.
func (s *SQLiteStore) ResetMonthlyUsage(ctx context.Context, id string) error {
	return s.execByID(ctx, s.resetStmt, "reset", id)
}

// IncrementMonthlyUsage adds one to the tenant's monthly usage.
func (s *SQLiteStore) IncrementMonthlyUsage(ctx context.Context, id string) error {
	return s.execByID(ctx, s.incrStmt, "increment", id)
}

func (s *SQLiteStore) execByID(ctx context.Context, stmt *sql.Stmt, op, id string) error {
	result, err := stmt.ExecContext(ctx, time.Now().UnixNano(), id)
	if err != nil {
		return NewStorageError("sqlite", op, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return NewStorageError("sqlite", op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Close releases the database. Close is idempotent.
func (s *SQLiteStore) Close() error {
	var closeErr error

	s.closeOnce.Do(func() {
		for _, stmt := range []*sql.Stmt{s.listStmt, s.getStmt, s.upsertStmt, s.resetStmt, s.incrStmt} {
			if stmt != nil {
				stmt.Close()
			}
		}
		closeErr = s.db.Close()
	})

	return closeErr
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTenant(row rowScanner) (*Tenant, error) {
	var (
		t         Tenant
		active    int
		createdAt int64
		updatedAt int64
	)

	err := row.Scan(&t.ID, &t.Tier, &t.MonthlyUsage, &t.MonthlyLimit, &t.PerMinuteLimit,
		&active, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	t.IsActive = active != 0
	t.CreatedAt = time.Unix(0, createdAt)
	t.UpdatedAt = time.Unix(0, updatedAt)
	return &t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
