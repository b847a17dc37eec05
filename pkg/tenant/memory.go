package tenant

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore implements Store in process memory.
// Returned tenants are copies; mutating them does not affect the store.
type MemoryStore struct {
	mu      sync.RWMutex
	tenants map[string]*memoryRow
	seq     int64
}

type memoryRow struct {
	tenant Tenant
	seq    int64
}

// NewMemoryStore creates an empty memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tenants: make(map[string]*memoryRow),
	}
}

// ListActive returns at most limit active tenants in creation order.
func (m *MemoryStore) ListActive(ctx context.Context, limit int) ([]*Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows := make([]*memoryRow, 0, len(m.tenants))
	for _, row := range m.tenants {
		if row.tenant.IsActive {
			rows = append(rows, row)
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.tenant.CreatedAt.Equal(b.tenant.CreatedAt) {
			return a.tenant.CreatedAt.Before(b.tenant.CreatedAt)
		}
		return a.seq < b.seq
	})

	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	tenants := make([]*Tenant, 0, len(rows))
	for _, row := range rows {
		t := row.tenant
		tenants = append(tenants, &t)
	}
	return tenants, nil
}

// Get returns the tenant with the given ID.
func (m *MemoryStore) Get(ctx context.Context, id string) (*Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	row, ok := m.tenants[id]
	if !ok {
		return nil, ErrNotFound
	}
	t := row.tenant
	return &t, nil
}

// Upsert creates or replaces a tenant row.
func (m *MemoryStore) Upsert(ctx context.Context, t *Tenant) error {
	if err := validate(t); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	stored := *t
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now

	if row, ok := m.tenants[t.ID]; ok {
		stored.CreatedAt = row.tenant.CreatedAt
		row.tenant = stored
		return nil
	}

	m.seq++
	m.tenants[t.ID] = &memoryRow{tenant: stored, seq: m.seq}
	return nil
}

// ResetMonthlyUsage sets the tenant's monthly usage to zero.
func (m *MemoryStore) ResetMonthlyUsage(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.tenants[id]
	if !ok {
		return ErrNotFound
	}
	row.tenant.MonthlyUsage = 0
	row.tenant.UpdatedAt = time.Now()
	return nil
}

// IncrementMonthlyUsage adds one to the tenant's monthly usage.
func (m *MemoryStore) IncrementMonthlyUsage(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.tenants[id]
	if !ok {
		return ErrNotFound
	}
	row.tenant.MonthlyUsage++
	row.tenant.UpdatedAt = time.Now()
	return nil
}

// Close is a no-op for the memory store.
func (m *MemoryStore) Close() error {
	return nil
}
