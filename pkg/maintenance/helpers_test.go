package maintenance

import (
	"context"
	"errors"
	"sync"
	"time"

	"mercator-hq/tollgate/pkg/notify"
	"mercator-hq/tollgate/pkg/tenant"
)

var errStorage = errors.New("connection reset by peer")

// flakyTenantStore wraps a memory store and fails resets on demand.
type flakyTenantStore struct {
	*tenant.MemoryStore

	mu       sync.Mutex
	failures map[string]int // remaining failures per tenant; -1 fails forever
	attempts map[string]int
	listErr  error
}

func newFlakyTenantStore() *flakyTenantStore {
	return &flakyTenantStore{
		MemoryStore: tenant.NewMemoryStore(),
		failures:    make(map[string]int),
		attempts:    make(map[string]int),
	}
}

func (s *flakyTenantStore) ListActive(ctx context.Context, limit int) ([]*tenant.Tenant, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.MemoryStore.ListActive(ctx, limit)
}

func (s *flakyTenantStore) ResetMonthlyUsage(ctx context.Context, id string) error {
	s.mu.Lock()
	s.attempts[id]++
	remaining := s.failures[id]
	if remaining != 0 {
		if remaining > 0 {
			s.failures[id] = remaining - 1
		}
		s.mu.Unlock()
		return errStorage
	}
	s.mu.Unlock()

	return s.MemoryStore.ResetMonthlyUsage(ctx, id)
}

func (s *flakyTenantStore) attemptsFor(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts[id]
}

// seed creates active tenants in the given order with some usage.
func (s *flakyTenantStore) seed(ids ...string) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range ids {
		s.Upsert(context.Background(), &tenant.Tenant{
			ID:           id,
			MonthlyUsage: 500,
			MonthlyLimit: 1000,
			IsActive:     true,
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		})
	}
}

// recordingNotifier collects dispatched notifications.
type recordingNotifier struct {
	mu            sync.Mutex
	notifications []notify.Notification
}

func (n *recordingNotifier) Dispatch(ctx context.Context, source notify.Source) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notifications = append(n.notifications, source.Notification())
}

func (n *recordingNotifier) all() []notify.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Notification(nil), n.notifications...)
}

func (n *recordingNotifier) count(job notify.JobType) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, x := range n.notifications {
		if x.JobType == job {
			c++
		}
	}
	return c
}

// noSleep records requested delays without waiting.
type noSleep struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *noSleep) sleep(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
}

func newTestExecutor(store tenant.Store, notifier Notifier, maxAttempts int) (*ResetExecutor, *noSleep) {
	e := NewResetExecutor(store, notifier, ResetConfig{MaxAttempts: maxAttempts, RetryDelay: 50 * time.Millisecond})
	ns := &noSleep{}
	e.sleep = ns.sleep
	return e, ns
}
