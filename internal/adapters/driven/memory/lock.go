package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jithsungh/wisebot/internal/core/domain"
	"github.com/jithsungh/wisebot/internal/core/ports/driven"
)

// Ensure Lock implements driven.DistributedLock
var _ driven.DistributedLock = (*Lock)(nil)

// Lock is a process-local DistributedLock with TTL expiry.
type Lock struct {
	mu    sync.Mutex
	locks map[string]time.Time
}

// NewLock creates a lock table.
func NewLock() *Lock {
	return &Lock{locks: make(map[string]time.Time)}
}

func (l *Lock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if expiry, ok := l.locks[name]; ok && time.Now().Before(expiry) {
		return false, nil
	}
	l.locks[name] = time.Now().Add(ttl)
	return true, nil
}

func (l *Lock) Release(ctx context.Context, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.locks, name)
	return nil
}

func (l *Lock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	expiry, ok := l.locks[name]
	if !ok || time.Now().After(expiry) {
		return fmt.Errorf("lock %s: %w", name, domain.ErrLockNotHeld)
	}
	l.locks[name] = time.Now().Add(ttl)
	return nil
}

func (l *Lock) Ping(ctx context.Context) error {
	return nil
}
