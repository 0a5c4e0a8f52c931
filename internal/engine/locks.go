package engine

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// lockTable serializes message processing per conversation key. Each step
// reads then writes shared conversation state, so messages for the same
// (tenant, user, channel) must never interleave. Entries are
// reference-counted and removed once idle.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	sem  *semaphore.Weighted
	refs int
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[string]*lockEntry)}
}

// acquire blocks until the key's single permit is held or ctx is done.
func (t *lockTable) acquire(ctx context.Context, key string) error {
	t.mu.Lock()
	e, ok := t.locks[key]
	if !ok {
		e = &lockEntry{sem: semaphore.NewWeighted(1)}
		t.locks[key] = e
	}
	e.refs++
	t.mu.Unlock()

	if err := e.sem.Acquire(ctx, 1); err != nil {
		t.put(key, e)
		return err
	}
	return nil
}

// release frees the key's permit.
func (t *lockTable) release(key string) {
	t.mu.Lock()
	e, ok := t.locks[key]
	t.mu.Unlock()
	if !ok {
		return
	}
	e.sem.Release(1)
	t.put(key, e)
}

func (t *lockTable) put(key string, e *lockEntry) {
	t.mu.Lock()
	e.refs--
	if e.refs <= 0 {
		delete(t.locks, key)
	}
	t.mu.Unlock()
}
