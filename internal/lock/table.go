// Package lock provides a process-local table of keyed mutexes.
package lock

import (
	"context"
	"strings"
	"sync"
)

// Locker hands out exclusive guards per key. TryAcquire never blocks: the
// second caller for a held key gets ok=false. Acquire waits for the key or
// for ctx. release must be called exactly once.
type Locker interface {
	TryAcquire(key string) (release func(), ok bool)
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// Table is the default Locker. Held keys are lost on restart.
type Table struct {
	mu   sync.Mutex
	held map[string]chan struct{}
}

// NewTable returns an empty lock table.
func NewTable() *Table {
	return &Table{held: make(map[string]chan struct{})}
}

// TryAcquire marks key as held if nobody holds it.
func (t *Table) TryAcquire(key string) (func(), bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, busy := t.held[key]; busy {
		return nil, false
	}
	return t.take(key), true
}

// Acquire blocks until key is free or ctx is done.
func (t *Table) Acquire(ctx context.Context, key string) (func(), error) {
	for {
		t.mu.Lock()
		freed, busy := t.held[key]
		if !busy {
			release := t.take(key)
			t.mu.Unlock()
			return release, nil
		}
		t.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-freed:
		}
	}
}

// take must be called with t.mu held.
func (t *Table) take(key string) func() {
	freed := make(chan struct{})
	t.held[key] = freed

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			if t.held[key] == freed {
				delete(t.held, key)
			}
			t.mu.Unlock()
			close(freed)
		})
	}
}

// Held reports whether key is currently held.
func (t *Table) Held(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, busy := t.held[key]
	return busy
}

// Key joins the parts of a lock key, e.g. Key(guildID, userID).
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}
