package duckdb

import (
	"context"
	"sync"
	"time"
)

// tableLocks serializes schema changes per key within the process. DuckDB
// allows a single writing process per database file, so an in-process lock
// covers every writer.
type tableLocks struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

var processLocks = &tableLocks{slots: make(map[string]chan struct{})}

func (l *tableLocks) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[key] = ch
	}
	return ch
}

// acquire blocks until key is free, timeout elapses, or ctx is done.
// ok is false when the lock was not taken.
func (l *tableLocks) acquire(ctx context.Context, key string, timeout time.Duration) (release func(), ok bool) {
	ch := l.slot(key)

	select {
	case ch <- struct{}{}:
		return l.releaser(ch), true
	default:
	}
	if timeout <= 0 {
		return nil, false
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ch <- struct{}{}:
		return l.releaser(ch), true
	case <-timer.C:
		return nil, false
	case <-ctx.Done():
		return nil, false
	}
}

func (l *tableLocks) releaser(ch chan struct{}) func() {
	var once sync.Once
	return func() {
		once.Do(func() { <-ch })
	}
}
