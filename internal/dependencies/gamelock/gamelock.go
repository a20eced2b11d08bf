package gamelock

import (
	"context"
	"sync"

	"github.com/mcoot/gamehost/internal/model"
)

// Locks serialises work per game across services. Entries are dropped once
// no caller holds or waits for them.
type Locks struct {
	mu      sync.Mutex
	entries map[model.GameID]*entry
}

type entry struct {
	sem  chan struct{}
	refs int
}

// New creates an empty lock table
func New() *Locks {
	return &Locks{entries: make(map[model.GameID]*entry)}
}

// Lock blocks until the game's lock is held or ctx is done. The returned
// function releases it.
func (l *Locks) Lock(ctx context.Context, id model.GameID) (func(), error) {
	l.mu.Lock()
	e, ok := l.entries[id]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		l.entries[id] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
		return func() {
			<-e.sem
			l.release(id, e)
		}, nil
	case <-ctx.Done():
		l.release(id, e)
		return nil, ctx.Err()
	}
}

// Held reports how many games currently have a holder or waiter
func (l *Locks) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *Locks) release(id model.GameID, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, id)
	}
}
