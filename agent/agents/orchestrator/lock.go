package orchestrator

import (
	"context"
	"sync"
)

// sessionLocks hands out one exclusive slot per session id. Entries are
// dropped once nobody holds or waits on them.
type sessionLocks struct {
	mu    sync.Mutex
	slots map[string]*sessionSlot
}

type sessionSlot struct {
	ch   chan struct{}
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{slots: make(map[string]*sessionSlot)}
}

// acquire blocks until the session is free or ctx is done.
func (l *sessionLocks) acquire(ctx context.Context, sessionID string) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[sessionID]
	if !ok {
		slot = &sessionSlot{ch: make(chan struct{}, 1)}
		l.slots[sessionID] = slot
	}
	slot.refs++
	l.mu.Unlock()

	select {
	case slot.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-slot.ch
				l.release(sessionID, slot)
			})
		}, nil
	case <-ctx.Done():
		l.release(sessionID, slot)
		return nil, ctx.Err()
	}
}

func (l *sessionLocks) release(sessionID string, slot *sessionSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, sessionID)
	}
}

func (l *sessionLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}
