package gamepad

import (
	"sync"
	"time"
)

// Emitter queues snapshots for a consumer without blocking the poll loop.
// A snapshot is recorded as last only once the consumer accepted it, so a
// dropped change is retried on the next poll.
type Emitter struct {
	out chan Snapshot

	mu             sync.RWMutex
	last           Snapshot
	lastSent       time.Time
	dropped        uint64
	pendingRelease bool
}

// NewEmitter returns an emitter with a queue of buf snapshots.
func NewEmitter(buf int) *Emitter {
	return &Emitter{out: make(chan Snapshot, buf)}
}

// C returns the channel snapshots are delivered on.
func (e *Emitter) C() <-chan Snapshot {
	return e.out
}

// Close closes the channel. No emit may follow.
func (e *Emitter) Close() {
	close(e.out)
}

// Last returns the last accepted snapshot.
func (e *Emitter) Last() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.last
}

// Dropped returns how many snapshots the consumer did not accept.
func (e *Emitter) Dropped() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dropped
}

// Due reports whether s should be emitted: it changed since the last accepted
// snapshot, or it is active and repeat has elapsed since the last send.
func (e *Emitter) Due(s Snapshot, repeat time.Duration) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if Changed(e.last, s) {
		return true
	}
	return repeat > 0 && s.Active() && s.Time.Sub(e.lastSent) >= repeat
}

// Emit offers s to the consumer. A pending release goes first; s is only sent
// once the release was accepted.
func (e *Emitter) Emit(s Snapshot) bool {
	if !e.Flush(s.Time) {
		e.mu.Lock()
		e.dropped++
		e.mu.Unlock()
		return false
	}
	return e.offer(s)
}

// Release queues an all-released snapshot for the device that went away. It
// is retried by Flush and Emit until the consumer accepts it.
func (e *Emitter) Release(at time.Time) {
	e.mu.Lock()
	e.pendingRelease = true
	e.mu.Unlock()
	e.Flush(at)
}

// Flush retries a pending release. It returns true when none is pending.
func (e *Emitter) Flush(at time.Time) bool {
	e.mu.RLock()
	pending := e.pendingRelease
	rel := e.last.Released(at)
	e.mu.RUnlock()
	if !pending {
		return true
	}
	if !e.offer(rel) {
		return false
	}
	e.mu.Lock()
	e.pendingRelease = false
	e.mu.Unlock()
	return true
}

func (e *Emitter) offer(s Snapshot) bool {
	select {
	case e.out <- s:
		e.mu.Lock()
		e.last = s
		e.lastSent = s.Time
		e.mu.Unlock()
		return true
	default:
		e.mu.Lock()
		e.dropped++
		e.mu.Unlock()
		return false
	}
}
