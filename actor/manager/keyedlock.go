package manager

import (
	"sync"

	"github.com/daprkit/actorhost/actor"
)

// keyedLock is a sharded map of synchronization primitives keyed by actor
// id, generalizing the sync.RWMutex-guarded map + explicit-removal-on-stop
// pattern used by the teacher's actor system for live-instance bookkeeping
// (spec.md §9 Design Notes: "maintain a sharded map keyed by (typeName,
// idString)... garbage-collect entries when the id is deactivated"; typeName
// is implicit here because one keyedLock belongs to exactly one
// ActorManager, which already owns exactly one type).
//
// Beyond plain mutual exclusion, each entry additionally tracks the
// reentrancy id currently holding it and its nesting depth, so that a call
// chain carrying the same reentrancy id as the current holder can re-enter
// without blocking, up to a caller-supplied maximum depth.
type keyedLock struct {
	tableMu sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu       sync.Mutex
	refCount int

	stateMu  sync.Mutex
	holderID string
	depth    int
}

func newKeyedLock() *keyedLock {
	return &keyedLock{entries: make(map[string]*lockEntry)}
}

func (k *keyedLock) entryFor(id string) *lockEntry {
	k.tableMu.Lock()
	defer k.tableMu.Unlock()

	e, ok := k.entries[id]
	if !ok {
		e = &lockEntry{}
		k.entries[id] = e
	}
	e.refCount++
	return e
}

func (k *keyedLock) release(id string, e *lockEntry) {
	k.tableMu.Lock()
	defer k.tableMu.Unlock()

	e.refCount--
	if e.refCount <= 0 {
		delete(k.entries, id)
	}
}

// remove drops id's entry unconditionally, used on deactivation.
func (k *keyedLock) remove(id string) {
	k.tableMu.Lock()
	defer k.tableMu.Unlock()
	delete(k.entries, id)
}

// acquire enters the critical section for id. When reentrancyEnabled is
// false, or reentrancyID is empty, this is a plain mutual-exclusion lock.
// When reentrancyEnabled is true and reentrancyID is non-empty, a call
// already holding the lock under the same reentrancyID re-enters without
// blocking, up to maxDepth nested frames; exceeding that depth returns
// actor.ErrReentrancyDepthExceeded.
func (k *keyedLock) acquire(id, reentrancyID string, reentrancyEnabled bool, maxDepth int) (release func(), err error) {
	e := k.entryFor(id)

	if reentrancyEnabled && reentrancyID != "" {
		e.stateMu.Lock()
		if e.holderID == reentrancyID && e.depth > 0 {
			if e.depth >= maxDepth {
				e.stateMu.Unlock()
				k.release(id, e)
				return nil, actor.ErrReentrancyDepthExceeded
			}
			e.depth++
			e.stateMu.Unlock()

			return func() {
				e.stateMu.Lock()
				e.depth--
				e.stateMu.Unlock()
				k.release(id, e)
			}, nil
		}
		e.stateMu.Unlock()

		e.mu.Lock()
		e.stateMu.Lock()
		e.holderID = reentrancyID
		e.depth = 1
		e.stateMu.Unlock()

		return func() {
			e.stateMu.Lock()
			e.depth--
			done := e.depth == 0
			if done {
				e.holderID = ""
			}
			e.stateMu.Unlock()
			if done {
				e.mu.Unlock()
			}
			k.release(id, e)
		}, nil
	}

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.release(id, e)
	}, nil
}
