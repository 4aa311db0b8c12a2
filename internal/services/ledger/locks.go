package ledger

import (
	"sync"
)

// lockRegistry hands out one mutex per trade number so a close and a
// background refresh on the same position serialize, while operations on
// different positions proceed without contention.
//
// Locks are never removed; the registry grows with the set of trade
// numbers ever touched, which is bounded by the size of the sheet.
type lockRegistry struct {
	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

func newLockRegistry() *lockRegistry {
	return &lockRegistry{locks: make(map[int]*sync.Mutex)}
}

// lockFor returns the mutex guarding a trade number
func (r *lockRegistry) lockFor(tradeNumber int) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.locks[tradeNumber]
	if !ok {
		l = &sync.Mutex{}
		r.locks[tradeNumber] = l
	}
	return l
}
