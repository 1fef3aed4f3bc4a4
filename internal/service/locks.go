package service

import "sync"

// keyedLocks hands out one mutex per entity id so transitions on the same
// book or loan serialize while unrelated entities proceed concurrently.
// Mutexes are created lazily and never dropped; the population is bounded by
// the catalog and loan cardinality.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[int64]*sync.Mutex)}
}

// acquire locks the entity's mutex and returns it for the caller to unlock.
func (k *keyedLocks) acquire(id int64) *sync.Mutex {
	k.mu.Lock()
	m, ok := k.locks[id]
	if !ok {
		m = &sync.Mutex{}
		k.locks[id] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m
}
