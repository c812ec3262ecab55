package service

import "sync"

// keyedMutex serializes operations per string key. The invoice service
// keys it by invoice ID so totals recomputes never interleave with line
// item edits; the routing engine keys it by message type so rotation
// cursor reads and advances are atomic. Operations on different keys
// proceed fully in parallel.
type keyedMutex struct {
	mu   sync.Mutex
	held map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{held: make(map[string]*keyLock)}
}

// Lock acquires the lock for key and returns its unlock function.
// Entries are dropped once the last holder releases, so the map stays
// bounded by the number of in-flight operations.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.held[key]
	if !ok {
		l = &keyLock{}
		k.held[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.held, key)
		}
		k.mu.Unlock()
	}
}
