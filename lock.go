package ossd

import "sync"

// keyLocks serializes mutating operations per (bucket, key). Entries are
// reference counted and evicted once no holder or waiter remains, so the
// table stays bounded by the number of in-flight mutations.
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[string]*keyLock)}
}

// acquire blocks until the lock for (bucket, key) is held and returns the
// release function. Distinct keys never contend.
func (t *keyLocks) acquire(bucket, key string) func() {
	id := bucket + "\x00" + key

	t.mu.Lock()
	l, ok := t.locks[id]
	if !ok {
		l = &keyLock{}
		t.locks[id] = l
	}
	l.refs++
	t.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		t.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(t.locks, id)
		}
		t.mu.Unlock()
	}
}
