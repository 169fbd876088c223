package sqlite

import "sync"

// docLocks serialises writes per document ID so concurrent sync runs
// cannot interleave upsert/delete for the same document, while leaving
// unrelated documents concurrent.
type docLocks struct {
	mu    sync.Mutex
	locks map[string]*docLock
}

type docLock struct {
	mu   sync.Mutex
	refs int
}

func newDocLocks() *docLocks {
	return &docLocks{locks: make(map[string]*docLock)}
}

// lock acquires the lock for documentID and returns its release func.
// Lock entries are reference counted and removed once unused so the map
// does not grow with corpus size.
func (d *docLocks) lock(documentID string) func() {
	d.mu.Lock()
	l, ok := d.locks[documentID]
	if !ok {
		l = &docLock{}
		d.locks[documentID] = l
	}
	l.refs++
	d.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		d.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(d.locks, documentID)
		}
		d.mu.Unlock()
	}
}
