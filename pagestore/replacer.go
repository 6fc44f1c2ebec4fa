package pagestore

import (
	lru "github.com/hashicorp/golang-lru"
)

// Replacer tracks which resident pages are currently eligible for
// eviction. A page is pinned for the duration of whatever public
// operation is using it and must not be victimized until unpinned.
type Replacer interface {
	// Victim removes and returns one evictable page index, if any.
	Victim() (int64, bool)

	// Pin marks index as in-use; it will not be returned by Victim again
	// until a matching Unpin.
	Pin(index int64)

	// Unpin marks index as eligible for eviction.
	Unpin(index int64)

	// Size returns the number of currently evictable entries.
	Size() int
}

// LRUReplacer is the teacher's eviction policy: evictable pages are kept
// in an LRU order, pinning removes an entry outright, unpinning
// (re)inserts it as most-recently-used.
type LRUReplacer struct {
	internal *lru.Cache
}

func NewLRUReplacer(capacity int) *LRUReplacer {
	c, err := lru.New(capacity)
	if err != nil {
		panic(err)
	}
	return &LRUReplacer{internal: c}
}

func (r *LRUReplacer) Pin(index int64) {
	r.internal.Remove(index)
}

func (r *LRUReplacer) Victim() (int64, bool) {
	key, _, ok := r.internal.RemoveOldest()
	if !ok {
		return 0, false
	}
	return key.(int64), true
}

func (r *LRUReplacer) Unpin(index int64) {
	r.internal.ContainsOrAdd(index, struct{}{})
}

func (r *LRUReplacer) Size() int {
	return r.internal.Len()
}
