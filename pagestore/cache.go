package pagestore

import (
	"fmt"
)

type frame struct {
	pageID int64
	bytes  []byte
	dirty  bool
	valid  bool
}

// PageCache is the bounded, write-back resident page pool of spec.md
// §4.2: capacity CACHE_SIZE, keyed by page index via a hash table (here a
// plain Go map stands in for the fixed TABLE_SIZE bucket array),
// LRU-evicting through a Replacer, writing back dirty pages
// on eviction or on Flush.
type PageCache struct {
	io        *PageIO
	pageBytes int
	frames    []frame
	index     map[int64]int // page index -> frame slot
	freeSlots []int
	replacer  Replacer
}

func NewPageCache(io *PageIO, capacity, pageBytes int) *PageCache {
	freeSlots := make([]int, capacity)
	for i := range freeSlots {
		freeSlots[i] = capacity - 1 - i
	}
	return &PageCache{
		io:        io,
		pageBytes: pageBytes,
		frames:    make([]frame, capacity),
		index:     make(map[int64]int, capacity),
		freeSlots: freeSlots,
		replacer:  NewLRUReplacer(capacity),
	}
}

// Visitor is the read/modify handle of spec.md §4.2 into one page,
// whether it's resident in the cache or is the dedicated in-memory root
// slot (nodefile.go's RootVisitor). The algorithm holds at most a parent
// and two children/siblings at once (plus the always-resident root), so
// there's never contention over a pinned slot within a single public
// operation.
type Visitor interface {
	PageID() int64
	// Bytes returns the raw page buffer. Callers decode it into a typed
	// page and, after mutating, call Modify and re-encode back into it.
	Bytes() []byte
	// Modify marks the page dirty: it will be written back on eviction,
	// flush, or (for the root) shutdown.
	Modify()
	// Release marks the page evictable again. Every Visitor obtained
	// from Get or AllocateFrame must eventually be released exactly
	// once (recycled pages are released implicitly by Recycle).
	Release()
}

// cachedVisitor is the Visitor implementation for ordinary, cache-resident
// pages.
type cachedVisitor struct {
	cache  *PageCache
	slot   int
	pageID int64
}

func (v *cachedVisitor) PageID() int64 {
	return v.pageID
}

func (v *cachedVisitor) Bytes() []byte {
	return v.cache.frames[v.slot].bytes
}

func (v *cachedVisitor) Modify() {
	v.cache.frames[v.slot].dirty = true
}

func (v *cachedVisitor) Release() {
	v.cache.replacer.Unpin(v.pageID)
}

func (c *PageCache) acquireSlot(pageID int64) (int, error) {
	if len(c.freeSlots) > 0 {
		slot := c.freeSlots[len(c.freeSlots)-1]
		c.freeSlots = c.freeSlots[:len(c.freeSlots)-1]
		return slot, nil
	}
	victim, ok := c.replacer.Victim()
	if !ok {
		return 0, fmt.Errorf("pagestore: page cache exhausted, no evictable frame for page %d", pageID)
	}
	slot := c.index[victim]
	if c.frames[slot].dirty {
		if err := c.io.WritePage(victim, c.frames[slot].bytes); err != nil {
			return 0, err
		}
	}
	delete(c.index, victim)
	return slot, nil
}

// Get returns a pinned Visitor for pageID, reading it from PageIO on a
// cache miss.
func (c *PageCache) Get(pageID int64) (Visitor, error) {
	if slot, ok := c.index[pageID]; ok {
		c.replacer.Pin(pageID)
		return &cachedVisitor{cache: c, slot: slot, pageID: pageID}, nil
	}

	slot, err := c.acquireSlot(pageID)
	if err != nil {
		return nil, err
	}
	if len(c.frames[slot].bytes) != c.pageBytes {
		c.frames[slot].bytes = make([]byte, c.pageBytes)
	}
	if err := c.io.ReadPage(pageID, c.frames[slot].bytes); err != nil {
		c.freeSlots = append(c.freeSlots, slot)
		return nil, err
	}
	c.frames[slot] = frame{pageID: pageID, bytes: c.frames[slot].bytes, dirty: false, valid: true}
	c.index[pageID] = slot
	c.replacer.Pin(pageID)
	return &cachedVisitor{cache: c, slot: slot, pageID: pageID}, nil
}

// AllocateFrame installs a zeroed, dirty page at pageID without touching
// PageIO, and returns a pinned Visitor for it.
func (c *PageCache) AllocateFrame(pageID int64) (Visitor, error) {
	slot, err := c.acquireSlot(pageID)
	if err != nil {
		return nil, err
	}
	if len(c.frames[slot].bytes) != c.pageBytes {
		c.frames[slot].bytes = make([]byte, c.pageBytes)
	} else {
		for i := range c.frames[slot].bytes {
			c.frames[slot].bytes[i] = 0
		}
	}
	c.frames[slot] = frame{pageID: pageID, bytes: c.frames[slot].bytes, dirty: true, valid: true}
	c.index[pageID] = slot
	c.replacer.Pin(pageID)
	return &cachedVisitor{cache: c, slot: slot, pageID: pageID}, nil
}

// Recycle drops pageID from the cache without writing it back — the
// caller is about to return the index to the free list, so its contents
// no longer matter.
func (c *PageCache) Recycle(pageID int64) {
	slot, ok := c.index[pageID]
	if !ok {
		return
	}
	delete(c.index, pageID)
	c.frames[slot].valid = false
	c.frames[slot].dirty = false
	c.replacer.Pin(pageID) // ensure it isn't sitting in the LRU set anymore
	c.freeSlots = append(c.freeSlots, slot)
}

// Flush writes back every dirty resident page.
func (c *PageCache) Flush() error {
	for pageID, slot := range c.index {
		if c.frames[slot].dirty {
			if err := c.io.WritePage(pageID, c.frames[slot].bytes); err != nil {
				return err
			}
			c.frames[slot].dirty = false
		}
	}
	return nil
}
