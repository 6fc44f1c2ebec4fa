package bptree

// Iterator is the forward cursor of spec.md §4.3: a (page, index) pair
// that walks the leaf sibling chain, landing on index -1 once it runs
// off the end. Grounded on original_source/BPlusTree/bplus.h's
// struct iterator.
type Iterator[K, V any] struct {
	tree  *BPlusTree[K, V]
	s     *session
	page  *Page[K, V]
	index int
}

// IteratorAt positions a new iterator at the first pair whose key is
// >= key, or past the end if none qualifies. The caller must Close it.
func (t *BPlusTree[K, V]) IteratorAt(key K) (*Iterator[K, V], error) {
	s := newSession(t.file)

	p := t.rootPage()
	if p.Count == 0 {
		return &Iterator[K, V]{tree: t, s: s, page: p, index: -1}, nil
	}

	for p.IsInner {
		x := lowerBound(p.Slots, t.keyCmp, key, 1, p.Count) - 1
		child, err := t.getPage(s, p.Slots[x].Child.Index)
		if err != nil {
			s.finish()
			return nil, err
		}
		s.release(p.v)
		p = child
	}

	it := &Iterator[K, V]{
		tree:  t,
		s:     s,
		page:  p,
		index: lowerBound(p.Slots, t.keyCmp, key, 0, p.Count),
	}
	if err := it.normalize(); err != nil {
		s.finish()
		return nil, err
	}
	return it, nil
}

// Valid reports whether the cursor is positioned on a pair.
func (it *Iterator[K, V]) Valid() bool {
	return it.index != -1
}

// Pair returns the pair the cursor is positioned on. Valid must be true.
func (it *Iterator[K, V]) Pair() (K, V) {
	slot := it.page.Slots[it.index]
	return slot.Key, slot.Val
}

// Next advances the cursor by one position.
func (it *Iterator[K, V]) Next() error {
	it.index++
	return it.normalize()
}

// normalize moves the cursor onto the next leaf once index has run off
// the end of the current one, chasing State (the sibling link) until it
// lands on an occupied slot or the chain ends. The leaf being left
// behind is released immediately — spec.md §5's pinning model bounds a
// single operation to at most a few pages at once, not every leaf the
// cursor has ever visited.
func (it *Iterator[K, V]) normalize() error {
	for it.index == it.page.Count {
		if it.page.State == nilIndex {
			it.index = -1
			return nil
		}
		next, err := it.tree.getPage(it.s, it.page.State)
		if err != nil {
			return err
		}
		it.s.release(it.page.v)
		it.page = next
		it.index = 0
	}
	return nil
}

// Close releases every page the iterator is still holding.
func (it *Iterator[K, V]) Close() {
	it.s.finish()
}
