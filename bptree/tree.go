package bptree

import (
	"fmt"

	"bptreedb/pagestore"
)

// BPlusTree is a persistent B+ tree mapping composite (K,V) keys to a
// multiset of occurrences, amortization-first on both insert and erase.
// It is not safe for concurrent use: callers serialize their own access,
// the same way the original_source/BPlusTree/main.cpp driver does by
// running one instruction at a time.
type BPlusTree[K, V any] struct {
	file     *pagestore.NodeFile
	keyCmp   Comparator[K]
	valCmp   Comparator[V]
	keyCodec Codec[K]
	valCodec Codec[V]
	tuning   Tuning
}

// RecommendedCacheSize returns the 3×height+1 cache size spec.md §3
// calls for, given an estimate of the tree's
// current height (1 for a tree with just a root+leaf, and so on).
func RecommendedCacheSize(height int) int {
	return 3*height + 1
}

// Open opens (or creates) a B+ tree backed by the data+sidecar files
// rooted at name, using keyCodec/valCodec to lay out fixed-width slots
// and keyCmp/valCmp to order them. cacheSize should be sized via
// RecommendedCacheSize once the caller has an estimate of the tree's
// depth. Every page an operation fetches stays pinned through the session
// that fetched it until the operation finishes, so an operation that needs
// more pages at once than the cache holds fails with the page cache's
// "exhausted" error.
func Open[K, V any](name string, tuning Tuning, keyCodec Codec[K], valCodec Codec[V], keyCmp Comparator[K], valCmp Comparator[V], cacheSize int) (*BPlusTree[K, V], error) {
	pageSize := PageSize(tuning.BlockSize, keyCodec.Size(), valCodec.Size())
	pageBytes := pagestore.PageBytes(pageSize)

	file, fresh, err := pagestore.Open(name, pageBytes, cacheSize)
	if err != nil {
		return nil, err
	}

	t := &BPlusTree[K, V]{
		file:     file,
		keyCmp:   keyCmp,
		valCmp:   valCmp,
		keyCodec: keyCodec,
		valCodec: valCodec,
		tuning:   tuning,
	}

	if fresh {
		root := t.rootPage()
		root.IsInner = true
		root.Count = 0
		root.flush()
	}

	return t, nil
}

// Close flushes every dirty page and the sidecar, then closes the
// underlying files.
func (t *BPlusTree[K, V]) Close() error {
	return t.file.Close()
}

// Empty reports whether the tree holds no pairs at all.
func (t *BPlusTree[K, V]) Empty() bool {
	return t.rootPage().Count == 0
}

func (t *BPlusTree[K, V]) rootPage() *Page[K, V] {
	return decodePage[K, V](t.file.Root(), t.keyCodec, t.valCodec, t.tuning.BlockSize)
}

func (t *BPlusTree[K, V]) getPage(s *session, index int64) (*Page[K, V], error) {
	v, err := s.get(index)
	if err != nil {
		return nil, err
	}
	return decodePage[K, V](v, t.keyCodec, t.valCodec, t.tuning.BlockSize), nil
}

func (t *BPlusTree[K, V]) allocateLeaf(s *session) (*Page[K, V], error) {
	v, err := s.allocate()
	if err != nil {
		return nil, err
	}
	return newLeafPage[K, V](v, t.keyCodec, t.valCodec, t.tuning.BlockSize), nil
}

func (t *BPlusTree[K, V]) allocateInner(s *session) (*Page[K, V], error) {
	v, err := s.allocate()
	if err != nil {
		return nil, err
	}
	return newInnerPage[K, V](v, t.keyCodec, t.valCodec, t.tuning.BlockSize), nil
}

func (t *BPlusTree[K, V]) recyclePage(s *session, p *Page[K, V]) {
	s.recycle(p.v)
}

// assertChildCountMirror panics if a parent's routing slot disagrees with
// the child page it points to. The two must always agree outside of the
// brief window between fetching a child and flushing the parent's updated
// slot; a mismatch here means the store is corrupt, not that a caller
// did something wrong, so there is nothing to recover from.
func assertChildCountMirror[K, V any](parent *Page[K, V], x int, child *Page[K, V]) {
	if int64(child.Count) != parent.Slots[x].Child.Count {
		panic(fmt.Sprintf("bptree: child count mirror violated at slot %d: parent says %d, child %d has %d",
			x, parent.Slots[x].Child.Count, child.Index(), child.Count))
	}
}

// Insert adds the pair (key,val) to the multiset, or does nothing if it
// is already present. Grounded on
// original_source/BPlusTree/bplus.h's insert(key,val)/insert_root.
func (t *BPlusTree[K, V]) Insert(key K, val V) error {
	root := t.rootPage()
	if root.Count == 0 {
		return t.insertIntoEmpty(root, key, val)
	}

	s := newSession(t.file)
	defer s.finish()

	changed, _, err := t.insert(s, root, key, val)
	if err != nil {
		return err
	}
	if changed && root.Count > t.tuning.BlockSize {
		return t.splitRoot(s, root)
	}
	return nil
}

func (t *BPlusTree[K, V]) insertIntoEmpty(root *Page[K, V], key K, val V) error {
	s := newSession(t.file)
	defer s.finish()

	leaf, err := t.allocateLeaf(s)
	if err != nil {
		return err
	}
	leaf.Slots[0] = Tuple[K, V]{Key: key, Val: val}
	leaf.Count = 1
	leaf.flush()

	root.IsInner = true
	root.Slots[0] = Tuple[K, V]{Child: leaf.AsChildHeader(), Key: key, Val: val}
	root.Count = 1
	root.flush()
	return nil
}

// insert recurses into p to place (key,val). It returns whether p's
// parent must refresh its own bookkeeping for p, and, when it does, p
// itself (a leaf that took the pair, or an inner page that gained a slot
// from a child split); the page is nil otherwise — the recursion's return value in place of the
// original's cache_pointer side channel, per spec.md §9's design note.
func (t *BPlusTree[K, V]) insert(s *session, p *Page[K, V], key K, val V) (bool, *Page[K, V], error) {
	if !p.IsInner {
		return t.insertLeaf(p, key, val)
	}

	x := binarySearch(p.Slots, t.keyCmp, t.valCmp, key, val, 0, p.Count)
	if x < 0 {
		return false, nil, nil
	}
	if x == 0 {
		p.Slots[0].Key = key
		p.Slots[0].Val = val
	} else {
		x--
	}

	child, err := t.getPage(s, p.Slots[x].Child.Index)
	if err != nil {
		return false, nil, err
	}
	assertChildCountMirror(p, x, child)

	changed, touched, err := t.insert(s, child, key, val)
	if err != nil {
		return false, nil, err
	}
	if !changed {
		return false, nil, nil
	}

	p.Slots[x].Child.Count = int64(touched.Count)
	p.flush()

	if touched.Count <= t.tuning.BlockSize {
		return false, nil, nil
	}

	if ok, err := t.insertAmortize(s, p, x, touched); err != nil {
		return false, nil, err
	} else if ok {
		return false, nil, nil
	}

	if err := t.split(s, p, x, touched); err != nil {
		return false, nil, err
	}
	p.Count++
	p.flush()
	return true, p, nil
}

func (t *BPlusTree[K, V]) insertLeaf(p *Page[K, V], key K, val V) (bool, *Page[K, V], error) {
	x := binarySearch(p.Slots, t.keyCmp, t.valCmp, key, val, 0, p.Count)
	if x < 0 {
		return false, nil, nil
	}
	copy(p.Slots[x+1:p.Count+1], p.Slots[x:p.Count])
	p.Slots[x] = Tuple[K, V]{Key: key, Val: val}
	p.Count++
	p.flush()
	return true, p, nil
}

// insertAmortize tries to donate from the overfull child at slot x into
// whichever eligible sibling is smaller, per spec.md §4.3.
func (t *BPlusTree[K, V]) insertAmortize(s *session, parent *Page[K, V], x int, child *Page[K, V]) (bool, error) {
	rightOK := x != parent.Count-1 && parent.Slots[x+1].Child.Count < int64(t.tuning.AmortSize)
	leftOK := x != 0 && parent.Slots[x-1].Child.Count < int64(t.tuning.AmortSize)
	if rightOK && leftOK {
		if parent.Slots[x-1].Child.Count > parent.Slots[x+1].Child.Count {
			leftOK = false
		} else {
			rightOK = false
		}
	}

	switch {
	case leftOK:
		left, err := t.getPage(s, parent.Slots[x-1].Child.Index)
		if err != nil {
			return false, err
		}
		t.amortizeNextToPrev(left, child)
		parent.Slots[x-1].Child.Count = int64(left.Count)
		parent.Slots[x].Child.Count = int64(child.Count)
		parent.Slots[x].Key = child.Slots[0].Key
		parent.Slots[x].Val = child.Slots[0].Val
		parent.flush()
		return true, nil
	case rightOK:
		right, err := t.getPage(s, parent.Slots[x+1].Child.Index)
		if err != nil {
			return false, err
		}
		t.amortizePrevToNext(child, right)
		parent.Slots[x].Child.Count = int64(child.Count)
		parent.Slots[x+1].Child.Count = int64(right.Count)
		parent.Slots[x+1].Key = right.Slots[0].Key
		parent.Slots[x+1].Val = right.Slots[0].Val
		parent.flush()
		return true, nil
	default:
		return false, nil
	}
}

// amortizePrevToNext moves ⌊(prev.Count-next.Count)/2⌋ entries from the
// end of prev to the start of next. Transliterated from bplus.h's
// amortize_prev, donor=prev / recipient=next.
func (t *BPlusTree[K, V]) amortizePrevToNext(prev, next *Page[K, V]) {
	delta := (prev.Count - next.Count) >> 1
	copy(next.Slots[delta:delta+next.Count], next.Slots[0:next.Count])
	prev.Count -= delta
	next.Count += delta
	copy(next.Slots[0:delta], prev.Slots[prev.Count:prev.Count+delta])
	prev.flush()
	next.flush()
}

// amortizeNextToPrev moves ⌊(next.Count-prev.Count)/2⌋ entries from the
// start of next to the end of prev. Transliterated from bplus.h's
// amortize_next, donor=next / recipient=prev.
func (t *BPlusTree[K, V]) amortizeNextToPrev(prev, next *Page[K, V]) {
	delta := (next.Count - prev.Count) >> 1
	copy(prev.Slots[prev.Count:prev.Count+delta], next.Slots[0:delta])
	prev.Count += delta
	next.Count -= delta
	copy(next.Slots[0:next.Count], next.Slots[delta:delta+next.Count])
	prev.flush()
	next.flush()
}

// split carves the overfull child at slot x (already BLOCK_SIZE+1 entries,
// held as child) into two pages, inserting a new routing slot at x+1.
func (t *BPlusTree[K, V]) split(s *session, parent *Page[K, V], x int, child *Page[K, V]) error {
	var newPage *Page[K, V]
	var err error
	if child.IsInner {
		newPage, err = t.allocateInner(s)
	} else {
		newPage, err = t.allocateLeaf(s)
	}
	if err != nil {
		return err
	}

	if !child.IsInner {
		newPage.State = child.State
		child.State = newPage.Index()
	}

	half := child.Count >> 1
	newPage.Count = child.Count - half
	copy(newPage.Slots[0:newPage.Count], child.Slots[half:child.Count])
	child.Count = half
	child.flush()
	newPage.flush()

	parent.Slots[x].Child.Count = int64(child.Count)

	insertAt := x + 1
	copy(parent.Slots[insertAt+1:parent.Count+1], parent.Slots[insertAt:parent.Count])
	parent.Slots[insertAt] = Tuple[K, V]{
		Child: newPage.AsChildHeader(),
		Key:   newPage.Slots[0].Key,
		Val:   newPage.Slots[0].Val,
	}
	return nil
}

// splitRoot fires once root itself overflows BLOCK_SIZE routing slots: it
// spreads root's current entries across two fresh inner pages, and root
// becomes a new two-slot inner
// page over them, growing the tree by one level.
func (t *BPlusTree[K, V]) splitRoot(s *session, root *Page[K, V]) error {
	// prev/next inherit root's own routing slots, so they are inner
	// pages regardless of what kind root's children happen to be — root
	// itself is always inner, and these two absorb exactly its old
	// content.
	prev, err := t.allocateInner(s)
	if err != nil {
		return err
	}
	next, err := t.allocateInner(s)
	if err != nil {
		return err
	}

	prev.Count = root.Count >> 1
	next.Count = (root.Count + 1) >> 1
	copy(prev.Slots[0:prev.Count], root.Slots[0:prev.Count])
	copy(next.Slots[0:next.Count], root.Slots[prev.Count:prev.Count+next.Count])
	prev.flush()
	next.flush()

	root.Count = 2
	root.Slots[0] = Tuple[K, V]{Child: prev.AsChildHeader(), Key: prev.Slots[0].Key, Val: prev.Slots[0].Val}
	root.Slots[1] = Tuple[K, V]{Child: next.AsChildHeader(), Key: next.Slots[0].Key, Val: next.Slots[0].Val}
	root.flush()
	return nil
}

// Erase removes the pair (key,val) from the multiset if present.
// Grounded on original_source/BPlusTree/bplus.h's erase(key,val).
func (t *BPlusTree[K, V]) Erase(key K, val V) error {
	root := t.rootPage()
	if root.Count == 0 {
		return nil
	}

	s := newSession(t.file)
	defer s.finish()

	_, _, err := t.erase(s, root, key, val)
	return err
}

func (t *BPlusTree[K, V]) erase(s *session, p *Page[K, V], key K, val V) (bool, *Page[K, V], error) {
	if !p.IsInner {
		return t.eraseLeaf(p, key, val)
	}

	pos := binarySearch(p.Slots, t.keyCmp, t.valCmp, key, val, 0, p.Count)
	var x int
	var flag bool
	switch {
	case pos == 0:
		return false, nil, nil
	case pos > 0:
		x = pos - 1
	default:
		x = ^pos
		flag = true
	}

	child, err := t.getPage(s, p.Slots[x].Child.Index)
	if err != nil {
		return false, nil, err
	}
	assertChildCountMirror(p, x, child)

	changed, _, err := t.erase(s, child, key, val)
	if err != nil {
		return false, nil, err
	}
	if !changed {
		return false, nil, nil
	}

	// child, not whatever the recursive call returned, is the page this
	// frame's own routing slot mirrors — the min-propagation path below
	// returns a descendant further down the spine, and by the time this
	// call returns child has already absorbed (and flushed) that update.
	if flag {
		p.Slots[x].Key = child.Slots[0].Key
		p.Slots[x].Val = child.Slots[0].Val
	}
	p.Slots[x].Child.Count = int64(child.Count)
	p.flush()

	if child.Count > t.tuning.MergeSize {
		return flag && x == 0, child, nil
	}

	ok, err := t.eraseAmortize(s, p, x, child)
	if err != nil {
		return false, nil, err
	}
	if ok {
		return flag && x == 0, child, nil
	}

	if err := t.eraseMerge(s, p, x, child); err != nil {
		return false, nil, err
	}
	p.Count--
	p.flush()
	return true, p, nil
}

func (t *BPlusTree[K, V]) eraseLeaf(p *Page[K, V], key K, val V) (bool, *Page[K, V], error) {
	pos := binarySearch(p.Slots, t.keyCmp, t.valCmp, key, val, 0, p.Count)
	if pos >= 0 {
		return false, nil, nil
	}
	x := ^pos
	copy(p.Slots[x:p.Count-1], p.Slots[x+1:p.Count])
	p.Count--
	p.flush()
	return true, p, nil
}

// eraseAmortize tries to pull entries into the underfull child at slot x
// from whichever eligible sibling is larger.
func (t *BPlusTree[K, V]) eraseAmortize(s *session, parent *Page[K, V], x int, child *Page[K, V]) (bool, error) {
	leftOK := x != 0 && parent.Slots[x-1].Child.Count >= int64(t.tuning.AmortSize)
	rightOK := x != parent.Count-1 && parent.Slots[x+1].Child.Count >= int64(t.tuning.AmortSize)
	if leftOK && rightOK {
		if parent.Slots[x-1].Child.Count > parent.Slots[x+1].Child.Count {
			rightOK = false
		} else {
			leftOK = false
		}
	}

	switch {
	case leftOK:
		left, err := t.getPage(s, parent.Slots[x-1].Child.Index)
		if err != nil {
			return false, err
		}
		t.amortizePrevToNext(left, child)
		parent.Slots[x-1].Child.Count = int64(left.Count)
		parent.Slots[x].Child.Count = int64(child.Count)
		parent.Slots[x].Key = child.Slots[0].Key
		parent.Slots[x].Val = child.Slots[0].Val
		parent.flush()
		return true, nil
	case rightOK:
		right, err := t.getPage(s, parent.Slots[x+1].Child.Index)
		if err != nil {
			return false, err
		}
		t.amortizeNextToPrev(child, right)
		parent.Slots[x].Child.Count = int64(child.Count)
		parent.Slots[x+1].Child.Count = int64(right.Count)
		parent.Slots[x+1].Key = right.Slots[0].Key
		parent.Slots[x+1].Val = right.Slots[0].Val
		parent.flush()
		return true, nil
	default:
		return false, nil
	}
}

// eraseMerge folds the underfull child at slot x into a neighbor, or
// handles the two root-only degenerate cases: both children of a
// 2-slot inner root collapsing into root, and root's single remaining
// child shrinking away entirely.
func (t *BPlusTree[K, V]) eraseMerge(s *session, parent *Page[K, V], x int, child *Page[K, V]) error {
	isRoot := parent.Index() == pagestore.RootIndex

	if isRoot && parent.Count == 2 && child.IsInner {
		return t.mergeRoot(s, parent, x, child)
	}

	if isRoot && parent.Count == 1 {
		if child.Count != 0 {
			parent.Count++ // cancels erase()'s unconditional decrement below
		} else {
			t.recyclePage(s, child)
			parent.IsInner = true // root-underflow re-tagging, see DESIGN.md
		}
		return nil
	}

	mergeRight := x != parent.Count-1
	if mergeRight && x != 0 {
		mergeRight = parent.Slots[x-1].Child.Count > parent.Slots[x+1].Child.Count
	}

	if mergeRight {
		right, err := t.getPage(s, parent.Slots[x+1].Child.Index)
		if err != nil {
			return err
		}
		t.mergeNode(s, child, right)
		copy(parent.Slots[x+1:parent.Count-1], parent.Slots[x+2:parent.Count])
		parent.Slots[x].Child.Count = int64(child.Count)
	} else {
		left, err := t.getPage(s, parent.Slots[x-1].Child.Index)
		if err != nil {
			return err
		}
		t.mergeNode(s, left, child)
		copy(parent.Slots[x:parent.Count-1], parent.Slots[x+1:parent.Count])
		parent.Slots[x-1].Child.Count = int64(left.Count)
	}
	return nil
}

// mergeRoot absorbs root's two remaining children directly into root,
// shrinking the tree by one level.
func (t *BPlusTree[K, V]) mergeRoot(s *session, root *Page[K, V], x int, child *Page[K, V]) error {
	var prev, next *Page[K, V]
	var err error
	if x == 1 {
		prev, err = t.getPage(s, root.Slots[0].Child.Index)
		if err != nil {
			return err
		}
		next = child
	} else {
		prev = child
		next, err = t.getPage(s, root.Slots[1].Child.Index)
		if err != nil {
			return err
		}
	}

	root.Count = prev.Count + next.Count + 1 // +1 cancels erase()'s unconditional decrement below
	copy(root.Slots[0:prev.Count], prev.Slots[0:prev.Count])
	copy(root.Slots[prev.Count:prev.Count+next.Count], next.Slots[0:next.Count])

	t.recyclePage(s, prev)
	t.recyclePage(s, next)
	return nil
}

// mergeNode concatenates next's slots onto the end of prev and recycles
// next. Transliterated from bplus.h's merge_node.
func (t *BPlusTree[K, V]) mergeNode(s *session, prev, next *Page[K, V]) {
	prev.State = next.State
	copy(prev.Slots[prev.Count:prev.Count+next.Count], next.Slots[0:next.Count])
	prev.Count += next.Count
	prev.flush()
	t.recyclePage(s, next)
}

// Find returns every value stored under key, in insertion-comparator
// order.
func (t *BPlusTree[K, V]) Find(key K) ([]V, error) {
	return t.FindIf(key, func(V) bool { return true })
}

// FindIf returns every value stored under key for which pred holds.
func (t *BPlusTree[K, V]) FindIf(key K, pred func(V) bool) ([]V, error) {
	s := newSession(t.file)
	defer s.finish()

	p := t.rootPage()
	if p.Count == 0 {
		return nil, nil
	}

	for p.IsInner {
		x := lowerBound(p.Slots, t.keyCmp, key, 1, p.Count) - 1
		child, err := t.getPage(s, p.Slots[x].Child.Index)
		if err != nil {
			return nil, err
		}
		p = child
	}

	var out []V
	x := lowerBound(p.Slots, t.keyCmp, key, 0, p.Count)
	for {
		for ; x < p.Count; x++ {
			if t.keyCmp(key, p.Slots[x].Key) != 0 {
				return out, nil
			}
			if pred(p.Slots[x].Val) {
				out = append(out, p.Slots[x].Val)
			}
		}
		if p.State == nilIndex {
			return out, nil
		}
		next, err := t.getPage(s, p.State)
		if err != nil {
			return nil, err
		}
		p = next
		x = 0
	}
}
