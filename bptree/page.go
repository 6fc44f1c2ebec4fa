package bptree

import (
	"encoding/binary"
	"math"

	"bptreedb/pagestore"
)

// nilIndex is the sentinel terminating the leaf sibling chain — the
// MAXN_SIZE of the original source.
const nilIndex int64 = math.MaxInt64

const headerSize = 24 // isInner(1) + pad(7) + state(8) + count(8)

// ChildHeader is an inner page's routing entry: the child page's index
// and its count, kept in sync with the child per spec.md invariant 2.
type ChildHeader struct {
	Index int64
	Count int64
}

// Tuple is one occupied slot. For inner pages, Key/Val hold the
// subtree's minimum pair and Child routes to that subtree's root page.
// For leaf pages, Key/Val hold real data and Child is unused.
type Tuple[K, V any] struct {
	Child ChildHeader
	Key   K
	Val   V
}

func slotSize(keySize, valSize int) int {
	return 16 + keySize + valSize
}

// PageSize returns the unaligned encoded size of one node with capacity
// for blockSize+1 transient slots — the REAL_SIZE of the original source,
// before rounding up to a page-aligned footprint via pagestore.PageBytes.
func PageSize(blockSize, keySize, valSize int) int {
	return headerSize + (blockSize+1)*slotSize(keySize, valSize)
}

// Page is the decoded, in-memory view of one resident page: its header
// (is-inner tag, sibling/flag state, occupied count) and its
// BLOCK_SIZE+1-capacity slot array. Mutating a Page does not touch disk
// by itself — call flush to re-encode into the owning Visitor's bytes
// and mark it dirty.
type Page[K, V any] struct {
	v         pagestore.Visitor
	keyCodec  Codec[K]
	valCodec  Codec[V]
	blockSize int

	IsInner bool
	// State holds, for a leaf, the next-sibling page index (nilIndex at
	// the end of the chain); unused for inner pages.
	State int64
	Count int
	Slots []Tuple[K, V]
}

// decodePage decodes v's raw bytes into a typed Page.
func decodePage[K, V any](v pagestore.Visitor, keyCodec Codec[K], valCodec Codec[V], blockSize int) *Page[K, V] {
	buf := v.Bytes()
	p := &Page[K, V]{
		v:         v,
		keyCodec:  keyCodec,
		valCodec:  valCodec,
		blockSize: blockSize,
		IsInner:   buf[0] != 0,
		State:     int64(binary.LittleEndian.Uint64(buf[8:16])),
		Count:     int(int64(binary.LittleEndian.Uint64(buf[16:24]))),
	}
	p.Slots = make([]Tuple[K, V], blockSize+1)
	sSize := slotSize(keyCodec.Size(), valCodec.Size())
	for i := range p.Slots {
		off := headerSize + i*sSize
		p.Slots[i].Child.Index = int64(binary.LittleEndian.Uint64(buf[off : off+8]))
		p.Slots[i].Child.Count = int64(binary.LittleEndian.Uint64(buf[off+8 : off+16]))
		p.Slots[i].Key = keyCodec.Get(buf[off+16 : off+16+keyCodec.Size()])
		p.Slots[i].Val = valCodec.Get(buf[off+16+keyCodec.Size() : off+16+keyCodec.Size()+valCodec.Size()])
	}
	return p
}

// newLeafPage initializes v (typically just-allocated) as an empty leaf.
func newLeafPage[K, V any](v pagestore.Visitor, keyCodec Codec[K], valCodec Codec[V], blockSize int) *Page[K, V] {
	p := decodePage[K, V](v, keyCodec, valCodec, blockSize)
	p.IsInner = false
	p.State = nilIndex
	p.Count = 0
	p.flush()
	return p
}

// newInnerPage initializes v as an empty inner page.
func newInnerPage[K, V any](v pagestore.Visitor, keyCodec Codec[K], valCodec Codec[V], blockSize int) *Page[K, V] {
	p := decodePage[K, V](v, keyCodec, valCodec, blockSize)
	p.IsInner = true
	p.State = 0
	p.Count = 0
	p.flush()
	return p
}

// Index returns the page's own index, RootIndex for the root.
func (p *Page[K, V]) Index() int64 {
	return p.v.PageID()
}

// AsChildHeader describes this page as seen from its parent's slot.
func (p *Page[K, V]) AsChildHeader() ChildHeader {
	return ChildHeader{Index: p.Index(), Count: int64(p.Count)}
}

// flush re-encodes the decoded fields back into the owning visitor's
// byte buffer and marks it dirty.
func (p *Page[K, V]) flush() {
	buf := p.v.Bytes()
	if p.IsInner {
		buf[0] = 1
	} else {
		buf[0] = 0
	}
	for i := 1; i < 8; i++ {
		buf[i] = 0
	}
	binary.LittleEndian.PutUint64(buf[8:16], uint64(p.State))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(p.Count))

	sSize := slotSize(p.keyCodec.Size(), p.valCodec.Size())
	for i, slot := range p.Slots {
		off := headerSize + i*sSize
		binary.LittleEndian.PutUint64(buf[off:off+8], uint64(slot.Child.Index))
		binary.LittleEndian.PutUint64(buf[off+8:off+16], uint64(slot.Child.Count))
		p.keyCodec.Put(buf[off+16:off+16+p.keyCodec.Size()], slot.Key)
		p.valCodec.Put(buf[off+16+p.keyCodec.Size():off+16+p.keyCodec.Size()+p.valCodec.Size()], slot.Val)
	}
	p.v.Modify()
}
