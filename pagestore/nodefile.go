package pagestore

import "fmt"

// RootIndex is the reserved page index for the tree's root. It is never
// present in the data file or the page cache: the root lives in a
// dedicated in-memory slot (spec.md §3) and is only ever persisted inside
// the sidecar file.
const RootIndex int64 = 0

// rootVisitor implements Visitor over NodeFile's dedicated root slot.
type rootVisitor struct {
	file *NodeFile
}

func (v *rootVisitor) PageID() int64  { return RootIndex }
func (v *rootVisitor) Bytes() []byte  { return v.file.root }
func (v *rootVisitor) Modify()        { v.file.rootDirty = true }
func (v *rootVisitor) Release()       {}

// NodeFile composes the free list, the page cache, and PageIO into the
// single abstraction the B+ tree algorithm talks to: allocate a page,
// recycle a page, fetch a page by index, or reach the always-resident
// root.
type NodeFile struct {
	io        *PageIO
	free      *FreeList
	cache     *PageCache
	pageBytes int
	root      []byte
	rootDirty bool
	freeDirty bool
}

// Open opens (or creates) the node file at name. pageBytes is the
// on-disk footprint of one encoded node (see PageBytes); cacheSize should
// be at least 3×tree_height+1 so the pages a single public operation keeps
// pinned fit in the cache (a pinned page is never evicted; when every
// frame is pinned, Get and Allocate return an error). It is not checked
// here. The second return value reports whether this
// is a brand-new, empty store.
func Open(name string, pageBytes, cacheSize int) (*NodeFile, bool, error) {
	io, err := NewPageIO(name, pageBytes)
	if err != nil {
		return nil, false, err
	}
	cache := NewPageCache(io, cacheSize, pageBytes)

	sidecar, exists, err := io.LoadSidecar()
	if err != nil {
		io.Close()
		return nil, false, err
	}
	if !exists {
		return &NodeFile{
			io:        io,
			free:      NewFreeList(1, nil),
			cache:     cache,
			pageBytes: pageBytes,
			root:      make([]byte, pageBytes),
			rootDirty: false,
		}, true, nil
	}
	return &NodeFile{
		io:        io,
		free:      NewFreeList(sidecar.HighWater, sidecar.FreeList),
		cache:     cache,
		pageBytes: pageBytes,
		root:      sidecar.Root,
		rootDirty: false,
	}, false, nil
}

// Root returns the visitor for the always-resident root page. It never
// needs to be released.
func (f *NodeFile) Root() Visitor {
	return &rootVisitor{file: f}
}

// Get fetches the page at index, faulting it into the cache on a miss.
// index must not be RootIndex; use Root for that.
func (f *NodeFile) Get(index int64) (Visitor, error) {
	if index == RootIndex {
		return nil, fmt.Errorf("pagestore: index 0 is the root, use Root()")
	}
	return f.cache.Get(index)
}

// Allocate obtains a fresh page index (reused from the free list, or by
// extending the high-water mark) and returns an already-dirty visitor for
// a zeroed page at that index.
func (f *NodeFile) Allocate() (Visitor, error) {
	index := f.free.Allocate()
	f.freeDirty = true
	return f.cache.AllocateFrame(index)
}

// Recycle returns v's page index to the free list and drops it from the
// cache without writing it back.
func (f *NodeFile) Recycle(v Visitor) {
	index := v.PageID()
	f.cache.Recycle(index)
	f.free.Push(index)
	f.freeDirty = true
}

// Close flushes every dirty cached page and, if the root changed or the
// free list changed, rewrites the sidecar.
func (f *NodeFile) Close() error {
	if err := f.cache.Flush(); err != nil {
		return err
	}
	if f.rootDirty || f.freeDirty {
		highWater, free := f.free.Snapshot()
		if err := f.io.SaveSidecar(&Sidecar{HighWater: highWater, FreeList: free, Root: f.root}); err != nil {
			return err
		}
	}
	return f.io.Close()
}
