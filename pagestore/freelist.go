package pagestore

// FreeList tracks recyclable page indices plus the high-water mark used
// to mint brand-new page indices once nothing is recyclable. Page index 0
// is reserved (the root lives in the sidecar, not the data file) so the
// high-water mark always starts at 1.
type FreeList struct {
	highWater int64
	free      []int64
}

// NewFreeList restores a FreeList from a previously-persisted snapshot.
func NewFreeList(highWater int64, free []int64) *FreeList {
	if highWater < 1 {
		highWater = 1
	}
	cp := make([]int64, len(free))
	copy(cp, free)
	return &FreeList{highWater: highWater, free: cp}
}

// Pop removes and returns one recyclable index, if any.
func (f *FreeList) Pop() (int64, bool) {
	if len(f.free) == 0 {
		return 0, false
	}
	idx := f.free[len(f.free)-1]
	f.free = f.free[:len(f.free)-1]
	return idx, true
}

// Push returns index to the recyclable set.
func (f *FreeList) Push(index int64) {
	f.free = append(f.free, index)
}

// Allocate returns a fresh page index: reused from the free list if
// possible, otherwise minted by extending the high-water mark.
func (f *FreeList) Allocate() int64 {
	if idx, ok := f.Pop(); ok {
		return idx
	}
	idx := f.highWater
	f.highWater++
	return idx
}

// Snapshot returns the state to persist in the sidecar.
func (f *FreeList) Snapshot() (highWater int64, free []int64) {
	cp := make([]int64, len(f.free))
	copy(cp, f.free)
	return f.highWater, cp
}
