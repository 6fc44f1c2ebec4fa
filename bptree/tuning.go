package bptree

import "fmt"

// Tuning holds the three block-fill thresholds of spec.md §3.
// NewTuning always derives AMORT_SIZE and MERGE_SIZE together from
// BlockSize (spec.md §9: "treat them as tuning parameters tested together, not
// independently"). The fields are exported, so a Tuning built by hand can
// set them independently; Open does not check them.
type Tuning struct {
	BlockSize int // BLOCK_SIZE: max occupied slots per non-root page
	AmortSize int // AMORT_SIZE: donor/recipient eligibility threshold
	MergeSize int // MERGE_SIZE: minimum fill before erase-time rebalancing
}

// NewTuning derives AMORT_SIZE and MERGE_SIZE from blockSize using the
// recommended ratios of spec.md §3.
func NewTuning(blockSize int) (Tuning, error) {
	if blockSize < 10 {
		return Tuning{}, fmt.Errorf("bptree: block size %d is too small, want >= 10", blockSize)
	}
	return Tuning{
		BlockSize: blockSize,
		AmortSize: blockSize * 2 / 3,
		MergeSize: blockSize / 3,
	}, nil
}
