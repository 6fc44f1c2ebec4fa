package bptree

// Pure array searches of spec.md §4.3, operating over slots[l:r] of a
// single page. Transliterated from the half-open [l,r) loops of
// original_source/BPlusTree/bplus.h. Only binarySearch and lowerBound are
// provided; there is no upper-bound search.

// binarySearch returns the position where (key,val) would be inserted to
// keep order, or ~m (bitwise complement of m) if (key,val) already
// exists at position m.
func binarySearch[K, V any](slots []Tuple[K, V], keyCmp Comparator[K], valCmp Comparator[V], key K, val V, l, r int) int {
	for l != r {
		mid := (l + r) >> 1
		cmp := keyCmp(key, slots[mid].Key)
		if cmp == 0 {
			cmp = valCmp(val, slots[mid].Val)
		}
		switch {
		case cmp > 0:
			l = mid + 1
		case cmp < 0:
			r = mid
		default:
			return ^mid
		}
	}
	return l
}

// lowerBound returns the first index in [l,r) whose key is >= key.
func lowerBound[K, V any](slots []Tuple[K, V], keyCmp Comparator[K], key K, l, r int) int {
	for l != r {
		mid := (l + r) >> 1
		if keyCmp(key, slots[mid].Key) > 0 {
			l = mid + 1
		} else {
			r = mid
		}
	}
	return l
}
