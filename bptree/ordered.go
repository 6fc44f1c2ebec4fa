package bptree

import "golang.org/x/exp/constraints"

// Ordered builds a Comparator for any naturally ordered type (the
// integers, floats, and strings of constraints.Ordered), so callers with
// plain keys don't have to hand-write a three-way comparator.
func Ordered[T constraints.Ordered]() Comparator[T] {
	return func(a, b T) int {
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		default:
			return 0
		}
	}
}
