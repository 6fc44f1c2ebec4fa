package main

import (
	"strings"

	"bptreedb/bptree"
)

// fixedStringCodec adapts bptree.FixedBytesCodec to a string-keyed slot,
// the Go analogue of the original driver's dark::string<68> key type.
type fixedStringCodec struct {
	inner bptree.FixedBytesCodec
}

func newFixedStringCodec(width int) fixedStringCodec {
	return fixedStringCodec{inner: bptree.FixedBytesCodec{Width: width}}
}

func (c fixedStringCodec) Size() int { return c.inner.Size() }

func (c fixedStringCodec) Put(buf []byte, v string) {
	c.inner.Put(buf, []byte(v))
}

// Get trims the trailing zero padding Put added, so a stored key decodes
// back to the same string a caller would pass as a query key — without
// this, comparing a decoded "apple\x00…\x00" against a raw "apple" would
// never report equal.
func (c fixedStringCodec) Get(buf []byte) string {
	return strings.TrimRight(string(c.inner.Get(buf)), "\x00")
}

// fixedStringComparator orders two keys (already stripped of their zero
// padding by Get) byte-wise, which Go's built-in string ordering already
// does.
func fixedStringComparator() bptree.Comparator[string] {
	return func(a, b string) int {
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
