package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bptreedb/bptree"
)

func openTestStringTree(t *testing.T, blockSize, keyWidth, cacheSize int) *bptree.BPlusTree[string, int64] {
	t.Helper()
	tuning, err := bptree.NewTuning(blockSize)
	require.NoError(t, err)
	name := filepath.Join(t.TempDir(), "store")
	tr, err := bptree.Open[string, int64](
		name, tuning,
		newFixedStringCodec(keyWidth), bptree.Int64Codec(),
		fixedStringComparator(), bptree.Ordered[int64](),
		cacheSize,
	)
	require.NoError(t, err)
	t.Cleanup(func() { tr.Close() })
	return tr
}

// Test_FixedStringCodec_QueryKeyMatchesStoredKey guards the driver's own
// codec against the zero-padding mismatch between a decoded, width-padded
// stored key and a raw query key typed by a caller.
func Test_FixedStringCodec_QueryKeyMatchesStoredKey(t *testing.T) {
	c := newFixedStringCodec(68)
	buf := make([]byte, c.Size())
	c.Put(buf, "apple")
	assert.Equal(t, "apple", c.Get(buf))

	cmp := fixedStringComparator()
	assert.Equal(t, 0, cmp("apple", c.Get(buf)))
}

// Test_StringTree_InsertFindDelete exercises the driver's exact key/value
// codec and comparator pair over insert, duplicate insert, multi-value
// find, and delete — the line-oriented protocol's three instructions.
func Test_StringTree_InsertFindDelete(t *testing.T) {
	tr := openTestStringTree(t, 10, 68, bptree.RecommendedCacheSize(4))

	require.NoError(t, tr.Insert("apple", 1))
	require.NoError(t, tr.Insert("banana", 2))
	require.NoError(t, tr.Insert("apple", 3))
	require.NoError(t, tr.Insert("apple", 1)) // duplicate, must be a no-op

	got, err := tr.Find("apple")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, got)

	got, err = tr.Find("cherry")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, tr.Erase("apple", 1))
	got, err = tr.Find("apple")
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, got)

	require.NoError(t, tr.Erase("banana", 2))
	got, err = tr.Find("banana")
	require.NoError(t, err)
	assert.Nil(t, got)
}

// Test_StringTree_HeightThreeEraseToEmpty forces a tree at least three
// levels deep (small block size, enough keys) and erases every pair back
// out through the min-propagation path on the leftmost spine — the
// scenario that tripped the parent/child count-mirror mismatch.
func Test_StringTree_HeightThreeEraseToEmpty(t *testing.T) {
	tr := openTestStringTree(t, 10, 16, bptree.RecommendedCacheSize(8))

	const n = 500
	keys := make([]string, n)
	for i := 0; i < n; i++ {
		keys[i] = keyOfRank(i)
		require.NoError(t, tr.Insert(keys[i], int64(i)))
	}
	for i := 0; i < n; i++ {
		got, err := tr.Find(keys[i])
		require.NoError(t, err)
		require.Equal(t, []int64{int64(i)}, got, "key %q", keys[i])
	}

	for i := 0; i < n; i++ {
		require.NoError(t, tr.Erase(keys[i], int64(i)))
	}
	assert.True(t, tr.Empty())
	for i := 0; i < n; i++ {
		got, err := tr.Find(keys[i])
		require.NoError(t, err)
		assert.Nil(t, got)
	}
}

// keyOfRank produces a fixed-width, lexicographically increasing key for
// rank i, so the tree fills in sorted order (always into its rightmost
// leaf) and erasing in the same order drains its leftmost spine.
func keyOfRank(i int) string {
	const digits = "0123456789"
	buf := make([]byte, 6)
	for pos := len(buf) - 1; pos >= 0; pos-- {
		buf[pos] = digits[i%10]
		i /= 10
	}
	return string(buf)
}
