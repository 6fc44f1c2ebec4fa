package bptree

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestTree(t *testing.T, blockSize, cacheSize int) *BPlusTree[int64, int64] {
	t.Helper()
	tuning, err := NewTuning(blockSize)
	require.NoError(t, err)
	name := filepath.Join(t.TempDir(), "store")
	tree, err := Open[int64, int64](name, tuning, Int64Codec(), Int64Codec(), Ordered[int64](), Ordered[int64](), cacheSize)
	require.NoError(t, err)
	t.Cleanup(func() { tree.Close() })
	return tree
}

func Test_BPlusTree_InsertFindRoundTrip(t *testing.T) {
	tree := openTestTree(t, 10, RecommendedCacheSize(4))

	require.NoError(t, tree.Insert(1, 100))
	require.NoError(t, tree.Insert(2, 200))

	got, err := tree.Find(1)
	require.NoError(t, err)
	assert.Equal(t, []int64{100}, got)

	got, err = tree.Find(3)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func Test_BPlusTree_EmptyTree(t *testing.T) {
	tree := openTestTree(t, 10, RecommendedCacheSize(4))
	assert.True(t, tree.Empty())

	got, err := tree.Find(1)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, tree.Erase(1, 1))
}

func Test_BPlusTree_MultisetSameKeyManyValues(t *testing.T) {
	tree := openTestTree(t, 10, RecommendedCacheSize(4))

	require.NoError(t, tree.Insert(5, 1))
	require.NoError(t, tree.Insert(5, 2))
	require.NoError(t, tree.Insert(5, 3))

	got, err := tree.Find(5)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, got)
}

func Test_BPlusTree_DuplicateInsertIsNoOp(t *testing.T) {
	tree := openTestTree(t, 10, RecommendedCacheSize(4))

	require.NoError(t, tree.Insert(5, 1))
	require.NoError(t, tree.Insert(5, 1))

	got, err := tree.Find(5)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, got)
}

func Test_BPlusTree_FindIfFilters(t *testing.T) {
	tree := openTestTree(t, 10, RecommendedCacheSize(4))

	require.NoError(t, tree.Insert(5, 1))
	require.NoError(t, tree.Insert(5, 2))
	require.NoError(t, tree.Insert(5, 3))
	require.NoError(t, tree.Insert(5, 4))

	got, err := tree.FindIf(5, func(v int64) bool { return v%2 == 0 })
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 4}, got)
}

func Test_BPlusTree_ManyInsertsForceLeafSplits(t *testing.T) {
	tree := openTestTree(t, 10, RecommendedCacheSize(6))

	const n = 500
	for i := int64(0); i < n; i++ {
		require.NoError(t, tree.Insert(i, i*10))
	}
	for i := int64(0); i < n; i++ {
		got, err := tree.Find(i)
		require.NoError(t, err)
		require.Equal(t, []int64{i * 10}, got, "key %d", i)
	}
}

func Test_BPlusTree_InsertThenEraseEverything(t *testing.T) {
	tree := openTestTree(t, 10, RecommendedCacheSize(6))

	const n = 500
	for i := int64(0); i < n; i++ {
		require.NoError(t, tree.Insert(i, i*10))
	}
	for i := int64(0); i < n; i++ {
		require.NoError(t, tree.Erase(i, i*10))
	}
	assert.True(t, tree.Empty())
	for i := int64(0); i < n; i++ {
		got, err := tree.Find(i)
		require.NoError(t, err)
		assert.Nil(t, got)
	}
}

func Test_BPlusTree_EraseHalfForcesMergesAndAmortize(t *testing.T) {
	tree := openTestTree(t, 10, RecommendedCacheSize(6))

	const n = 300
	for i := int64(0); i < n; i++ {
		require.NoError(t, tree.Insert(i, i))
	}
	for i := int64(0); i < n; i += 2 {
		require.NoError(t, tree.Erase(i, i))
	}
	for i := int64(0); i < n; i++ {
		got, err := tree.Find(i)
		require.NoError(t, err)
		if i%2 == 0 {
			assert.Nil(t, got, "key %d should be gone", i)
		} else {
			assert.Equal(t, []int64{i}, got, "key %d should survive", i)
		}
	}
}

func Test_BPlusTree_EraseMissingIsNoOp(t *testing.T) {
	tree := openTestTree(t, 10, RecommendedCacheSize(4))

	require.NoError(t, tree.Insert(1, 1))
	require.NoError(t, tree.Erase(1, 99))
	require.NoError(t, tree.Erase(99, 1))

	got, err := tree.Find(1)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, got)
}

func Test_BPlusTree_RootUnderflowCollapsesToEmpty(t *testing.T) {
	tree := openTestTree(t, 10, RecommendedCacheSize(6))

	const n = 200
	for i := int64(0); i < n; i++ {
		require.NoError(t, tree.Insert(i, i))
	}
	for i := int64(0); i < n; i++ {
		require.NoError(t, tree.Erase(i, i))
	}
	assert.True(t, tree.Empty())

	// the tree must still work after collapsing all the way back down.
	require.NoError(t, tree.Insert(42, 42))
	got, err := tree.Find(42)
	require.NoError(t, err)
	assert.Equal(t, []int64{42}, got)
}

func Test_BPlusTree_IteratorWalksInOrderAcrossLeaves(t *testing.T) {
	tree := openTestTree(t, 10, RecommendedCacheSize(6))

	const n = 200
	for i := int64(n - 1); i >= 0; i-- {
		require.NoError(t, tree.Insert(i, i*2))
	}

	it, err := tree.IteratorAt(0)
	require.NoError(t, err)
	defer it.Close()

	var got []int64
	for it.Valid() {
		k, v := it.Pair()
		assert.Equal(t, k*2, v)
		got = append(got, k)
		require.NoError(t, it.Next())
	}
	require.Len(t, got, n)
	for i := int64(0); i < n; i++ {
		assert.Equal(t, i, got[i])
	}
}

func Test_BPlusTree_IteratorAtMidpointSkipsSmallerKeys(t *testing.T) {
	tree := openTestTree(t, 10, RecommendedCacheSize(6))

	for i := int64(0); i < 100; i++ {
		require.NoError(t, tree.Insert(i, i))
	}

	it, err := tree.IteratorAt(50)
	require.NoError(t, err)
	defer it.Close()

	require.True(t, it.Valid())
	k, _ := it.Pair()
	assert.Equal(t, int64(50), k)
}

func Test_BPlusTree_PersistsAcrossReopen(t *testing.T) {
	tuning, err := NewTuning(10)
	require.NoError(t, err)
	name := filepath.Join(t.TempDir(), "store")

	tree, err := Open[int64, int64](name, tuning, Int64Codec(), Int64Codec(), Ordered[int64](), Ordered[int64](), RecommendedCacheSize(6))
	require.NoError(t, err)

	const n = 150
	for i := int64(0); i < n; i++ {
		require.NoError(t, tree.Insert(i, i*3))
	}
	require.NoError(t, tree.Close())

	reopened, err := Open[int64, int64](name, tuning, Int64Codec(), Int64Codec(), Ordered[int64](), Ordered[int64](), RecommendedCacheSize(6))
	require.NoError(t, err)
	defer reopened.Close()

	for i := int64(0); i < n; i++ {
		got, err := reopened.Find(i)
		require.NoError(t, err)
		require.Equal(t, []int64{i * 3}, got, "key %d", i)
	}
}
