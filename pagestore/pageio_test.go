package pagestore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_PageIO_ReadWriteRoundTrip(t *testing.T) {
	name := filepath.Join(t.TempDir(), "store")
	io, err := NewPageIO(name, 4096)
	require.NoError(t, err)
	defer io.Close()

	want := make([]byte, 4096)
	for i := range want {
		want[i] = byte(i)
	}
	require.NoError(t, io.WritePage(3, want))

	got := make([]byte, 4096)
	require.NoError(t, io.ReadPage(3, got))
	assert.Equal(t, want, got)
}

func Test_PageIO_SidecarRoundTrip(t *testing.T) {
	name := filepath.Join(t.TempDir(), "store")
	io, err := NewPageIO(name, 4096)
	require.NoError(t, err)
	defer io.Close()

	_, exists, err := io.LoadSidecar()
	require.NoError(t, err)
	assert.False(t, exists)

	root := make([]byte, 4096)
	root[0] = 1
	want := &Sidecar{HighWater: 7, FreeList: []int64{2, 5, 9}, Root: root}
	require.NoError(t, io.SaveSidecar(want))

	got, exists, err := io.LoadSidecar()
	require.NoError(t, err)
	require.True(t, exists)
	assert.Equal(t, want.HighWater, got.HighWater)
	assert.Equal(t, want.FreeList, got.FreeList)
	assert.Equal(t, want.Root, got.Root)
}

func Test_PageBytes(t *testing.T) {
	assert.Equal(t, 4096, PageBytes(1))
	assert.Equal(t, 4096, PageBytes(4096))
	assert.Equal(t, 8192, PageBytes(4097))
}
