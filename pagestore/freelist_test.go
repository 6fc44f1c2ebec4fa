package pagestore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_FreeList_AllocateExtendsHighWater(t *testing.T) {
	f := NewFreeList(1, nil)
	assert.EqualValues(t, 1, f.Allocate())
	assert.EqualValues(t, 2, f.Allocate())
	assert.EqualValues(t, 3, f.Allocate())
}

func Test_FreeList_AllocateReusesPushedIndex(t *testing.T) {
	f := NewFreeList(1, nil)
	f.Allocate()
	f.Push(1)
	assert.EqualValues(t, 1, f.Allocate())
	assert.EqualValues(t, 2, f.Allocate())
}

func Test_FreeList_SnapshotRoundTrip(t *testing.T) {
	f := NewFreeList(1, nil)
	f.Allocate()
	f.Allocate()
	f.Push(1)

	highWater, free := f.Snapshot()
	restored := NewFreeList(highWater, free)

	assert.EqualValues(t, 1, restored.Allocate())
	assert.EqualValues(t, 3, restored.Allocate())
}

func Test_FreeList_HighWaterFloorsAtOne(t *testing.T) {
	f := NewFreeList(0, nil)
	assert.EqualValues(t, 1, f.Allocate())
}
