package pagestore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_LRUReplacer_VictimIsOldestUnpinned(t *testing.T) {
	r := NewLRUReplacer(4)
	r.Unpin(1)
	r.Unpin(2)
	r.Unpin(3)

	victim, ok := r.Victim()
	assert.True(t, ok)
	assert.EqualValues(t, 1, victim)
}

func Test_LRUReplacer_PinExcludesFromVictim(t *testing.T) {
	r := NewLRUReplacer(4)
	r.Unpin(1)
	r.Unpin(2)
	r.Pin(1)

	victim, ok := r.Victim()
	assert.True(t, ok)
	assert.EqualValues(t, 2, victim)
}

func Test_LRUReplacer_VictimEmptyWhenAllPinned(t *testing.T) {
	r := NewLRUReplacer(4)
	r.Unpin(1)
	r.Pin(1)

	_, ok := r.Victim()
	assert.False(t, ok)
}

func Test_LRUReplacer_Size(t *testing.T) {
	r := NewLRUReplacer(4)
	assert.Equal(t, 0, r.Size())
	r.Unpin(1)
	r.Unpin(2)
	assert.Equal(t, 2, r.Size())
	r.Pin(1)
	assert.Equal(t, 1, r.Size())
}
