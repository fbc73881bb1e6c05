package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinksAddLookupRemove(t *testing.T) {
	l := NewLinks(4)

	l.Add(100, 10)
	userID, ok := l.Lookup(100)
	require.True(t, ok)
	assert.Equal(t, int64(10), userID)

	l.Remove(100)
	_, ok = l.Lookup(100)
	assert.False(t, ok)
	assert.Zero(t, l.Len())
}

func TestLinksOverwriteKeepsSingleEntry(t *testing.T) {
	l := NewLinks(4)

	l.Add(100, 10)
	l.Add(100, 11)

	userID, ok := l.Lookup(100)
	require.True(t, ok)
	assert.Equal(t, int64(11), userID)
	assert.Equal(t, 1, l.Len())
}

func TestLinksEvictOldestAtCapacity(t *testing.T) {
	l := NewLinks(3)

	l.Add(1, 10)
	l.Add(2, 11)
	l.Add(3, 12)
	l.Add(4, 13)

	_, ok := l.Lookup(1)
	assert.False(t, ok, "oldest link evicted first")
	assert.Equal(t, 3, l.Len())

	for _, id := range []int{2, 3, 4} {
		_, ok := l.Lookup(id)
		assert.True(t, ok)
	}
}

func TestLinksZeroCapacityUsesDefault(t *testing.T) {
	l := NewLinks(0)
	assert.Equal(t, DefaultLinkCapacity, l.cap)
}

func TestActiveSessionSlot(t *testing.T) {
	s := NewActiveSession()

	_, ok := s.Active()
	assert.False(t, ok)

	s.Set(10)
	s.Set(11)
	id, ok := s.Active()
	require.True(t, ok)
	assert.Equal(t, int64(11), id)

	s.Clear()
	_, ok = s.Active()
	assert.False(t, ok)
}
