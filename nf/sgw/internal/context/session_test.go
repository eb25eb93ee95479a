package context

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_CreateAndLookup(t *testing.T) {
	store := NewStore()

	sess := store.Create("001010000000001", 42)
	assert.Equal(t, "001010000000001", sess.IMSI)
	assert.Equal(t, uint32(42), sess.MMETEID)
	assert.NotZero(t, sess.LocalTEID)

	byIMSI, ok := store.ByIMSI("001010000000001")
	require.True(t, ok)
	assert.Same(t, sess, byIMSI)

	byTEID, ok := store.ByTEID(sess.LocalTEID)
	require.True(t, ok)
	assert.Same(t, sess, byTEID)
}

func TestStore_CreateReplacesExistingSession(t *testing.T) {
	store := NewStore()

	first := store.Create("001010000000001", 1)
	second := store.Create("001010000000001", 2)

	assert.NotEqual(t, first.LocalTEID, second.LocalTEID)

	_, ok := store.ByTEID(first.LocalTEID)
	assert.False(t, ok, "the prior session's TEID must no longer resolve")

	current, ok := store.ByIMSI("001010000000001")
	require.True(t, ok)
	assert.Same(t, second, current)
}

func TestStore_DeleteRemovesBothIndexes(t *testing.T) {
	store := NewStore()
	sess := store.Create("001010000000001", 1)

	store.Delete(sess)

	_, ok := store.ByIMSI("001010000000001")
	assert.False(t, ok)
	_, ok = store.ByTEID(sess.LocalTEID)
	assert.False(t, ok)
}

func TestStore_AllAndCount(t *testing.T) {
	store := NewStore()
	store.Create("001010000000001", 1)
	store.Create("001010000000002", 2)

	assert.Equal(t, 2, store.Count())
	assert.Len(t, store.All(), 2)
}

func TestStore_AllocatesDistinctTEIDs(t *testing.T) {
	store := NewStore()
	seen := make(map[uint32]bool)
	for i := 0; i < 10; i++ {
		sess := store.Create(string(rune('a'+i)), 0)
		assert.False(t, seen[sess.LocalTEID], "TEID %d reused", sess.LocalTEID)
		seen[sess.LocalTEID] = true
	}
}
