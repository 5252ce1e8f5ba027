package sessions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_UpsertRebindsConnection(t *testing.T) {
	m := NewManager()

	first := m.Upsert("u1", "Alice", "alice@example.com", "conn-1")
	assert.Equal(t, "conn-1", first.ConnectionID)
	assert.Equal(t, 1, m.Count())

	second := m.Upsert("u1", "Alice", "alice@example.com", "conn-2")
	assert.Equal(t, "conn-2", second.ConnectionID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.Equal(t, 1, m.Count())
}

func TestManager_GetByConnection(t *testing.T) {
	m := NewManager()
	m.Upsert("u1", "Alice", "", "conn-1")
	m.Upsert("u2", "Bob", "", "conn-2")

	session, ok := m.GetByConnection("conn-2")
	require.True(t, ok)
	assert.Equal(t, "u2", session.UserID)

	_, ok = m.GetByConnection("conn-3")
	assert.False(t, ok)
}

func TestManager_Remove(t *testing.T) {
	m := NewManager()
	m.Upsert("u1", "Alice", "", "conn-1")

	assert.True(t, m.Remove("u1"))
	assert.False(t, m.Remove("u1"))
	_, ok := m.Get("u1")
	assert.False(t, ok)
}
