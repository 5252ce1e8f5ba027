package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectionManager_AddRemove(t *testing.T) {
	cm := NewConnectionManager()

	connection := cm.AddConnection(nil)
	require.NotEmpty(t, connection.ID)
	assert.Equal(t, 1, cm.Count())

	got, ok := cm.GetConnection(connection.ID)
	require.True(t, ok)
	assert.Equal(t, connection, got)

	removed, ok := cm.RemoveConnection(connection.ID)
	require.True(t, ok)
	assert.Equal(t, connection.ID, removed.ID)
	assert.Equal(t, 0, cm.Count())

	_, ok = cm.RemoveConnection(connection.ID)
	assert.False(t, ok)
}

func TestConnectionManager_BindUser(t *testing.T) {
	cm := NewConnectionManager()
	connection := cm.AddConnection(nil)

	cm.BindUser(connection.ID, "u1")

	got, ok := cm.GetConnection(connection.ID)
	require.True(t, ok)
	assert.Equal(t, "u1", got.UserID)
}

func TestConnectionManager_GetConnections(t *testing.T) {
	cm := NewConnectionManager()
	a := cm.AddConnection(nil)
	b := cm.AddConnection(nil)

	connections := cm.GetConnections([]string{a.ID, "missing", b.ID})
	assert.Len(t, connections, 2)
}
