package network

import (
	"sync"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
)

// Connection represents an established WebSocket connection.
type Connection struct {
	ID     string
	WSConn *websocket.Conn
	// UserID is set once the connection authenticates into a room
	UserID string
}

// ConnectionManager manages established connections
type ConnectionManager struct {
	connections     map[string]*Connection
	connectionsLock sync.RWMutex
}

// NewConnectionManager creates a new ConnectionManager
func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]*Connection),
	}
}

// AddConnection registers a new connection and assigns it an id
func (cm *ConnectionManager) AddConnection(wsConn *websocket.Conn) *Connection {
	cm.connectionsLock.Lock()
	defer cm.connectionsLock.Unlock()

	connection := &Connection{
		ID:     uuid.New().String(),
		WSConn: wsConn,
	}
	cm.connections[connection.ID] = connection
	return connection
}

// BindUser associates an authenticated identity with a connection
func (cm *ConnectionManager) BindUser(connectionID, userID string) {
	cm.connectionsLock.Lock()
	defer cm.connectionsLock.Unlock()

	if connection, ok := cm.connections[connectionID]; ok {
		connection.UserID = userID
	}
}

// GetConnection returns a connection by its id
func (cm *ConnectionManager) GetConnection(connectionID string) (*Connection, bool) {
	cm.connectionsLock.RLock()
	defer cm.connectionsLock.RUnlock()
	connection, ok := cm.connections[connectionID]
	return connection, ok
}

// GetConnections returns the subset of the given ids that are still connected
func (cm *ConnectionManager) GetConnections(connectionIDs []string) []*Connection {
	cm.connectionsLock.RLock()
	defer cm.connectionsLock.RUnlock()

	connections := make([]*Connection, 0, len(connectionIDs))
	for _, id := range connectionIDs {
		if connection, ok := cm.connections[id]; ok {
			connections = append(connections, connection)
		}
	}
	return connections
}

// RemoveConnection removes a connection from the manager and returns it
func (cm *ConnectionManager) RemoveConnection(connectionID string) (*Connection, bool) {
	cm.connectionsLock.Lock()
	defer cm.connectionsLock.Unlock()

	connection, ok := cm.connections[connectionID]
	if !ok {
		return nil, false
	}
	delete(cm.connections, connectionID)
	return connection, true
}

// Count returns the number of established connections
func (cm *ConnectionManager) Count() int {
	cm.connectionsLock.RLock()
	defer cm.connectionsLock.RUnlock()
	return len(cm.connections)
}
