package sessions

import (
	"sync"
	"time"
)

// Session tracks one authenticated identity's live connection.
type Session struct {
	UserID       string
	DisplayName  string
	ContactRef   string
	ConnectionID string
	CreatedAt    time.Time
	LastActivity time.Time
}

// Manager holds in-memory sessions keyed by identity.
type Manager struct {
	lock     sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a new session Manager.
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

// Upsert creates or rebinds a session for an identity.
func (m *Manager) Upsert(userID, displayName, contactRef, connectionID string) *Session {
	m.lock.Lock()
	defer m.lock.Unlock()

	now := time.Now()
	if session, ok := m.sessions[userID]; ok {
		session.ConnectionID = connectionID
		session.DisplayName = displayName
		session.LastActivity = now
		return session
	}

	session := &Session{
		UserID:       userID,
		DisplayName:  displayName,
		ContactRef:   contactRef,
		ConnectionID: connectionID,
		CreatedAt:    now,
		LastActivity: now,
	}
	m.sessions[userID] = session
	return session
}

// Get returns a session by identity.
func (m *Manager) Get(userID string) (*Session, bool) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	session, ok := m.sessions[userID]
	return session, ok
}

// GetByConnection returns a session by its connection id.
func (m *Manager) GetByConnection(connectionID string) (*Session, bool) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	for _, session := range m.sessions {
		if session.ConnectionID == connectionID {
			return session, true
		}
	}
	return nil, false
}

// Touch updates a session's last-activity time.
func (m *Manager) Touch(userID string) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if session, ok := m.sessions[userID]; ok {
		session.LastActivity = time.Now()
	}
}

// Remove deletes a session.
func (m *Manager) Remove(userID string) bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	if _, ok := m.sessions[userID]; !ok {
		return false
	}
	delete(m.sessions, userID)
	return true
}

// Count returns the number of active sessions.
func (m *Manager) Count() int {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return len(m.sessions)
}
