package services

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/custodia-labs/quarry-cli/internal/core/domain"
)

// SessionManager tracks live conversation sessions, each owning a bounded
// history buffer. Sessions are in-memory only and vanish on process exit.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*domain.History
	capacity int
}

// NewSessionManager creates a session manager whose sessions retain at most
// historyTurns turns each. Non-positive values use the default capacity.
func NewSessionManager(historyTurns int) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*domain.History),
		capacity: historyTurns,
	}
}

// Create starts a new session and returns its ID.
func (m *SessionManager) Create() string {
	id := uuid.NewString()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[id] = domain.NewHistory(m.capacity)
	return id
}

// Get returns the history for a session.
func (m *SessionManager) Get(id string) (*domain.History, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	history, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %q: %w", id, domain.ErrNotFound)
	}
	return history, nil
}

// GetOrCreate returns the history for a session, creating the session when
// the ID is unknown or empty. The returned ID is always valid.
func (m *SessionManager) GetOrCreate(id string) (string, *domain.History) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id != "" {
		if history, ok := m.sessions[id]; ok {
			return id, history
		}
	}
	id = uuid.NewString()
	history := domain.NewHistory(m.capacity)
	m.sessions[id] = history
	return id, history
}

// Delete removes a session. Deleting an unknown ID is a no-op.
func (m *SessionManager) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Len returns the number of live sessions.
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
