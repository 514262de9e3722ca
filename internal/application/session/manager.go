package session

import (
	"context"
	"sync"

	"github.com/myfin/backend/internal/domain/identity"
	"github.com/myfin/backend/internal/infrastructure/docstore"
	"go.uber.org/zap"
)

// Manager tracks the open session per user. A user has at most one
// replicated session regardless of how many requests they run.
type Manager struct {
	store  docstore.Store
	logger *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates an empty session manager
func NewManager(store docstore.Store, logger *zap.Logger) *Manager {
	return &Manager{
		store:    store,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// Acquire returns the user's session, opening one on first use.
// The context governs the lifetime of the opened feeds, so callers pass
// a long-lived context, not the request's.
func (m *Manager) Acquire(ctx context.Context, p identity.Principal) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// A session may have ended itself, e.g. when the account was
	// deleted; a live request then gets a fresh one.
	if s, ok := m.sessions[p.UserID]; ok && !s.Closed() {
		return s, nil
	}
	s, err := Open(ctx, m.store, p, m.logger)
	if err != nil {
		return nil, err
	}
	m.sessions[p.UserID] = s
	return s, nil
}

// Release closes and forgets the user's session, e.g. on sign-out
func (m *Manager) Release(userID string) {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	delete(m.sessions, userID)
	m.mu.Unlock()
	if ok {
		s.Close()
	}
}

// CloseAll tears down every session, for shutdown
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}
