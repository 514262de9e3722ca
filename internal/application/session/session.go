package session

import (
	"context"
	"sync"

	"github.com/myfin/backend/internal/domain/identity"
	"github.com/myfin/backend/internal/domain/shared"
	"github.com/myfin/backend/internal/infrastructure/docstore"
	"go.uber.org/zap"
)

// Session is one signed-in user's replicated view. Company-bound users
// are pinned to their own tenant; super admins start at the
// headquarters view (no active tenant) and may select any company.
//
// A session also watches its own user document: a role or company
// change rebinds the feeds to the new scope, and deleting the user
// ends the session.
type Session struct {
	mirrors *Mirrors
	repl    *Replication
	logger  *zap.Logger
	selfSub docstore.Subscription

	// ctx is the context the session was opened on. Feeds reopened
	// later (tenant switches, rebinds) are bound to it, never to a
	// request context: the session outlives any single request.
	ctx context.Context

	mu           sync.Mutex
	principal    identity.Principal
	activeTenant string
	closed       bool
}

// Open starts a session for the principal: principal feeds always, and
// tenant feeds immediately for company-bound users.
func Open(ctx context.Context, store docstore.Store, p identity.Principal, logger *zap.Logger) (*Session, error) {
	mirrors := NewMirrors()
	repl := NewReplication(store, mirrors, logger)
	if err := repl.OpenPrincipalFeeds(ctx, p); err != nil {
		return nil, err
	}

	s := &Session{
		principal: p,
		mirrors:   mirrors,
		repl:      repl,
		logger:    logger,
		ctx:       ctx,
	}

	if !p.IsSuper() {
		if p.CompanyID == "" {
			repl.Close()
			return nil, shared.ErrNoActiveCompany
		}
		if err := repl.OpenTenantFeeds(ctx, p.CompanyID); err != nil {
			repl.Close()
			return nil, err
		}
		s.activeTenant = p.CompanyID
	}

	selfSub, err := store.Subscribe(ctx, docstore.Query{
		Collection: identity.Collection,
		Filter:     map[string]any{"_id": p.UserID},
	})
	if err != nil {
		repl.Close()
		return nil, err
	}
	s.selfSub = selfSub
	go s.watchSelf()

	return s, nil
}

// watchSelf tracks the session's own user document. An empty snapshot
// after the user was seen means the account is gone; a changed role or
// company binding rebinds the feeds.
func (s *Session) watchSelf() {
	seen := false
	for snap := range s.selfSub.Snapshots() {
		users, err := docstore.DecodeAll[identity.User](snap)
		if err != nil {
			s.logger.Warn("failed to decode principal snapshot", zap.Error(err))
			continue
		}
		if len(users) == 0 {
			if seen {
				s.logger.Info("principal deleted, ending session",
					zap.String("user_id", s.Principal().UserID))
				s.Close()
				return
			}
			continue
		}
		seen = true
		s.rebind(users[0].Principal())
	}
}

// rebind applies a changed role or company binding to the running
// session: role-scoped feeds restart, and a company-bound user is
// forced onto their own tenant.
func (s *Session) rebind(p identity.Principal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || p == s.principal {
		return
	}
	prev := s.principal
	s.principal = p
	s.logger.Info("principal changed, rebinding session",
		zap.String("user_id", p.UserID),
		zap.String("from_role", string(prev.Role)),
		zap.String("to_role", string(p.Role)))

	if err := s.repl.OpenPrincipalFeeds(s.ctx, p); err != nil {
		s.logger.Warn("failed to rebind principal feeds", zap.Error(err))
	}
	if !p.Role.Can(identity.CapSelectAnyTenant) && s.activeTenant != p.CompanyID {
		if err := s.repl.OpenTenantFeeds(s.ctx, p.CompanyID); err != nil {
			s.logger.Warn("failed to rebind tenant feeds", zap.Error(err))
			return
		}
		s.activeTenant = p.CompanyID
	}
}

// Principal returns the session's authenticated actor
func (s *Session) Principal() identity.Principal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.principal
}

// Mirrors returns the session's local replicas
func (s *Session) Mirrors() *Mirrors {
	return s.mirrors
}

// ActiveTenant returns the currently selected company id, empty at the
// headquarters view.
func (s *Session) ActiveTenant() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeTenant
}

// ActiveTenantName resolves the active company's name from the mirror
func (s *Session) ActiveTenantName() string {
	return s.mirrors.CompanyName(s.ActiveTenant())
}

// SelectTenant switches the active company and returns the previously
// active one. Only super admins may switch freely; company-bound users
// can only (re)select their own company. Selecting the empty id returns
// a super admin to the headquarters view. Selecting the already-active
// tenant is a no-op. The new feeds live on the session's own context,
// so they keep replicating after the selecting request has finished.
func (s *Session) SelectTenant(tenantID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.principal.Role.Can(identity.CapSelectAnyTenant) && tenantID != s.principal.CompanyID {
		return "", shared.ErrAccessDenied
	}

	prev := s.activeTenant
	if tenantID == prev {
		return prev, nil
	}

	if err := s.repl.OpenTenantFeeds(s.ctx, tenantID); err != nil {
		return "", err
	}
	s.activeTenant = tenantID
	s.logger.Debug("active tenant switched",
		zap.String("from", prev), zap.String("to", tenantID))
	return prev, nil
}

// Closed reports whether the session has ended
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close stops every feed; it is idempotent
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	if s.selfSub != nil {
		s.selfSub.Close()
	}
	s.repl.Close()
}
