// Package identity handles authentication and user management.
package identity

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/myfin/backend/internal/application/audit"
	"github.com/myfin/backend/internal/domain/identity"
	"github.com/myfin/backend/internal/domain/shared"
	"github.com/myfin/backend/internal/infrastructure/auth"
	"github.com/myfin/backend/internal/infrastructure/docstore"
	"go.uber.org/zap"
)

// Service handles sign-in, sign-out and user administration
type Service struct {
	store     docstore.Store
	jwt       *auth.JWTService
	blacklist auth.TokenBlacklist
	audit     *audit.Writer
	logger    *zap.Logger
}

// NewService creates an identity service
func NewService(store docstore.Store, jwt *auth.JWTService, blacklist auth.TokenBlacklist, audit *audit.Writer, logger *zap.Logger) *Service {
	return &Service{
		store:     store,
		jwt:       jwt,
		blacklist: blacklist,
		audit:     audit,
		logger:    logger,
	}
}

// SignIn authenticates a user by username and password and issues a
// token pair. Unknown usernames and wrong passwords fail identically.
func (s *Service) SignIn(ctx context.Context, username, password string) (*identity.User, *auth.TokenPair, error) {
	var users []identity.User
	if err := s.store.Find(ctx, identity.Collection, map[string]any{"username": username}, &users); err != nil {
		return nil, nil, err
	}
	if len(users) == 0 {
		return nil, nil, shared.ErrAuthFailed
	}
	user := users[0]

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, shared.ErrAuthFailed
	}

	pair, err := s.jwt.GenerateTokenPair(user.Principal())
	if err != nil {
		return nil, nil, err
	}

	s.audit.Record(ctx, "Signed In", user.Username, user.Username, user.CompanyID, "")
	return &user, pair, nil
}

// SignOut revokes the presented access token for its remaining lifetime
func (s *Service) SignOut(ctx context.Context, accessToken string) error {
	claims, err := s.jwt.ValidateAccessToken(accessToken)
	if err != nil {
		// Already invalid tokens have nothing to revoke
		return nil
	}
	if err := s.blacklist.Add(ctx, claims.ID, claims.RemainingTTL()); err != nil {
		return err
	}
	s.audit.Record(ctx, "Signed Out", claims.Username, claims.Username, claims.CompanyID, "")
	return nil
}

// Refresh exchanges a refresh token for a fresh pair
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, shared.ErrAuthFailed
	}
	revoked, err := s.blacklist.Contains(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, shared.ErrAuthFailed
	}
	// Re-read the user so role or company changes take effect on refresh.
	var user identity.User
	if err := s.store.FindByID(ctx, identity.Collection, claims.UserID, &user); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrAuthFailed
		}
		return nil, err
	}
	return s.jwt.GenerateTokenPair(user.Principal())
}

// CreateUser registers a user. Company admins may only create users
// inside their own company and never super admins.
func (s *Service) CreateUser(ctx context.Context, p identity.Principal, username, email, password string, role identity.Role, companyID string) (*identity.User, error) {
	if !p.Role.Can(identity.CapManageUsers) {
		return nil, shared.ErrAccessDenied
	}
	if !p.IsSuper() {
		if role == identity.RoleSuper || companyID != p.CompanyID {
			return nil, shared.ErrAccessDenied
		}
	}
	if len(password) < 8 {
		return nil, shared.NewValidationError("password", "must be at least 8 characters")
	}

	var existing []identity.User
	if err := s.store.Find(ctx, identity.Collection, map[string]any{"username": username}, &existing); err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, shared.NewValidationError("username", "already taken")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user, err := identity.NewUser(username, email, string(hash), role, companyID)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.Create(ctx, identity.Collection, user); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, "Created User", user.Username, p.Username, user.CompanyID, "")
	return user, nil
}

// UpdateProfile lets a signed-in user change their own email and,
// optionally, their password. Role and company binding are not
// self-serviceable.
func (s *Service) UpdateProfile(ctx context.Context, p identity.Principal, email, newPassword string) (*identity.User, error) {
	var user identity.User
	if err := s.store.FindByID(ctx, identity.Collection, p.UserID, &user); err != nil {
		return nil, err
	}

	user.Email = email
	if newPassword != "" {
		if len(newPassword) < 8 {
			return nil, shared.NewValidationError("password", "must be at least 8 characters")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = string(hash)
	}

	if err := s.store.Set(ctx, identity.Collection, user.ID, &user); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, "Updated Profile", user.Username, p.Username, user.CompanyID, "")
	return &user, nil
}

// DeleteUser removes an account. Self-deletion is not allowed.
func (s *Service) DeleteUser(ctx context.Context, p identity.Principal, id string) error {
	if !p.Role.Can(identity.CapManageUsers) {
		return shared.ErrAccessDenied
	}
	if p.UserID == id {
		return shared.NewDomainError("INVALID_STATE", "Cannot delete your own account")
	}
	var user identity.User
	if err := s.store.FindByID(ctx, identity.Collection, id, &user); err != nil {
		return err
	}
	if !p.IsSuper() && user.CompanyID != p.CompanyID {
		return shared.ErrAccessDenied
	}
	if err := s.store.Delete(ctx, identity.Collection, id); err != nil {
		return err
	}
	s.audit.Record(ctx, "Deleted User", user.Username, p.Username, user.CompanyID, "")
	return nil
}

// ListUsers returns the accounts visible to the principal: every
// account for a super admin, same-company accounts for a company admin.
func (s *Service) ListUsers(ctx context.Context, p identity.Principal) ([]identity.User, error) {
	if !p.Role.Can(identity.CapManageUsers) {
		return nil, shared.ErrAccessDenied
	}
	filter := map[string]any{}
	if !p.IsSuper() {
		filter["company_id"] = p.CompanyID
	}
	var users []identity.User
	if err := s.store.Find(ctx, identity.Collection, filter, &users); err != nil {
		return nil, err
	}
	return users, nil
}
