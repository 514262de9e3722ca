package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/myfin/backend/internal/application/audit"
	"github.com/myfin/backend/internal/domain/identity"
	"github.com/myfin/backend/internal/domain/shared"
	"github.com/myfin/backend/internal/infrastructure/auth"
	"github.com/myfin/backend/internal/infrastructure/config"
	"github.com/myfin/backend/internal/infrastructure/docstore"
)

var (
	superAdmin = identity.Principal{UserID: "u0", Username: "root", Role: identity.RoleSuper}
	admin      = identity.Principal{UserID: "u1", Username: "alice", Role: identity.RoleCompanyAdmin, CompanyID: "c1"}
	plainUser  = identity.Principal{UserID: "u2", Username: "bob", Role: identity.RoleCompanyUser, CompanyID: "c1"}
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	store := docstore.NewMemoryStore()
	jwtSvc := auth.NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-key-that-is-long-enough",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: time.Hour,
		Issuer:                 "myfin-test",
	})
	return NewService(store, jwtSvc, auth.NewInMemoryTokenBlacklist(), audit.NewWriter(store, zap.NewNop()), zap.NewNop())
}

func TestSignIn(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	created, err := svc.CreateUser(ctx, superAdmin, "alice", "alice@acme.test", "s3cret-pass", identity.RoleCompanyAdmin, "c1")
	require.NoError(t, err)

	t.Run("valid credentials issue a token pair", func(t *testing.T) {
		user, pair, err := svc.SignIn(ctx, "alice", "s3cret-pass")
		require.NoError(t, err)
		assert.Equal(t, created.ID, user.ID)
		assert.NotEmpty(t, pair.AccessToken)
		assert.NotEmpty(t, pair.RefreshToken)
	})

	t.Run("wrong password fails like unknown user", func(t *testing.T) {
		_, _, errPwd := svc.SignIn(ctx, "alice", "wrong")
		_, _, errUser := svc.SignIn(ctx, "nobody", "wrong")
		assert.ErrorIs(t, errPwd, shared.ErrAuthFailed)
		assert.ErrorIs(t, errUser, shared.ErrAuthFailed)
	})
}

func TestSignOutRevokesToken(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.CreateUser(ctx, superAdmin, "alice", "", "s3cret-pass", identity.RoleCompanyAdmin, "c1")
	require.NoError(t, err)
	_, pair, err := svc.SignIn(ctx, "alice", "s3cret-pass")
	require.NoError(t, err)

	require.NoError(t, svc.SignOut(ctx, pair.AccessToken))

	claims, err := svc.jwt.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	revoked, err := svc.blacklist.Contains(ctx, claims.ID)
	require.NoError(t, err)
	assert.True(t, revoked)

	t.Run("garbage token is a no-op", func(t *testing.T) {
		assert.NoError(t, svc.SignOut(ctx, "garbage"))
	})
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.CreateUser(ctx, superAdmin, "alice", "", "s3cret-pass", identity.RoleCompanyAdmin, "c1")
	require.NoError(t, err)
	user, pair, err := svc.SignIn(ctx, "alice", "s3cret-pass")
	require.NoError(t, err)

	t.Run("refresh issues a new pair", func(t *testing.T) {
		renewed, err := svc.Refresh(ctx, pair.RefreshToken)
		require.NoError(t, err)
		claims, err := svc.jwt.ValidateAccessToken(renewed.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, user.ID, claims.UserID)
	})

	t.Run("access token cannot refresh", func(t *testing.T) {
		_, err := svc.Refresh(ctx, pair.AccessToken)
		assert.ErrorIs(t, err, shared.ErrAuthFailed)
	})

	t.Run("deleted user cannot refresh", func(t *testing.T) {
		require.NoError(t, svc.DeleteUser(ctx, superAdmin, user.ID))
		_, err := svc.Refresh(ctx, pair.RefreshToken)
		assert.ErrorIs(t, err, shared.ErrAuthFailed)
	})
}

func TestCreateUser(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	t.Run("plain user cannot manage users", func(t *testing.T) {
		_, err := svc.CreateUser(ctx, plainUser, "mallory", "", "password123", identity.RoleCompanyUser, "c1")
		assert.ErrorIs(t, err, shared.ErrAccessDenied)
	})

	t.Run("company admin creates users in own company", func(t *testing.T) {
		user, err := svc.CreateUser(ctx, admin, "carol", "", "password123", identity.RoleCompanyUser, "c1")
		require.NoError(t, err)
		assert.Equal(t, "c1", user.CompanyID)
	})

	t.Run("company admin cannot create users elsewhere", func(t *testing.T) {
		_, err := svc.CreateUser(ctx, admin, "dave", "", "password123", identity.RoleCompanyUser, "c2")
		assert.ErrorIs(t, err, shared.ErrAccessDenied)
	})

	t.Run("company admin cannot mint super admins", func(t *testing.T) {
		_, err := svc.CreateUser(ctx, admin, "eve", "", "password123", identity.RoleSuper, "c1")
		assert.ErrorIs(t, err, shared.ErrAccessDenied)
	})

	t.Run("short password is rejected", func(t *testing.T) {
		_, err := svc.CreateUser(ctx, superAdmin, "frank", "", "short", identity.RoleCompanyUser, "c1")
		assert.True(t, shared.IsValidationError(err))
	})

	t.Run("duplicate username is rejected", func(t *testing.T) {
		_, err := svc.CreateUser(ctx, superAdmin, "carol", "", "password123", identity.RoleCompanyUser, "c1")
		assert.True(t, shared.IsValidationError(err))
	})
}

func TestDeleteUser(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	own, err := svc.CreateUser(ctx, admin, "carol", "", "password123", identity.RoleCompanyUser, "c1")
	require.NoError(t, err)
	other, err := svc.CreateUser(ctx, superAdmin, "dave", "", "password123", identity.RoleCompanyUser, "c2")
	require.NoError(t, err)

	t.Run("cannot delete own account", func(t *testing.T) {
		err := svc.DeleteUser(ctx, identity.Principal{UserID: own.ID, Role: identity.RoleCompanyAdmin, CompanyID: "c1"}, own.ID)
		assert.Error(t, err)
	})

	t.Run("company admin cannot reach other tenants", func(t *testing.T) {
		err := svc.DeleteUser(ctx, admin, other.ID)
		assert.ErrorIs(t, err, shared.ErrAccessDenied)
	})

	t.Run("company admin deletes own-company user", func(t *testing.T) {
		require.NoError(t, svc.DeleteUser(ctx, admin, own.ID))
	})
}

func TestListUsers(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.CreateUser(ctx, superAdmin, "carol", "", "password123", identity.RoleCompanyUser, "c1")
	require.NoError(t, err)
	_, err = svc.CreateUser(ctx, superAdmin, "dave", "", "password123", identity.RoleCompanyUser, "c2")
	require.NoError(t, err)

	t.Run("super admin sees everyone", func(t *testing.T) {
		users, err := svc.ListUsers(ctx, superAdmin)
		require.NoError(t, err)
		assert.Len(t, users, 2)
	})

	t.Run("company admin sees own company", func(t *testing.T) {
		users, err := svc.ListUsers(ctx, admin)
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, "carol", users[0].Username)
	})

	t.Run("plain user is denied", func(t *testing.T) {
		_, err := svc.ListUsers(ctx, plainUser)
		assert.ErrorIs(t, err, shared.ErrAccessDenied)
	})
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	created, err := svc.CreateUser(ctx, superAdmin, "dave", "dave@acme.test", "original-pass", identity.RoleCompanyUser, "c1")
	require.NoError(t, err)
	principal := created.Principal()

	t.Run("email change keeps the password", func(t *testing.T) {
		updated, err := svc.UpdateProfile(ctx, principal, "dave@new.test", "")
		require.NoError(t, err)
		assert.Equal(t, "dave@new.test", updated.Email)

		_, _, err = svc.SignIn(ctx, "dave", "original-pass")
		assert.NoError(t, err)
	})

	t.Run("password change takes effect", func(t *testing.T) {
		_, err := svc.UpdateProfile(ctx, principal, "dave@new.test", "changed-pass-1")
		require.NoError(t, err)

		_, _, err = svc.SignIn(ctx, "dave", "original-pass")
		assert.ErrorIs(t, err, shared.ErrAuthFailed)
		_, _, err = svc.SignIn(ctx, "dave", "changed-pass-1")
		assert.NoError(t, err)
	})

	t.Run("short password rejected", func(t *testing.T) {
		_, err := svc.UpdateProfile(ctx, principal, "dave@new.test", "short")
		assert.True(t, shared.IsValidationError(err))
	})
}
