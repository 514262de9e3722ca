package partner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/myfin/backend/internal/application/audit"
	"github.com/myfin/backend/internal/domain/identity"
	"github.com/myfin/backend/internal/domain/partner"
	"github.com/myfin/backend/internal/domain/shared"
	"github.com/myfin/backend/internal/infrastructure/docstore"
)

var (
	admin = identity.Principal{UserID: "u1", Username: "alice", Role: identity.RoleCompanyAdmin, CompanyID: "c1"}
	user  = identity.Principal{UserID: "u2", Username: "bob", Role: identity.RoleCompanyUser, CompanyID: "c1"}
)

func newTestService() (*Service, docstore.Store) {
	store := docstore.NewMemoryStore()
	return NewService(store, audit.NewWriter(store, zap.NewNop())), store
}

func TestCreateClient(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	t.Run("creates client scoped to tenant", func(t *testing.T) {
		client, err := svc.Create(ctx, admin, "c1", "Acme", "Beta Ltd", "0123456789", partner.PartyClient)
		require.NoError(t, err)
		assert.NotEmpty(t, client.ID)
		assert.Equal(t, "c1", client.CompanyID)
		assert.Equal(t, "0123456789", client.Phone)
	})

	t.Run("requires active company", func(t *testing.T) {
		_, err := svc.Create(ctx, admin, "", "", "Orphan", "", partner.PartyClient)
		assert.ErrorIs(t, err, shared.ErrNoActiveCompany)
	})

	t.Run("defaults to client party type", func(t *testing.T) {
		client, err := svc.Create(ctx, admin, "c1", "Acme", "Untyped", "", "")
		require.NoError(t, err)
		assert.Equal(t, partner.PartyClient, client.Type)
	})

	t.Run("supplier party type sticks", func(t *testing.T) {
		client, err := svc.Create(ctx, admin, "c1", "Acme", "Parts Co", "", partner.PartySupplier)
		require.NoError(t, err)
		assert.Equal(t, partner.PartySupplier, client.Type)
	})
}

func TestDeleteClient(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	client, err := svc.Create(ctx, admin, "c1", "Acme", "Beta Ltd", "", partner.PartyClient)
	require.NoError(t, err)

	t.Run("plain user is denied before any store access", func(t *testing.T) {
		err := svc.Delete(ctx, user, "c1", "Acme", client.ID)
		assert.ErrorIs(t, err, shared.ErrAccessDenied)

		_, err = svc.Get(ctx, "c1", client.ID)
		assert.NoError(t, err)
	})

	t.Run("admin deletes", func(t *testing.T) {
		require.NoError(t, svc.Delete(ctx, admin, "c1", "Acme", client.ID))
		_, err := svc.Get(ctx, "c1", client.ID)
		assert.Error(t, err)
	})
}

func TestTenantScope(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	otherAdmin := identity.Principal{UserID: "u3", Username: "carol", Role: identity.RoleCompanyAdmin, CompanyID: "c2"}

	client, err := svc.Create(ctx, admin, "c1", "Acme", "Beta Ltd", "", partner.PartyClient)
	require.NoError(t, err)

	t.Run("cross-tenant read by id is not found", func(t *testing.T) {
		_, err := svc.Get(ctx, "c2", client.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("cross-tenant delete is rejected and the record survives", func(t *testing.T) {
		err := svc.Delete(ctx, otherAdmin, "c2", "Beta", client.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)

		_, err = svc.Get(ctx, "c1", client.ID)
		assert.NoError(t, err)
	})

	t.Run("update cannot move a client between tenants", func(t *testing.T) {
		moved := *client
		moved.CompanyID = "c2"
		require.NoError(t, svc.Update(ctx, "c1", &moved))

		got, err := svc.Get(ctx, "c1", client.ID)
		require.NoError(t, err)
		assert.Equal(t, "c1", got.CompanyID)
	})

	t.Run("headquarters scope reaches any tenant", func(t *testing.T) {
		got, err := svc.Get(ctx, "", client.ID)
		require.NoError(t, err)
		assert.Equal(t, "c1", got.CompanyID)
	})
}

func TestListClients(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	_, err := svc.Create(ctx, admin, "c1", "Acme", "Alpha", "", partner.PartyClient)
	require.NoError(t, err)
	_, err = svc.Create(ctx, admin, "c2", "Beta", "Bravo", "", partner.PartyClient)
	require.NoError(t, err)

	clients, err := svc.List(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Equal(t, "Alpha", clients[0].Name)
}
