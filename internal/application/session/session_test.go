package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/myfin/backend/internal/domain/document"
	"github.com/myfin/backend/internal/domain/identity"
	"github.com/myfin/backend/internal/domain/partner"
	"github.com/myfin/backend/internal/domain/shared"
	"github.com/myfin/backend/internal/domain/tenant"
	"github.com/myfin/backend/internal/infrastructure/docstore"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func seedStore(t *testing.T) docstore.Store {
	t.Helper()
	ctx := context.Background()
	store := docstore.NewMemoryStore()

	require.NoError(t, store.Set(ctx, tenant.Collection, "c1", &tenant.Company{ID: "c1", Name: "Acme Sdn Bhd"}))
	require.NoError(t, store.Set(ctx, tenant.Collection, "c2", &tenant.Company{ID: "c2", Name: "Beta Ltd"}))
	require.NoError(t, store.Set(ctx, identity.Collection, "u1", &identity.User{ID: "u1", Username: "alice", Role: identity.RoleCompanyAdmin, CompanyID: "c1"}))
	require.NoError(t, store.Set(ctx, identity.Collection, "u2", &identity.User{ID: "u2", Username: "bob", Role: identity.RoleCompanyUser, CompanyID: "c2"}))
	require.NoError(t, store.Set(ctx, partner.Collection, "cl1", &partner.Client{ID: "cl1", CompanyID: "c1", Name: "Client One"}))
	require.NoError(t, store.Set(ctx, partner.Collection, "cl2", &partner.Client{ID: "cl2", CompanyID: "c2", Name: "Client Two"}))
	require.NoError(t, store.Set(ctx, document.Collection, "t1", &document.Transaction{ID: "t1", CompanyID: "c1", Type: document.TypeQuote, Number: "QT-000001"}))
	return store
}

func TestCompanyBoundSession(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)

	admin := identity.Principal{UserID: "u1", Username: "alice", Role: identity.RoleCompanyAdmin, CompanyID: "c1"}
	s, err := Open(ctx, store, admin, zap.NewNop())
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, "c1", s.ActiveTenant())

	t.Run("mirrors fill with own-tenant data only", func(t *testing.T) {
		require.Eventually(t, func() bool {
			return len(s.Mirrors().Companies()) == 1 && len(s.Mirrors().Clients()) == 1
		}, waitFor, tick)

		assert.Equal(t, "Acme Sdn Bhd", s.Mirrors().Companies()[0].Name)
		assert.Equal(t, "Client One", s.Mirrors().Clients()[0].Name)
		assert.Equal(t, "Acme Sdn Bhd", s.ActiveTenantName())
	})

	t.Run("company admin replicates own-company users", func(t *testing.T) {
		require.Eventually(t, func() bool {
			return len(s.Mirrors().Users()) == 1
		}, waitFor, tick)
		assert.Equal(t, "alice", s.Mirrors().Users()[0].Username)
	})

	t.Run("cannot select another tenant", func(t *testing.T) {
		_, err := s.SelectTenant("c2")
		assert.ErrorIs(t, err, shared.ErrAccessDenied)
	})

	t.Run("reselecting own tenant is a no-op", func(t *testing.T) {
		prev, err := s.SelectTenant("c1")
		require.NoError(t, err)
		assert.Equal(t, "c1", prev)
	})

	t.Run("writes flow into the mirror", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, partner.Collection, "cl3", &partner.Client{ID: "cl3", CompanyID: "c1", Name: "Client Three"}))
		require.Eventually(t, func() bool {
			return len(s.Mirrors().Clients()) == 2
		}, waitFor, tick)
	})
}

func TestSuperAdminSession(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)

	super := identity.Principal{UserID: "u0", Username: "root", Role: identity.RoleSuper}
	s, err := Open(ctx, store, super, zap.NewNop())
	require.NoError(t, err)
	defer s.Close()

	t.Run("starts at headquarters with global mirrors", func(t *testing.T) {
		assert.Equal(t, "", s.ActiveTenant())
		require.Eventually(t, func() bool {
			return len(s.Mirrors().Companies()) == 2 && len(s.Mirrors().Users()) == 2
		}, waitFor, tick)
		assert.Empty(t, s.Mirrors().Transactions())
		assert.Empty(t, s.Mirrors().Clients())
	})

	t.Run("selecting a tenant fills tenant mirrors", func(t *testing.T) {
		prev, err := s.SelectTenant("c1")
		require.NoError(t, err)
		assert.Equal(t, "", prev)

		require.Eventually(t, func() bool {
			return len(s.Mirrors().Transactions()) == 1 && len(s.Mirrors().Clients()) == 1
		}, waitFor, tick)
		assert.Equal(t, "QT-000001", s.Mirrors().Transactions()[0].Number)
	})

	t.Run("switching tenants replaces the mirrors", func(t *testing.T) {
		prev, err := s.SelectTenant("c2")
		require.NoError(t, err)
		assert.Equal(t, "c1", prev)

		require.Eventually(t, func() bool {
			clients := s.Mirrors().Clients()
			return len(clients) == 1 && clients[0].ID == "cl2"
		}, waitFor, tick)
		assert.Empty(t, s.Mirrors().Transactions())
	})

	t.Run("returning to headquarters clears tenant mirrors", func(t *testing.T) {
		prev, err := s.SelectTenant("")
		require.NoError(t, err)
		assert.Equal(t, "c2", prev)

		require.Eventually(t, func() bool {
			return len(s.Mirrors().Clients()) == 0 && len(s.Mirrors().Transactions()) == 0
		}, waitFor, tick)
		// Principal feeds stay up at headquarters.
		assert.Len(t, s.Mirrors().Companies(), 2)
	})
}

func TestTenantFeedsOutliveSwitchingCall(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)

	super := identity.Principal{UserID: "u0", Username: "root", Role: identity.RoleSuper}
	s, err := Open(ctx, store, super, zap.NewNop())
	require.NoError(t, err)
	defer s.Close()

	_, err = s.SelectTenant("c1")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return len(s.Mirrors().Clients()) == 1
	}, waitFor, tick)

	// Feeds opened by the switch are bound to the session, not to the
	// call that triggered it: a write made well after the switch
	// returned must still replicate.
	require.NoError(t, store.Set(ctx, partner.Collection, "cl7",
		&partner.Client{ID: "cl7", CompanyID: "c1", Name: "Client Seven"}))
	require.Eventually(t, func() bool {
		return len(s.Mirrors().Clients()) == 2
	}, waitFor, tick)
}

func TestPlainUserReplicatesNoUsers(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)

	user := identity.Principal{UserID: "u2", Username: "bob", Role: identity.RoleCompanyUser, CompanyID: "c2"}
	s, err := Open(ctx, store, user, zap.NewNop())
	require.NoError(t, err)
	defer s.Close()

	require.Eventually(t, func() bool {
		return len(s.Mirrors().Companies()) == 1
	}, waitFor, tick)
	assert.Empty(t, s.Mirrors().Users())
}

func TestSessionOpenRequiresCompany(t *testing.T) {
	store := seedStore(t)
	orphan := identity.Principal{UserID: "u9", Username: "orphan", Role: identity.RoleCompanyUser}
	_, err := Open(context.Background(), store, orphan, zap.NewNop())
	assert.ErrorIs(t, err, shared.ErrNoActiveCompany)
}

func TestMirrorsWatch(t *testing.T) {
	m := NewMirrors()

	w1, cancel1 := m.Watch()
	w2, cancel2 := m.Watch()
	defer cancel2()

	m.SetClients([]partner.Client{{ID: "cl1"}})
	m.SetClients([]partner.Client{{ID: "cl1"}, {ID: "cl2"}})

	// Every watcher gets its own signal; one consuming it does not
	// starve the other.
	for i, w := range []<-chan struct{}{w1, w2} {
		select {
		case <-w:
		default:
			t.Fatalf("watcher %d missed the change signal", i+1)
		}
	}

	// Bursts coalesce into a single pending signal per watcher.
	select {
	case <-w1:
		t.Fatal("expected no second signal")
	default:
	}

	// A cancelled watcher stops receiving signals.
	cancel1()
	m.SetClients(nil)
	select {
	case <-w1:
		t.Fatal("cancelled watcher still signalled")
	default:
	}
	select {
	case <-w2:
	default:
		t.Fatal("live watcher missed the change signal")
	}
}

func TestManager(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)
	m := NewManager(store, zap.NewNop())

	admin := identity.Principal{UserID: "u1", Username: "alice", Role: identity.RoleCompanyAdmin, CompanyID: "c1"}

	s1, err := m.Acquire(ctx, admin)
	require.NoError(t, err)
	s2, err := m.Acquire(ctx, admin)
	require.NoError(t, err)
	assert.Same(t, s1, s2, "one session per user")

	m.Release("u1")
	s3, err := m.Acquire(ctx, admin)
	require.NoError(t, err)
	assert.NotSame(t, s1, s3)

	m.CloseAll()
}

func TestPrincipalDeletionEndsSession(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)

	admin := identity.Principal{UserID: "u1", Username: "alice", Role: identity.RoleCompanyAdmin, CompanyID: "c1"}
	s, err := Open(ctx, store, admin, zap.NewNop())
	require.NoError(t, err)
	defer s.Close()

	// Wait for the self watch to observe the live account first.
	require.Eventually(t, func() bool {
		return len(s.Mirrors().Users()) == 1
	}, waitFor, tick)

	require.NoError(t, store.Delete(ctx, identity.Collection, "u1"))
	require.Eventually(t, s.Closed, waitFor, tick)
}

func TestPrincipalDemotionRebindsSession(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)

	admin := identity.Principal{UserID: "u1", Username: "alice", Role: identity.RoleCompanyAdmin, CompanyID: "c1"}
	s, err := Open(ctx, store, admin, zap.NewNop())
	require.NoError(t, err)
	defer s.Close()

	require.Eventually(t, func() bool {
		return len(s.Mirrors().Users()) == 1
	}, waitFor, tick)

	require.NoError(t, store.Set(ctx, identity.Collection, "u1",
		&identity.User{ID: "u1", Username: "alice", Role: identity.RoleCompanyUser, CompanyID: "c1"}))

	// A plain user replicates no user records.
	require.Eventually(t, func() bool {
		return s.Principal().Role == identity.RoleCompanyUser && len(s.Mirrors().Users()) == 0
	}, waitFor, tick)
	assert.False(t, s.Closed())
	assert.Equal(t, "c1", s.ActiveTenant())
}

func TestSessionCloseIdempotent(t *testing.T) {
	store := seedStore(t)
	admin := identity.Principal{UserID: "u1", Username: "alice", Role: identity.RoleCompanyAdmin, CompanyID: "c1"}
	s, err := Open(context.Background(), store, admin, zap.NewNop())
	require.NoError(t, err)
	s.Close()
	s.Close()
}
