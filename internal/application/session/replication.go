package session

import (
	"context"
	"sync"

	"github.com/myfin/backend/internal/domain/activity"
	"github.com/myfin/backend/internal/domain/catalog"
	"github.com/myfin/backend/internal/domain/document"
	"github.com/myfin/backend/internal/domain/identity"
	"github.com/myfin/backend/internal/domain/partner"
	"github.com/myfin/backend/internal/domain/tenant"
	"github.com/myfin/backend/internal/infrastructure/docstore"
	"go.uber.org/zap"
)

// feedSpec binds one subscription query to the mirror it feeds
type feedSpec struct {
	query docstore.Query
	apply func(m *Mirrors, snap docstore.Snapshot) error
}

// feed is one running subscription
type feed struct {
	sub  docstore.Subscription
	done chan struct{}
}

// Replication keeps a session's mirrors in sync with the store. It runs
// two feed groups: principal feeds (companies, users) fixed for the
// session's lifetime, and tenant feeds reopened on every tenant switch.
type Replication struct {
	store   docstore.Store
	mirrors *Mirrors
	logger  *zap.Logger

	mu             sync.Mutex
	principalFeeds []*feed
	tenantFeeds    []*feed
}

// NewReplication creates a replication manager for the given mirrors
func NewReplication(store docstore.Store, mirrors *Mirrors, logger *zap.Logger) *Replication {
	return &Replication{store: store, mirrors: mirrors, logger: logger}
}

// OpenPrincipalFeeds starts the role-scoped companies and users feeds,
// replacing any already running. Super admins replicate everything;
// company admins their own company and its users; plain users only
// their own company record, with the users mirror left empty.
func (r *Replication) OpenPrincipalFeeds(ctx context.Context, p identity.Principal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closeLocked(r.principalFeeds)
	r.principalFeeds = nil

	specs := []feedSpec{companyFeed(p)}
	if userSpec, ok := userFeed(p); ok {
		specs = append(specs, userSpec)
	} else {
		r.mirrors.SetUsers(nil)
	}

	feeds, err := r.startLocked(ctx, specs)
	if err != nil {
		return err
	}
	r.principalFeeds = feeds
	return nil
}

// OpenTenantFeeds replaces the tenant feeds with feeds scoped to the
// given company. An empty tenant closes the feeds and leaves the tenant
// mirrors empty.
func (r *Replication) OpenTenantFeeds(ctx context.Context, tenantID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closeLocked(r.tenantFeeds)
	r.tenantFeeds = nil
	r.mirrors.ClearTenantData()

	if tenantID == "" {
		return nil
	}

	specs := tenantFeeds(tenantID)
	feeds, err := r.startLocked(ctx, specs)
	if err != nil {
		return err
	}
	r.tenantFeeds = feeds
	return nil
}

// Close stops every feed; it is idempotent
func (r *Replication) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closeLocked(r.principalFeeds)
	r.closeLocked(r.tenantFeeds)
	r.principalFeeds = nil
	r.tenantFeeds = nil
}

func (r *Replication) startLocked(ctx context.Context, specs []feedSpec) ([]*feed, error) {
	feeds := make([]*feed, 0, len(specs))
	for _, spec := range specs {
		sub, err := r.store.Subscribe(ctx, spec.query)
		if err != nil {
			r.closeLocked(feeds)
			return nil, err
		}
		f := &feed{sub: sub, done: make(chan struct{})}
		feeds = append(feeds, f)
		go r.pump(f, spec)
	}
	return feeds, nil
}

func (r *Replication) closeLocked(feeds []*feed) {
	for _, f := range feeds {
		f.sub.Close()
		<-f.done
	}
}

// pump applies snapshots to the mirror. Seq strictly increases per
// subscription; the guard keeps a stale snapshot from clobbering a
// newer mirror state.
func (r *Replication) pump(f *feed, spec feedSpec) {
	defer close(f.done)
	var lastSeq uint64
	for snap := range f.sub.Snapshots() {
		if snap.Seq <= lastSeq {
			continue
		}
		lastSeq = snap.Seq
		if err := spec.apply(r.mirrors, snap); err != nil {
			r.logger.Warn("failed to apply snapshot",
				zap.String("collection", spec.query.Collection),
				zap.Uint64("seq", snap.Seq),
				zap.Error(err))
		}
	}
}

func companyFeed(p identity.Principal) feedSpec {
	query := docstore.Query{Collection: tenant.Collection}
	if !p.Role.Can(identity.CapSelectAnyTenant) {
		query.Filter = map[string]any{"_id": p.CompanyID}
	}
	return feedSpec{
		query: query,
		apply: func(m *Mirrors, snap docstore.Snapshot) error {
			docs, err := docstore.DecodeAll[tenant.Company](snap)
			if err != nil {
				return err
			}
			m.SetCompanies(docs)
			return nil
		},
	}
}

// userFeed returns the users feed for the role; plain users replicate
// no user records at all.
func userFeed(p identity.Principal) (feedSpec, bool) {
	query := docstore.Query{Collection: identity.Collection}
	switch {
	case p.IsSuper():
	case p.Role == identity.RoleCompanyAdmin:
		query.Filter = map[string]any{"company_id": p.CompanyID}
	default:
		return feedSpec{}, false
	}
	return feedSpec{
		query: query,
		apply: func(m *Mirrors, snap docstore.Snapshot) error {
			docs, err := docstore.DecodeAll[identity.User](snap)
			if err != nil {
				return err
			}
			m.SetUsers(docs)
			return nil
		},
	}, true
}

func tenantFeeds(tenantID string) []feedSpec {
	filter := func() map[string]any {
		return map[string]any{"company_id": tenantID}
	}
	return []feedSpec{
		{
			query: docstore.Query{Collection: document.Collection, Filter: filter()},
			apply: func(m *Mirrors, snap docstore.Snapshot) error {
				docs, err := docstore.DecodeAll[document.Transaction](snap)
				if err != nil {
					return err
				}
				m.SetTransactions(docs)
				return nil
			},
		},
		{
			query: docstore.Query{Collection: partner.Collection, Filter: filter()},
			apply: func(m *Mirrors, snap docstore.Snapshot) error {
				docs, err := docstore.DecodeAll[partner.Client](snap)
				if err != nil {
					return err
				}
				m.SetClients(docs)
				return nil
			},
		},
		{
			query: docstore.Query{Collection: catalog.Collection, Filter: filter()},
			apply: func(m *Mirrors, snap docstore.Snapshot) error {
				docs, err := docstore.DecodeAll[catalog.Product](snap)
				if err != nil {
					return err
				}
				m.SetProducts(docs)
				return nil
			},
		},
		{
			query: docstore.Query{Collection: activity.Collection, Filter: filter()},
			apply: func(m *Mirrors, snap docstore.Snapshot) error {
				docs, err := docstore.DecodeAll[activity.Activity](snap)
				if err != nil {
					return err
				}
				m.SetActivities(docs)
				return nil
			},
		},
	}
}
