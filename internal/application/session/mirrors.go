// Package session maintains a signed-in user's live view of the data
// they are allowed to see: which tenant is active, and local mirrors of
// every replicated collection.
package session

import (
	"sync"

	"github.com/myfin/backend/internal/domain/activity"
	"github.com/myfin/backend/internal/domain/catalog"
	"github.com/myfin/backend/internal/domain/document"
	"github.com/myfin/backend/internal/domain/identity"
	"github.com/myfin/backend/internal/domain/partner"
	"github.com/myfin/backend/internal/domain/tenant"
)

// Mirrors holds the local replicas of the replicated collections. Each
// incoming snapshot replaces its collection's mirror wholesale; mirrors
// are never patched incrementally.
type Mirrors struct {
	mu           sync.RWMutex
	companies    []tenant.Company
	users        []identity.User
	transactions []document.Transaction
	clients      []partner.Client
	products     []catalog.Product
	activities   []activity.Activity

	watchers map[chan struct{}]struct{}
}

// NewMirrors creates empty mirrors
func NewMirrors() *Mirrors {
	return &Mirrors{watchers: make(map[chan struct{}]struct{})}
}

// Watch registers a change watcher. Every watcher gets its own signal
// channel, so concurrent consumers never steal each other's wake-ups.
// Signals coalesce per watcher: a slow consumer sees at least one
// signal for any burst of changes. The returned cancel func removes
// the watcher.
func (m *Mirrors) Watch() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	m.mu.Lock()
	m.watchers[ch] = struct{}{}
	m.mu.Unlock()
	cancel := func() {
		m.mu.Lock()
		delete(m.watchers, ch)
		m.mu.Unlock()
	}
	return ch, cancel
}

func (m *Mirrors) notify() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for ch := range m.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// SetCompanies replaces the companies mirror
func (m *Mirrors) SetCompanies(docs []tenant.Company) {
	m.mu.Lock()
	m.companies = docs
	m.mu.Unlock()
	m.notify()
}

// SetUsers replaces the users mirror
func (m *Mirrors) SetUsers(docs []identity.User) {
	m.mu.Lock()
	m.users = docs
	m.mu.Unlock()
	m.notify()
}

// SetTransactions replaces the transactions mirror
func (m *Mirrors) SetTransactions(docs []document.Transaction) {
	m.mu.Lock()
	m.transactions = docs
	m.mu.Unlock()
	m.notify()
}

// SetClients replaces the clients mirror
func (m *Mirrors) SetClients(docs []partner.Client) {
	m.mu.Lock()
	m.clients = docs
	m.mu.Unlock()
	m.notify()
}

// SetProducts replaces the products mirror
func (m *Mirrors) SetProducts(docs []catalog.Product) {
	m.mu.Lock()
	m.products = docs
	m.mu.Unlock()
	m.notify()
}

// SetActivities replaces the activities mirror
func (m *Mirrors) SetActivities(docs []activity.Activity) {
	m.mu.Lock()
	m.activities = docs
	m.mu.Unlock()
	m.notify()
}

// ClearTenantData empties the tenant-scoped mirrors, leaving the
// principal-scoped companies and users mirrors in place.
func (m *Mirrors) ClearTenantData() {
	m.mu.Lock()
	m.transactions = nil
	m.clients = nil
	m.products = nil
	m.activities = nil
	m.mu.Unlock()
	m.notify()
}

// Companies returns a copy of the companies mirror
func (m *Mirrors) Companies() []tenant.Company {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]tenant.Company(nil), m.companies...)
}

// Users returns a copy of the users mirror
func (m *Mirrors) Users() []identity.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]identity.User(nil), m.users...)
}

// Transactions returns a copy of the transactions mirror
func (m *Mirrors) Transactions() []document.Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]document.Transaction(nil), m.transactions...)
}

// Clients returns a copy of the clients mirror
func (m *Mirrors) Clients() []partner.Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]partner.Client(nil), m.clients...)
}

// Products returns a copy of the products mirror
func (m *Mirrors) Products() []catalog.Product {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]catalog.Product(nil), m.products...)
}

// Activities returns a copy of the activities mirror
func (m *Mirrors) Activities() []activity.Activity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]activity.Activity(nil), m.activities...)
}

// CompanyName resolves a company id against the mirror, empty when the
// company is not visible.
func (m *Mirrors) CompanyName(id string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.companies {
		if c.ID == id {
			return c.Name
		}
	}
	return ""
}
