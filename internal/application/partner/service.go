// Package partner manages the clients and suppliers documents are
// billed against.
package partner

import (
	"context"

	"github.com/myfin/backend/internal/application/audit"
	"github.com/myfin/backend/internal/domain/identity"
	"github.com/myfin/backend/internal/domain/partner"
	"github.com/myfin/backend/internal/domain/shared"
	"github.com/myfin/backend/internal/infrastructure/docstore"
)

// Service handles client and supplier operations
type Service struct {
	store docstore.Store
	audit *audit.Writer
}

// NewService creates a partner service
func NewService(store docstore.Store, audit *audit.Writer) *Service {
	return &Service{store: store, audit: audit}
}

// Create registers a client or supplier under the active tenant
func (s *Service) Create(ctx context.Context, p identity.Principal, companyID, companyName, name, phone string, partyType partner.PartyType) (*partner.Client, error) {
	client, err := partner.NewClient(companyID, name, partyType)
	if err != nil {
		return nil, err
	}
	client.Phone = phone

	if _, err := s.store.Create(ctx, partner.Collection, client); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, "Created "+string(partyType), client.Name, p.Username, companyID, companyName)
	return client, nil
}

// scoped loads a client and enforces the tenant scope. An empty scope
// is the super admin's headquarters view; a cross-tenant id reads as
// not found so record existence does not leak.
func (s *Service) scoped(ctx context.Context, scope, id string) (*partner.Client, error) {
	var client partner.Client
	if err := s.store.FindByID(ctx, partner.Collection, id, &client); err != nil {
		return nil, err
	}
	if scope != "" && client.CompanyID != scope {
		return nil, shared.ErrNotFound
	}
	return &client, nil
}

// Update replaces a stored client within the tenant scope
func (s *Service) Update(ctx context.Context, scope string, client *partner.Client) error {
	existing, err := s.scoped(ctx, scope, client.ID)
	if err != nil {
		return err
	}
	// A client never moves between tenants on update.
	client.CompanyID = existing.CompanyID
	return s.store.Set(ctx, partner.Collection, client.ID, client)
}

// Delete removes a client. Only admins may hard-delete records, and
// only within the tenant scope.
func (s *Service) Delete(ctx context.Context, p identity.Principal, scope, companyName, id string) error {
	if !p.Role.Can(identity.CapDeleteRecord) {
		return shared.ErrAccessDenied
	}
	client, err := s.scoped(ctx, scope, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, partner.Collection, id); err != nil {
		return err
	}
	s.audit.Record(ctx, "Deleted "+string(client.Type), client.Name, p.Username, client.CompanyID, companyName)
	return nil
}

// Get loads one client within the tenant scope
func (s *Service) Get(ctx context.Context, scope, id string) (*partner.Client, error) {
	return s.scoped(ctx, scope, id)
}

// List returns the clients of a tenant
func (s *Service) List(ctx context.Context, companyID string) ([]partner.Client, error) {
	var clients []partner.Client
	if err := s.store.Find(ctx, partner.Collection, map[string]any{"company_id": companyID}, &clients); err != nil {
		return nil, err
	}
	return clients, nil
}
