// Package tenant manages companies, the tenant boundary every other
// record is scoped to.
package tenant

import (
	"context"

	"github.com/myfin/backend/internal/application/audit"
	"github.com/myfin/backend/internal/domain/activity"
	"github.com/myfin/backend/internal/domain/catalog"
	"github.com/myfin/backend/internal/domain/document"
	"github.com/myfin/backend/internal/domain/identity"
	"github.com/myfin/backend/internal/domain/partner"
	"github.com/myfin/backend/internal/domain/shared"
	"github.com/myfin/backend/internal/domain/tenant"
	"github.com/myfin/backend/internal/infrastructure/docstore"
	"go.uber.org/zap"
)

// Service handles company management. Creating, updating and deleting
// companies is restricted to super admins.
type Service struct {
	store  docstore.Store
	audit  *audit.Writer
	logger *zap.Logger
}

// NewService creates a tenant service
func NewService(store docstore.Store, audit *audit.Writer, logger *zap.Logger) *Service {
	return &Service{store: store, audit: audit, logger: logger}
}

// Create registers a new company
func (s *Service) Create(ctx context.Context, p identity.Principal, company *tenant.Company) (*tenant.Company, error) {
	if !p.Role.Can(identity.CapManageCompanies) {
		return nil, shared.ErrAccessDenied
	}
	created, err := tenant.NewCompany(company.Name)
	if err != nil {
		return nil, err
	}
	created.RegNo = company.RegNo
	created.Phone = company.Phone
	created.Address = company.Address
	created.BankName = company.BankName
	created.AccountNo = company.AccountNo
	if company.Preferences != (tenant.Preferences{}) {
		created.Preferences = company.Preferences
	}

	if _, err := s.store.Create(ctx, tenant.Collection, created); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, "Created Company", created.Name, p.Username, created.ID, created.Name)
	return created, nil
}

// Update replaces a company's stored profile
func (s *Service) Update(ctx context.Context, p identity.Principal, company *tenant.Company) error {
	if !p.Role.Can(identity.CapManageCompanies) {
		return shared.ErrAccessDenied
	}
	var existing tenant.Company
	if err := s.store.FindByID(ctx, tenant.Collection, company.ID, &existing); err != nil {
		return err
	}
	if err := s.store.Set(ctx, tenant.Collection, company.ID, company); err != nil {
		return err
	}
	s.audit.Record(ctx, "Updated Company", company.Name, p.Username, company.ID, company.Name)
	return nil
}

// UpdatePreferences stores the company's theme and document template.
// Unlike profile updates, tenant members may change their own company's
// preferences.
func (s *Service) UpdatePreferences(ctx context.Context, p identity.Principal, companyID string, prefs tenant.Preferences) error {
	if !p.IsSuper() && p.CompanyID != companyID {
		return shared.ErrAccessDenied
	}
	var company tenant.Company
	if err := s.store.FindByID(ctx, tenant.Collection, companyID, &company); err != nil {
		return err
	}
	company.UpdatePreferences(prefs)
	return s.store.Set(ctx, tenant.Collection, companyID, &company)
}

// Get loads one company
func (s *Service) Get(ctx context.Context, id string) (*tenant.Company, error) {
	var company tenant.Company
	if err := s.store.FindByID(ctx, tenant.Collection, id, &company); err != nil {
		return nil, err
	}
	return &company, nil
}

// List returns the companies visible to the principal: all of them for
// a super admin, only their own for everyone else.
func (s *Service) List(ctx context.Context, p identity.Principal) ([]tenant.Company, error) {
	filter := map[string]any{}
	if !p.Role.Can(identity.CapSelectAnyTenant) {
		if p.CompanyID == "" {
			return nil, shared.ErrNoActiveCompany
		}
		filter["_id"] = p.CompanyID
	}
	var companies []tenant.Company
	if err := s.store.Find(ctx, tenant.Collection, filter, &companies); err != nil {
		return nil, err
	}
	return companies, nil
}

// Delete removes a company and cascades over its dependent records:
// clients, products, transactions and activity entries all go with it.
func (s *Service) Delete(ctx context.Context, p identity.Principal, id string) error {
	if !p.Role.Can(identity.CapManageCompanies) {
		return shared.ErrAccessDenied
	}
	var company tenant.Company
	if err := s.store.FindByID(ctx, tenant.Collection, id, &company); err != nil {
		return err
	}

	cascades := []string{
		partner.Collection,
		catalog.Collection,
		document.Collection,
		activity.Collection,
	}
	for _, collection := range cascades {
		if err := s.deleteByCompany(ctx, collection, id); err != nil {
			return err
		}
	}
	if err := s.store.Delete(ctx, tenant.Collection, id); err != nil {
		return err
	}

	s.logger.Info("company deleted with cascade",
		zap.String("company_id", id), zap.String("name", company.Name))
	s.audit.Record(ctx, "Deleted Company", company.Name, p.Username, "", "")
	return nil
}

func (s *Service) deleteByCompany(ctx context.Context, collection, companyID string) error {
	var refs []struct {
		ID string `bson:"_id"`
	}
	if err := s.store.Find(ctx, collection, map[string]any{"company_id": companyID}, &refs); err != nil {
		return err
	}
	for _, ref := range refs {
		if err := s.store.Delete(ctx, collection, ref.ID); err != nil {
			return err
		}
	}
	return nil
}
