// Package inventory manages the product catalog and stock levels.
package inventory

import (
	"context"

	"github.com/myfin/backend/internal/domain/catalog"
	"github.com/myfin/backend/internal/domain/document"
	"github.com/myfin/backend/internal/domain/shared"
	"github.com/myfin/backend/internal/infrastructure/docstore"
	"go.uber.org/zap"
)

// Service handles product catalog operations and stock deduction
type Service struct {
	store  docstore.Store
	logger *zap.Logger
}

// NewService creates an inventory service
func NewService(store docstore.Store, logger *zap.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Create adds a product to the active tenant's catalog
func (s *Service) Create(ctx context.Context, companyID, name string, price, cost, stock float64, variants []catalog.Variant) (*catalog.Product, error) {
	product, err := catalog.NewProduct(companyID, name)
	if err != nil {
		return nil, err
	}
	product.Price = price
	product.Cost = cost
	product.Stock = stock
	product.Variants = variants

	id, err := s.store.Create(ctx, catalog.Collection, product)
	if err != nil {
		return nil, err
	}
	product.ID = id
	return product, nil
}

// scoped loads a product and enforces the tenant scope. An empty scope
// is the super admin's headquarters view; a cross-tenant id reads as
// not found so record existence does not leak.
func (s *Service) scoped(ctx context.Context, scope, id string) (*catalog.Product, error) {
	var product catalog.Product
	if err := s.store.FindByID(ctx, catalog.Collection, id, &product); err != nil {
		return nil, err
	}
	if scope != "" && product.CompanyID != scope {
		return nil, shared.ErrNotFound
	}
	return &product, nil
}

// Update replaces the stored product with the given state
func (s *Service) Update(ctx context.Context, scope string, product *catalog.Product) error {
	if product.ID == "" {
		return shared.ErrNotFound
	}
	existing, err := s.scoped(ctx, scope, product.ID)
	if err != nil {
		return err
	}
	// A product never moves between tenants on update.
	product.CompanyID = existing.CompanyID
	return s.store.Set(ctx, catalog.Collection, product.ID, product)
}

// Delete removes a product from the catalog within the tenant scope
func (s *Service) Delete(ctx context.Context, scope, id string) error {
	if _, err := s.scoped(ctx, scope, id); err != nil {
		return err
	}
	return s.store.Delete(ctx, catalog.Collection, id)
}

// Get loads one product within the tenant scope
func (s *Service) Get(ctx context.Context, scope, id string) (*catalog.Product, error) {
	return s.scoped(ctx, scope, id)
}

// List returns the products of a tenant
func (s *Service) List(ctx context.Context, companyID string) ([]catalog.Product, error) {
	var products []catalog.Product
	if err := s.store.Find(ctx, catalog.Collection, map[string]any{"company_id": companyID}, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// DeductStock decrements stock for every product-linked line of a
// completed sale. Simple products use the store's atomic increment;
// variant stock goes through read-modify-write, which can lose updates
// under concurrent sales of the same variant.
func (s *Service) DeductStock(ctx context.Context, items []document.LineItem) error {
	for _, item := range items {
		if item.ProductID == "" {
			continue
		}
		if item.Variant == "" {
			if err := s.store.Increment(ctx, catalog.Collection, item.ProductID, catalog.StockField, -item.Qty); err != nil {
				return err
			}
			continue
		}
		if err := s.deductVariant(ctx, item.ProductID, item.Variant, item.Qty); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) deductVariant(ctx context.Context, productID, variantName string, qty float64) error {
	var product catalog.Product
	if err := s.store.FindByID(ctx, catalog.Collection, productID, &product); err != nil {
		return err
	}
	variant := product.FindVariant(variantName)
	if variant == nil {
		s.logger.Warn("stock deduction skipped, variant not found",
			zap.String("product_id", productID),
			zap.String("variant", variantName))
		return nil
	}
	variant.Stock -= qty
	return s.store.Set(ctx, catalog.Collection, productID, &product)
}
