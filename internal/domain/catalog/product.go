package catalog

import (
	"strings"

	"github.com/google/uuid"
	"github.com/myfin/backend/internal/domain/shared"
)

// Collection is the document store collection for products
const Collection = "products"

// StockField is the document field targeted by atomic stock decrements
const StockField = "stock"

// Variant is a sellable variation of a product carrying its own
// price, cost and stock level.
type Variant struct {
	Name  string  `bson:"name" json:"name"`
	Price float64 `bson:"price" json:"price"`
	Cost  float64 `bson:"cost" json:"cost"`
	Stock float64 `bson:"stock" json:"stock"`
}

// Product is a stocked item scoped to one company. A product either
// carries root-level price/cost/stock, or a list of variants each with
// their own figures.
//
// Stock on simple products is adjusted with the store's atomic field
// decrement. Variant stock lives inside the variants array and is
// adjusted by re-saving the whole document, which can lose concurrent
// updates; that gap is inherited from the store's lack of atomic
// array-element updates and is deliberately not papered over.
type Product struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	CompanyID string    `bson:"company_id" json:"company_id"`
	Name      string    `bson:"name" json:"name"`
	Price     float64   `bson:"price" json:"price"`
	Cost      float64   `bson:"cost" json:"cost"`
	Stock     float64   `bson:"stock" json:"stock"`
	Variants  []Variant `bson:"variants,omitempty" json:"variants,omitempty"`
}

// NewProduct creates a product bound to the given company
func NewProduct(companyID, name string) (*Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewValidationError("name", "cannot be empty")
	}
	if companyID == "" {
		return nil, shared.ErrNoActiveCompany
	}
	return &Product{
		ID:        uuid.NewString(),
		CompanyID: companyID,
		Name:      name,
	}, nil
}

// HasVariants reports whether stock is tracked per variant
func (p *Product) HasVariants() bool {
	return len(p.Variants) > 0
}

// FindVariant returns the variant with the given name, or nil
func (p *Product) FindVariant(name string) *Variant {
	for i := range p.Variants {
		if p.Variants[i].Name == name {
			return &p.Variants[i]
		}
	}
	return nil
}
