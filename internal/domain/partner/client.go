package partner

import (
	"strings"

	"github.com/google/uuid"
	"github.com/myfin/backend/internal/domain/shared"
)

// Collection is the document store collection for clients
const Collection = "clients"

// PartyType distinguishes billable clients from suppliers
type PartyType string

const (
	PartyClient   PartyType = "Client"
	PartySupplier PartyType = "Supplier"
)

// Client is a party a document can be billed to or paid from,
// always scoped to one company.
type Client struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	CompanyID string    `bson:"company_id" json:"company_id"`
	Name      string    `bson:"name" json:"name"`
	Phone     string    `bson:"phone,omitempty" json:"phone,omitempty"`
	Type      PartyType `bson:"type" json:"type"`
}

// NewClient creates a client bound to the given company
func NewClient(companyID, name string, partyType PartyType) (*Client, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewValidationError("name", "cannot be empty")
	}
	if companyID == "" {
		return nil, shared.ErrNoActiveCompany
	}
	if partyType == "" {
		partyType = PartyClient
	}
	return &Client{
		ID:        uuid.NewString(),
		CompanyID: companyID,
		Name:      name,
		Type:      partyType,
	}, nil
}
