package tenant

import (
	"strings"

	"github.com/google/uuid"
	"github.com/myfin/backend/internal/domain/shared"
)

// Collection is the document store collection for companies
const Collection = "companies"

// Preferences holds per-company display settings
type Preferences struct {
	Theme       string `bson:"theme" json:"theme"`
	DocTemplate string `bson:"doc_template" json:"doc_template"`
}

// DefaultPreferences returns the preferences applied to a new company
func DefaultPreferences() Preferences {
	return Preferences{Theme: "light", DocTemplate: "clean"}
}

// Company is the tenant: the isolation boundary for all business data
type Company struct {
	ID          string      `bson:"_id,omitempty" json:"id"`
	Name        string      `bson:"name" json:"name"`
	RegNo       string      `bson:"reg_no,omitempty" json:"reg_no,omitempty"`
	Phone       string      `bson:"phone,omitempty" json:"phone,omitempty"`
	Address     string      `bson:"address,omitempty" json:"address,omitempty"`
	BankName    string      `bson:"bank_name,omitempty" json:"bank_name,omitempty"`
	AccountNo   string      `bson:"account_no,omitempty" json:"account_no,omitempty"`
	Preferences Preferences `bson:"preferences" json:"preferences"`
}

// NewCompany creates a company with default preferences
func NewCompany(name string) (*Company, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewValidationError("name", "cannot be empty")
	}
	return &Company{
		ID:          uuid.NewString(),
		Name:        name,
		Preferences: DefaultPreferences(),
	}, nil
}

// UpdatePreferences replaces the company preferences
func (c *Company) UpdatePreferences(prefs Preferences) {
	c.Preferences = prefs
}
