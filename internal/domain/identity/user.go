package identity

import (
	"strings"

	"github.com/google/uuid"
	"github.com/myfin/backend/internal/domain/shared"
)

// Collection is the document store collection for users
const Collection = "users"

// Role represents the access level of a user
type Role string

const (
	RoleSuper        Role = "super"
	RoleCompanyAdmin Role = "company_admin"
	RoleCompanyUser  Role = "company_user"
)

// IsValid reports whether the role is a known role
func (r Role) IsValid() bool {
	switch r {
	case RoleSuper, RoleCompanyAdmin, RoleCompanyUser:
		return true
	}
	return false
}

// Capability names an action that requires authorization. All mutating
// entry points consult Can exactly once; there are no ad hoc role checks
// at call sites.
type Capability string

const (
	// CapDeleteRecord guards hard deletes of transactions, products and clients
	CapDeleteRecord Capability = "delete_record"
	// CapManageUsers guards user create/update/delete
	CapManageUsers Capability = "manage_users"
	// CapManageCompanies guards company create/update/delete
	CapManageCompanies Capability = "manage_companies"
	// CapSelectAnyTenant allows switching the active company freely
	CapSelectAnyTenant Capability = "select_any_tenant"
)

// Can is the single capability check consulted by every mutating operation
func (r Role) Can(c Capability) bool {
	switch c {
	case CapDeleteRecord:
		return r == RoleSuper || r == RoleCompanyAdmin
	case CapManageUsers:
		return r == RoleSuper || r == RoleCompanyAdmin
	case CapManageCompanies, CapSelectAnyTenant:
		return r == RoleSuper
	}
	return false
}

// User represents an authenticated account. CompanyID is empty for super
// users, who are not bound to a single tenant.
type User struct {
	ID           string `bson:"_id,omitempty" json:"id"`
	Username     string `bson:"username" json:"username"`
	Email        string `bson:"email" json:"email"`
	PasswordHash string `bson:"password_hash" json:"-"`
	Role         Role   `bson:"role" json:"role"`
	CompanyID    string `bson:"company_id,omitempty" json:"company_id,omitempty"`
}

// NewUser creates a user profile. The password hash is supplied by the
// identity service; the domain never sees plaintext credentials.
func NewUser(username, email, passwordHash string, role Role, companyID string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, shared.NewValidationError("username", "cannot be empty")
	}
	if !role.IsValid() {
		return nil, shared.NewValidationError("role", "unknown role")
	}
	if role != RoleSuper && companyID == "" {
		return nil, shared.NewValidationError("company_id", "required for company-bound roles")
	}
	return &User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        strings.TrimSpace(email),
		PasswordHash: passwordHash,
		Role:         role,
		CompanyID:    companyID,
	}, nil
}

// Principal is the authenticated actor carried through a session
type Principal struct {
	UserID    string
	Username  string
	Role      Role
	CompanyID string
}

// Principal derives the principal view of the user
func (u *User) Principal() Principal {
	return Principal{
		UserID:    u.ID,
		Username:  u.Username,
		Role:      u.Role,
		CompanyID: u.CompanyID,
	}
}

// IsSuper reports whether the principal has the unrestricted role
func (p Principal) IsSuper() bool {
	return p.Role == RoleSuper
}
