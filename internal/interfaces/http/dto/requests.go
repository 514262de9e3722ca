package dto

import (
	"github.com/myfin/backend/internal/domain/catalog"
	"github.com/myfin/backend/internal/domain/document"
	"github.com/myfin/backend/internal/domain/tenant"
)

// SignInRequest is the credentials payload
type SignInRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest carries the refresh token
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// TokenResponse returns a freshly minted token pair
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// SignInResponse bundles the signed-in user with their tokens
type SignInResponse struct {
	User   UserResponse  `json:"user"`
	Tokens TokenResponse `json:"tokens"`
}

// UserResponse is the safe user projection, no credentials
type UserResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role"`
	CompanyID string `json:"company_id,omitempty"`
}

// CreateUserRequest provisions a user account
type CreateUserRequest struct {
	Username  string `json:"username" binding:"required"`
	Email     string `json:"email" binding:"omitempty,email"`
	Password  string `json:"password" binding:"required,min=8"`
	Role      string `json:"role" binding:"required,oneof=super company_admin company_user"`
	CompanyID string `json:"company_id"`
}

// UpdateProfileRequest updates the caller's own account
type UpdateProfileRequest struct {
	Email    string `json:"email" binding:"omitempty,email"`
	Password string `json:"password" binding:"omitempty,min=8"`
}

// CompanyRequest creates or updates a company
type CompanyRequest struct {
	Name      string `json:"name" binding:"required"`
	RegNo     string `json:"reg_no"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	BankName  string `json:"bank_name"`
	AccountNo string `json:"account_no"`
}

// PreferencesRequest updates a company's display preferences
type PreferencesRequest struct {
	Theme       string `json:"theme" binding:"required,oneof=light dark"`
	DocTemplate string `json:"doc_template" binding:"required"`
}

// Preferences converts the request into the domain value
func (r PreferencesRequest) Preferences() tenant.Preferences {
	return tenant.Preferences{Theme: r.Theme, DocTemplate: r.DocTemplate}
}

// ClientRequest creates or updates a client or supplier
type ClientRequest struct {
	Name  string `json:"name" binding:"required"`
	Phone string `json:"phone"`
	Type  string `json:"type" binding:"omitempty,oneof=Client Supplier"`
}

// ProductRequest creates or updates a product
type ProductRequest struct {
	Name     string            `json:"name" binding:"required"`
	Price    float64           `json:"price" binding:"gte=0"`
	Cost     float64           `json:"cost" binding:"gte=0"`
	Stock    float64           `json:"stock"`
	Variants []catalog.Variant `json:"variants" binding:"omitempty,dive"`
}

// TransactionRequest creates or updates a financial document. An empty
// ID creates; a non-empty ID updates the existing document.
type TransactionRequest struct {
	ID       string              `json:"id"`
	ClientID string              `json:"client_id"`
	Type     string              `json:"type" binding:"required"`
	Category string              `json:"category"`
	Date     string              `json:"date"`
	Status   string              `json:"status"`
	Items    []document.LineItem `json:"items" binding:"omitempty,dive"`
	TaxRate  float64             `json:"tax_rate" binding:"gte=0"`
	Notes    string              `json:"notes"`
}

// ConvertRequest confirms a quote fan-out. Confirm false previews the
// eligibility check without writing anything.
type ConvertRequest struct {
	Confirm bool `json:"confirm"`
}

// SelectTenantRequest switches the session's active company. An empty
// company id returns a super admin to the headquarters view.
type SelectTenantRequest struct {
	CompanyID string `json:"company_id"`
}
