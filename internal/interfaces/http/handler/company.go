package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apptenant "github.com/myfin/backend/internal/application/tenant"
	"github.com/myfin/backend/internal/domain/tenant"
	"github.com/myfin/backend/internal/interfaces/http/dto"
)

// CompanyHandler serves tenant management and the active-tenant switch
type CompanyHandler struct {
	BaseHandler
	tenants *apptenant.Service
}

// NewCompanyHandler creates a company handler
func NewCompanyHandler(svc *apptenant.Service, logger *zap.Logger) *CompanyHandler {
	return &CompanyHandler{BaseHandler: NewBaseHandler(logger), tenants: svc}
}

// RegisterRoutes wires the company endpoints
func (h *CompanyHandler) RegisterRoutes(rg *gin.RouterGroup) {
	companies := rg.Group("/companies")
	companies.GET("", h.List)
	companies.POST("", h.Create)
	companies.GET("/:id", h.Get)
	companies.PUT("/:id", h.Update)
	companies.PUT("/:id/preferences", h.UpdatePreferences)
	companies.DELETE("/:id", h.Delete)

	rg.GET("/session", h.SessionInfo)
	rg.POST("/session/tenant", h.SelectTenant)
}

// List returns the companies visible to the caller
func (h *CompanyHandler) List(c *gin.Context) {
	s, ok := requireSession(c)
	if !ok {
		return
	}
	companies, err := h.tenants.List(c.Request.Context(), s.Principal())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, companies)
}

// Get returns one company
func (h *CompanyHandler) Get(c *gin.Context) {
	company, err := h.tenants.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, company)
}

// Create registers a new company
func (h *CompanyHandler) Create(c *gin.Context) {
	s, ok := requireSession(c)
	if !ok {
		return
	}
	var req dto.CompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "name is required")
		return
	}

	company := companyFromRequest(req)
	created, err := h.tenants.Create(c.Request.Context(), s.Principal(), company)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, created)
}

// Update replaces a company's profile fields
func (h *CompanyHandler) Update(c *gin.Context) {
	s, ok := requireSession(c)
	if !ok {
		return
	}
	var req dto.CompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "name is required")
		return
	}

	company := companyFromRequest(req)
	company.ID = c.Param("id")
	if err := h.tenants.Update(c.Request.Context(), s.Principal(), company); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, company)
}

// UpdatePreferences stores display preferences for the company
func (h *CompanyHandler) UpdatePreferences(c *gin.Context) {
	s, ok := requireSession(c)
	if !ok {
		return
	}
	var req dto.PreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "theme and doc_template are required")
		return
	}

	if err := h.tenants.UpdatePreferences(c.Request.Context(), s.Principal(), c.Param("id"), req.Preferences()); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Delete removes a company and all its tenant data
func (h *CompanyHandler) Delete(c *gin.Context) {
	s, ok := requireSession(c)
	if !ok {
		return
	}
	id := c.Param("id")
	if err := h.tenants.Delete(c.Request.Context(), s.Principal(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	// Leaving the deleted tenant active would strand the session.
	if s.ActiveTenant() == id {
		if _, err := s.SelectTenant(""); err != nil {
			h.logger.Warn("failed to reset active tenant after delete",
				zap.String("company_id", id), zap.Error(err))
		}
	}
	h.NoContent(c)
}

// SessionInfo reports the caller's principal and active tenant
func (h *CompanyHandler) SessionInfo(c *gin.Context) {
	s, ok := requireSession(c)
	if !ok {
		return
	}
	p := s.Principal()
	h.Success(c, gin.H{
		"user": dto.UserResponse{
			ID:        p.UserID,
			Username:  p.Username,
			Role:      string(p.Role),
			CompanyID: p.CompanyID,
		},
		"active_company_id":   s.ActiveTenant(),
		"active_company_name": s.ActiveTenantName(),
	})
}

// SelectTenant switches the session's active company
func (h *CompanyHandler) SelectTenant(c *gin.Context) {
	s, ok := requireSession(c)
	if !ok {
		return
	}
	var req dto.SelectTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "invalid payload")
		return
	}

	prev, err := s.SelectTenant(req.CompanyID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{
		"active_company_id":   s.ActiveTenant(),
		"active_company_name": s.ActiveTenantName(),
		"previous_company_id": prev,
	})
}

func companyFromRequest(req dto.CompanyRequest) *tenant.Company {
	return &tenant.Company{
		Name:      req.Name,
		RegNo:     req.RegNo,
		Phone:     req.Phone,
		Address:   req.Address,
		BankName:  req.BankName,
		AccountNo: req.AccountNo,
	}
}
