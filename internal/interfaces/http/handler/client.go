package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apppartner "github.com/myfin/backend/internal/application/partner"
	"github.com/myfin/backend/internal/domain/partner"
	"github.com/myfin/backend/internal/interfaces/http/dto"
)

// ClientHandler serves clients and suppliers, both stored as parties
// of the active company.
type ClientHandler struct {
	BaseHandler
	partners *apppartner.Service
}

// NewClientHandler creates a client handler
func NewClientHandler(svc *apppartner.Service, logger *zap.Logger) *ClientHandler {
	return &ClientHandler{BaseHandler: NewBaseHandler(logger), partners: svc}
}

// RegisterRoutes wires the client endpoints
func (h *ClientHandler) RegisterRoutes(rg *gin.RouterGroup) {
	clients := rg.Group("/clients")
	clients.GET("", h.List)
	clients.POST("", h.Create)
	clients.GET("/:id", h.Get)
	clients.PUT("/:id", h.Update)
	clients.DELETE("/:id", h.Delete)
}

// List returns the active company's clients and suppliers
func (h *ClientHandler) List(c *gin.Context) {
	s, ok := requireSession(c)
	if !ok {
		return
	}
	clients, err := h.partners.List(c.Request.Context(), s.ActiveTenant())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, clients)
}

// Get returns one client
func (h *ClientHandler) Get(c *gin.Context) {
	s, ok := requireSession(c)
	if !ok {
		return
	}
	client, err := h.partners.Get(c.Request.Context(), s.ActiveTenant(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, client)
}

// Create registers a client or supplier in the active company
func (h *ClientHandler) Create(c *gin.Context) {
	s, ok := requireSession(c)
	if !ok {
		return
	}
	var req dto.ClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "name is required")
		return
	}

	partyType := partner.PartyType(req.Type)
	if req.Type == "" {
		partyType = partner.PartyClient
	}
	created, err := h.partners.Create(c.Request.Context(), s.Principal(),
		s.ActiveTenant(), s.ActiveTenantName(), req.Name, req.Phone, partyType)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, created)
}

// Update replaces a client's profile
func (h *ClientHandler) Update(c *gin.Context) {
	s, ok := requireSession(c)
	if !ok {
		return
	}
	var req dto.ClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "name is required")
		return
	}

	existing, err := h.partners.Get(c.Request.Context(), s.ActiveTenant(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	existing.Name = req.Name
	existing.Phone = req.Phone
	if req.Type != "" {
		existing.Type = partner.PartyType(req.Type)
	}
	if err := h.partners.Update(c.Request.Context(), s.ActiveTenant(), existing); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, existing)
}

// Delete removes a client
func (h *ClientHandler) Delete(c *gin.Context) {
	s, ok := requireSession(c)
	if !ok {
		return
	}
	if err := h.partners.Delete(c.Request.Context(), s.Principal(), s.ActiveTenant(), s.ActiveTenantName(), c.Param("id")); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
