package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/myfin/backend/internal/application/inventory"
	"github.com/myfin/backend/internal/interfaces/http/dto"
)

// ProductHandler serves the product catalog
type ProductHandler struct {
	BaseHandler
	inventory *inventory.Service
}

// NewProductHandler creates a product handler
func NewProductHandler(svc *inventory.Service, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{BaseHandler: NewBaseHandler(logger), inventory: svc}
}

// RegisterRoutes wires the product endpoints
func (h *ProductHandler) RegisterRoutes(rg *gin.RouterGroup) {
	products := rg.Group("/products")
	products.GET("", h.List)
	products.POST("", h.Create)
	products.GET("/:id", h.Get)
	products.PUT("/:id", h.Update)
	products.DELETE("/:id", h.Delete)
}

// List returns the active company's products
func (h *ProductHandler) List(c *gin.Context) {
	s, ok := requireSession(c)
	if !ok {
		return
	}
	products, err := h.inventory.List(c.Request.Context(), s.ActiveTenant())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, products)
}

// Get returns one product
func (h *ProductHandler) Get(c *gin.Context) {
	s, ok := requireSession(c)
	if !ok {
		return
	}
	product, err := h.inventory.Get(c.Request.Context(), s.ActiveTenant(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// Create registers a product in the active company
func (h *ProductHandler) Create(c *gin.Context) {
	s, ok := requireSession(c)
	if !ok {
		return
	}
	var req dto.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "name is required")
		return
	}

	created, err := h.inventory.Create(c.Request.Context(), s.ActiveTenant(),
		req.Name, req.Price, req.Cost, req.Stock, req.Variants)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, created)
}

// Update replaces a product's fields, variants included
func (h *ProductHandler) Update(c *gin.Context) {
	s, ok := requireSession(c)
	if !ok {
		return
	}
	var req dto.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "name is required")
		return
	}

	existing, err := h.inventory.Get(c.Request.Context(), s.ActiveTenant(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	existing.Name = req.Name
	existing.Price = req.Price
	existing.Cost = req.Cost
	existing.Stock = req.Stock
	existing.Variants = req.Variants
	if err := h.inventory.Update(c.Request.Context(), s.ActiveTenant(), existing); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, existing)
}

// Delete removes a product
func (h *ProductHandler) Delete(c *gin.Context) {
	s, ok := requireSession(c)
	if !ok {
		return
	}
	if err := h.inventory.Delete(c.Request.Context(), s.ActiveTenant(), c.Param("id")); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
