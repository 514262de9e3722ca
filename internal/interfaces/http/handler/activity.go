package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/myfin/backend/internal/application/audit"
)

// ActivityHandler serves the audit trail. At the headquarters view a
// super admin sees the global trail; inside a tenant the trail is
// scoped to that company.
type ActivityHandler struct {
	BaseHandler
	audit *audit.Writer
}

// NewActivityHandler creates an activity handler
func NewActivityHandler(w *audit.Writer, logger *zap.Logger) *ActivityHandler {
	return &ActivityHandler{BaseHandler: NewBaseHandler(logger), audit: w}
}

// RegisterRoutes wires the activity endpoints
func (h *ActivityHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/activities", h.List)
}

// List returns the audit trail for the active scope
func (h *ActivityHandler) List(c *gin.Context) {
	s, ok := requireSession(c)
	if !ok {
		return
	}
	activities, err := h.audit.List(c.Request.Context(), s.ActiveTenant())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, activities)
}
