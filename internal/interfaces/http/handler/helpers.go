package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/myfin/backend/internal/application/document"
	"github.com/myfin/backend/internal/application/session"
	domaindoc "github.com/myfin/backend/internal/domain/document"
	"github.com/myfin/backend/internal/interfaces/http/dto"
	"github.com/myfin/backend/internal/interfaces/http/middleware"
)

// requireSession fetches the caller's session or aborts with 401
func requireSession(c *gin.Context) (*session.Session, bool) {
	s, ok := middleware.GetSession(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized,
			dto.NewErrorResponse(dto.ErrCodeAuth, "Not authenticated"))
	}
	return s, ok
}

// actorFrom binds the session's principal to its active tenant
func actorFrom(s *session.Session) document.Actor {
	return document.Actor{
		Principal:  s.Principal(),
		TenantID:   s.ActiveTenant(),
		TenantName: s.ActiveTenantName(),
	}
}

// toTransaction maps the request payload onto a domain document. The
// date falls back to now when absent or unparseable.
func toTransaction(req dto.TransactionRequest) *domaindoc.Transaction {
	date := time.Now()
	if req.Date != "" {
		if parsed, err := time.Parse(time.RFC3339, req.Date); err == nil {
			date = parsed
		}
	}
	return &domaindoc.Transaction{
		ID:       req.ID,
		ClientID: req.ClientID,
		Type:     domaindoc.Type(req.Type),
		Category: domaindoc.Category(req.Category),
		Date:     date,
		Status:   domaindoc.Status(req.Status),
		Items:    req.Items,
		TaxRate:  req.TaxRate,
		Notes:    req.Notes,
	}
}
