package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/myfin/backend/internal/application/session"
	"github.com/myfin/backend/internal/interfaces/http/dto"
)

const sessionKey = "session"

// Attach resolves the caller's replicated session and stores it in the
// context. Sessions outlive the request: the manager opens feeds on the
// given root context, not the request's.
func Attach(manager *session.Manager, root context.Context, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := GetPrincipal(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				dto.NewErrorResponse(dto.ErrCodeAuth, "Not authenticated"))
			return
		}

		s, err := manager.Acquire(root, p)
		if err != nil {
			logger.Error("failed to open session",
				zap.String("user_id", p.UserID), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError,
				dto.NewErrorResponse(dto.ErrCodeInternal, "Failed to open session"))
			return
		}

		c.Set(sessionKey, s)
		c.Next()
	}
}

// GetSession returns the session set by Attach
func GetSession(c *gin.Context) (*session.Session, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil, false
	}
	s, ok := v.(*session.Session)
	return s, ok
}
