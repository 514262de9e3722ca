// Package middleware provides the gin middleware chain: authentication,
// session attachment and the common request plumbing.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/myfin/backend/internal/domain/identity"
	"github.com/myfin/backend/internal/infrastructure/auth"
	"github.com/myfin/backend/internal/interfaces/http/dto"
)

const (
	principalKey = "auth.principal"
	claimsKey    = "auth.claims"
)

// JWTAuth validates the Bearer token on every request and stores the
// authenticated principal in the context. The blacklist check fails
// open: a blacklist backend outage does not lock out every user.
func JWTAuth(jwtService *auth.JWTService, blacklist auth.TokenBlacklist, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c)
		if token == "" {
			abortUnauthorized(c, "Missing authorization token")
			return
		}

		claims, err := jwtService.ValidateAccessToken(token)
		if err != nil {
			abortUnauthorized(c, "Invalid or expired token")
			return
		}

		if blacklist != nil && claims.ID != "" {
			revoked, err := blacklist.Contains(c.Request.Context(), claims.ID)
			if err != nil {
				logger.Warn("token blacklist check failed",
					zap.String("jti", claims.ID), zap.Error(err))
			} else if revoked {
				abortUnauthorized(c, "Token has been revoked")
				return
			}
		}

		c.Set(principalKey, claims.Principal())
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// GetPrincipal returns the authenticated principal set by JWTAuth
func GetPrincipal(c *gin.Context) (identity.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return identity.Principal{}, false
	}
	p, ok := v.(identity.Principal)
	return p, ok
}

// GetClaims returns the validated token claims set by JWTAuth
func GetClaims(c *gin.Context) (*auth.Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok
}

func extractBearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized,
		dto.NewErrorResponse(dto.ErrCodeAuth, message))
}
