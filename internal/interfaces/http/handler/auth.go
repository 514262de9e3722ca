package handler

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appidentity "github.com/myfin/backend/internal/application/identity"
	"github.com/myfin/backend/internal/application/session"
	"github.com/myfin/backend/internal/domain/identity"
	"github.com/myfin/backend/internal/infrastructure/auth"
	"github.com/myfin/backend/internal/interfaces/http/dto"
	"github.com/myfin/backend/internal/interfaces/http/middleware"
)

// AuthHandler serves sign-in, sign-out and token refresh
type AuthHandler struct {
	BaseHandler
	identity *appidentity.Service
	sessions *session.Manager
}

// NewAuthHandler creates an auth handler
func NewAuthHandler(svc *appidentity.Service, sessions *session.Manager, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		BaseHandler: NewBaseHandler(logger),
		identity:    svc,
		sessions:    sessions,
	}
}

// RegisterRoutes wires the public auth endpoints
func (h *AuthHandler) RegisterRoutes(rg *gin.RouterGroup) {
	auth := rg.Group("/auth")
	auth.POST("/signin", h.SignIn)
	auth.POST("/refresh", h.Refresh)
}

// RegisterProtectedRoutes wires the endpoints that need a valid token
func (h *AuthHandler) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	rg.POST("/auth/signout", h.SignOut)
}

// SignIn authenticates credentials and returns a token pair
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req dto.SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "username and password are required")
		return
	}

	user, pair, err := h.identity.SignIn(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.SignInResponse{
		User:   toUserResponse(*user),
		Tokens: toTokenResponse(pair),
	})
}

// SignOut revokes the presented token and tears down the session
func (h *AuthHandler) SignOut(c *gin.Context) {
	token := bearerToken(c)
	if err := h.identity.SignOut(c.Request.Context(), token); err != nil {
		h.HandleError(c, err)
		return
	}
	if p, ok := middleware.GetPrincipal(c); ok {
		h.sessions.Release(p.UserID)
	}
	h.NoContent(c)
}

// Refresh exchanges a refresh token for a fresh pair
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "refresh_token is required")
		return
	}

	pair, err := h.identity.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toTokenResponse(pair))
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func toUserResponse(u identity.User) dto.UserResponse {
	return dto.UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      string(u.Role),
		CompanyID: u.CompanyID,
	}
}

func toTokenResponse(pair *auth.TokenPair) dto.TokenResponse {
	return dto.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    int64(time.Until(pair.AccessTokenExpiresAt).Seconds()),
	}
}
