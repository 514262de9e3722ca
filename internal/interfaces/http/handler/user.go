package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appidentity "github.com/myfin/backend/internal/application/identity"
	"github.com/myfin/backend/internal/application/session"
	"github.com/myfin/backend/internal/domain/identity"
	"github.com/myfin/backend/internal/interfaces/http/dto"
)

// UserHandler serves user account management
type UserHandler struct {
	BaseHandler
	identity *appidentity.Service
	sessions *session.Manager
}

// NewUserHandler creates a user handler
func NewUserHandler(svc *appidentity.Service, sessions *session.Manager, logger *zap.Logger) *UserHandler {
	return &UserHandler{BaseHandler: NewBaseHandler(logger), identity: svc, sessions: sessions}
}

// RegisterRoutes wires the user endpoints
func (h *UserHandler) RegisterRoutes(rg *gin.RouterGroup) {
	users := rg.Group("/users")
	users.GET("", h.List)
	users.POST("", h.Create)
	users.PUT("/me", h.UpdateProfile)
	users.DELETE("/:id", h.Delete)
}

// List returns the users visible to the caller's role
func (h *UserHandler) List(c *gin.Context) {
	s, ok := requireSession(c)
	if !ok {
		return
	}
	users, err := h.identity.ListUsers(c.Request.Context(), s.Principal())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	out := make([]dto.UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	h.Success(c, out)
}

// Create provisions a user account
func (h *UserHandler) Create(c *gin.Context) {
	s, ok := requireSession(c)
	if !ok {
		return
	}
	var req dto.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "username, password and role are required; passwords need at least 8 characters")
		return
	}

	user, err := h.identity.CreateUser(c.Request.Context(), s.Principal(),
		req.Username, req.Email, req.Password, identity.Role(req.Role), req.CompanyID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toUserResponse(*user))
}

// UpdateProfile changes the caller's own email or password
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	s, ok := requireSession(c)
	if !ok {
		return
	}
	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "invalid profile payload")
		return
	}

	user, err := h.identity.UpdateProfile(c.Request.Context(), s.Principal(), req.Email, req.Password)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toUserResponse(*user))
}

// Delete removes a user account and any live session it holds
func (h *UserHandler) Delete(c *gin.Context) {
	s, ok := requireSession(c)
	if !ok {
		return
	}
	id := c.Param("id")
	if err := h.identity.DeleteUser(c.Request.Context(), s.Principal(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.sessions.Release(id)
	h.NoContent(c)
}
