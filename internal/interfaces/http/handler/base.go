// Package handler implements the HTTP endpoints on top of the
// application services and the session mirrors.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/myfin/backend/internal/domain/shared"
	"github.com/myfin/backend/internal/interfaces/http/dto"
)

// BaseHandler provides the shared response helpers
type BaseHandler struct {
	logger *zap.Logger
}

// NewBaseHandler creates a base handler
func NewBaseHandler(logger *zap.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

// Success sends 200 with the envelope
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends 201 with the envelope
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends 204
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// BadRequest sends a 400 validation error
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeValidation, message))
}

// HandleError maps an application error onto the wire. Domain errors
// keep their code and message; store failures and anything unknown
// become an opaque 500.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	var de *shared.DomainError
	if errors.As(err, &de) {
		c.JSON(dto.GetHTTPStatus(de.Code), dto.NewErrorResponse(de.Code, de.Message))
		return
	}

	if shared.IsStoreError(err) {
		h.logger.Error("store failure", zap.Error(err),
			zap.String("path", c.FullPath()))
		c.JSON(http.StatusInternalServerError,
			dto.NewErrorResponse(dto.ErrCodeStoreFailure, "Storage operation failed"))
		return
	}

	h.logger.Error("unhandled error", zap.Error(err),
		zap.String("path", c.FullPath()))
	c.JSON(http.StatusInternalServerError,
		dto.NewErrorResponse(dto.ErrCodeInternal, "Internal server error"))
}
