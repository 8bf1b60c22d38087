package notifications

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/surveychain/backend/internal/middleware"
	"github.com/surveychain/backend/pkg/response"
)

// Handler handles notification HTTP endpoints for the authenticated address.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a notifications handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger}
}

// List handles GET /notifications.
func (h *Handler) List(c *gin.Context) {
	addr := middleware.Address(c)
	list, err := h.service.List(c.Request.Context(), addr)
	if err != nil {
		h.logger.Error("list notifications failed", zap.String("user_id", addr), zap.Error(err))
		response.Internal(c, "failed to list notifications")
		return
	}
	response.OK(c, gin.H{
		"notifications": list,
		"unread":        UnreadCount(list),
	})
}

// MarkRead handles PATCH /notifications/:id/read.
func (h *Handler) MarkRead(c *gin.Context) {
	addr := middleware.Address(c)
	err := h.service.MarkRead(c.Request.Context(), addr, c.Param("id"))
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("mark notification read failed", zap.String("user_id", addr), zap.Error(err))
		response.Internal(c, "failed to update notification")
		return
	}
	response.NoContent(c)
}

// Clear handles DELETE /notifications.
func (h *Handler) Clear(c *gin.Context) {
	addr := middleware.Address(c)
	if err := h.service.Clear(c.Request.Context(), addr); err != nil {
		h.logger.Error("clear notifications failed", zap.String("user_id", addr), zap.Error(err))
		response.Internal(c, "failed to clear notifications")
		return
	}
	response.NoContent(c)
}
