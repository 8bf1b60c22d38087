// Package screening exposes the application and acceptance flow of targeted surveys.
package screening

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/surveychain/backend/internal/ledger"
	"github.com/surveychain/backend/internal/middleware"
	"github.com/surveychain/backend/internal/surveys"
	"github.com/surveychain/backend/pkg/response"
)

// ApplyRequest is the body for POST /surveys/:id/applications.
type ApplyRequest struct {
	Message      string `json:"message"`
	SelectedSlot string `json:"selected_slot"`
}

// Handler handles screening HTTP endpoints.
type Handler struct {
	ledger *ledger.Ledger
	logger *zap.Logger
}

// NewHandler creates a screening handler.
func NewHandler(l *ledger.Ledger, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{ledger: l, logger: logger}
}

// Apply handles POST /surveys/:id/applications. The caller applies as themselves.
func (h *Handler) Apply(c *gin.Context) {
	var req ApplyRequest
	if c.Request.Body != nil && c.Request.Body != http.NoBody {
		// An empty body applies without a message.
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			response.BadRequest(c, "invalid request: "+err.Error())
			return
		}
	}
	id := c.Param("id")
	if err := h.ledger.ApplyForScreening(c.Request.Context(), id, middleware.Address(c), req.Message, req.SelectedSlot); err != nil {
		surveys.RespondError(c, h.logger, err)
		return
	}
	h.respondSurvey(c, id, true)
}

// Accept handles POST /surveys/:id/applicants/:address/accept (creator only).
func (h *Handler) Accept(c *gin.Context) {
	id := c.Param("id")
	if err := h.ledger.AcceptApplicant(c.Request.Context(), id, c.Param("address"), middleware.Address(c)); err != nil {
		surveys.RespondError(c, h.logger, err)
		return
	}
	h.respondSurvey(c, id, false)
}

// Reject handles POST /surveys/:id/applicants/:address/reject (creator only).
func (h *Handler) Reject(c *gin.Context) {
	id := c.Param("id")
	if err := h.ledger.RejectApplicant(c.Request.Context(), id, c.Param("address"), middleware.Address(c)); err != nil {
		surveys.RespondError(c, h.logger, err)
		return
	}
	h.respondSurvey(c, id, false)
}

// Open handles POST /surveys/:id/open (creator only).
func (h *Handler) Open(c *gin.Context) {
	id := c.Param("id")
	if err := h.ledger.OpenSurveyEarly(c.Request.Context(), id, middleware.Address(c)); err != nil {
		surveys.RespondError(c, h.logger, err)
		return
	}
	h.respondSurvey(c, id, false)
}

func (h *Handler) respondSurvey(c *gin.Context, id string, created bool) {
	s, err := h.ledger.GetSurveyByID(c.Request.Context(), id)
	if err != nil {
		surveys.RespondError(c, h.logger, err)
		return
	}
	c.Header("ETag", surveys.ETag(s))
	if created {
		response.Created(c, s)
		return
	}
	response.OK(c, s)
}
