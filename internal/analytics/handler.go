// Package analytics serves per-survey summaries and per-address dashboards.
package analytics

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/surveychain/backend/internal/identity"
	"github.com/surveychain/backend/internal/ledger"
	"github.com/surveychain/backend/internal/middleware"
	"github.com/surveychain/backend/internal/surveys"
	"github.com/surveychain/backend/pkg/response"
)

// AudienceCounter reports live subscribers of a survey room.
type AudienceCounter interface {
	RoomSize(surveyID string) int
}

// SummaryResponse is the JSON shape for GET /surveys/:id/analytics.
type SummaryResponse struct {
	ledger.Summary
	LiveViewers int `json:"live_viewers"`
}

// Handler handles analytics endpoints.
type Handler struct {
	ledger   *ledger.Ledger
	audience AudienceCounter
	logger   *zap.Logger
}

// NewHandler creates an analytics handler. audience may be nil.
func NewHandler(l *ledger.Ledger, audience AudienceCounter, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{ledger: l, audience: audience, logger: logger}
}

// GetBySurvey handles GET /surveys/:id/analytics. Creator only.
func (h *Handler) GetBySurvey(c *gin.Context) {
	s, err := h.ledger.GetSurveyByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		surveys.RespondError(c, h.logger, err)
		return
	}
	if !identity.Equal(s.Creator, middleware.Address(c)) {
		surveys.RespondError(c, h.logger, ledger.ErrNotCreator)
		return
	}
	out := SummaryResponse{Summary: ledger.Summarize(s)}
	if h.audience != nil {
		out.LiveViewers = h.audience.RoomSize(s.ID)
	}
	response.OK(c, out)
}

// Dashboard handles GET /me/dashboard.
func (h *Handler) Dashboard(c *gin.Context) {
	d, err := h.ledger.Dashboard(c.Request.Context(), middleware.Address(c))
	if err != nil {
		surveys.RespondError(c, h.logger, err)
		return
	}
	response.OK(c, d)
}
