package surveys

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/surveychain/backend/internal/ledger"
	"github.com/surveychain/backend/internal/middleware"
	"github.com/surveychain/backend/internal/models"
	"github.com/surveychain/backend/pkg/response"
)

// CreateRequest is the body for POST /surveys.
type CreateRequest struct {
	Title               string                `json:"title" binding:"required,min=3,max=100"`
	Description         string                `json:"description" binding:"required,min=10,max=500"`
	Questions           []models.Question     `json:"questions" binding:"required,min=1,dive"`
	Reward              decimal.Decimal       `json:"reward"`
	RespondentType      models.RespondentType `json:"respondent_type"`
	NumberOfRespondents *int                  `json:"number_of_respondents"`
	ScreeningInfo       *models.ScreeningInfo `json:"screening_info"`
}

// UpdateRequest is the body for PATCH /surveys/:id. Omitted fields are unchanged.
type UpdateRequest struct {
	Title         *string               `json:"title"`
	Description   *string               `json:"description"`
	Questions     []models.Question     `json:"questions"`
	ScreeningInfo *models.ScreeningInfo `json:"screening_info"`
}

// SubmitRequest is the body for POST /surveys/:id/responses.
type SubmitRequest struct {
	Answers []models.Answer `json:"answers"`
}

// Settlement is the reward split of a survey.
type Settlement struct {
	SurveyID          string          `json:"survey_id"`
	Reward            decimal.Decimal `json:"reward"`
	RewardPerResponse decimal.Decimal `json:"reward_per_response"`
	Finalized         bool            `json:"finalized"`
	Payouts           []ledger.Payout `json:"payouts"`
}

// Handler handles survey, response and settlement HTTP endpoints.
type Handler struct {
	ledger *ledger.Ledger
	logger *zap.Logger
}

// NewHandler creates a surveys handler.
func NewHandler(l *ledger.Ledger, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{ledger: l, logger: logger}
}

// ETag is the entity tag of a survey version.
func ETag(s *models.Survey) string {
	return fmt.Sprintf(`"%s.%d"`, s.ID, s.Version)
}

// List handles GET /surveys.
func (h *Handler) List(c *gin.Context) {
	list, err := h.ledger.GetAllSurveys(c.Request.Context())
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	response.OK(c, list)
}

// Get handles GET /surveys/:id. Clients poll cheaply with If-None-Match.
func (h *Handler) Get(c *gin.Context) {
	s, err := h.ledger.GetSurveyByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	response.Versioned(c, ETag(s), s)
}

// Create handles POST /surveys. The caller becomes the creator.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	s, err := h.ledger.CreateSurvey(c.Request.Context(), ledger.CreateSurveyInput{
		Title:               req.Title,
		Description:         req.Description,
		Questions:           req.Questions,
		Reward:              req.Reward,
		Creator:             middleware.Address(c),
		RespondentType:      req.RespondentType,
		NumberOfRespondents: req.NumberOfRespondents,
		ScreeningInfo:       req.ScreeningInfo,
	})
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	c.Header("ETag", ETag(s))
	response.Created(c, s)
}

// Update handles PATCH /surveys/:id (creator only).
func (h *Handler) Update(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	s, err := h.ledger.UpdateSurveyMetadata(c.Request.Context(), c.Param("id"), middleware.Address(c), ledger.SurveyUpdate{
		Title:         req.Title,
		Description:   req.Description,
		Questions:     req.Questions,
		ScreeningInfo: req.ScreeningInfo,
	})
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	c.Header("ETag", ETag(s))
	response.OK(c, s)
}

// Access handles GET /surveys/:id/access for the caller.
func (h *Handler) Access(c *gin.Context) {
	s, err := h.ledger.GetSurveyByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	addr := middleware.Address(c)
	response.OK(c, gin.H{
		"survey_id":  s.ID,
		"address":    addr,
		"can_access": ledger.CanAccessSurvey(s, addr),
		"responded":  s.HasResponded(addr),
	})
}

// Settlement handles GET /surveys/:id/settlement.
func (h *Handler) Settlement(c *gin.Context) {
	s, err := h.ledger.GetSurveyByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	response.OK(c, settlementOf(s))
}

func settlementOf(s *models.Survey) Settlement {
	return Settlement{
		SurveyID:          s.ID,
		Reward:            s.Reward,
		RewardPerResponse: ledger.RewardPerResponse(s),
		Finalized:         s.Finalized,
		Payouts:           ledger.Payouts(s),
	}
}

// Submit handles POST /surveys/:id/responses.
func (h *Handler) Submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	resp, err := h.ledger.SubmitResponse(c.Request.Context(), c.Param("id"), middleware.Address(c), req.Answers)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	response.Created(c, resp)
}

// Finalize handles POST /surveys/:id/finalize (creator only).
func (h *Handler) Finalize(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	if _, err := h.ledger.FinalizeSurvey(ctx, id, middleware.Address(c)); err != nil {
		RespondError(c, h.logger, err)
		return
	}
	s, err := h.ledger.GetSurveyByID(ctx, id)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	response.OK(c, settlementOf(s))
}

// Created handles GET /me/surveys/created.
func (h *Handler) Created(c *gin.Context) {
	h.listMine(c, h.ledger.GetSurveysByCreator)
}

// Answered handles GET /me/surveys/answered.
func (h *Handler) Answered(c *gin.Context) {
	h.listMine(c, h.ledger.GetSurveysByResponder)
}

// Applied handles GET /me/surveys/applied.
func (h *Handler) Applied(c *gin.Context) {
	h.listMine(c, h.ledger.GetSurveysByApplicant)
}

func (h *Handler) listMine(c *gin.Context, query func(ctx context.Context, addr string) ([]*models.Survey, error)) {
	list, err := query(c.Request.Context(), middleware.Address(c))
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	response.OK(c, list)
}
