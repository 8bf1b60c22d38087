package auth

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/surveychain/backend/internal/identity"
	"github.com/surveychain/backend/pkg/response"
)

// SessionRequest is the body for POST /auth/session.
type SessionRequest struct {
	Address string `json:"address" binding:"required"`
}

// SessionResponse is the auth response with JWT.
type SessionResponse struct {
	Token     string    `json:"token"`
	Address   string    `json:"address"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	jwt    *JWTService
	logger *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(jwt *JWTService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{jwt: jwt, logger: logger}
}

// Session handles POST /auth/session. The wallet address is trusted as given; signature checks
// belong to the wallet layer in front of this API.
func (h *Handler) Session(c *gin.Context) {
	var req SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	checksummed, err := identity.Checksum(req.Address)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	token, expiresAt, err := h.jwt.Generate(req.Address)
	if err != nil {
		h.logger.Error("generate token failed", zap.Error(err))
		response.Internal(c, "failed to generate token")
		return
	}
	response.Created(c, SessionResponse{Token: token, Address: checksummed, ExpiresAt: expiresAt})
}
