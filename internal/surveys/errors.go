package surveys

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/surveychain/backend/internal/ledger"
	"github.com/surveychain/backend/pkg/response"
)

// RespondError writes the HTTP response for a ledger error.
func RespondError(c *gin.Context, logger *zap.Logger, err error) {
	switch ledger.KindOf(err) {
	case ledger.KindNotFound:
		response.NotFound(c, err.Error())
	case ledger.KindUnauthorized:
		response.Forbidden(c, err.Error())
	case ledger.KindConflict:
		response.Conflict(c, err.Error())
	case ledger.KindDomain:
		response.BadRequest(c, err.Error())
	default:
		logger.Error("ledger operation failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		response.Internal(c, "internal error")
	}
}
