package exports

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/surveychain/backend/internal/identity"
	"github.com/surveychain/backend/internal/ledger"
	"github.com/surveychain/backend/internal/middleware"
	"github.com/surveychain/backend/internal/surveys"
	"github.com/surveychain/backend/pkg/response"
	"github.com/surveychain/backend/pkg/storage"
)

const contentTypeCSV = "text/csv"

// ObjectStore is the subset of the S3 client used for exports.
type ObjectStore interface {
	Upload(ctx context.Context, bucket, key, contentType string, body io.Reader, contentLength int64) (string, error)
	GeneratePresignedDownloadURL(ctx context.Context, bucket, key string, expires time.Duration) (string, error)
	PresignExpire() time.Duration
	ExportsBucket() string
}

// Result describes an uploaded export.
type Result struct {
	Key         string    `json:"key"`
	DownloadURL string    `json:"download_url"`
	ExpiresAt   time.Time `json:"expires_at"`
	Responses   int       `json:"responses"`
}

// Handler handles survey export endpoints.
type Handler struct {
	ledger *ledger.Ledger
	store  ObjectStore
	logger *zap.Logger
	now    func() time.Time
}

// NewHandler creates an exports handler. store may be nil, in which case the CSV is returned inline.
func NewHandler(l *ledger.Ledger, store ObjectStore, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{ledger: l, store: store, logger: logger, now: time.Now}
}

// Export handles POST /surveys/:id/export (creator only).
func (h *Handler) Export(c *gin.Context) {
	ctx := c.Request.Context()
	s, err := h.ledger.GetSurveyByID(ctx, c.Param("id"))
	if err != nil {
		surveys.RespondError(c, h.logger, err)
		return
	}
	if !identity.Equal(s.Creator, middleware.Address(c)) {
		surveys.RespondError(c, h.logger, ledger.ErrNotCreator)
		return
	}

	data, err := BuildCSV(s)
	if err != nil {
		h.logger.Error("build export failed", zap.String("survey_id", s.ID), zap.Error(err))
		response.Internal(c, "failed to build export")
		return
	}

	if h.store == nil {
		response.Attachment(c, fmt.Sprintf("survey-%s.csv", s.ID), contentTypeCSV, data)
		return
	}

	now := h.now()
	key := storage.ExportKey(s.ID, now)
	bucket := h.store.ExportsBucket()
	if _, err := h.store.Upload(ctx, bucket, key, contentTypeCSV, bytes.NewReader(data), int64(len(data))); err != nil {
		h.logger.Error("upload export failed", zap.String("survey_id", s.ID), zap.String("key", key), zap.Error(err))
		response.ServiceUnavailable(c, "export storage unavailable")
		return
	}
	expires := h.store.PresignExpire()
	url, err := h.store.GeneratePresignedDownloadURL(ctx, bucket, key, expires)
	if err != nil {
		h.logger.Error("presign export failed", zap.String("key", key), zap.Error(err))
		response.Internal(c, "failed to generate download url")
		return
	}
	h.logger.Info("survey exported", zap.String("survey_id", s.ID), zap.String("key", key), zap.Int("responses", len(s.Responses)))
	response.Created(c, Result{
		Key:         key,
		DownloadURL: url,
		ExpiresAt:   now.Add(expires),
		Responses:   len(s.Responses),
	})
}
