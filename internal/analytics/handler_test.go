package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surveychain/backend/internal/ledger"
	"github.com/surveychain/backend/internal/middleware"
	"github.com/surveychain/backend/internal/models"
)

const (
	creatorAddr = "0xc0ffee0000000000000000000000000000000001"
	aliceAddr   = "0xa11ce00000000000000000000000000000000002"
)

type fixedAudience int

func (f fixedAudience) RoomSize(string) int { return int(f) }

func serve(h *Handler, method, path, as string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(middleware.ContextAddress, as) })
	r.GET("/surveys/:id/analytics", h.GetBySurvey)
	r.GET("/me/dashboard", h.Dashboard)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestSurveyAnalytics(t *testing.T) {
	ctx := context.Background()
	l := ledger.NewLedger(ledger.NewMemoryStore(), nil, nil)
	target := 4
	s, err := l.CreateSurvey(ctx, ledger.CreateSurveyInput{
		Title:               "Coffee habits",
		Description:         "How do you take your morning coffee?",
		Questions:           []models.Question{{Text: "Drink", Type: models.QuestionShortAnswer}},
		Reward:              decimal.NewFromInt(2),
		Creator:             creatorAddr,
		NumberOfRespondents: &target,
	})
	require.NoError(t, err)
	_, err = l.SubmitResponse(ctx, s.ID, aliceAddr, nil)
	require.NoError(t, err)

	h := NewHandler(l, fixedAudience(3), nil)

	w := serve(h, http.MethodGet, "/surveys/"+s.ID+"/analytics", aliceAddr)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = serve(h, http.MethodGet, "/surveys/"+s.ID+"/analytics", creatorAddr)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data SummaryResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Data.Responses)
	assert.InDelta(t, 25.0, body.Data.CompletionRate, 1e-9)
	assert.Equal(t, 3, body.Data.LiveViewers)
	assert.True(t, body.Data.Open)

	w = serve(h, http.MethodGet, "/me/dashboard", aliceAddr)
	require.Equal(t, http.StatusOK, w.Code)
	var dash struct {
		Data ledger.Dashboard `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dash))
	assert.Equal(t, 1, dash.Data.SurveysAnswered)
	assert.True(t, dash.Data.TotalEarned.IsZero())
}
