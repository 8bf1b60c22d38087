package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := NewJWTService("secret", 2)
	token, expiresAt, err := svc.Generate(" 0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed ")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(2*time.Hour), expiresAt, time.Minute)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", claims.Address)
	assert.Equal(t, claims.Address, claims.Subject)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	svc := NewJWTService("secret", 1)
	svc.now = func() time.Time { return time.Now().Add(-3 * time.Hour) }
	token, _, err := svc.Generate("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed")
	require.NoError(t, err)

	_, err = svc.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSessionHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(NewJWTService("secret", 1), nil)
	r := gin.New()
	r.POST("/auth/session", h.Session)

	post := func(body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/session", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		return w
	}

	w := post(`{"address":"0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var body struct {
		Success bool            `json:"success"`
		Data    SessionResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", body.Data.Address)
	assert.NotEmpty(t, body.Data.Token)

	assert.Equal(t, http.StatusBadRequest, post(`{"address":"alice"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(`{}`).Code)
}
