package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sidhant-sriv/smart-renter/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(t *testing.T, handler gin.HandlerFunc, middleware ...gin.HandlerFunc) (int, map[string]any) {
	t.Helper()
	router := gin.New()
	router.Use(middleware...)
	router.GET("/", handler)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{apperr.Validation("bad"), http.StatusBadRequest},
		{apperr.Authentication("who"), http.StatusUnauthorized},
		{apperr.Authorization("no"), http.StatusForbidden},
		{apperr.NotFound("gone"), http.StatusNotFound},
		{apperr.Upstream("maps", errors.New("timeout")), http.StatusBadGateway},
		{apperr.Store("db", errors.New("conn refused")), http.StatusInternalServerError},
		{errors.New("raw"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		code, body := serve(t, func(c *gin.Context) { Error(c, tt.err) })
		assert.Equal(t, tt.status, code, tt.err.Error())
		assert.Equal(t, false, body["success"])
		errBody := body["error"].(map[string]any)
		assert.Equal(t, string(apperr.KindOf(tt.err)), errBody["type"])
		assert.NotContains(t, errBody, "detail", "detail is hidden outside development")
	}
}

func TestErrorHidesRawMessages(t *testing.T) {
	_, body := serve(t, func(c *gin.Context) { Error(c, errors.New("pq: password authentication failed")) })
	assert.Equal(t, "Internal server error", body["error"].(map[string]any)["message"])
}

func TestErrorDetailInDevelopment(t *testing.T) {
	_, body := serve(t, func(c *gin.Context) {
		Error(c, apperr.Store("Failed to create property", errors.New("disk full")))
	}, Detail())
	errBody := body["error"].(map[string]any)
	assert.Equal(t, "Failed to create property", errBody["message"])
	assert.Equal(t, "disk full", errBody["detail"])
}

func TestSuccessEnvelope(t *testing.T) {
	code, body := serve(t, func(c *gin.Context) { Created(c, "Property created", gin.H{"id": 1}) })
	assert.Equal(t, http.StatusCreated, code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Property created", body["message"])
	assert.Equal(t, map[string]any{"id": float64(1)}, body["data"])
	assert.NotContains(t, body, "error")
	assert.NotContains(t, body, "meta")
}

func TestPageMeta(t *testing.T) {
	_, body := serve(t, func(c *gin.Context) { Page(c, []int{1, 2}, 2, 2, 5) })
	assert.Equal(t, map[string]any{"page": float64(2), "limit": float64(2), "total": float64(5), "pages": float64(3)}, body["meta"])

	_, body = serve(t, func(c *gin.Context) { Page(c, []int{}, 1, 0, 0) })
	assert.Equal(t, []any{}, body["data"])
	assert.Equal(t, float64(1), body["meta"].(map[string]any)["pages"])
}
