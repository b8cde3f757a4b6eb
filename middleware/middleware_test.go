package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sidhant-sriv/smart-renter/apperr"
	"github.com/sidhant-sriv/smart-renter/models"
	"github.com/sidhant-sriv/smart-renter/services"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubAuth accepts tokens of the form "<role>" and maps them to user 42.
type stubAuth struct{}

func (stubAuth) Authenticate(token string) (*services.Principal, error) {
	role := models.Role(token)
	if !role.Valid() {
		return nil, apperr.Authentication("Invalid or expired token")
	}
	return &services.Principal{ID: 42, Role: role}, nil
}

func whoami(c *gin.Context) {
	p := GetPrincipal(c)
	if p == nil {
		c.String(http.StatusOK, "anonymous")
		return
	}
	c.String(http.StatusOK, "%s:%d:%d", p.Role, p.ID, GetUserID(c))
}

func do(router *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	router := gin.New()
	router.GET("/me", AuthMiddleware(stubAuth{}), whoami)

	w := do(router, http.MethodGet, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"type":"AuthenticationError"`)

	w = do(router, http.MethodGet, "/me", "root")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(router, http.MethodGet, "/me", "owner")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "owner:42:42", w.Body.String())
}

func TestOptionalAuth(t *testing.T) {
	router := gin.New()
	router.GET("/", OptionalAuth(stubAuth{}), whoami)

	assert.Equal(t, "anonymous", do(router, http.MethodGet, "/", "").Body.String())
	assert.Equal(t, "tenant:42:42", do(router, http.MethodGet, "/", "tenant").Body.String())
	assert.Equal(t, http.StatusUnauthorized, do(router, http.MethodGet, "/", "bogus").Code)
}

func TestRequireRole(t *testing.T) {
	router := gin.New()
	router.GET("/admin", AuthMiddleware(stubAuth{}), RequireRole(models.RoleAdmin), whoami)

	assert.Equal(t, http.StatusUnauthorized, do(router, http.MethodGet, "/admin", "").Code)
	w := do(router, http.MethodGet, "/admin", "tenant")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), `"type":"AuthorizationError"`)
	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/admin", "admin").Code)
}

func TestCORSMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(CORSMiddleware([]string{"http://localhost:3000"}))
	router.GET("/", whoami)

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	router := gin.New()
	router.Use(RequestLogger(logger))
	router.GET("/me", AuthMiddleware(stubAuth{}), whoami)

	do(router, http.MethodGet, "/me", "owner")
	assert.Contains(t, buf.String(), `"status":200`)
	assert.Contains(t, buf.String(), `"user_id":42`)
	assert.Contains(t, buf.String(), `"level":"INFO"`)

	buf.Reset()
	do(router, http.MethodGet, "/me", "")
	assert.Contains(t, buf.String(), `"status":401`)
	assert.Contains(t, buf.String(), `"level":"WARN"`)
	assert.NotContains(t, buf.String(), "user_id")
}
