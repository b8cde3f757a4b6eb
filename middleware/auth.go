package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sidhant-sriv/smart-renter/apperr"
	"github.com/sidhant-sriv/smart-renter/models"
	"github.com/sidhant-sriv/smart-renter/response"
	"github.com/sidhant-sriv/smart-renter/services"
)

const (
	principalKey = "principal"
	userIDKey    = "user_id"
)

// TokenAuthenticator verifies access tokens.
type TokenAuthenticator interface {
	Authenticate(accessToken string) (*services.Principal, error)
}

// AuthMiddleware rejects requests without a valid bearer access token and
// stores the caller's principal in the context.
func AuthMiddleware(auth TokenAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			response.Error(c, apperr.Authentication("Authorization header required"))
			return
		}
		p, err := auth.Authenticate(token)
		if err != nil {
			response.Error(c, err)
			return
		}
		setPrincipal(c, p)
		c.Next()
	}
}

// OptionalAuth resolves the principal when a valid token is present and
// lets anonymous requests through. An invalid token is still rejected.
func OptionalAuth(auth TokenAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.Next()
			return
		}
		p, err := auth.Authenticate(token)
		if err != nil {
			response.Error(c, err)
			return
		}
		setPrincipal(c, p)
		c.Next()
	}
}

// RequireRole must run after AuthMiddleware.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := services.RequireRole(GetPrincipal(c), roles...); err != nil {
			response.Error(c, err)
			return
		}
		c.Next()
	}
}

// GetPrincipal returns the authenticated caller, or nil for anonymous
// requests.
func GetPrincipal(c *gin.Context) *services.Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	p, _ := v.(*services.Principal)
	return p
}

// GetUserID retrieves the authenticated user ID from the Gin context
func GetUserID(c *gin.Context) uint {
	return c.GetUint(userIDKey)
}

func setPrincipal(c *gin.Context, p *services.Principal) {
	c.Set(principalKey, p)
	c.Set(userIDKey, p.ID)
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return token, token != ""
}
