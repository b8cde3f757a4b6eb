package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/sidhant-sriv/smart-renter/middleware"
	"github.com/sidhant-sriv/smart-renter/models"
	"github.com/sidhant-sriv/smart-renter/response"
	"github.com/sidhant-sriv/smart-renter/services"
)

// AuthRoutes sets up /auth/signup, /auth/login, /auth/refresh and /auth/me.
func AuthRoutes(api *gin.RouterGroup, auth *services.AuthService) {
	group := api.Group("/auth")
	{
		group.POST("/signup", Signup(auth))
		group.POST("/register", Signup(auth))
		group.POST("/login", Login(auth))
		group.POST("/refresh", RefreshToken(auth))
		group.GET("/me", middleware.AuthMiddleware(auth), Me(auth))
	}
}

type authResult struct {
	User *models.User `json:"user"`
	*services.TokenPair
}

// Signup registers a tenant or owner and returns a token pair.
func Signup(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Name     string      `json:"name"`
			Email    string      `json:"email"`
			Password string      `json:"password"`
			Role     models.Role `json:"role"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, asValidation(err))
			return
		}

		user, tokens, err := auth.Signup(c.Request.Context(), services.SignupInput{
			Name:     req.Name,
			Email:    req.Email,
			Password: req.Password,
			Role:     req.Role,
		})
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Created(c, "User registered successfully", authResult{User: user, TokenPair: tokens})
	}
}

func Login(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Email    string `json:"email" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, asValidation(err))
			return
		}

		user, tokens, err := auth.Login(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OKMessage(c, "Login successful", authResult{User: user, TokenPair: tokens})
	}
}

// RefreshToken exchanges a refresh token for a new token pair.
func RefreshToken(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			RefreshToken string `json:"refreshToken" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, asValidation(err))
			return
		}

		tokens, err := auth.Refresh(c.Request.Context(), req.RefreshToken)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OKMessage(c, "Tokens refreshed successfully", tokens)
	}
}

func Me(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := auth.GetUser(c.Request.Context(), middleware.GetUserID(c))
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, user)
	}
}
