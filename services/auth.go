package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v4"
	"github.com/sidhant-sriv/smart-renter/apperr"
	"github.com/sidhant-sriv/smart-renter/db"
	"github.com/sidhant-sriv/smart-renter/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"

	minPasswordLength = 6
)

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type SignupInput struct {
	Name     string
	Email    string
	Password string
	Role     models.Role
}

// AuthService registers users and issues and verifies bearer tokens.
type AuthService struct {
	db         *gorm.DB
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	log        *slog.Logger
	validate   *validator.Validate
	now        func() time.Time
}

func NewAuthService(conn *gorm.DB, secret string, accessTTL, refreshTTL time.Duration, logger *slog.Logger) *AuthService {
	return &AuthService{
		db:         conn,
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		log:        logger,
		validate:   validator.New(),
		now:        time.Now,
	}
}

// Signup registers a tenant or owner account and logs it in. Admin
// accounts are only created through CreateUser.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*models.User, *TokenPair, error) {
	if in.Role == "" {
		in.Role = models.RoleTenant
	}
	if in.Role != models.RoleTenant && in.Role != models.RoleOwner {
		return nil, nil, apperr.Validation("Role must be tenant or owner")
	}
	user, err := s.CreateUser(ctx, in)
	if err != nil {
		return nil, nil, err
	}
	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}
	return user, tokens, nil
}

// CreateUser validates and stores a user with a bcrypt password hash.
func (s *AuthService) CreateUser(ctx context.Context, in SignupInput) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return nil, apperr.Validation("Name, email and password are required")
	}
	if err := s.validate.Var(in.Email, "required,email"); err != nil {
		return nil, apperr.Validation("Invalid email address")
	}
	if err := s.validate.Var(in.Password, fmt.Sprintf("min=%d", minPasswordLength)); err != nil {
		return nil, apperr.Validationf("Password must be at least %d characters", minPasswordLength)
	}
	if !in.Role.Valid() {
		return nil, apperr.Validation("Invalid role")
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", in.Email).Count(&count).Error; err != nil {
		return nil, s.storeErr("Failed to process registration", err)
	}
	if count > 0 {
		return nil, apperr.Validation("User already exists")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, s.storeErr("Failed to process registration", err)
	}

	user := &models.User{Name: in.Name, Email: in.Email, Password: string(hashed), Role: in.Role}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if db.IsDuplicateKey(err) {
			return nil, apperr.Validation("User already exists")
		}
		return nil, s.storeErr("Failed to create user", err)
	}
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, *TokenPair, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, apperr.Authentication("Invalid credentials")
	}
	if err != nil {
		return nil, nil, s.storeErr("Database error during login", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		s.log.Debug("password comparison failed", "user_id", user.ID)
		return nil, nil, apperr.Authentication("Invalid credentials")
	}

	tokens, err := s.issueTokens(&user)
	if err != nil {
		return nil, nil, err
	}
	return &user, tokens, nil
}

// Refresh exchanges a valid refresh token for a new token pair. The user
// is reloaded so a changed role is reflected in the new access token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.parse(refreshToken, tokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	user, err := s.GetUser(ctx, claims.ID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.Authentication("User associated with token not found")
		}
		return nil, err
	}
	return s.issueTokens(user)
}

// Authenticate verifies an access token and returns its principal.
func (s *AuthService) Authenticate(accessToken string) (*Principal, error) {
	return s.parse(accessToken, tokenTypeAccess)
}

func (s *AuthService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("User not found")
	}
	if err != nil {
		return nil, s.storeErr("Failed to load user", err)
	}
	return &user, nil
}

func (s *AuthService) issueTokens(user *models.User) (*TokenPair, error) {
	access, err := s.sign(user, tokenTypeAccess, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.sign(user, tokenTypeRefresh, s.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *AuthService) sign(user *models.User, tokenType string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"role":    string(user.Role),
		"type":    tokenType,
		"iat":     now.Unix(),
		"exp":     now.Add(ttl).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", s.storeErr("Failed to generate tokens", fmt.Errorf("sign %s token: %w", tokenType, err))
	}
	return signed, nil
}

func (s *AuthService) parse(tokenString, wantType string) (*Principal, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		s.log.Debug("token validation failed", "error", err)
		return nil, apperr.Authentication("Invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apperr.Authentication("Invalid token claims")
	}
	if tokenType, _ := claims["type"].(string); tokenType != wantType {
		return nil, apperr.Authentication("Invalid token type")
	}
	userID, ok := claims["user_id"].(float64)
	if !ok || userID <= 0 {
		return nil, apperr.Authentication("Invalid token subject")
	}
	role := models.Role(fmt.Sprint(claims["role"]))
	if !role.Valid() {
		return nil, apperr.Authentication("Invalid token role")
	}
	return &Principal{ID: uint(userID), Role: role}, nil
}

func (s *AuthService) storeErr(msg string, err error) error {
	s.log.Error(msg, "error", err)
	return apperr.Store(msg, err)
}
