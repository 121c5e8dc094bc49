package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"synergy-backend/internal/apperrors"
	"synergy-backend/internal/models"
	"synergy-backend/internal/redis"
	"synergy-backend/internal/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type AuthService struct {
	db          *gorm.DB
	tokens      *utils.TokenManager
	sessions    *redis.Client
	loginLimit  int64
	loginWindow time.Duration
	log         *logrus.Logger
}

func NewAuthService(db *gorm.DB, tokens *utils.TokenManager, sessions *redis.Client, loginLimit int64, loginWindow time.Duration, log *logrus.Logger) *AuthService {
	return &AuthService{
		db:          db,
		tokens:      tokens,
		sessions:    sessions,
		loginLimit:  loginLimit,
		loginWindow: loginWindow,
		log:         log,
	}
}

func (s *AuthService) Register(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, apperrors.Validation("Username and password are required")
	}
	if len(username) > 50 {
		return nil, apperrors.Validation("Username must be at most 50 characters")
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("checking username: %w", err)
	}
	if count > 0 {
		return nil, apperrors.Conflict("User already exists")
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := models.User{Username: username, PasswordHash: hash}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.Conflict("User already exists")
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.log.WithField("user_id", user.ID).Info("User registered")
	return &user, nil
}

// Login checks credentials and issues a bearer token.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", apperrors.Validation("Username and password are required")
	}

	allowed, attempts, err := s.sessions.FixedWindowAllow(ctx, "login:"+strings.ToLower(username), s.loginLimit, s.loginWindow)
	if err != nil {
		s.log.WithError(err).Warn("Login rate limiter unavailable")
	} else if !allowed {
		s.log.WithFields(logrus.Fields{"username": username, "attempts": attempts}).Warn("Login rate limit exceeded")
		return "", apperrors.New(apperrors.CodeRateLimited, "Too many login attempts, try again later")
	}

	var user models.User
	err = s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", apperrors.Unauthorized("Invalid username or password")
	}
	if err != nil {
		return "", fmt.Errorf("loading user: %w", err)
	}

	ok, err := utils.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return "", fmt.Errorf("verifying password: %w", err)
	}
	if !ok {
		return "", apperrors.Unauthorized("Invalid username or password")
	}

	token, _, err := s.tokens.Generate(user.ID)
	if err != nil {
		return "", err
	}
	return token, nil
}

// Authenticate resolves a bearer token to its claims. Revoked tokens and
// tokens of users that no longer exist are refused.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*utils.Claims, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUnauthorized, err, "Invalid or expired token")
	}

	revoked, err := s.sessions.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("checking token revocation: %w", err)
	}
	if revoked {
		return nil, apperrors.Unauthorized("Token has been revoked")
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", claims.UserID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("loading token user: %w", err)
	}
	if count == 0 {
		return nil, apperrors.NotFound("User not found")
	}
	return claims, nil
}

// Logout revokes the token for the rest of its lifetime.
func (s *AuthService) Logout(ctx context.Context, claims *utils.Claims) error {
	if err := s.sessions.RevokeToken(ctx, claims.ID, claims.RemainingTTL()); err != nil {
		return fmt.Errorf("revoking token: %w", err)
	}
	return nil
}
