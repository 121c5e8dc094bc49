package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"synergy-backend/internal/apperrors"
	"synergy-backend/internal/models"
	"synergy-backend/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthService(t *testing.T) (*AuthService, *utils.TokenManager) {
	t.Helper()
	db := setupTestDB(t)
	tokens := utils.NewTokenManager("test-secret", time.Hour)
	return NewAuthService(db, tokens, nil, 10, time.Minute, testLogger()), tokens
}

func TestRegisterAndLogin(t *testing.T) {
	svc, tokens := newAuthService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice", "password1")
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.NotEqual(t, "password1", user.PasswordHash)

	token, err := svc.Login(ctx, "alice", "password1")
	require.NoError(t, err)

	claims, err := tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "", "password1")
	assert.Equal(t, apperrors.CodeValidation, apperrors.As(err).Code())

	_, err = svc.Register(ctx, "alice", "")
	assert.Equal(t, apperrors.CodeValidation, apperrors.As(err).Code())
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "password1")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "alice", "other")
	require.Error(t, err)
	status, msg := apperrors.Public(err)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "User already exists", msg)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "password1")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "alice", "wrong")
	assert.Equal(t, apperrors.CodeUnauthorized, apperrors.As(err).Code())

	_, err = svc.Login(ctx, "nobody", "password1")
	assert.Equal(t, apperrors.CodeUnauthorized, apperrors.As(err).Code())
}

func TestAuthenticate(t *testing.T) {
	svc, tokens := newAuthService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice", "password1")
	require.NoError(t, err)
	token, err := svc.Login(ctx, "alice", "password1")
	require.NoError(t, err)

	claims, err := svc.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)

	_, err = svc.Authenticate(ctx, "garbage")
	assert.Equal(t, apperrors.CodeUnauthorized, apperrors.As(err).Code())

	ghost, _, err := tokens.Generate(user.ID + 100)
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, ghost)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.As(err).Code())
}

func TestAuthenticateAfterUserDeleted(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice", "password1")
	require.NoError(t, err)
	token, err := svc.Login(ctx, "alice", "password1")
	require.NoError(t, err)

	require.NoError(t, svc.db.Delete(&models.User{}, user.ID).Error)

	_, err = svc.Authenticate(ctx, token)
	status, msg := apperrors.Public(err)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "User not found", msg)
}

func TestLogoutWithoutRedisIsNoop(t *testing.T) {
	svc, tokens := newAuthService(t)

	_, claims, err := tokens.Generate(1)
	require.NoError(t, err)
	assert.NoError(t, svc.Logout(context.Background(), claims))
}
