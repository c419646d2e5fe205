package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmstock/internal/config"
	"pharmstock/internal/core/apperror"
	"pharmstock/internal/domain/auth"
	"pharmstock/internal/infrastructure/storage/memory"
)

func newService(t *testing.T, cfg auth.ServiceConfig) *auth.Service {
	t.Helper()
	store := memory.NewStore()
	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:         "test-secret-not-for-production",
		Issuer:         "pharmstock-test",
		AccessTokenTTL: time.Hour,
	})
	return auth.NewService(memory.NewUserRepo(store), memory.NewTxManager(store), jwtService, cfg)
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newService(t, auth.DefaultServiceConfig())
	ctx := context.Background()

	user, err := svc.Register(ctx, "pharmacist", "correct horse battery", false)
	require.NoError(t, err)
	assert.False(t, user.IsAdmin)
	assert.NotEqual(t, "correct horse battery", user.PasswordHash)

	result, err := svc.Login(ctx, "pharmacist", "correct horse battery")
	require.NoError(t, err)
	require.NotEmpty(t, result.Token)
	assert.True(t, result.ExpiresAt.After(time.Now()))

	// The issued token resolves back to the same account.
	resolved, err := svc.ValidateToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, resolved.ID)
	assert.Equal(t, "pharmacist", resolved.Username)
	assert.False(t, resolved.IsAdmin)
}

func TestLogin_WrongPassword(t *testing.T) {
	svc := newService(t, auth.DefaultServiceConfig())
	ctx := context.Background()

	_, err := svc.Register(ctx, "pharmacist", "correct horse battery", false)
	require.NoError(t, err)

	_, err = svc.Login(ctx, "pharmacist", "wrong")
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeUnauthorized, appErr.Code)
}

func TestLogin_UnknownUserLooksLikeBadPassword(t *testing.T) {
	svc := newService(t, auth.DefaultServiceConfig())

	_, err := svc.Login(context.Background(), "nobody", "whatever")
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeUnauthorized, appErr.Code)
}

func TestLogin_LockoutAfterRepeatedFailures(t *testing.T) {
	cfg := auth.DefaultServiceConfig()
	cfg.MaxLoginAttempts = 3
	svc := newService(t, cfg)
	ctx := context.Background()

	_, err := svc.Register(ctx, "pharmacist", "correct horse battery", false)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = svc.Login(ctx, "pharmacist", "wrong")
		require.Error(t, err)
	}

	// Even the right password is rejected while the lock holds.
	_, err = svc.Login(ctx, "pharmacist", "correct horse battery")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "locked")
}

func TestRegister_Validation(t *testing.T) {
	svc := newService(t, auth.DefaultServiceConfig())
	ctx := context.Background()

	_, err := svc.Register(ctx, "", "correct horse battery", false)
	assert.Error(t, err)

	_, err = svc.Register(ctx, "pharmacist", "short", false)
	assert.Error(t, err)

	_, err = svc.Register(ctx, "pharmacist", "correct horse battery", false)
	require.NoError(t, err)
	_, err = svc.Register(ctx, "Pharmacist", "another password", false)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeDuplicate, appErr.Code)
}

func TestValidateToken_AdminFlagSurvives(t *testing.T) {
	svc := newService(t, auth.DefaultServiceConfig())
	ctx := context.Background()

	_, err := svc.Register(ctx, "chief", "correct horse battery", true)
	require.NoError(t, err)

	result, err := svc.Login(ctx, "chief", "correct horse battery")
	require.NoError(t, err)

	resolved, err := svc.ValidateToken(result.Token)
	require.NoError(t, err)
	assert.True(t, resolved.IsAdmin)
}

func TestValidateToken_Garbage(t *testing.T) {
	svc := newService(t, auth.DefaultServiceConfig())

	_, err := svc.ValidateToken("not.a.jwt")
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeUnauthorized, appErr.Code)
}
