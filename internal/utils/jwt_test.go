package utils

import (
	"testing"
	"time"

	"tradenest-backend/internal/config"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setTestConfig(t *testing.T, maxAge time.Duration) {
	t.Helper()
	prev := config.Cfg
	config.Cfg = &config.AppConfig{
		JWTSecret:   "test-secret-for-jwt-unit-tests",
		TokenMaxAge: maxAge,
	}
	t.Cleanup(func() { config.Cfg = prev })
}

func TestGenerateAndValidateJWT(t *testing.T) {
	setTestConfig(t, time.Hour)
	userID := uuid.New()

	token, err := GenerateJWT(userID)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, "tradenest-backend", claims.Issuer)
}

func TestValidateJWT_RejectsExpiredToken(t *testing.T) {
	setTestConfig(t, -time.Minute)

	token, err := GenerateJWT(uuid.New())
	require.NoError(t, err)

	_, err = ValidateJWT(token)
	assert.Error(t, err)
}

func TestValidateJWT_RejectsTamperedToken(t *testing.T) {
	setTestConfig(t, time.Hour)

	token, err := GenerateJWT(uuid.New())
	require.NoError(t, err)

	_, err = ValidateJWT(token + "x")
	assert.Error(t, err)
}

func TestValidateJWT_RejectsWrongSecret(t *testing.T) {
	setTestConfig(t, time.Hour)
	token, err := GenerateJWT(uuid.New())
	require.NoError(t, err)

	config.Cfg.JWTSecret = "a-different-secret"
	_, err = ValidateJWT(token)
	assert.Error(t, err)
}

func TestGenerateJWT_RequiresConfig(t *testing.T) {
	prev := config.Cfg
	config.Cfg = nil
	t.Cleanup(func() { config.Cfg = prev })

	_, err := GenerateJWT(uuid.New())
	assert.Error(t, err)
}
