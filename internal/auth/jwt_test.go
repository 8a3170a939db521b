package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "unit-test-secret-0123456789"

func TestGenerateAndValidate(t *testing.T) {
	ts, err := NewTokenService(testSecret)
	require.NoError(t, err)

	token, err := ts.Generate("api")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	subject, err := ts.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "api", subject)
}

func TestValidateExpiredToken(t *testing.T) {
	ts, err := NewTokenService(testSecret)
	require.NoError(t, err)

	token, err := ts.GenerateWithDuration("api", -time.Minute)
	require.NoError(t, err)

	_, err = ts.Validate(token)
	assert.ErrorContains(t, err, "expired")
}

func TestValidateWrongSecret(t *testing.T) {
	a, err := NewTokenService(testSecret)
	require.NoError(t, err)
	b, err := NewTokenService("a-different-secret-value")
	require.NoError(t, err)

	token, err := a.Generate("api")
	require.NoError(t, err)

	_, err = b.Validate(token)
	assert.Error(t, err)
}

func TestValidateGarbage(t *testing.T) {
	ts, err := NewTokenService(testSecret)
	require.NoError(t, err)

	_, err = ts.Validate("not.a.token")
	assert.Error(t, err)
}

func TestNewTokenServiceRejectsShortSecret(t *testing.T) {
	_, err := NewTokenService("short")
	assert.Error(t, err)
}
