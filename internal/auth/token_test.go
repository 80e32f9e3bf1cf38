package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

func TestTokenManager_AccessToken(t *testing.T) {
	tm := NewTokenManager("secret", time.Minute, time.Hour)

	issued, err := tm.GenerateAccessToken("user-1", domain.RoleSupport)
	require.NoError(t, err)
	assert.NotEmpty(t, issued.ID)

	claims, err := tm.ParseToken(issued.Token, TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, domain.RoleSupport, claims.Role)
}

func TestTokenManager_RejectsWrongType(t *testing.T) {
	tm := NewTokenManager("secret", time.Minute, time.Hour)

	refresh, err := tm.GenerateRefreshToken("user-1")
	require.NoError(t, err)

	_, err = tm.ParseToken(refresh.Token, TokenTypeAccess)
	assert.Error(t, err)

	claims, err := tm.ParseToken(refresh.Token, TokenTypeRefresh)
	require.NoError(t, err)
	assert.Equal(t, refresh.ID, claims.ID)
}

func TestTokenManager_RejectsForeignSignature(t *testing.T) {
	issuer := NewTokenManager("secret-a", time.Minute, time.Hour)
	verifier := NewTokenManager("secret-b", time.Minute, time.Hour)

	issued, err := issuer.GenerateAccessToken("user-1", domain.RoleUser)
	require.NoError(t, err)

	_, err = verifier.ParseToken(issued.Token, TokenTypeAccess)
	assert.Error(t, err)
}

func TestTokenManager_RejectsExpired(t *testing.T) {
	tm := NewTokenManager("secret", -time.Minute, time.Hour)
	tm.ttl = -time.Minute

	issued, err := tm.GenerateAccessToken("user-1", domain.RoleUser)
	require.NoError(t, err)

	_, err = tm.ParseToken(issued.Token, TokenTypeAccess)
	assert.Error(t, err)
}
