package security

import (
	"Signalforge/internal/api/config"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokenSigner_RoundTrip(t *testing.T) {
	signer, err := NewTokenSigner(config.JWTConfig{Secret: "s3cret", Issuer: "signalforge"})
	require.NoError(t, err)

	token, err := signer.GenerateToken(7, 3, []string{RoleAdmin})
	require.NoError(t, err)

	claims, err := signer.ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, uint64(7), claims.UserID)
	require.Equal(t, uint64(3), claims.WorkspaceID)
	require.True(t, claims.HasRole(RoleOperator, RoleAdmin))
	require.False(t, claims.HasRole(RoleOperator))
}

func TestTokenSigner_Rejects(t *testing.T) {
	signer, err := NewTokenSigner(config.JWTConfig{Secret: "s3cret", Issuer: "signalforge"})
	require.NoError(t, err)
	token, err := signer.GenerateToken(7, 3, nil)
	require.NoError(t, err)

	other, err := NewTokenSigner(config.JWTConfig{Secret: "other", Issuer: "signalforge"})
	require.NoError(t, err)
	_, err = other.ValidateToken(token)
	require.Error(t, err)

	wrongIssuer, err := NewTokenSigner(config.JWTConfig{Secret: "s3cret", Issuer: "someone-else"})
	require.NoError(t, err)
	_, err = wrongIssuer.ValidateToken(token)
	require.Error(t, err)

	signer.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	_, err = signer.ValidateToken(token)
	require.Error(t, err)

	_, err = NewTokenSigner(config.JWTConfig{})
	require.ErrorIs(t, err, ErrSecretMissing)
}
