// internal/auth/session_test.go
package auth

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	iss, err := NewIssuer(time.Hour)
	require.NoError(t, err)

	tok, err := iss.CreateJWT(Identity{UserID: "u-1", Name: "Alice"})
	require.NoError(t, err)

	id, err := iss.Authenticate(tok)
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: "u-1", Name: "Alice"}, id)

	_, err = iss.CreateJWT(Identity{Name: "nobody"})
	assert.Error(t, err)
}

func TestRejectsForeignAndExpiredTokens(t *testing.T) {
	iss, err := NewIssuer(0)
	require.NoError(t, err)
	other, err := NewIssuer(0)
	require.NoError(t, err)

	tok, err := other.CreateJWT(Identity{UserID: "u-1"})
	require.NoError(t, err)
	_, err = iss.Authenticate(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := jwt.NewWithClaims(jwt.SigningMethodEdDSA, jwt.MapClaims{
		"sub": "u-1",
		"exp": time.Now().Add(-time.Minute).Unix(),
	})
	signed, err := expired.SignedString(iss.privateKey)
	require.NoError(t, err)
	_, err = iss.Authenticate(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)

	hs := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u-1"})
	hsSigned, err := hs.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = iss.Authenticate(hsSigned)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = iss.Authenticate("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssuerFromFiles(t *testing.T) {
	src, err := NewIssuer(0)
	require.NoError(t, err)
	dir := t.TempDir()
	privPath := filepath.Join(dir, "ed25519")
	pubPath := filepath.Join(dir, "ed25519.pub")
	require.NoError(t, os.WriteFile(privPath, src.privateKey, 0o600))
	require.NoError(t, os.WriteFile(pubPath, src.publicKey, 0o600))

	iss, err := NewIssuerFromFiles(privPath, pubPath, 0)
	require.NoError(t, err)
	tok, err := src.CreateJWT(Identity{UserID: "u-2"})
	require.NoError(t, err)
	id, err := iss.Authenticate(tok)
	require.NoError(t, err)
	assert.Equal(t, "u-2", id.UserID)

	require.NoError(t, os.WriteFile(pubPath, []byte("short"), 0o600))
	_, err = NewIssuerFromFiles(privPath, pubPath, 0)
	assert.Error(t, err)
}
