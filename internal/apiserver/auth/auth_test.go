package auth

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	bcryptCost = bcrypt.MinCost
	os.Exit(m.Run())
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("secret123")
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", hash)
	assert.True(t, CheckPassword("secret123", hash))
	assert.False(t, CheckPassword("wrong", hash))
}

func TestTokenRoundTrip(t *testing.T) {
	cfg := Config{JWTSecret: "s3cret", TokenTTL: 7 * 24 * time.Hour}
	token, err := GenerateToken(cfg, "user-1", "a@example.com")
	require.NoError(t, err)

	claims, err := ParseToken(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "a@example.com", claims.Email)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestParseTokenRejects(t *testing.T) {
	cfg := Config{JWTSecret: "s3cret", TokenTTL: time.Hour}

	t.Run("wrong secret", func(t *testing.T) {
		token, err := GenerateToken(Config{JWTSecret: "other", TokenTTL: time.Hour}, "u", "e@x.io")
		require.NoError(t, err)
		_, err = ParseToken(cfg, token)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		token, err := GenerateToken(Config{JWTSecret: "s3cret", TokenTTL: -time.Minute}, "u", "e@x.io")
		require.NoError(t, err)
		_, err = ParseToken(cfg, token)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("tampered", func(t *testing.T) {
		original, err := GenerateToken(cfg, "u", "e@x.io")
		require.NoError(t, err)
		forged, err := GenerateToken(cfg, "admin", "e@x.io")
		require.NoError(t, err)
		// 伪造的 payload 配原签名
		o, f := strings.Split(original, "."), strings.Split(forged, ".")
		_, err = ParseToken(cfg, f[0]+"."+f[1]+"."+o[2])
		assert.Error(t, err)
	})

	t.Run("none algorithm", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "u",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})
		signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = ParseToken(cfg, signed)
		assert.Error(t, err)
	})

	t.Run("missing subject", func(t *testing.T) {
		token, err := GenerateToken(cfg, "", "e@x.io")
		require.NoError(t, err)
		_, err = ParseToken(cfg, token)
		assert.Error(t, err)
	})
}
