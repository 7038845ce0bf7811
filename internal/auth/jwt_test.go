// AngelaMos | 2026
// jwt_test.go

package auth

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ophrus/immo-api/internal/config"
	"github.com/ophrus/immo-api/internal/core"
)

func newTestJWTManager(t *testing.T, accessExpire time.Duration) *JWTManager {
	t.Helper()

	dir := t.TempDir()
	privatePath := filepath.Join(dir, "private.pem")
	publicPath := filepath.Join(dir, "public.pem")

	require.NoError(t, GenerateKeyPair(privatePath, publicPath))

	manager, err := NewJWTManager(config.JWTConfig{
		PrivateKeyPath:     privatePath,
		PublicKeyPath:      publicPath,
		AccessTokenExpire:  accessExpire,
		RefreshTokenExpire: 720 * time.Hour,
		Issuer:             "ophrus-immo",
		Audience:           "ophrus-immo-api",
	})
	require.NoError(t, err)

	return manager
}

func TestCreateAndVerifyAccessToken(t *testing.T) {
	manager := newTestJWTManager(t, time.Hour)

	token, err := manager.CreateAccessToken(AccessTokenClaims{
		UserID:       "user-123",
		Role:         "admin",
		TokenVersion: 3,
	})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := manager.VerifyAccessToken(context.Background(), token)
	require.NoError(t, err)

	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, 3, claims.TokenVersion)
	assert.NotEmpty(t, claims.JTI)
}

func TestVerifyAccessToken_UniqueJTI(t *testing.T) {
	manager := newTestJWTManager(t, time.Hour)
	claims := AccessTokenClaims{UserID: "user-123", Role: "user"}

	first, err := manager.CreateAccessToken(claims)
	require.NoError(t, err)
	second, err := manager.CreateAccessToken(claims)
	require.NoError(t, err)

	firstClaims, err := manager.VerifyAccessToken(context.Background(), first)
	require.NoError(t, err)
	secondClaims, err := manager.VerifyAccessToken(context.Background(), second)
	require.NoError(t, err)

	assert.NotEqual(t, firstClaims.JTI, secondClaims.JTI)
}

func TestVerifyAccessToken_Garbage(t *testing.T) {
	manager := newTestJWTManager(t, time.Hour)

	_, err := manager.VerifyAccessToken(context.Background(), "not.a.token")
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}

func TestVerifyAccessToken_Expired(t *testing.T) {
	manager := newTestJWTManager(t, -time.Minute)

	token, err := manager.CreateAccessToken(AccessTokenClaims{
		UserID: "user-123",
		Role:   "user",
	})
	require.NoError(t, err)

	_, err = manager.VerifyAccessToken(context.Background(), token)
	assert.ErrorIs(t, err, core.ErrTokenExpired)
}

func TestVerifyAccessToken_WrongKey(t *testing.T) {
	issuing := newTestJWTManager(t, time.Hour)
	verifying := newTestJWTManager(t, time.Hour)

	token, err := issuing.CreateAccessToken(AccessTokenClaims{
		UserID: "user-123",
		Role:   "user",
	})
	require.NoError(t, err)

	_, err = verifying.VerifyAccessToken(context.Background(), token)
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}

func TestCreateRefreshToken(t *testing.T) {
	manager := newTestJWTManager(t, time.Hour)

	data, err := manager.CreateRefreshToken("user-123", "")
	require.NoError(t, err)

	assert.NotEmpty(t, data.Token)
	assert.Equal(t, core.HashToken(data.Token), data.Hash)
	assert.NotEmpty(t, data.FamilyID, "a new family is minted when none is given")
	assert.True(t, data.ExpiresAt.After(time.Now().Add(719*time.Hour)))

	assert.True(t, manager.VerifyRefreshTokenHash(data.Token, data.Hash))
	assert.False(t, manager.VerifyRefreshTokenHash("other", data.Hash))
}

func TestCreateRefreshToken_KeepsFamily(t *testing.T) {
	manager := newTestJWTManager(t, time.Hour)

	data, err := manager.CreateRefreshToken("user-123", "family-abc")
	require.NoError(t, err)

	assert.Equal(t, "family-abc", data.FamilyID)
}

func TestGetJWKSHandler(t *testing.T) {
	manager := newTestJWTManager(t, time.Hour)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/.well-known/jwks.json", nil)

	manager.GetJWKSHandler()(rec, req)

	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body struct {
		Keys []map[string]any `json:"keys"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Keys, 1)

	key := body.Keys[0]
	assert.Equal(t, "EC", key["kty"])
	assert.NotContains(t, key, "d", "private material must never be served")
}

func TestGetKeyID(t *testing.T) {
	manager := newTestJWTManager(t, time.Hour)
	assert.Len(t, manager.GetKeyID(), 8)
}
