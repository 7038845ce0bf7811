// AngelaMos | 2026
// security_test.go

package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(hash, "$argon2id$"))

	valid, err := VerifyPassword("correct horse battery staple", hash)
	require.NoError(t, err)
	assert.True(t, valid)

	valid, err = VerifyPassword("wrong password", hash)
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestHashPassword_UniqueSalts(t *testing.T) {
	first, err := HashPassword("same password")
	require.NoError(t, err)

	second, err := HashPassword("same password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	tests := []struct {
		name string
		hash string
	}{
		{"empty", ""},
		{"not a hash", "plaintext"},
		{"wrong algorithm", "$bcrypt$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA"},
		{"truncated", "$argon2id$v=19$m=65536"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := VerifyPassword("password", tt.hash)
			assert.Error(t, err)
		})
	}
}

func TestVerifyPasswordTimingSafe_MissingHash(t *testing.T) {
	valid, newHash, err := VerifyPasswordTimingSafe("password", nil)
	require.NoError(t, err)
	assert.False(t, valid)
	assert.Empty(t, newHash)

	empty := ""
	valid, newHash, err = VerifyPasswordTimingSafe("password", &empty)
	require.NoError(t, err)
	assert.False(t, valid)
	assert.Empty(t, newHash)
}

func TestVerifyPasswordTimingSafe_ValidHash(t *testing.T) {
	hash, err := HashPassword("password123")
	require.NoError(t, err)

	valid, newHash, err := VerifyPasswordTimingSafe("password123", &hash)
	require.NoError(t, err)
	assert.True(t, valid)
	assert.Empty(t, newHash, "current params should not trigger a rehash")
}

func TestGenerateSecureToken(t *testing.T) {
	first, err := GenerateSecureToken(32)
	require.NoError(t, err)
	assert.NotEmpty(t, first)

	second, err := GenerateSecureToken(32)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestHashToken(t *testing.T) {
	token := "some-refresh-token"

	hash := HashToken(token)
	assert.Len(t, hash, 64)
	assert.Equal(t, hash, HashToken(token))

	assert.True(t, CompareTokenHash(token, hash))
	assert.False(t, CompareTokenHash("other-token", hash))
}

func TestGenerateResetCode(t *testing.T) {
	for range 50 {
		code, err := GenerateResetCode()
		require.NoError(t, err)

		require.Len(t, code, 6)
		for _, c := range code {
			assert.GreaterOrEqual(t, c, '0')
			assert.LessOrEqual(t, c, '9')
		}
		assert.NotEqual(t, '0', rune(code[0]), "code must not have a leading zero")
	}
}

func TestCompareResetCode(t *testing.T) {
	assert.True(t, CompareResetCode("123456", "123456"))
	assert.False(t, CompareResetCode("123456", "654321"))
	assert.False(t, CompareResetCode("123456", ""))
	assert.False(t, CompareResetCode("", "123456"))
}
