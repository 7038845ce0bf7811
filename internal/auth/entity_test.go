// AngelaMos | 2026
// entity_test.go

package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRefreshToken_IsValid(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name  string
		token RefreshToken
		valid bool
	}{
		{
			name:  "fresh token",
			token: RefreshToken{ExpiresAt: now.Add(time.Hour)},
			valid: true,
		},
		{
			name:  "expired",
			token: RefreshToken{ExpiresAt: now.Add(-time.Hour)},
			valid: false,
		},
		{
			name: "revoked",
			token: RefreshToken{
				ExpiresAt: now.Add(time.Hour),
				RevokedAt: &now,
			},
			valid: false,
		},
		{
			name: "already used",
			token: RefreshToken{
				ExpiresAt: now.Add(time.Hour),
				IsUsed:    true,
			},
			valid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.token.IsValid())
		})
	}
}

func TestRefreshToken_MarkAsUsed(t *testing.T) {
	token := RefreshToken{ExpiresAt: time.Now().Add(time.Hour)}

	token.MarkAsUsed("next-token-id")

	assert.True(t, token.IsUsed)
	assert.NotNil(t, token.UsedAt)
	assert.Equal(t, "next-token-id", *token.ReplacedByID)
	assert.False(t, token.IsValid())
}

func TestRefreshToken_Revoke(t *testing.T) {
	token := RefreshToken{ExpiresAt: time.Now().Add(time.Hour)}

	token.Revoke()

	assert.True(t, token.IsRevoked())
	assert.False(t, token.IsValid())
}
