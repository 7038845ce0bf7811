// AngelaMos | 2026
// auth_test.go

package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ophrus/immo-api/internal/core"
)

type stubVerifier struct {
	claims *AccessTokenClaims
	err    error
}

func (v *stubVerifier) VerifyAccessToken(
	_ context.Context,
	_ string,
) (*AccessTokenClaims, error) {
	return v.claims, v.err
}

type stubChecker struct {
	err error
}

func (c *stubChecker) ValidateSession(
	_ context.Context,
	_ *AccessTokenClaims,
) error {
	return c.err
}

func okHandler(reached *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*reached = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticator(t *testing.T) {
	verifier := &stubVerifier{claims: &AccessTokenClaims{
		UserID: "user-1",
		Role:   "admin",
		JTI:    "jti-1",
	}}

	var gotClaims *AccessTokenClaims
	handler := Authenticator(verifier)(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			gotClaims = GetClaims(r.Context())
			assert.Equal(t, "user-1", GetUserID(r.Context()))
			assert.Equal(t, "admin", GetUserRole(r.Context()))
			assert.True(t, IsAuthenticated(r.Context()))
			assert.True(t, IsAdmin(r.Context()))
		},
	))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer some-token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, gotClaims)
	assert.Equal(t, "jti-1", gotClaims.JTI)
}

func TestAuthenticator_MissingToken(t *testing.T) {
	reached := false
	handler := Authenticator(&stubVerifier{})(okHandler(&reached))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)
}

func TestAuthenticator_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"expired", core.ErrTokenExpired, "TOKEN_EXPIRED"},
		{"revoked", core.ErrTokenRevoked, "TOKEN_REVOKED"},
		{"invalid", core.ErrTokenInvalid, "TOKEN_INVALID"},
		{"unknown", errors.New("boom"), "TOKEN_INVALID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reached := false
			handler := Authenticator(&stubVerifier{err: tt.err})(
				okHandler(&reached),
			)

			req := httptest.NewRequest("GET", "/", nil)
			req.Header.Set("Authorization", "Bearer bad")
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.code)
			assert.False(t, reached)
		})
	}
}

func TestValidateSession(t *testing.T) {
	verifier := &stubVerifier{claims: &AccessTokenClaims{UserID: "user-1"}}

	reached := false
	handler := Authenticator(verifier)(
		ValidateSession(&stubChecker{})(okHandler(&reached)),
	)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, reached)
}

func TestValidateSession_Revoked(t *testing.T) {
	verifier := &stubVerifier{claims: &AccessTokenClaims{UserID: "user-1"}}

	reached := false
	handler := Authenticator(verifier)(
		ValidateSession(&stubChecker{err: core.ErrTokenRevoked})(
			okHandler(&reached),
		),
	)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "TOKEN_REVOKED")
	assert.False(t, reached)
}

func TestValidateSession_WithoutAuthenticator(t *testing.T) {
	reached := false
	handler := ValidateSession(&stubChecker{})(okHandler(&reached))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)
}

func TestRequireRole(t *testing.T) {
	admin := &stubVerifier{claims: &AccessTokenClaims{
		UserID: "user-1",
		Role:   "user",
	}}

	reached := false
	handler := Authenticator(admin)(RequireAdmin(okHandler(&reached)))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, reached)
}

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"bearer", "Bearer abc123", "abc123"},
		{"case insensitive", "bearer abc123", "abc123"},
		{"empty", "", ""},
		{"no scheme", "abc123", ""},
		{"wrong scheme", "Basic abc123", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			assert.Equal(t, tt.want, ExtractToken(req))
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	verifier := &stubVerifier{err: core.ErrTokenInvalid}

	reached := false
	handler := OptionalAuth(verifier)(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			reached = true
			assert.False(t, IsAuthenticated(r.Context()))
		},
	))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer bad")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, reached, "a bad token never blocks an optional route")
}
