// AngelaMos | 2026
// handler_test.go

package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ophrus/immo-api/internal/config"
)

func newHandlerFixture(t *testing.T) (*Handler, *serviceFixture) {
	t.Helper()

	f := newServiceFixture(t)
	h := NewHandler(f.service, config.CookieConfig{Name: "rt"})
	return h, f
}

func loginForRefreshToken(t *testing.T, f *serviceFixture) string {
	t.Helper()

	f.addUser(t, "alice@example.com", "alice", "password123")
	resp, err := f.service.Login(context.Background(), LoginRequest{
		Identifier: "alice@example.com",
		Password:   "password123",
	}, "", "")
	require.NoError(t, err)

	return resp.Tokens.RefreshToken
}

func TestLogout_CookieToken(t *testing.T) {
	h, f := newHandlerFixture(t)
	token := loginForRefreshToken(t, f)

	req := httptest.NewRequest("POST", "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: "rt", Value: token})
	rec := httptest.NewRecorder()

	h.Logout(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, f.repo.activeCount("user-alice"))
}

func TestLogout_BodyToken(t *testing.T) {
	h, f := newHandlerFixture(t)
	token := loginForRefreshToken(t, f)

	// No cookie: clients that cannot carry it send the token in the body.
	body := strings.NewReader(`{"refresh_token":"` + token + `"}`)
	req := httptest.NewRequest("POST", "/auth/logout", body)
	rec := httptest.NewRecorder()

	h.Logout(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, f.repo.activeCount("user-alice"))
}

func TestLogout_CookieWinsOverBody(t *testing.T) {
	h, f := newHandlerFixture(t)
	token := loginForRefreshToken(t, f)

	body := strings.NewReader(`{"refresh_token":"not-a-real-token"}`)
	req := httptest.NewRequest("POST", "/auth/logout", body)
	req.AddCookie(&http.Cookie{Name: "rt", Value: token})
	rec := httptest.NewRecorder()

	h.Logout(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, f.repo.activeCount("user-alice"))
}

func TestLogout_NoTokenAnywhere(t *testing.T) {
	h, _ := newHandlerFixture(t)

	req := httptest.NewRequest("POST", "/auth/logout", nil)
	rec := httptest.NewRecorder()

	h.Logout(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}
