// AngelaMos | 2026
// cookie.go

package auth

import (
	"net/http"
	"time"

	"github.com/ophrus/immo-api/internal/config"
)

// The refresh token only ever travels in an httpOnly cookie. Lax is enough
// because the token is useless without the POST /auth/refresh endpoint,
// which cross-site forms cannot read the response of.
func setRefreshCookie(
	w http.ResponseWriter,
	cfg config.CookieConfig,
	token string,
	ttl time.Duration,
) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.Name,
		Value:    token,
		Path:     "/",
		Domain:   cfg.Domain,
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearRefreshCookie(w http.ResponseWriter, cfg config.CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.Name,
		Value:    "",
		Path:     "/",
		Domain:   cfg.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func refreshTokenFromCookie(r *http.Request, cfg config.CookieConfig) string {
	cookie, err := r.Cookie(cfg.Name)
	if err != nil {
		return ""
	}
	return cookie.Value
}
