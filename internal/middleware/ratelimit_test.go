// AngelaMos | 2026
// ratelimit_test.go

package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	redis_rate "github.com/go-redis/redis_rate/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyByIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.0.2.10:54321"
	assert.Equal(t, "ratelimit:ip:192.0.2.10", KeyByIP(req))

	req.Header.Set("X-Real-IP", "198.51.100.4")
	assert.Equal(t, "ratelimit:ip:198.51.100.4", KeyByIP(req))

	// The last hop in X-Forwarded-For wins; earlier entries are spoofable.
	req.Header.Set("X-Forwarded-For", "203.0.113.1, 203.0.113.2")
	assert.Equal(t, "ratelimit:ip:203.0.113.2", KeyByIP(req))
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/v1/properties", "/v1/properties"},
		{
			"/v1/properties/0b894c5e-95a2-4e4f-9aeb-1c0a2b3c4d5e/rating",
			"/v1/properties/{id}/rating",
		},
		{"/v1/users/42", "/v1/users/{id}"},
		{"/", "/"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeEndpoint(tt.path))
		})
	}
}

func TestLocalLimiter(t *testing.T) {
	limiter := newLocalLimiter()
	limit := redis_rate.Limit{Rate: 1, Burst: 2, Period: time.Minute}

	res, err := limiter.allow("key", limit)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Allowed)

	res, err = limiter.allow("key", limit)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Allowed)

	// Burst exhausted.
	res, err = limiter.allow("key", limit)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Allowed)
	assert.Positive(t, res.RetryAfter)

	// Other keys are unaffected.
	res, err = limiter.allow("other", limit)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Allowed)
}

func TestRateLimitWindows(t *testing.T) {
	assert.Equal(t, time.Minute, PerMinute(10, 2).Period)
	assert.Equal(t, time.Second, PerSecond(10, 2).Period)
	assert.Equal(t, time.Hour, PerHour(10, 2).Period)
	assert.Equal(t, 10, PerHour(10, 2).Rate)
	assert.Equal(t, 2, PerHour(10, 2).Burst)
}
