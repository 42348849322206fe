package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	return r
}

func do(r *gin.Engine, header map[string]string) int {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr.Code
}

func TestAPIKeyAuth(t *testing.T) {
	log := zap.NewNop()

	t.Run("未启用直接放行", func(t *testing.T) {
		r := newEngine(APIKeyAuth(AuthConfig{Enabled: false}, log))
		assert.Equal(t, http.StatusOK, do(r, nil))
	})

	r := newEngine(APIKeyAuth(AuthConfig{Enabled: true, APIKeys: []string{"sk_relay_0123456789"}}, log))

	t.Run("缺少Key", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, do(r, nil))
	})
	t.Run("无效Key", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, do(r, map[string]string{"X-API-Key": "wrong"}))
	})
	t.Run("X-API-Key", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, do(r, map[string]string{"X-API-Key": "sk_relay_0123456789"}))
	})
	t.Run("Bearer", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, do(r, map[string]string{"Authorization": "Bearer sk_relay_0123456789"}))
	})
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "****", maskAPIKey("short"))
	assert.Equal(t, "sk_r****6789", maskAPIKey("sk_relay_0123456789"))
}

func TestRateLimit(t *testing.T) {
	l := NewRateLimiter(1, 2)
	rejected := 0
	r := newEngine(RateLimit(l, func(c *gin.Context) { rejected++ }))

	assert.Equal(t, http.StatusOK, do(r, nil))
	assert.Equal(t, http.StatusOK, do(r, nil))
	assert.Equal(t, http.StatusTooManyRequests, do(r, nil))

	st := l.Stats()
	assert.Equal(t, int64(2), st.AllowedTotal)
	assert.Equal(t, int64(1), st.RejectedTotal)
	assert.Equal(t, 1, rejected)
}

func TestNewRateLimiter_Defaults(t *testing.T) {
	st := NewRateLimiter(0, 0).Stats()
	assert.Equal(t, 20, st.RatePerSecond)
	assert.Equal(t, 40, st.Burst)
}
