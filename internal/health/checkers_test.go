package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/relay-bridge/internal/bridge"
)

type fakeStats struct{ st bridge.Stats }

func (f *fakeStats) Stats() bridge.Stats { return f.st }

func TestBridgeChecker(t *testing.T) {
	src := &fakeStats{st: bridge.Stats{Running: false}}
	c := NewBridgeChecker(src)
	assert.Equal(t, "bridge", c.Name())

	r := c.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, r.Status)

	src.st = bridge.Stats{Running: true, Received: 3}
	r = c.Check(context.Background())
	assert.Equal(t, StatusHealthy, r.Status)
	assert.Equal(t, uint64(3), r.Details["received"])

	// 出现新的丢弃：降级
	src.st.Dropped = 2
	r = c.Check(context.Background())
	assert.Equal(t, StatusDegraded, r.Status)
	assert.Equal(t, uint64(2), r.Details["dropped_since_last_check"])

	// 丢弃数未再增长：恢复健康
	r = c.Check(context.Background())
	assert.Equal(t, StatusHealthy, r.Status)
}

type fakePinger struct {
	err   error
	stats redis.PoolStats
}

func (f *fakePinger) HealthCheck(ctx context.Context) error { return f.err }
func (f *fakePinger) Stats() *redis.PoolStats                { return &f.stats }

func TestRedisChecker(t *testing.T) {
	t.Run("正常", func(t *testing.T) {
		c := NewRedisChecker(&fakePinger{stats: redis.PoolStats{TotalConns: 10, IdleConns: 8}})
		r := c.Check(context.Background())
		assert.Equal(t, StatusHealthy, r.Status)
		assert.Equal(t, "20.0%", r.Details["utilization"])
	})

	t.Run("ping失败为降级", func(t *testing.T) {
		c := NewRedisChecker(&fakePinger{err: errors.New("connection refused")})
		r := c.Check(context.Background())
		assert.Equal(t, StatusDegraded, r.Status)
		assert.Contains(t, r.Message, "connection refused")
	})

	t.Run("连接池接近上限", func(t *testing.T) {
		c := NewRedisChecker(&fakePinger{stats: redis.PoolStats{TotalConns: 10, IdleConns: 0}})
		r := c.Check(context.Background())
		assert.Equal(t, StatusDegraded, r.Status)
	})
}

func TestRegisterHTTPRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	serve := func(agg *Aggregator, path string) *httptest.ResponseRecorder {
		r := gin.New()
		RegisterHTTPRoutes(r, agg)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		return rr
	}

	healthy := NewAggregator(&mockChecker{"bridge", StatusHealthy}, &mockChecker{"redis", StatusDegraded})
	rr := serve(healthy, "/health")
	require.Equal(t, http.StatusOK, rr.Code)
	var report HealthReport
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	assert.Equal(t, StatusDegraded, report.Status)
	assert.Len(t, report.Checks, 2)

	assert.Equal(t, http.StatusOK, serve(healthy, "/health/ready").Code)
	assert.Equal(t, http.StatusOK, serve(healthy, "/health/live").Code)

	down := NewAggregator(&mockChecker{"bridge", StatusUnhealthy})
	assert.Equal(t, http.StatusServiceUnavailable, serve(down, "/health").Code)
	assert.Equal(t, http.StatusServiceUnavailable, serve(down, "/health/ready").Code)
	assert.Equal(t, http.StatusOK, serve(down, "/health/live").Code)
}
