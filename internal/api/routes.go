package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/relay-bridge/internal/api/middleware"
)

// RouteOptions 路由配置
type RouteOptions struct {
	Auth    middleware.AuthConfig
	Limiter *middleware.RateLimiter
}

// RegisterRoutes 注册控制 API 路由
func RegisterRoutes(r *gin.Engine, h *ControlHandler, opts RouteOptions, logger *zap.Logger) {
	if r == nil || h == nil {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	v1 := r.Group("/api/v1")
	if opts.Auth.Enabled {
		v1.Use(middleware.APIKeyAuth(opts.Auth, logger))
		logger.Info("api authentication enabled", zap.Int("api_keys_count", len(opts.Auth.APIKeys)))
	} else {
		logger.Warn("api authentication disabled")
	}

	v1.GET("/relays", h.ListRelays)
	v1.GET("/bridge/stats", h.BridgeStats)

	// 只有下发命令受限流约束
	switchHandlers := []gin.HandlerFunc{}
	if opts.Limiter != nil {
		h.limiter = opts.Limiter
		switchHandlers = append(switchHandlers, middleware.RateLimit(opts.Limiter, func(*gin.Context) { h.count("limited") }))
	}
	switchHandlers = append(switchHandlers, h.SwitchRelay)
	v1.POST("/relays/:relay/switch", switchHandlers...)

	logger.Info("control routes registered", zap.Int("endpoints", 3))
}
