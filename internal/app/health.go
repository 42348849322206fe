package app

import (
	"github.com/gin-gonic/gin"

	"github.com/taoyao-code/relay-bridge/internal/health"
)

// NewHealthAggregator 创建健康检查聚合器，初始只包含收发循环检查
func NewHealthAggregator(src health.StatsSource) *health.Aggregator {
	return health.NewAggregator(health.NewBridgeChecker(src))
}

// RegisterHealthRoutes 注册健康检查 HTTP 路由
func RegisterHealthRoutes(r *gin.Engine, aggregator *health.Aggregator) {
	health.RegisterHTTPRoutes(r, aggregator)
}
