package app

import (
	"context"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/relay-bridge/internal/config"
	"github.com/taoyao-code/relay-bridge/internal/health"
	"github.com/taoyao-code/relay-bridge/internal/metrics"
	redisstorage "github.com/taoyao-code/relay-bridge/internal/storage/redis"
)

// NewRedisClient 创建 Redis 客户端；未启用时返回 nil, nil
func NewRedisClient(ctx context.Context, cfg cfgpkg.RedisConfig, logger *zap.Logger) (*redisstorage.Client, error) {
	if !cfg.Enabled {
		logger.Info("redis is disabled, skipping initialization")
		return nil, nil
	}

	client, err := redisstorage.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	logger.Info("redis client initialized",
		zap.String("addr", cfg.Addr),
		zap.Int("pool_size", cfg.PoolSize))
	return client, nil
}

// NewMirror 创建上行报文镜像器
func NewMirror(client *redisstorage.Client, cfg cfgpkg.RedisConfig, instanceID string, logger *zap.Logger, m *metrics.AppMetrics) *redisstorage.Mirror {
	return redisstorage.NewMirror(client, cfg.Channel, instanceID, logger, m)
}

// AddRedisChecker 添加 Redis 检查器到聚合器
func AddRedisChecker(aggregator *health.Aggregator, redisClient *redisstorage.Client) {
	if redisClient != nil {
		aggregator.AddChecker(health.NewRedisChecker(redisClient))
	}
}
