package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/relay-bridge/internal/api"
	"github.com/taoyao-code/relay-bridge/internal/api/middleware"
	"github.com/taoyao-code/relay-bridge/internal/app"
	cfgpkg "github.com/taoyao-code/relay-bridge/internal/config"
	"github.com/taoyao-code/relay-bridge/internal/metrics"
)

// Version 构建版本，由 -ldflags 注入
var Version = "dev"

// Run 统一启动流程，阻塞直到收到 SIGINT/SIGTERM
func Run(cfg *cfgpkg.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return RunContext(ctx, cfg, log, app.OpenSerialPort)
}

// RunContext 启动全部组件，ctx 取消后按 HTTP -> 收发循环 -> Redis 的顺序关闭
func RunContext(ctx context.Context, cfg *cfgpkg.Config, log *zap.Logger, openPort app.PortOpener) error {
	instanceID := app.GenerateInstanceID()
	log.Info("starting relay bridge",
		zap.String("version", Version),
		zap.String("instance_id", instanceID))

	// ========== 阶段1: 基础组件 ==========
	reg, appm := app.NewMetrics()
	metricsHandler := metrics.Handler(reg)

	relays, err := api.LoadRelayMap(cfg.API.RelayMapPath)
	if err != nil {
		return err
	}
	if cfg.API.RelayMapPath != "" {
		log.Info("relay map loaded",
			zap.String("path", cfg.API.RelayMapPath),
			zap.Int("relays", len(relays.Relays)))
	}

	// ========== 阶段2: 打开串口（失败直接返回）==========
	port, err := openPort(cfg.Serial)
	if err != nil {
		log.Error("open serial port failed", zap.String("port", cfg.Serial.Port), zap.Error(err))
		return fmt.Errorf("open serial port: %w", err)
	}
	defer port.Close()
	log.Info("serial port opened",
		zap.String("port", cfg.Serial.Port),
		zap.Int("baud", cfg.Serial.Baud))

	// ========== 阶段3: 收发循环 ==========
	b := app.NewBridge(port, cfg.Bridge, log, appm)
	healthAgg := app.NewHealthAggregator(b)

	// ========== 阶段4: Redis 镜像（可选）==========
	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Error("redis initialization failed", zap.Error(err))
		return err
	}
	mirrorDone := make(chan struct{})
	if redisClient != nil {
		defer redisClient.Close()
		app.AddRedisChecker(healthAgg, redisClient)

		// 先订阅再启动循环，保证不漏首条报文
		sub := b.Subscribe()
		mirror := app.NewMirror(redisClient, cfg.Redis, instanceID, log, appm)
		go func() {
			defer close(mirrorDone)
			defer sub.Close()
			mirror.Run(ctx, sub.C())
		}()
	} else {
		close(mirrorDone)
	}

	if err := b.Start(ctx); err != nil {
		return err
	}
	defer b.Stop()

	// ========== 阶段5: HTTP 服务 ==========
	readyFn := func() bool { return healthAgg.Ready(context.Background()) }
	httpSrv := app.NewHTTPServer(cfg.HTTP, cfg.Metrics.Path, metricsHandler, readyFn, log)
	handler := api.NewControlHandler(b.Sender(), b, relays, appm, log)
	httpSrv.Register(func(r *gin.Engine) {
		api.RegisterRoutes(r, handler, api.RouteOptions{
			Auth: middleware.AuthConfig{
				APIKeys: cfg.API.APIKeys,
				Enabled: cfg.API.AuthEnabled,
			},
			Limiter: middleware.NewRateLimiter(cfg.API.RateLimit, cfg.API.Burst),
		}, log)
		app.RegisterHealthRoutes(r, healthAgg)
	})

	httpErr := make(chan error, 1)
	go func() {
		httpErr <- httpSrv.Start()
	}()
	log.Info("all services ready", zap.String("http_addr", cfg.HTTP.Addr))

	// ========== 阶段6: 等待关闭 ==========
	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown requested")
	case err := <-httpErr:
		if err != nil {
			log.Error("http server error", zap.Error(err))
			runErr = fmt.Errorf("http server: %w", err)
		}
	case <-b.Done():
		// ctx 取消时循环也会退出，此时属于正常关闭
		if ctx.Err() == nil {
			log.Error("bridge loop exited unexpectedly")
			runErr = errors.New("bridge loop exited unexpectedly")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)
	log.Info("http server stopped")

	b.Stop()
	<-mirrorDone
	log.Info("shutdown complete", zap.Any("stats", b.Stats()))
	return runErr
}
