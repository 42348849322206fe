package health

import (
	"context"
	"sync"
	"time"

	"github.com/taoyao-code/relay-bridge/internal/bridge"
)

// StatsSource 提供收发循环统计
type StatsSource interface {
	Stats() bridge.Stats
}

// BridgeChecker 收发循环健康检查
// 循环未运行为不健康；自上次检查以来有订阅者丢弃报文为降级
type BridgeChecker struct {
	src StatsSource

	mu          sync.Mutex
	lastDropped uint64
}

// NewBridgeChecker 创建收发循环检查器
func NewBridgeChecker(src StatsSource) *BridgeChecker {
	return &BridgeChecker{src: src}
}

// Name 返回检查器名称
func (c *BridgeChecker) Name() string { return "bridge" }

// Check 执行健康检查
func (c *BridgeChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	st := c.src.Stats()

	c.mu.Lock()
	newlyDropped := st.Dropped - c.lastDropped
	c.lastDropped = st.Dropped
	c.mu.Unlock()

	details := map[string]interface{}{
		"pending":     st.Pending,
		"subscribers": st.Subscribers,
		"received":    st.Received,
		"sent":        st.Sent,
		"errors":      st.Errors,
		"dropped":     st.Dropped,
	}

	switch {
	case !st.Running:
		return CheckResult{Status: StatusUnhealthy, Message: "bridge loop not running", Details: details, Latency: time.Since(start)}
	case newlyDropped > 0:
		details["dropped_since_last_check"] = newlyDropped
		return CheckResult{Status: StatusDegraded, Message: "slow subscribers dropping messages", Details: details, Latency: time.Since(start)}
	default:
		return CheckResult{Status: StatusHealthy, Message: "ok", Details: details, Latency: time.Since(start)}
	}
}
