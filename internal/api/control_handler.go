package api

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/relay-bridge/internal/api/middleware"
	"github.com/taoyao-code/relay-bridge/internal/bridge"
	"github.com/taoyao-code/relay-bridge/internal/metrics"
	"github.com/taoyao-code/relay-bridge/internal/protocol/relay"
)

// CommandSender 下行入队
type CommandSender interface {
	Send(msg relay.Message) error
}

// StatsProvider 收发循环统计
type StatsProvider interface {
	Stats() bridge.Stats
}

// ControlHandler 继电器控制 API
type ControlHandler struct {
	sender  CommandSender
	stats   StatsProvider
	relays  *RelayMap
	limiter *middleware.RateLimiter
	serial  atomic.Uint32
	metrics *metrics.AppMetrics
	logger  *zap.Logger
}

// NewControlHandler 创建控制处理器
func NewControlHandler(sender CommandSender, stats StatsProvider, relays *RelayMap, m *metrics.AppMetrics, logger *zap.Logger) *ControlHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if relays == nil {
		relays = &RelayMap{Relays: map[string]uint8{}}
	}
	return &ControlHandler{
		sender:  sender,
		stats:   stats,
		relays:  relays,
		metrics: m,
		logger:  logger,
	}
}

// NextSerialNumber 生成下一个流水号，从 1 开始单调递增
func (h *ControlHandler) NextSerialNumber() uint32 {
	return h.serial.Add(1)
}

// SwitchRequest 开关请求
type SwitchRequest struct {
	On    *bool   `json:"on" binding:"required"`
	AckID *uint16 `json:"ack_id"`
	IsAck bool    `json:"is_ack"`
}

// SwitchRelay 下发继电器开关命令
// POST /api/v1/relays/:relay/switch
func (h *ControlHandler) SwitchRelay(c *gin.Context) {
	ref := c.Param("relay")
	idx, ok := h.relays.Resolve(ref)
	if !ok {
		h.count("rejected")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_relay", "message": "unknown relay " + ref})
		return
	}

	var req SwitchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.count("rejected")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_body", "message": err.Error()})
		return
	}

	pkt := relay.NewTurnOnOff(h.NextSerialNumber(), *req.On, idx)
	if req.AckID != nil {
		pkt.AckID = *req.AckID
	}
	if req.IsAck {
		pkt.Flags |= relay.FlagIsAck
	}

	if err := h.sender.Send(pkt); err != nil {
		if errors.Is(err, bridge.ErrInvalidMessage) {
			h.count("rejected")
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_command", "message": err.Error()})
			return
		}
		if errors.Is(err, bridge.ErrStopped) {
			h.count("unavailable")
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "bridge_stopped", "message": err.Error()})
			return
		}
		h.count("error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal", "message": err.Error()})
		return
	}

	h.count("accepted")
	h.logger.Info("relay switch queued",
		zap.Uint32("serial_number", pkt.SerialNumber),
		zap.Uint8("relay_index", idx),
		zap.Bool("on", *req.On))
	c.JSON(http.StatusAccepted, gin.H{
		"serial_number": pkt.SerialNumber,
		"relay_index":   idx,
		"on":            *req.On,
	})
}

// StatsResponse 收发循环统计，附带下发限流统计
type StatsResponse struct {
	bridge.Stats
	RateLimit *middleware.RateLimiterStats `json:"rate_limit,omitempty"`
}

// BridgeStats 收发循环统计
// GET /api/v1/bridge/stats
func (h *ControlHandler) BridgeStats(c *gin.Context) {
	resp := StatsResponse{Stats: h.stats.Stats()}
	if h.limiter != nil {
		st := h.limiter.Stats()
		resp.RateLimit = &st
	}
	c.JSON(http.StatusOK, resp)
}

// ListRelays 名称映射
// GET /api/v1/relays
func (h *ControlHandler) ListRelays(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"relays": h.relays.Entries()})
}

func (h *ControlHandler) count(result string) {
	if h.metrics != nil {
		h.metrics.APICommands.WithLabelValues(result).Inc()
	}
}
