package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/taoyao-code/relay-bridge/internal/metrics"
	"github.com/taoyao-code/relay-bridge/internal/protocol/relay"
)

// Publisher 发布到 Redis 频道的最小能力，*Client 满足该接口
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Envelope 镜像到 Redis 的上行报文
type Envelope struct {
	Source     string        `json:"source"`
	ReceivedAt time.Time     `json:"received_at"`
	PacketType string        `json:"packet_type"`
	Packet     relay.Message `json:"packet"`
}

// Mirror 将上行报文镜像到 Redis pub/sub 频道
type Mirror struct {
	pub     Publisher
	channel string
	source  string
	timeout time.Duration
	log     *zap.Logger
	m       *metrics.AppMetrics
	now     func() time.Time
}

// NewMirror 创建镜像器；source 标识本实例
func NewMirror(pub Publisher, channel, source string, log *zap.Logger, m *metrics.AppMetrics) *Mirror {
	if log == nil {
		log = zap.NewNop()
	}
	return &Mirror{
		pub:     pub,
		channel: channel,
		source:  source,
		timeout: 3 * time.Second,
		log:     log.Named("mirror"),
		m:       m,
		now:     time.Now,
	}
}

// Publish 发布单条报文
func (m *Mirror) Publish(ctx context.Context, msg relay.Message) error {
	data, err := json.Marshal(Envelope{
		Source:     m.source,
		ReceivedAt: m.now().UTC(),
		PacketType: msg.PacketType().String(),
		Packet:     msg,
	})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	if err := m.pub.Publish(ctx, m.channel, data).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", m.channel, err)
	}
	return nil
}

// Run 消费订阅并逐条发布，直到 ctx 取消或订阅关闭；发布失败只记录日志
func (m *Mirror) Run(ctx context.Context, msgs <-chan relay.Message) {
	m.log.Info("redis mirror started", zap.String("channel", m.channel))
	defer m.log.Info("redis mirror stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			result := "ok"
			if err := m.Publish(ctx, msg); err != nil {
				result = "error"
				m.log.Warn("mirror publish failed", zap.Error(err))
			}
			if m.m != nil {
				m.m.MirrorPublished.WithLabelValues(result).Inc()
			}
		}
	}
}
