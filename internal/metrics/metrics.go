package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry 创建自定义 Prometheus Registry，并注册常用采集器
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler 返回 Prometheus 指标 HTTP 处理器
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// AppMetrics 自定义业务指标
type AppMetrics struct {
	MessagesReceived *prometheus.CounterVec // labels: type
	MessagesSent     *prometheus.CounterVec // labels: type
	BridgeErrors     *prometheus.CounterVec // labels: stage=receive|send|publish, kind
	BroadcastDropped prometheus.Counter     // 订阅者缓冲满被丢弃的报文
	Subscribers      prometheus.Gauge       // 当前订阅者数
	OutboxDepth      prometheus.Gauge       // 最近一轮取出的待发报文数
	APICommands      *prometheus.CounterVec // labels: result=accepted|rejected|limited|unavailable|error
	MirrorPublished  *prometheus.CounterVec // labels: result=ok|error
}

// NewAppMetrics 注册并返回业务指标
func NewAppMetrics(reg prometheus.Registerer) *AppMetrics {
	m := &AppMetrics{
		MessagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_messages_received_total",
			Help: "Messages decoded from the serial link.",
		}, []string{"type"}),
		MessagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_messages_sent_total",
			Help: "Messages written to the serial link.",
		}, []string{"type"}),
		BridgeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_bridge_errors_total",
			Help: "Non-fatal bridge loop errors by stage and kind.",
		}, []string{"stage", "kind"}),
		BroadcastDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_broadcast_dropped_total",
			Help: "Messages dropped from full subscriber buffers.",
		}),
		Subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "relay_subscribers",
			Help: "Current number of incoming-message subscribers.",
		}),
		OutboxDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "relay_outbox_drained",
			Help: "Messages drained from the outbox in the last iteration.",
		}),
		APICommands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_api_commands_total",
			Help: "Commands submitted through the HTTP API.",
		}, []string{"result"}),
		MirrorPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_mirror_published_total",
			Help: "Incoming messages published to Redis.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.MessagesReceived, m.MessagesSent, m.BridgeErrors, m.BroadcastDropped,
		m.Subscribers, m.OutboxDepth, m.APICommands, m.MirrorPublished)
	return m
}
