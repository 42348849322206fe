package bridge

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/relay-bridge/internal/metrics"
	"github.com/taoyao-code/relay-bridge/internal/protocol/relay"
	"github.com/taoyao-code/relay-bridge/internal/transceiver"
)

var (
	ErrStopped        = errors.New("bridge stopped")
	ErrAlreadyStarted = errors.New("bridge already started")
	ErrNoSubscribers  = errors.New("no subscribers for incoming message")
	ErrInvalidMessage = errors.New("invalid outgoing message")
)

// 连续接收 I/O 错误时，每隔这么多次才输出一条 Warn
const ioWarnEvery = 1000

// Transceiver 收发器接口，由 bridge 独占
type Transceiver interface {
	TryReceive() (relay.Message, error)
	TrySend(msg relay.Message) error
}

// Options 收发循环配置
type Options struct {
	SubscriberBuffer int           // 每个订阅者的缓冲条数
	IdleInterval     time.Duration // 一轮无收发时的休眠，0 表示不休眠
	Logger           *zap.Logger
	Metrics          *metrics.AppMetrics
}

// Bridge 串口收发循环：单 goroutine 独占收发器，
// 每轮先尝试接收一条并广播，再发送下行队列中的全部报文
type Bridge struct {
	trx    Transceiver
	outbox *Outbox
	hub    *Hub
	idle   time.Duration
	log    *zap.Logger
	m      *metrics.AppMetrics

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}

	// 仅收发 goroutine 访问
	ioFailures uint64

	running  atomic.Bool
	received atomic.Uint64
	sent     atomic.Uint64
	errs     atomic.Uint64
}

// New 创建收发循环（未启动）
func New(trx Transceiver, opts Options) *Bridge {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Bridge{
		trx:    trx,
		outbox: NewOutbox(),
		hub:    NewHub(opts.SubscriberBuffer),
		idle:   opts.IdleInterval,
		log:    log.Named("bridge"),
		m:      opts.Metrics,
	}
}

// Sender 下行句柄，可被任意 goroutine 并发使用
type Sender struct {
	outbox *Outbox
}

// Send 入队一条待发报文，不阻塞；无法编码的报文返回 ErrInvalidMessage，bridge 停止后返回 ErrStopped
func (s *Sender) Send(msg relay.Message) error {
	if msg == nil {
		return ErrInvalidMessage
	}
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	return s.outbox.Push(msg)
}

// Sender 获取下行句柄
func (b *Bridge) Sender() *Sender {
	return &Sender{outbox: b.outbox}
}

// Subscribe 订阅上行报文
func (b *Bridge) Subscribe() *Subscription {
	s := b.hub.Subscribe()
	b.updateSubscribers()
	return s
}

// Start 启动收发 goroutine
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return ErrStopped
	}
	if b.started {
		return ErrAlreadyStarted
	}
	b.started = true

	ctx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.done = make(chan struct{})
	b.running.Store(true)

	go b.loop(ctx)
	b.log.Info("bridge started", zap.Duration("idle_interval", b.idle))
	return nil
}

// Stop 停止并等待收发 goroutine 退出，随后关闭全部订阅；可重复调用
func (b *Bridge) Stop() {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return
	}
	b.stopped = true
	cancel, done := b.cancel, b.done
	b.mu.Unlock()

	b.outbox.Close()
	if cancel != nil {
		cancel()
		<-done
	}
	b.hub.Close()
	b.updateSubscribers()
	b.log.Info("bridge stopped",
		zap.Uint64("received", b.received.Load()),
		zap.Uint64("sent", b.sent.Load()),
		zap.Uint64("errors", b.errs.Load()))
}

// Done 收发 goroutine 退出通知；未启动时返回 nil
func (b *Bridge) Done() <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.done
}

// Running 收发 goroutine 是否在运行
func (b *Bridge) Running() bool { return b.running.Load() }

func (b *Bridge) loop(ctx context.Context) {
	defer close(b.done)
	defer b.running.Store(false)

	var idle *time.Timer
	if b.idle > 0 {
		idle = time.NewTimer(b.idle)
		defer idle.Stop()
	}

	for {
		select {
		case <-ctx.Done():
			b.flush()
			return
		default:
		}

		if b.runOnce() || idle == nil {
			continue
		}
		idle.Reset(b.idle)
		select {
		case <-ctx.Done():
			b.flush()
			return
		case <-idle.C:
		}
	}
}

// runOnce 执行一轮收发，返回本轮是否有数据流动
func (b *Bridge) runOnce() bool {
	worked := false

	msg, err := b.trx.TryReceive()
	switch {
	case errors.Is(err, transceiver.ErrIO):
		// 串口持续故障时不算有效工作，让空闲休眠生效
		b.receiveIOFailed(err)
	case err != nil:
		worked = true
		b.receiveRecovered()
		b.report("receive", err)
	case msg != nil:
		worked = true
		b.receiveRecovered()
		b.onReceived(msg)
	default:
		b.receiveRecovered()
	}

	pending := b.outbox.Drain()
	if b.m != nil {
		b.m.OutboxDepth.Set(float64(len(pending)))
	}
	for _, m := range pending {
		b.send(m)
	}
	return worked || len(pending) > 0
}

// flush 退出前尽力发送已入队的报文
func (b *Bridge) flush() {
	pending := b.outbox.Drain()
	for _, m := range pending {
		b.send(m)
	}
	if len(pending) > 0 {
		b.log.Info("outbox flushed on stop", zap.Int("count", len(pending)))
	}
}

func (b *Bridge) onReceived(msg relay.Message) {
	b.received.Add(1)
	if b.m != nil {
		b.m.MessagesReceived.WithLabelValues(msg.PacketType().String()).Inc()
	}
	if ce := b.log.Check(zap.DebugLevel, "message received"); ce != nil {
		ce.Write(zap.Stringer("type", msg.PacketType()), zap.String("hex", hex.EncodeToString(msg.Serialize())))
	}

	dropped, err := b.hub.Publish(msg)
	if err != nil {
		// 无订阅者属于软失败，下行照常进行
		b.errs.Add(1)
		if b.m != nil {
			b.m.BridgeErrors.WithLabelValues("publish", publishKind(err)).Inc()
		}
		b.log.Warn("publish incoming message failed", zap.Error(err))
		return
	}
	if dropped > 0 {
		if b.m != nil {
			b.m.BroadcastDropped.Add(float64(dropped))
		}
		b.log.Warn("slow subscribers, oldest messages dropped", zap.Int("dropped", dropped))
	}
}

func (b *Bridge) send(msg relay.Message) {
	if err := b.trx.TrySend(msg); err != nil {
		b.report("send", err)
		return
	}
	b.sent.Add(1)
	if b.m != nil {
		b.m.MessagesSent.WithLabelValues(msg.PacketType().String()).Inc()
	}
	if ce := b.log.Check(zap.DebugLevel, "message sent"); ce != nil {
		ce.Write(zap.Stringer("type", msg.PacketType()), zap.String("hex", hex.EncodeToString(msg.Serialize())))
	}
}

// report 记录非致命错误，循环继续
func (b *Bridge) report(stage string, err error) {
	b.count(stage, err)
	b.log.Warn("bridge iteration error",
		zap.String("stage", stage),
		zap.String("kind", transceiver.KindName(err)),
		zap.Error(err))
}

func (b *Bridge) count(stage string, err error) {
	b.errs.Add(1)
	if b.m != nil {
		b.m.BridgeErrors.WithLabelValues(stage, transceiver.KindName(err)).Inc()
	}
}

// receiveIOFailed 连续的接收 I/O 错误照常计数，日志按 ioWarnEvery 降频
func (b *Bridge) receiveIOFailed(err error) {
	b.ioFailures++
	b.count("receive", err)
	if b.ioFailures == 1 || b.ioFailures%ioWarnEvery == 0 {
		b.log.Warn("bridge iteration error",
			zap.String("stage", "receive"),
			zap.String("kind", "io"),
			zap.Uint64("consecutive", b.ioFailures),
			zap.Error(err))
	}
}

func (b *Bridge) receiveRecovered() {
	if b.ioFailures > 1 {
		b.log.Info("serial receive recovered", zap.Uint64("failures", b.ioFailures))
	}
	b.ioFailures = 0
}

func (b *Bridge) updateSubscribers() {
	if b.m != nil {
		b.m.Subscribers.Set(float64(b.hub.Len()))
	}
}

func publishKind(err error) string {
	if errors.Is(err, ErrNoSubscribers) {
		return "no_subscribers"
	}
	return "closed"
}

// Stats 运行统计
type Stats struct {
	Running     bool   `json:"running"`
	Pending     int    `json:"pending"`
	Subscribers int    `json:"subscribers"`
	Received    uint64 `json:"received"`
	Sent        uint64 `json:"sent"`
	Errors      uint64 `json:"errors"`
	Dropped     uint64 `json:"dropped"`
}

// Stats 获取运行统计
func (b *Bridge) Stats() Stats {
	return Stats{
		Running:     b.running.Load(),
		Pending:     b.outbox.Len(),
		Subscribers: b.hub.Len(),
		Received:    b.received.Load(),
		Sent:        b.sent.Load(),
		Errors:      b.errs.Load(),
		Dropped:     b.hub.Dropped(),
	}
}
