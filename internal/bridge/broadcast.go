package bridge

import (
	"sync"
	"sync/atomic"

	"github.com/taoyao-code/relay-bridge/internal/protocol/relay"
)

// DefaultSubscriberBuffer 每个订阅者的默认缓冲条数
const DefaultSubscriberBuffer = 64

// Hub 单生产者/多消费者广播
// 每个订阅者持有独立的有界缓冲；缓冲满时丢弃该订阅者最旧的一条（drop-oldest），
// 因此慢消费者不会阻塞发布方
type Hub struct {
	mu      sync.RWMutex
	subs    map[uint64]*Subscription
	nextID  uint64
	buffer  int
	closed  bool
	dropped atomic.Uint64
}

// NewHub 创建广播器；buffer<=0 时使用 DefaultSubscriberBuffer
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	return &Hub{subs: make(map[uint64]*Subscription), buffer: buffer}
}

// Subscription 订阅句柄，只能收到订阅之后发布的报文
type Subscription struct {
	id      uint64
	hub     *Hub
	ch      chan relay.Message
	dropped atomic.Uint64
}

// C 报文通道；订阅关闭或广播器关闭后通道关闭
func (s *Subscription) C() <-chan relay.Message { return s.ch }

// Dropped 因缓冲满被丢弃的报文数
func (s *Subscription) Dropped() uint64 { return s.dropped.Load() }

// Close 取消订阅，可重复调用
func (s *Subscription) Close() {
	s.hub.remove(s.id)
}

// Subscribe 新建订阅；广播器已关闭时返回的订阅通道已关闭
func (h *Hub) Subscribe() *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := &Subscription{hub: h, ch: make(chan relay.Message, h.buffer)}
	if h.closed {
		close(s.ch)
		return s
	}
	h.nextID++
	s.id = h.nextID
	h.subs[s.id] = s
	return s
}

func (h *Hub) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(s.ch)
	}
}

// Len 当前订阅者数量
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped 全部订阅者累计丢弃数
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

// Publish 向全部订阅者投递，返回本次因缓冲满丢弃的条数
// 无订阅者时返回 ErrNoSubscribers
func (h *Hub) Publish(msg relay.Message) (int, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return 0, ErrStopped
	}
	if len(h.subs) == 0 {
		return 0, ErrNoSubscribers
	}

	dropped := 0
	for _, s := range h.subs {
		dropped += s.deliver(msg)
	}
	if dropped > 0 {
		h.dropped.Add(uint64(dropped))
	}
	return dropped, nil
}

// deliver 非阻塞投递；缓冲满时先丢弃最旧一条再重试
// 仅发布方写入通道，消费方并发读取只会腾出空间，循环必然结束
func (s *Subscription) deliver(msg relay.Message) int {
	dropped := 0
	for {
		select {
		case s.ch <- msg:
			return dropped
		default:
		}
		select {
		case <-s.ch:
			dropped++
			s.dropped.Add(1)
		default:
		}
	}
}

// Close 关闭广播器及全部订阅
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, s := range h.subs {
		delete(h.subs, id)
		close(s.ch)
	}
}
