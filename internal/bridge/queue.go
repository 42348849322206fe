package bridge

import (
	"sync"

	"github.com/taoyao-code/relay-bridge/internal/protocol/relay"
)

// Outbox 无界多生产者/单消费者队列
// Push 不会阻塞；Drain 一次取出当前全部待发报文，保持入队顺序
type Outbox struct {
	mu     sync.Mutex
	items  []relay.Message
	closed bool
}

// NewOutbox 创建下行队列
func NewOutbox() *Outbox {
	return &Outbox{}
}

// Push 入队；队列关闭后返回 ErrStopped
func (q *Outbox) Push(msg relay.Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrStopped
	}
	q.items = append(q.items, msg)
	return nil
}

// Drain 取出全部待发报文，队列为空时返回 nil
func (q *Outbox) Drain() []relay.Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	out := q.items
	q.items = nil
	return out
}

// Len 当前待发数量
func (q *Outbox) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close 拒绝后续入队，已入队的报文仍可取出
func (q *Outbox) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}
