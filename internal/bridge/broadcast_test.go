package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/relay-bridge/internal/protocol/relay"
)

func drain(s *Subscription) []uint32 {
	var out []uint32
	for {
		select {
		case msg, ok := <-s.C():
			if !ok {
				return out
			}
			out = append(out, msg.(relay.CommandPacket).SerialNumber)
		default:
			return out
		}
	}
}

func TestHub_NoSubscribers(t *testing.T) {
	h := NewHub(4)
	_, err := h.Publish(relay.NewTurnOnOff(1, true, 0))
	assert.ErrorIs(t, err, ErrNoSubscribers)
}

func TestHub_EverySubscriberGetsEveryMessageInOrder(t *testing.T) {
	h := NewHub(8)
	a, b := h.Subscribe(), h.Subscribe()

	for sn := uint32(1); sn <= 5; sn++ {
		_, err := h.Publish(relay.NewTurnOnOff(sn, true, 0))
		require.NoError(t, err)
	}

	assert.Equal(t, []uint32{1, 2, 3, 4, 5}, drain(a))
	assert.Equal(t, []uint32{1, 2, 3, 4, 5}, drain(b))
}

func TestHub_DropOldestPerSubscriber(t *testing.T) {
	h := NewHub(3)
	slow, fast := h.Subscribe(), h.Subscribe()

	var fastGot []uint32
	totalDropped := 0
	for sn := uint32(1); sn <= 5; sn++ {
		dropped, err := h.Publish(relay.NewTurnOnOff(sn, true, 0))
		require.NoError(t, err)
		totalDropped += dropped
		fastGot = append(fastGot, drain(fast)...)
	}

	assert.Equal(t, []uint32{1, 2, 3, 4, 5}, fastGot)
	assert.Equal(t, []uint32{3, 4, 5}, drain(slow))
	assert.Equal(t, uint64(2), slow.Dropped())
	assert.Equal(t, uint64(0), fast.Dropped())
	assert.Equal(t, 2, totalDropped)
	assert.Equal(t, uint64(2), h.Dropped())
}

func TestHub_NewSubscriberSeesOnlyLaterMessages(t *testing.T) {
	h := NewHub(4)
	early := h.Subscribe()
	_, err := h.Publish(relay.NewTurnOnOff(1, true, 0))
	require.NoError(t, err)

	late := h.Subscribe()
	_, err = h.Publish(relay.NewTurnOnOff(2, true, 0))
	require.NoError(t, err)

	assert.Equal(t, []uint32{1, 2}, drain(early))
	assert.Equal(t, []uint32{2}, drain(late))
}

func TestHub_SubscriptionClose(t *testing.T) {
	h := NewHub(4)
	s := h.Subscribe()
	assert.Equal(t, 1, h.Len())

	s.Close()
	s.Close()
	assert.Equal(t, 0, h.Len())
	_, ok := <-s.C()
	assert.False(t, ok)
}

func TestHub_Close(t *testing.T) {
	h := NewHub(0)
	s := h.Subscribe()
	h.Close()
	h.Close()

	_, ok := <-s.C()
	assert.False(t, ok)

	_, err := h.Publish(relay.NewTurnOnOff(1, true, 0))
	assert.ErrorIs(t, err, ErrStopped)

	after := h.Subscribe()
	_, ok = <-after.C()
	assert.False(t, ok, "关闭后新订阅应立即结束")
	after.Close()
}

func TestOutbox(t *testing.T) {
	q := NewOutbox()
	assert.Nil(t, q.Drain())

	require.NoError(t, q.Push(relay.NewTurnOnOff(1, true, 0)))
	require.NoError(t, q.Push(relay.NewTurnOnOff(2, true, 0)))
	assert.Equal(t, 2, q.Len())

	got := q.Drain()
	require.Len(t, got, 2)
	assert.Equal(t, uint32(1), got[0].(relay.CommandPacket).SerialNumber)
	assert.Equal(t, uint32(2), got[1].(relay.CommandPacket).SerialNumber)
	assert.Equal(t, 0, q.Len())

	require.NoError(t, q.Push(relay.NewTurnOnOff(3, true, 0)))
	q.Close()
	assert.ErrorIs(t, q.Push(relay.NewTurnOnOff(4, true, 0)), ErrStopped)
	assert.Len(t, q.Drain(), 1, "关闭前入队的报文仍可取出")
}
