package transceiver

import (
	"errors"

	"github.com/taoyao-code/relay-bridge/internal/protocol/relay"
	"github.com/taoyao-code/relay-bridge/internal/serialio"
)

var errNilMessage = errors.New("nil message")

// Transceiver 帧层 + 报文编解码
// 非并发安全：同一时刻只能由一个 goroutine 持有
type Transceiver struct {
	framer *serialio.Framer
}

// New 基于字节双工句柄创建收发器
func New(port serialio.Port) *Transceiver {
	return &Transceiver{framer: serialio.NewFramer(port)}
}

// TryReceive 尝试接收一条报文；无完整帧时返回 nil, nil
func (t *Transceiver) TryReceive() (relay.Message, error) {
	payload, err := t.framer.ReadFrame()
	if err != nil {
		return nil, &Error{Kind: ErrIO, Err: err}
	}
	return Decode(payload)
}

// TrySend 编码并发送一条报文；无法编码的报文返回 ErrParse 类错误，不写串口
func (t *Transceiver) TrySend(msg relay.Message) error {
	if msg == nil {
		return &Error{Kind: ErrParse, Err: errNilMessage}
	}
	if err := msg.Validate(); err != nil {
		return &Error{Kind: ErrParse, Err: err}
	}
	if err := t.framer.WriteFrame(msg.Serialize()); err != nil {
		return &Error{Kind: ErrIO, Err: err}
	}
	return nil
}

// Decode 按首字节报文类型分发解码；空载荷视为未收到
func Decode(payload []byte) (relay.Message, error) {
	if len(payload) == 0 {
		return nil, nil
	}
	switch relay.PacketType(payload[0]) {
	case relay.PacketTypeCommand:
		p, err := relay.ParseCommandPacket(payload)
		if err != nil {
			return nil, &Error{Kind: ErrParse, Err: err}
		}
		return p, nil
	default:
		return nil, &Error{Kind: ErrUnknownPacketType, PacketType: payload[0]}
	}
}
