package relay

import "fmt"

// PacketType 报文首字节类型标记
type PacketType uint8

const (
	PacketTypeCommand PacketType = 0x01
)

func (t PacketType) String() string {
	switch t {
	case PacketTypeCommand:
		return "command"
	default:
		return fmt.Sprintf("unknown(0x%02X)", uint8(t))
	}
}

// Message 在应用与设备之间流转的报文；实现方为值类型，构造后不再修改
type Message interface {
	PacketType() PacketType
	Serialize() []byte
	Validate() error
}

var _ Message = CommandPacket{}
