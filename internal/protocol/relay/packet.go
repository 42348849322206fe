package relay

import (
	"encoding/json"
	"fmt"
)

// 报文布局：type(1) + serial(4) + ackID(2) + flags(1) + cmdType(2) + body(var)
const (
	HeaderLength        = 1 + 4 + 2 + 1 // 固定头部
	CommandHeaderLength = HeaderLength + 2
)

// CommandType 命令类型标记（2 字节）
type CommandType uint16

const (
	CommandTypeTurnOnOff CommandType = 0x0001
)

func (t CommandType) String() string {
	switch t {
	case CommandTypeTurnOnOff:
		return "turn_on_off"
	default:
		return fmt.Sprintf("unknown(0x%04X)", uint16(t))
	}
}

// CommandFlags 命令标志位集合
type CommandFlags uint8

const (
	// FlagIsAck 应答报文（bit7）
	FlagIsAck CommandFlags = 1 << 7

	knownFlags = FlagIsAck
)

// Has 是否包含指定标志
func (f CommandFlags) Has(flag CommandFlags) bool {
	return f&flag == flag
}

// encode 保留位一律置 0
func (f CommandFlags) encode() byte {
	return byte(f & knownFlags)
}

func decodeFlags(b byte) CommandFlags {
	var f CommandFlags
	if b&byte(FlagIsAck) != 0 {
		f |= FlagIsAck
	}
	return f
}

// Command 命令体，当前仅 TurnOnOff 一种
type Command interface {
	isCommand()
}

// TurnOnOff 继电器开关命令
type TurnOnOff struct {
	On         bool  `json:"on"`
	RelayIndex uint8 `json:"relay_index"`
}

func (TurnOnOff) isCommand() {}

// 各命令体的完整报文最小长度
const turnOnOffLength = CommandHeaderLength + 2

// CommandPacket 命令报文
type CommandPacket struct {
	SerialNumber uint32
	AckID        uint16
	Flags        CommandFlags
	Command      Command
}

// PacketType 实现 Message
func (p CommandPacket) PacketType() PacketType { return PacketTypeCommand }

// IsAck 是否为应答报文
func (p CommandPacket) IsAck() bool { return p.Flags.Has(FlagIsAck) }

// CommandType 返回命令类型标记；命令为空或未知时返回 0
func (p CommandPacket) CommandType() CommandType {
	switch p.Command.(type) {
	case TurnOnOff:
		return CommandTypeTurnOnOff
	default:
		return 0
	}
}

// Validate 检查报文能否编码，命令为空或未知时返回 ErrInvalidValue
func (p CommandPacket) Validate() error {
	if p.CommandType() == 0 {
		return newInvalidValue("unsupported command %T", p.Command)
	}
	return nil
}

// Serialize 编码为报文字节；调用方应先 Validate，非法报文只输出头部
func (p CommandPacket) Serialize() []byte {
	sn := EncodeU32(p.SerialNumber)
	ack := EncodeU16(p.AckID)
	cmdType := EncodeU16(uint16(p.CommandType()))

	buf := make([]byte, 0, turnOnOffLength)
	buf = append(buf, byte(PacketTypeCommand))
	buf = append(buf, sn[:]...)
	buf = append(buf, ack[:]...)
	buf = append(buf, p.Flags.encode())
	buf = append(buf, cmdType[:]...)
	return append(buf, p.encodeBody()...)
}

func (p CommandPacket) encodeBody() []byte {
	switch c := p.Command.(type) {
	case TurnOnOff:
		on := byte(0x00)
		if c.On {
			on = 0x01
		}
		return []byte{on, c.RelayIndex}
	default:
		return nil
	}
}

// ParseCommandPacket 解析命令报文（b[0] 为报文类型，不在此校验）
func ParseCommandPacket(b []byte) (CommandPacket, error) {
	if len(b) < CommandHeaderLength {
		return CommandPacket{}, newInvalidLength(CommandHeaderLength, len(b))
	}

	p := CommandPacket{
		SerialNumber: DecodeU32(b[1:5]),
		AckID:        DecodeU16(b[5:7]),
		Flags:        decodeFlags(b[7]),
	}

	cmdType := CommandType(DecodeU16(b[8:10]))
	switch cmdType {
	case CommandTypeTurnOnOff:
		if len(b) < turnOnOffLength {
			return CommandPacket{}, newInvalidLength(turnOnOffLength, len(b))
		}
		p.Command = TurnOnOff{On: b[10] == 0x01, RelayIndex: b[11]}
	default:
		return CommandPacket{}, newInvalidValue("invalid command type 0x%04X", uint16(cmdType))
	}
	return p, nil
}

func (p CommandPacket) String() string {
	return fmt.Sprintf("CommandPacket{sn=%d, ack=%d, is_ack=%v, cmd=%+v}",
		p.SerialNumber, p.AckID, p.IsAck(), p.Command)
}

type commandPacketJSON struct {
	SerialNumber uint32          `json:"serial_number"`
	AckID        uint16          `json:"ack_id"`
	IsAck        bool            `json:"is_ack"`
	CommandType  string          `json:"command_type"`
	Command      json.RawMessage `json:"command"`
}

// MarshalJSON 供 HTTP 与 Redis 镜像输出
func (p CommandPacket) MarshalJSON() ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(p.Command)
	if err != nil {
		return nil, err
	}
	return json.Marshal(commandPacketJSON{
		SerialNumber: p.SerialNumber,
		AckID:        p.AckID,
		IsAck:        p.IsAck(),
		CommandType:  p.CommandType().String(),
		Command:      body,
	})
}

// NewTurnOnOff 构造开关命令报文
func NewTurnOnOff(serialNumber uint32, on bool, relayIndex uint8) CommandPacket {
	return CommandPacket{
		SerialNumber: serialNumber,
		Command:      TurnOnOff{On: on, RelayIndex: relayIndex},
	}
}
