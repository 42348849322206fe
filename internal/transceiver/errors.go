package transceiver

import (
	"errors"
	"fmt"
)

// 错误类别，使用 errors.Is 判断
var (
	ErrIO                = errors.New("transceiver: io")
	ErrParse             = errors.New("transceiver: parse")
	ErrUnknownPacketType = errors.New("transceiver: unknown packet type")
)

// Error 收发错误，Kind 为上述类别之一，Err 为底层原因
type Error struct {
	Kind       error
	PacketType byte // 仅 ErrUnknownPacketType 有效
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrUnknownPacketType:
		return fmt.Sprintf("unknown packet type '0x%02X'", e.PacketType)
	case ErrIO:
		return fmt.Sprintf("io: %v", e.Err)
	default:
		return fmt.Sprintf("parse: %v", e.Err)
	}
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindName 错误类别名称，用于日志与指标标签
func KindName(err error) string {
	switch {
	case errors.Is(err, ErrIO):
		return "io"
	case errors.Is(err, ErrParse):
		return "parse"
	case errors.Is(err, ErrUnknownPacketType):
		return "unknown_packet_type"
	default:
		return "other"
	}
}
