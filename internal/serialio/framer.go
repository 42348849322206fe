package serialio

import (
	"errors"
	"fmt"
	"io"
)

// 帧格式：AE EA + payload + CA AC
var (
	StartSentinel = [2]byte{0xAE, 0xEA}
	StopSentinel  = [2]byte{0xCA, 0xAC}
)

// MaxPayload 未遇到帧尾前允许缓存的最大载荷字节数
const MaxPayload = 64

// ErrMalformedFrame 超过 MaxPayload 仍未找到帧尾，或单次扫描丢弃的噪声过多
var ErrMalformedFrame = errors.New("malformed data: no frame could be found in bytes received")

// Port 串口等字节双工句柄
// Read 返回 0, nil 表示当前无可读字节，不得无限期阻塞
type Port interface {
	io.Reader
	io.Writer
}

// Framer 在原始字节流上按起止标记切分帧
// 未完成的帧状态跨调用保留，以便拼接被多次非阻塞读拆开的帧
type Framer struct {
	port    Port
	rd      [1]byte
	scratch []byte
	inFrame bool
	prev    byte
	hasPrev bool
}

// NewFramer 创建帧处理器
func NewFramer(port Port) *Framer {
	return &Framer{port: port, scratch: make([]byte, 0, MaxPayload+1)}
}

// ReadFrame 尝试读取一个完整帧，返回去除起止标记后的载荷
// 无可读字节或帧尚未完整时返回 nil, nil；空帧返回非 nil 的空切片
func (f *Framer) ReadFrame() ([]byte, error) {
	skipped := 0
	for {
		n, err := f.port.Read(f.rd[:])
		if n == 0 {
			if err != nil {
				return nil, err
			}
			return nil, nil
		}
		b := f.rd[0]

		if !f.inFrame {
			if f.hasPrev && f.prev == StartSentinel[0] && b == StartSentinel[1] {
				f.inFrame = true
				f.hasPrev = false
				f.scratch = f.scratch[:0]
				continue
			}
			f.prev, f.hasPrev = b, true
			skipped++
			if skipped > MaxPayload {
				f.Reset()
				return nil, fmt.Errorf("%w (%d bytes without start sentinel)", ErrMalformedFrame, skipped)
			}
			continue
		}

		// 帧内：上一字节为 CA 且当前为 AC 即帧尾
		if last := len(f.scratch) - 1; last >= 0 && f.scratch[last] == StopSentinel[0] && b == StopSentinel[1] {
			payload := make([]byte, last)
			copy(payload, f.scratch[:last])
			f.Reset()
			return payload, nil
		}

		f.scratch = append(f.scratch, b)
		// 允许第 MaxPayload+1 字节为帧尾首字节
		if len(f.scratch) > MaxPayload && !(len(f.scratch) == MaxPayload+1 && b == StopSentinel[0]) {
			size := len(f.scratch)
			f.Reset()
			return nil, fmt.Errorf("%w (%d bytes without stop sentinel)", ErrMalformedFrame, size)
		}
	}
}

// Pending 当前是否有未完成的帧
func (f *Framer) Pending() bool { return f.inFrame }

// Reset 丢弃未完成的帧
func (f *Framer) Reset() {
	f.scratch = f.scratch[:0]
	f.inFrame = false
	f.hasPrev = false
}

// WriteFrame 加上起止标记后一次性写出；不做部分写重试
func (f *Framer) WriteFrame(payload []byte) error {
	buf := make([]byte, 0, len(payload)+4)
	buf = append(buf, StartSentinel[:]...)
	buf = append(buf, payload...)
	buf = append(buf, StopSentinel[:]...)

	n, err := f.port.Write(buf)
	if err != nil {
		return err
	}
	if n < len(buf) {
		return io.ErrShortWrite
	}
	return nil
}
