package serialio

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"

	cfgpkg "github.com/taoyao-code/relay-bridge/internal/config"
)

// 未配置时的串口参数
const (
	DefaultPortName    = "/dev/ttyS0"
	DefaultBaud        = 9600
	DefaultReadTimeout = 100 * time.Millisecond
)

// SerialPort tarm/serial 串口封装，读超时视为无数据
type SerialPort struct {
	name string
	port *serial.Port
}

// OpenPort 按配置打开串口；失败直接返回（启动期致命错误）
func OpenPort(cfg cfgpkg.SerialConfig) (*SerialPort, error) {
	name := cfg.Port
	if name == "" {
		name = DefaultPortName
	}
	baud := cfg.Baud
	if baud <= 0 {
		baud = DefaultBaud
	}
	// tarm/serial 以 100ms 为粒度设置 VTIME，超时为 0 时读会一直阻塞
	to := cfg.ReadTimeout
	if to <= 0 {
		to = DefaultReadTimeout
	}

	p, err := serial.OpenPort(&serial.Config{
		Name:        name,
		Baud:        baud,
		ReadTimeout: to,
		Parity:      serial.ParityNone,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", name, err)
	}
	return &SerialPort{name: name, port: p}, nil
}

// Name 串口设备名
func (p *SerialPort) Name() string { return p.name }

// Read 读超时（驱动返回 0, io.EOF）映射为 0, nil
func (p *SerialPort) Read(b []byte) (int, error) {
	n, err := p.port.Read(b)
	if n == 0 && errors.Is(err, io.EOF) {
		return 0, nil
	}
	return n, err
}

// Write 写出全部字节
func (p *SerialPort) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

// Close 关闭串口
func (p *SerialPort) Close() error {
	return p.port.Close()
}
