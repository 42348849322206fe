package app

import (
	"io"

	"go.uber.org/zap"

	"github.com/taoyao-code/relay-bridge/internal/bridge"
	cfgpkg "github.com/taoyao-code/relay-bridge/internal/config"
	"github.com/taoyao-code/relay-bridge/internal/metrics"
	"github.com/taoyao-code/relay-bridge/internal/serialio"
	"github.com/taoyao-code/relay-bridge/internal/transceiver"
)

// PortOpener 打开串口，测试中可替换
type PortOpener func(cfg cfgpkg.SerialConfig) (io.ReadWriteCloser, error)

// OpenSerialPort 默认串口打开方式
func OpenSerialPort(cfg cfgpkg.SerialConfig) (io.ReadWriteCloser, error) {
	p, err := serialio.OpenPort(cfg)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// NewBridge 在已打开的串口上构建收发器与收发循环（未启动）
func NewBridge(port serialio.Port, cfg cfgpkg.BridgeConfig, log *zap.Logger, m *metrics.AppMetrics) *bridge.Bridge {
	return bridge.New(transceiver.New(port), bridge.Options{
		SubscriberBuffer: cfg.SubscriberBuffer,
		IdleInterval:     cfg.IdleInterval,
		Logger:           log,
		Metrics:          m,
	})
}
