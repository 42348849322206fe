package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/taoyao-code/relay-bridge/internal/app"
	cfgpkg "github.com/taoyao-code/relay-bridge/internal/config"
	"github.com/taoyao-code/relay-bridge/internal/logging"
	"github.com/taoyao-code/relay-bridge/internal/protocol/relay"
)

// send 命令参数
type sendOptions struct {
	port         string
	baud         int
	relay        int
	on           bool
	off          bool
	serialNumber uint32
	ackID        uint16
	isAck        bool
	wait         time.Duration
}

var sendOpts sendOptions

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send one TurnOnOff command directly on the serial port",
	Long: `Open the serial port, send a single TurnOnOff command and print every
incoming packet received during --wait as one JSON object per line.

Do not run this while 'serve' holds the same port.`,
	Example: `  # Turn relay 5 on
  relay-bridge send --relay 5 --on

  # Turn relay 2 off and listen for replies for 3 seconds
  relay-bridge send --relay 2 --off --wait 3s --port /dev/ttyUSB0`,
	RunE: runSend,
}

func init() {
	f := sendCmd.Flags()
	f.StringVar(&sendOpts.port, "port", "", "Serial port (overrides config)")
	f.IntVar(&sendOpts.baud, "baud", 0, "Baud rate (overrides config)")
	f.IntVar(&sendOpts.relay, "relay", -1, "Relay index 0-255")
	f.BoolVar(&sendOpts.on, "on", false, "Turn the relay on")
	f.BoolVar(&sendOpts.off, "off", false, "Turn the relay off")
	f.Uint32Var(&sendOpts.serialNumber, "serial-number", 1, "Packet serial number")
	f.Uint16Var(&sendOpts.ackID, "ack-id", 0, "Ack id")
	f.BoolVar(&sendOpts.isAck, "is-ack", false, "Set the is-ack flag")
	f.DurationVar(&sendOpts.wait, "wait", 500*time.Millisecond, "How long to listen for incoming packets")
	sendCmd.MarkFlagsMutuallyExclusive("on", "off")
	_ = sendCmd.MarkFlagRequired("relay")
}

// buildPacket 校验参数并构造命令报文
func (o sendOptions) buildPacket() (relay.CommandPacket, error) {
	if o.relay < 0 || o.relay > 255 {
		return relay.CommandPacket{}, fmt.Errorf("--relay must be in 0..255, got %d", o.relay)
	}
	if o.on == o.off {
		return relay.CommandPacket{}, errors.New("exactly one of --on or --off is required")
	}
	pkt := relay.NewTurnOnOff(o.serialNumber, o.on, uint8(o.relay))
	pkt.AckID = o.ackID
	if o.isAck {
		pkt.Flags |= relay.FlagIsAck
	}
	return pkt, nil
}

func runSend(cmd *cobra.Command, args []string) error {
	pkt, err := sendOpts.buildPacket()
	if err != nil {
		return err
	}

	cfg, err := cfgpkg.Load(configPath)
	if err != nil {
		return err
	}
	if sendOpts.port != "" {
		cfg.Serial.Port = sendOpts.port
	}
	if sendOpts.baud > 0 {
		cfg.Serial.Baud = sendOpts.baud
	}

	// 日志写到 stderr，stdout 只输出报文
	cfg.Logging.Format = "console"
	log := logging.NewWithWriter(cfg.Logging, cmd.ErrOrStderr())
	defer func() { _ = log.Sync() }()

	port, err := app.OpenSerialPort(cfg.Serial)
	if err != nil {
		return err
	}
	defer port.Close()

	return sendAndListen(cmd.Context(), port, cfg.Bridge, pkt, sendOpts.wait, cmd.OutOrStdout(), log)
}

// sendAndListen 发送一条报文并在 wait 时间内输出收到的上行报文
func sendAndListen(ctx context.Context, port io.ReadWriter, cfg cfgpkg.BridgeConfig, pkt relay.Message, wait time.Duration, out io.Writer, log *zap.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	b := app.NewBridge(port, cfg, log, nil)
	sub := b.Subscribe()
	if err := b.Start(ctx); err != nil {
		return err
	}
	defer b.Stop()

	if err := b.Sender().Send(pkt); err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	timer := time.NewTimer(wait)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
			return nil
		case msg, ok := <-sub.C():
			if !ok {
				return nil
			}
			if err := enc.Encode(msg); err != nil {
				return err
			}
		}
	}
}
