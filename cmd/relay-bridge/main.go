// Relay-bridge bridges a relay controller on a serial line to local producers
// and consumers.
//
// Usage:
//
//	relay-bridge serve [--config path]
//	relay-bridge send --relay N --on|--off [flags]
//	relay-bridge version
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/taoyao-code/relay-bridge/internal/app/bootstrap"
	cfgpkg "github.com/taoyao-code/relay-bridge/internal/config"
	"github.com/taoyao-code/relay-bridge/internal/logging"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var configPath string

var rootCmd = &cobra.Command{
	Use:   "relay-bridge",
	Short: "Serial control-channel bridge for relay controllers",
	Long: `relay-bridge owns the serial link to a relay controller. Incoming packets are
broadcast to every subscriber, outgoing commands are queued from any producer
and written in order.`,
	Version:       bootstrap.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $RELAY_CONFIG or configs/example.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(versionCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bridge with the HTTP control API",
	Example: `  # Use configs/example.yaml
  relay-bridge serve

  # Explicit config, overriding the port from the environment
  RELAY_SERIAL_PORT=/dev/ttyUSB0 relay-bridge serve --config /etc/relay-bridge.yaml`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := cfgpkg.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.InitLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	return bootstrap.Run(cfg, logger)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "relay-bridge %s\n", bootstrap.Version)
	},
}
