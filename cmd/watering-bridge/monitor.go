package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/watering/internal/monitor"
)

// Client command flags, shared by monitor, send and ports
var (
	bridgeURL      string
	bridgeInstance string
)

var (
	monitorRefresh time.Duration
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Live terminal view of a running bridge",
	Long: `Show the state of a running bridge and send commands from the keyboard.

Without --url the first bridge advertised over mDNS is used.`,
	Example: `  # Monitor the bridge found on the local network
  watering-bridge monitor

  # Monitor a specific bridge
  watering-bridge monitor --url http://192.168.1.20:8080`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := initClientLogging(); err != nil {
			return err
		}
		return monitor.Run(cmd.Context(), monitor.Options{
			URL:      bridgeURL,
			Instance: bridgeInstance,
			Refresh:  monitorRefresh,
		})
	},
}

func addBridgeFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&bridgeURL, "url", "", "Bridge URL (default: discover via mDNS)")
	cmd.Flags().StringVar(&bridgeInstance, "instance", "", "mDNS instance name to look for")
}

func init() {
	addBridgeFlags(monitorCmd)
	monitorCmd.Flags().DurationVar(&monitorRefresh, "refresh", monitor.DefaultRefreshInterval, "Status refresh interval")
}
