// Watering-bridge connects a browser UI to a solar watering controller over a
// serial radio modem.
//
// The serve command owns the radio link, decodes controller frames into a
// shared device state, and exposes it over an HTTP/JSON API with live
// WebSocket updates. The remaining commands are client and debugging tools.
//
// Usage:
//
//	watering-bridge [command] [flags]
//
// See 'watering-bridge --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/watering/internal/config"
	"github.com/muurk/watering/internal/logging"
	"github.com/muurk/watering/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Global flags
var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "watering-bridge",
	Short: "Solar watering controller bridge",
	Long: `A bridge between a browser UI and a solar watering controller.

The controller is reached through a serial radio modem. 'serve' runs the
bridge; 'monitor' and 'send' talk to a running bridge over its HTTP API.

Configuration is read from config.yaml in the user config directory unless
--config is given.`,
	Version:       version.Get().String(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: user config dir)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(portsCmd)
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "watering-bridge "+version.Get().Full())
	},
}

// initClientLogging sets up logging for the client commands, which stay
// silent unless --log-level or WATERING_LOG_LEVEL asks otherwise.
func initClientLogging() error {
	return logging.Initialize(logLevel)
}

// loadConfig reads the config file named by --config or the default one.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}
