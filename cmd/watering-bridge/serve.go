package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/watering/internal/config"
	"github.com/muurk/watering/internal/discovery"
	"github.com/muurk/watering/internal/logging"
	"github.com/muurk/watering/internal/publish"
	"github.com/muurk/watering/internal/radio"
	"github.com/muurk/watering/internal/server"
	"github.com/muurk/watering/internal/session"
	"github.com/muurk/watering/internal/store"
	"github.com/muurk/watering/internal/version"
)

// Serve command flags
var (
	serveListen    string
	serveStaticDir string
	servePort      string
	serveNoMDNS    bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bridge",
	Long: `Run the bridge HTTP API and own the radio link to the controller.

The radio link is opened by POST /api/connect, or at startup when
radio.auto_connect is set in the config file (or --port is given).

The bridge is advertised on the local network as _watering._tcp unless
mDNS is disabled. When mqtt.enabled is set, device state is also
published to the broker.`,
	Example: `  # Serve on the default address with settings from the config file
  watering-bridge serve

  # Serve the browser UI and connect to a modem right away
  watering-bridge serve --static ./web --port /dev/ttyUSB0

  # Listen on a different address with debug logging
  watering-bridge serve --listen 127.0.0.1:9000 --log-level debug`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "HTTP listen address (overrides http.listen)")
	serveCmd.Flags().StringVar(&serveStaticDir, "static", "", "Directory with the browser UI (overrides http.static_dir)")
	serveCmd.Flags().StringVar(&servePort, "port", "", "Serial port to connect at startup (implies auto-connect)")
	serveCmd.Flags().BoolVar(&serveNoMDNS, "no-mdns", false, "Do not advertise the bridge over mDNS")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyServeFlags(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := logging.InitializeWithFormat(cfg.Log.Level, cfg.Log.Format); err != nil {
		return err
	}
	defer logging.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bridgeVersion := version.Get().String()
	logging.Info("Starting watering bridge",
		zap.String("version", bridgeVersion),
		zap.String("listen", cfg.HTTP.Listen),
	)

	sess := session.New(session.Options{
		Dialer:               radio.DialSerial,
		Store:                store.New(),
		Retries:              cfg.Radio.Retries,
		AckTimeout:           cfg.Radio.AckTimeout,
		VersionQueryDelay:    cfg.Session.VersionQueryDelay,
		VersionQueryInterval: cfg.Session.VersionQueryInterval,
		SendTimeout:          cfg.Session.SendTimeout,
	})
	defer func() {
		if err := sess.Close(); err != nil {
			logging.Warn("Failed to close session", zap.Error(err))
		}
	}()

	srv := server.New(server.Config{
		Listen:        cfg.HTTP.Listen,
		StaticDir:     cfg.HTTP.StaticDir,
		BridgeVersion: bridgeVersion,
	}, sess)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run(ctx)
	}()

	if cfg.Radio.AutoConnect {
		autoConnect(ctx, cfg, sess)
	}

	if cfg.MDNS.Enabled {
		if adv := advertise(cfg, bridgeVersion); adv != nil {
			defer adv.Shutdown()
		}
	}

	if cfg.MQTT.Enabled {
		mc, err := publish.DialMQTT(publish.MQTTConfig{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			Username:    cfg.MQTT.Username,
			Password:    cfg.MQTT.Password,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			Timeout:     cfg.MQTT.Timeout,
		})
		if err != nil {
			logging.Warn("MQTT publishing disabled", zap.Error(err))
		} else {
			defer mc.Close()
			go publish.NewStatePublisher(mc, sess, cfg.MQTT.TopicPrefix).Run(ctx)
		}
	}

	if err := <-errCh; err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	logging.Info("Bridge stopped")
	return nil
}

func applyServeFlags(cfg *config.Config) {
	if serveListen != "" {
		cfg.HTTP.Listen = serveListen
	}
	if serveStaticDir != "" {
		cfg.HTTP.StaticDir = serveStaticDir
	}
	if servePort != "" {
		cfg.Radio.Port = servePort
		cfg.Radio.AutoConnect = true
	}
	if serveNoMDNS {
		cfg.MDNS.Enabled = false
	}
}

// autoConnect opens the configured radio link. Failures are logged; the
// link can still be opened through the API.
func autoConnect(ctx context.Context, cfg *config.Config, sess *session.Session) {
	own, peer, err := cfg.Addresses()
	if err != nil {
		logging.Warn("Auto-connect skipped", zap.Error(err))
		return
	}
	err = sess.Connect(ctx, session.Params{
		Port: cfg.Radio.Port,
		Baud: cfg.Radio.Baud,
		Own:  own,
		Peer: peer,
	})
	if err != nil {
		logging.Warn("Auto-connect failed",
			zap.String("port", cfg.Radio.Port),
			zap.Error(err),
		)
	}
}

// advertise announces the bridge over mDNS. It returns nil when the listen
// address has no usable port or registration fails.
func advertise(cfg *config.Config, bridgeVersion string) *discovery.Advertisement {
	_, portStr, err := net.SplitHostPort(cfg.HTTP.Listen)
	port, convErr := strconv.Atoi(portStr)
	if err != nil || convErr != nil || port == 0 {
		logging.Warn("mDNS advertisement skipped, listen address has no fixed port",
			zap.String("listen", cfg.HTTP.Listen))
		return nil
	}

	txt := []string{
		"version=" + bridgeVersion,
		"path=/api",
		"peer=" + cfg.Radio.Peer,
	}
	adv, err := discovery.Advertise(cfg.MDNS.Instance, port, txt)
	if err != nil {
		logging.Warn("mDNS advertisement failed", zap.Error(err))
		return nil
	}
	return adv
}
