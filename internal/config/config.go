package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/muurk/watering/internal/protocol"
)

// Config is the bridge configuration file.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Radio   RadioConfig   `yaml:"radio"`
	Session SessionConfig `yaml:"session"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	MDNS    MDNSConfig    `yaml:"mdns"`
	Log     LogConfig     `yaml:"log"`
}

// HTTPConfig configures the web API.
type HTTPConfig struct {
	Listen    string `yaml:"listen"`
	StaticDir string `yaml:"static_dir"`
}

// RadioConfig describes the serial radio modem and the addresses used on air.
// Addresses are written as decimal or 0x-prefixed hex strings.
type RadioConfig struct {
	Port        string        `yaml:"port"`
	Baud        int           `yaml:"baud"`
	Address     string        `yaml:"address"`
	Peer        string        `yaml:"peer"`
	Retries     int           `yaml:"retries"`
	AckTimeout  time.Duration `yaml:"ack_timeout"`
	AutoConnect bool          `yaml:"auto_connect"`
}

// SessionConfig tunes version negotiation and sends.
type SessionConfig struct {
	VersionQueryDelay    time.Duration `yaml:"version_query_delay"`
	VersionQueryInterval time.Duration `yaml:"version_query_interval"`
	SendTimeout          time.Duration `yaml:"send_timeout"`
}

// MQTTConfig configures the optional state publisher.
type MQTTConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Broker      string        `yaml:"broker"`
	ClientID    string        `yaml:"client_id"`
	Username    string        `yaml:"username"`
	Password    string        `yaml:"password"`
	TopicPrefix string        `yaml:"topic_prefix"`
	Timeout     time.Duration `yaml:"timeout"`
}

// MDNSConfig configures service advertisement.
type MDNSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Instance string `yaml:"instance"`
}

// LogConfig configures the process log.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{Listen: ":8080"},
		Radio: RadioConfig{
			Baud:       115200,
			Address:    protocol.DefaultServerAddress.String(),
			Peer:       protocol.DefaultNodeAddress.String(),
			Retries:    5,
			AckTimeout: 200 * time.Millisecond,
		},
		Session: SessionConfig{
			VersionQueryDelay:    500 * time.Millisecond,
			VersionQueryInterval: 3 * time.Second,
			SendTimeout:          10 * time.Second,
		},
		MQTT: MQTTConfig{
			Broker:      "tcp://localhost:1883",
			ClientID:    "watering-bridge",
			TopicPrefix: "watering",
			Timeout:     5 * time.Second,
		},
		MDNS: MDNSConfig{Enabled: true, Instance: "watering-bridge"},
		Log:  LogConfig{Level: "info", Format: "console"},
	}
}

// Load reads the configuration from path. An empty path means the default
// location; a missing file yields the defaults. Fields absent from the file
// keep their default values.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := GetConfigPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get config path: %w", err)
		}
		path = p
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges. An empty radio port is allowed; it only
// matters when auto_connect is set.
func (c *Config) Validate() error {
	var errs []string

	if c.HTTP.Listen == "" {
		errs = append(errs, "http.listen is required")
	}
	if c.Radio.Baud <= 0 {
		errs = append(errs, fmt.Sprintf("radio.baud must be positive, got %d", c.Radio.Baud))
	}
	if _, err := protocol.ParseAddress(c.Radio.Address); err != nil {
		errs = append(errs, "radio.address: "+err.Error())
	}
	if _, err := protocol.ParseAddress(c.Radio.Peer); err != nil {
		errs = append(errs, "radio.peer: "+err.Error())
	}
	if c.Radio.Retries < 0 {
		errs = append(errs, "radio.retries must not be negative")
	}
	if c.Radio.AutoConnect && c.Radio.Port == "" {
		errs = append(errs, "radio.port is required when radio.auto_connect is set")
	}
	if c.Session.VersionQueryInterval < 0 || c.Session.VersionQueryDelay < 0 || c.Session.SendTimeout < 0 {
		errs = append(errs, "session durations must not be negative")
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		errs = append(errs, "mqtt.broker is required when mqtt is enabled")
	}
	switch c.Log.Format {
	case "", "console", "json":
	default:
		errs = append(errs, fmt.Sprintf("log.format must be console or json, got %q", c.Log.Format))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// Addresses returns the parsed own and peer radio addresses.
func (c *Config) Addresses() (own, peer protocol.Address, err error) {
	own, err = protocol.ParseAddress(c.Radio.Address)
	if err != nil {
		return 0, 0, err
	}
	peer, err = protocol.ParseAddress(c.Radio.Peer)
	if err != nil {
		return 0, 0, err
	}
	return own, peer, nil
}

// Save writes the configuration to path atomically, creating the directory
// if needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# Watering bridge configuration\n# Durations use Go syntax (500ms, 3s). Addresses accept decimal or 0x hex.\n\n")
	data = append(header, data...)

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config file: %w", err)
	}
	return nil
}
