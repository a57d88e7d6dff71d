package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/muurk/watering/internal/protocol"
)

func TestGetConfigDir(t *testing.T) {
	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}

	if !strings.Contains(configDir, "watering") {
		t.Errorf("GetConfigDir() = %v, should contain 'watering'", configDir)
	}

	switch runtime.GOOS {
	case "darwin", "linux":
		if os.Getenv("XDG_CONFIG_HOME") == "" && !strings.Contains(configDir, ".config") {
			t.Errorf("Unix config dir should contain '.config', got: %v", configDir)
		}
	}
}

func TestGetConfigDirXDG(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG_CONFIG_HOME only applies on Linux")
	}
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	got, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}
	want := filepath.Join(dir, "watering", "config.yaml")
	if got != want {
		t.Errorf("GetConfigPath() = %v, want %v", got, want)
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}

	own, peer, err := cfg.Addresses()
	if err != nil {
		t.Fatalf("Addresses() error = %v", err)
	}
	if own != protocol.DefaultServerAddress || peer != protocol.DefaultNodeAddress {
		t.Errorf("Addresses() = %v, %v, want %v, %v", own, peer, protocol.DefaultServerAddress, protocol.DefaultNodeAddress)
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeFile(t, `
http:
  listen: "127.0.0.1:9000"
radio:
  port: /dev/ttyUSB0
  peer: "221"
  ack_timeout: 350ms
  auto_connect: true
session:
  version_query_interval: 5s
mqtt:
  enabled: true
  broker: tcp://broker:1883
log:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.HTTP.Listen != "127.0.0.1:9000" {
		t.Errorf("HTTP.Listen = %v, want 127.0.0.1:9000", cfg.HTTP.Listen)
	}
	if cfg.Radio.Port != "/dev/ttyUSB0" || !cfg.Radio.AutoConnect {
		t.Errorf("Radio = %+v", cfg.Radio)
	}
	if cfg.Radio.AckTimeout != 350*time.Millisecond {
		t.Errorf("Radio.AckTimeout = %v, want 350ms", cfg.Radio.AckTimeout)
	}
	if cfg.Session.VersionQueryInterval != 5*time.Second {
		t.Errorf("Session.VersionQueryInterval = %v, want 5s", cfg.Session.VersionQueryInterval)
	}
	if !cfg.MQTT.Enabled || cfg.MQTT.Broker != "tcp://broker:1883" {
		t.Errorf("MQTT = %+v", cfg.MQTT)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v", cfg.Log)
	}

	// untouched fields keep defaults
	if cfg.Radio.Baud != 115200 {
		t.Errorf("Radio.Baud = %v, want default 115200", cfg.Radio.Baud)
	}
	if cfg.Session.VersionQueryDelay != 500*time.Millisecond {
		t.Errorf("Session.VersionQueryDelay = %v, want default 500ms", cfg.Session.VersionQueryDelay)
	}
	if cfg.MQTT.TopicPrefix != "watering" {
		t.Errorf("MQTT.TopicPrefix = %v, want default watering", cfg.MQTT.TopicPrefix)
	}

	_, peer, err := cfg.Addresses()
	if err != nil {
		t.Fatalf("Addresses() error = %v", err)
	}
	if peer != 221 {
		t.Errorf("peer = %v, want 221", peer)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}
	if cfg.HTTP.Listen != Default().HTTP.Listen {
		t.Errorf("HTTP.Listen = %v, want default", cfg.HTTP.Listen)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() with explicit missing path should fail")
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad yaml", "radio: [", "failed to parse"},
		{"bad duration", "radio:\n  ack_timeout: soon\n", "failed to parse"},
		{"reserved address", "radio:\n  address: \"0xFF\"\n", "radio.address"},
		{"zero peer", "radio:\n  peer: \"0\"\n", "radio.peer"},
		{"auto connect without port", "radio:\n  auto_connect: true\n", "radio.port"},
		{"negative baud", "radio:\n  baud: -1\n", "radio.baud"},
		{"mqtt without broker", "mqtt:\n  enabled: true\n  broker: \"\"\n", "mqtt.broker"},
		{"log format", "log:\n  format: xml\n", "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.content))
			if err == nil {
				t.Fatal("Load() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Radio.Port = "/dev/ttyACM0"
	cfg.Radio.AckTimeout = 250 * time.Millisecond
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Radio.Port != "/dev/ttyACM0" {
		t.Errorf("Radio.Port = %v, want /dev/ttyACM0", loaded.Radio.Port)
	}
	if loaded.Radio.AckTimeout != 250*time.Millisecond {
		t.Errorf("Radio.AckTimeout = %v, want 250ms", loaded.Radio.AckTimeout)
	}
}
