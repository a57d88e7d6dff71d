// Package config loads the bridge configuration.
//
// The configuration is a YAML file with one section per component: http,
// radio, session, mqtt, mdns and log. Durations use Go syntax ("500ms",
// "3s") and radio addresses accept decimal or 0x-prefixed hex text. Fields
// missing from the file keep the values from Default.
//
// # Configuration File Location
//
// Without an explicit path the file is looked up in the platform config dir:
//   - Linux: $XDG_CONFIG_HOME/watering/config.yaml or $HOME/.config/watering/config.yaml
//   - macOS: $HOME/.config/watering/config.yaml
//   - Windows: %LOCALAPPDATA%\watering\config.yaml
//
// A missing file at the default location is not an error.
//
// # Usage Example
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	own, peer, err := cfg.Addresses()
package config
