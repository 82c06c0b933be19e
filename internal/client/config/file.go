package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/dmitrijs2005/tripmate/internal/flagx"
	"github.com/dmitrijs2005/tripmate/internal/timex"
)

// FileConfig is a DTO used exclusively for file decoding. Durations use
// timex.Duration so files can give "3s" strings (JSON and TOML) or integer
// nanoseconds (JSON). Zero values leave the current setting untouched.
type FileConfig struct {
	ServerURL            string         `json:"server_url" toml:"server_url"`
	RequestTimeout       timex.Duration `json:"request_timeout" toml:"request_timeout"`
	IdleTimeout          timex.Duration `json:"idle_timeout" toml:"idle_timeout"`
	IdleCoalesce         timex.Duration `json:"idle_coalesce" toml:"idle_coalesce"`
	ReconnectDelay       timex.Duration `json:"reconnect_delay" toml:"reconnect_delay"`
	MaxReconnectAttempts int            `json:"max_reconnect_attempts" toml:"max_reconnect_attempts"`
	SyncInterval         timex.Duration `json:"sync_interval" toml:"sync_interval"`
	StorePath            string         `json:"store_path" toml:"store_path"`
	LogLevel             string         `json:"log_level" toml:"log_level"`
}

// parseFile overlays cfg with the file named by -c/-config. The format
// follows the extension: .toml is TOML, anything else JSON. Panics on read
// or decode errors.
func parseFile(cfg *Config) {
	path := flagx.ConfigFileFlag(os.Args[1:])
	if path == "" {
		return
	}
	if err := loadFile(path, cfg); err != nil {
		panic(err)
	}
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var fc FileConfig
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(string(data), &fc); err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
	} else if err := json.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	fc.apply(cfg)
	return nil
}

func (fc FileConfig) apply(cfg *Config) {
	if fc.ServerURL != "" {
		cfg.ServerURL = fc.ServerURL
	}
	if fc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = fc.RequestTimeout.Duration
	}
	if fc.IdleTimeout.Duration > 0 {
		cfg.IdleTimeout = fc.IdleTimeout.Duration
	}
	if fc.IdleCoalesce.Duration > 0 {
		cfg.IdleCoalesce = fc.IdleCoalesce.Duration
	}
	if fc.ReconnectDelay.Duration > 0 {
		cfg.ReconnectDelay = fc.ReconnectDelay.Duration
	}
	if fc.MaxReconnectAttempts > 0 {
		cfg.MaxReconnectAttempts = fc.MaxReconnectAttempts
	}
	if fc.SyncInterval.Duration > 0 {
		cfg.SyncInterval = fc.SyncInterval.Duration
	}
	if fc.StorePath != "" {
		cfg.StorePath = fc.StorePath
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
}
