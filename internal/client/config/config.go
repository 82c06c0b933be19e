package config

import "time"

// Config holds runtime settings for the tripmate client.
type Config struct {
	// ServerURL is the backend base URL, e.g. http://127.0.0.1:8080.
	ServerURL string
	// RequestTimeout bounds ordinary API calls. The notification stream
	// is not bounded by it.
	RequestTimeout time.Duration
	// IdleTimeout ends the session after this long without activity.
	IdleTimeout time.Duration
	// IdleCoalesce is the minimum spacing between idle timer resets.
	IdleCoalesce         time.Duration
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int
	// SyncInterval is how often notification state is reconciled with
	// the backend. Zero disables it.
	SyncInterval time.Duration
	// StorePath is the SQLite file that keeps the access credential
	// across restarts.
	StorePath string
	LogLevel  string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.RequestTimeout = 10 * time.Second
	c.IdleTimeout = 30 * time.Minute
	c.IdleCoalesce = time.Second
	c.ReconnectDelay = 3 * time.Second
	c.MaxReconnectAttempts = 5
	c.SyncInterval = time.Minute
	c.StorePath = "session.db"
	c.LogLevel = "info"
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from a config file (if given), the environment and command-line flags.
// Later sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFile(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
