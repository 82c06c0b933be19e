// Package config handles configuration for the development backend,
// including defaults, JSON overlay, environment and command-line flags.
package config

import "time"

// Config holds runtime settings for the tripmate development backend.
//
// Fields:
//   - Addr: bind address for the HTTP API.
//   - SecretKey: HMAC secret for signing access credentials (HS256). Do not use the default outside development.
//   - AccessTokenTTL / RefreshTokenTTL: credential lifetimes.
//   - KeepaliveInterval: spacing of keepalive records on open notification streams.
//   - DemoName / DemoEmail / DemoPassword: the account seeded at startup.
//   - DatabaseDSN: PostgreSQL connection string; empty keeps everything in memory.
type Config struct {
	Addr              string
	SecretKey         string
	AccessTokenTTL    time.Duration
	RefreshTokenTTL   time.Duration
	KeepaliveInterval time.Duration
	DemoName          string
	DemoEmail         string
	DemoPassword      string
	DatabaseDSN       string
	LogLevel          string
}

// LoadDefaults populates Config with development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.Addr = ":8080"
	c.SecretKey = "secretKey"
	c.AccessTokenTTL = 1 * time.Minute
	c.RefreshTokenTTL = 24 * time.Hour
	c.KeepaliveInterval = 15 * time.Second
	c.DemoName = "Demo Traveller"
	c.DemoEmail = "demo@tripmate.dev"
	c.DemoPassword = "demo"
	c.DatabaseDSN = ""
	c.LogLevel = "info"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file, the environment and finally command-line
// flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
