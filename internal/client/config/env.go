package config

import "github.com/dmitrijs2005/tripmate/internal/flagx"

// Environment variables read by parseEnv.
const (
	EnvServerURL            = "TRIPMATE_SERVER_URL"
	EnvRequestTimeout       = "TRIPMATE_REQUEST_TIMEOUT"
	EnvIdleTimeout          = "TRIPMATE_IDLE_TIMEOUT"
	EnvReconnectDelay       = "TRIPMATE_RECONNECT_DELAY"
	EnvMaxReconnectAttempts = "TRIPMATE_MAX_RECONNECT_ATTEMPTS"
	EnvSyncInterval         = "TRIPMATE_SYNC_INTERVAL"
	EnvStorePath            = "TRIPMATE_STORE_PATH"
	EnvLogLevel             = "TRIPMATE_LOG_LEVEL"
)

func parseEnv(cfg *Config) {
	flagx.EnvString(&cfg.ServerURL, EnvServerURL)
	flagx.EnvDuration(&cfg.RequestTimeout, EnvRequestTimeout)
	flagx.EnvDuration(&cfg.IdleTimeout, EnvIdleTimeout)
	flagx.EnvDuration(&cfg.ReconnectDelay, EnvReconnectDelay)
	flagx.EnvInt(&cfg.MaxReconnectAttempts, EnvMaxReconnectAttempts)
	flagx.EnvDuration(&cfg.SyncInterval, EnvSyncInterval)
	flagx.EnvString(&cfg.StorePath, EnvStorePath)
	flagx.EnvString(&cfg.LogLevel, EnvLogLevel)
}
