package config

import "github.com/dmitrijs2005/tripmate/internal/flagx"

const (
	EnvAddr              = "TRIPMATE_SERVER_ADDR"
	EnvSecretKey         = "TRIPMATE_SECRET_KEY"
	EnvAccessTokenTTL    = "TRIPMATE_ACCESS_TOKEN_TTL"
	EnvRefreshTokenTTL   = "TRIPMATE_REFRESH_TOKEN_TTL"
	EnvKeepaliveInterval = "TRIPMATE_KEEPALIVE_INTERVAL"
	EnvDemoEmail         = "TRIPMATE_DEMO_EMAIL"
	EnvDemoPassword      = "TRIPMATE_DEMO_PASSWORD"
	EnvDatabaseDSN       = "TRIPMATE_DATABASE_DSN"
	EnvLogLevel          = "TRIPMATE_LOG_LEVEL"
)

func parseEnv(config *Config) {
	flagx.EnvString(&config.Addr, EnvAddr)
	flagx.EnvString(&config.SecretKey, EnvSecretKey)
	flagx.EnvDuration(&config.AccessTokenTTL, EnvAccessTokenTTL)
	flagx.EnvDuration(&config.RefreshTokenTTL, EnvRefreshTokenTTL)
	flagx.EnvDuration(&config.KeepaliveInterval, EnvKeepaliveInterval)
	flagx.EnvString(&config.DemoEmail, EnvDemoEmail)
	flagx.EnvString(&config.DemoPassword, EnvDemoPassword)
	flagx.EnvString(&config.DatabaseDSN, EnvDatabaseDSN)
	flagx.EnvString(&config.LogLevel, EnvLogLevel)
}
