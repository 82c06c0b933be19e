package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/tripmate/internal/flagx"
	"github.com/dmitrijs2005/tripmate/internal/timex"
)

// JsonConfig is an intermediate DTO used only for reading JSON
// configuration files. Durations use timex.Duration, which accepts both
// strings such as "1m" and integer nanoseconds.
type JsonConfig struct {
	Addr              string         `json:"addr"`
	SecretKey         string         `json:"secret_key"`
	AccessTokenTTL    timex.Duration `json:"access_token_ttl"`
	RefreshTokenTTL   timex.Duration `json:"refresh_token_ttl"`
	KeepaliveInterval timex.Duration `json:"keepalive_interval"`
	DemoName          string         `json:"demo_name"`
	DemoEmail         string         `json:"demo_email"`
	DemoPassword      string         `json:"demo_password"`
	DatabaseDSN       string         `json:"database_dsn"`
	LogLevel          string         `json:"log_level"`
}

// parseJson loads the file named by -c/-config into config. Keys absent
// from the file keep their current values. Panics when the file cannot be
// read or decoded.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigFileFlag(os.Args[1:])

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	if err := loadJson(jsonConfigFile, config); err != nil {
		panic(err)
	}
}

func loadJson(path string, config *Config) error {
	file, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return err
	}

	setString(&config.Addr, c.Addr)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.AccessTokenTTL, c.AccessTokenTTL)
	setDuration(&config.RefreshTokenTTL, c.RefreshTokenTTL)
	setDuration(&config.KeepaliveInterval, c.KeepaliveInterval)
	setString(&config.DemoName, c.DemoName)
	setString(&config.DemoEmail, c.DemoEmail)
	setString(&config.DemoPassword, c.DemoPassword)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.LogLevel, c.LogLevel)
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration > 0 {
		*dst = v.Duration
	}
}
