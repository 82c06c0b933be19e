// Package config loads runtime configuration for the tripmate client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file selected via -c or -config. Files ending in
//     .toml are read as TOML, anything else as JSON.
//  3. TRIPMATE_* environment variables.
//  4. Command-line flags, which override earlier values.
//
// # File schema
//
// Durations are strings like "3s" (JSON also accepts integer nanoseconds):
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "idle_timeout": "30m",
//	  "reconnect_delay": "3s",
//	  "max_reconnect_attempts": 5
//	}
//
// The same keys work in TOML:
//
//	server_url = "http://127.0.0.1:8080"
//	idle_timeout = "30m"
package config
