package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/tripmate/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string     backend base URL
//	-t duration   request timeout
//	-idle dur     inactivity timeout
//	-r duration   stream reconnect delay
//	-m int        stream reconnect attempts before going offline
//	-s duration   notification sync interval
//	-db string    session store path
//	-l string     log level (debug, info, warn, error)
//
// os.Args is filtered with flagx.FilterArgs first so the config-file flag
// does not trip this flag set.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-t", "-idle", "-r", "-m", "-s", "-db", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "backend base URL")
	fs.DurationVar(&cfg.RequestTimeout, "t", cfg.RequestTimeout, "request timeout")
	fs.DurationVar(&cfg.IdleTimeout, "idle", cfg.IdleTimeout, "inactivity timeout")
	fs.DurationVar(&cfg.ReconnectDelay, "r", cfg.ReconnectDelay, "stream reconnect delay")
	fs.IntVar(&cfg.MaxReconnectAttempts, "m", cfg.MaxReconnectAttempts, "stream reconnect attempts")
	fs.DurationVar(&cfg.SyncInterval, "s", cfg.SyncInterval, "notification sync interval")
	fs.StringVar(&cfg.StorePath, "db", cfg.StorePath, "session store path")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
