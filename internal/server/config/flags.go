package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/tripmate/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string     HTTP bind address (e.g., ":8080")
//	-s string     credential signing key
//	-t duration   access credential lifetime
//	-r duration   refresh token lifetime
//	-k duration   stream keepalive interval
//	-e string     demo account email
//	-p string     demo account password
//	-d string     PostgreSQL DSN
//	-l string     log level
//
// os.Args is filtered with flagx.FilterArgs first, so the config-file flag
// does not trip this flag set.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-s", "-t", "-r", "-k", "-e", "-p", "-d", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.Addr, "a", config.Addr, "address and port to run server")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.DurationVar(&config.AccessTokenTTL, "t", config.AccessTokenTTL, "access credential lifetime")
	fs.DurationVar(&config.RefreshTokenTTL, "r", config.RefreshTokenTTL, "refresh token lifetime")
	fs.DurationVar(&config.KeepaliveInterval, "k", config.KeepaliveInterval, "stream keepalive interval")
	fs.StringVar(&config.DemoEmail, "e", config.DemoEmail, "demo account email")
	fs.StringVar(&config.DemoPassword, "p", config.DemoPassword, "demo account password")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
