package flagx

import (
	"os"
	"strconv"
	"time"
)

// EnvString overwrites *dst with the named variable when it is set.
func EnvString(dst *string, key string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

// EnvDuration accepts Go duration syntax ("90s"), falling back to a plain
// integer number of seconds. Unparseable values are ignored.
func EnvDuration(dst *time.Duration, key string) {
	val := os.Getenv(key)
	if val == "" {
		return
	}
	if parsed, err := time.ParseDuration(val); err == nil {
		*dst = parsed
		return
	}
	if seconds, err := strconv.Atoi(val); err == nil {
		*dst = time.Duration(seconds) * time.Second
	}
}

// EnvInt overwrites *dst with the named integer variable when it parses.
func EnvInt(dst *int, key string) {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*dst = n
		}
	}
}
