// Package env provides typed environment variable lookups with defaults.
package env

import (
	"os"
	"strconv"
	"time"
)

// GetString returns the value of the environment variable or the default
// when unset or empty.
func GetString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetBool parses the environment variable as a boolean. Unset, empty, or
// unparseable values return the default.
func GetBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// GetInt parses the environment variable as an integer. Unset, empty, or
// unparseable values return the default.
func GetInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// GetDuration parses the environment variable as a time.Duration. A bare
// number is treated as seconds. Unset, empty, or unparseable values return
// the default.
func GetDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if parsed, err := time.ParseDuration(value); err == nil {
		return parsed
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}
