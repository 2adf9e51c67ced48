package env

import (
	"os"
	"strings"
)

// Get returns the trimmed value of the environment variable or the fallback.
func Get(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

// IsSet reports whether the variable is present and non-empty.
func IsSet(key string) bool {
	return strings.TrimSpace(os.Getenv(key)) != ""
}
