package config

import (
	"context"
	"os"
	"time"
)

// GetEnv returns the environment variable key, or def when it is unset or
// empty. Used for the legacy PORT and PYTHON_SERVICE_URL variables.
func GetEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// WithTimeout derives a context bounded by d. A non-positive d only adds
// cancellation.
func WithTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, d)
}
