package common

import (
	"go.uber.org/zap"
)

// LoaderOptions stores configuration handed to a loader driver.
type LoaderOptions struct {
	Binary string             // Path to the loader executable (process drivers only)
	Args   []string           // Extra arguments placed before the database path
	Logger *zap.SugaredLogger // Receives loader diagnostics; nil means discard
}

// Log returns the configured logger or a no-op logger.
func (o LoaderOptions) Log() *zap.SugaredLogger {
	if o.Logger == nil {
		return zap.NewNop().Sugar()
	}
	return o.Logger
}
