package bhtsne

import (
	"log/slog"
	"os"
)

// NewTextLogger returns a human-readable logger writing to stderr at the
// given level. It is what the bhtsne command uses.
func NewTextLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NewJSONLogger returns a JSON logger writing to stderr at the given level.
func NewJSONLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
