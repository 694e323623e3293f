package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process-wide slog.Logger. Production emits JSON for
// the log pipeline; everywhere else text with debug level is easier to read
// while poking at grant flows locally.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}
	if cfg == nil || !cfg.IsProduction() {
		opts.Level = slog.LevelDebug
	}
	if cfg != nil && cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
