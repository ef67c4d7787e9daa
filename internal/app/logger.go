package app

import (
	"log/slog"
	"os"
)

// NewLogger returns the slog.Logger the configuration asks for. JSON
// output in production and wherever LOG_FORMAT says so, text otherwise.
func NewLogger(cfg *Config) *slog.Logger {
	if cfg != nil && (cfg.LogFormat == "json" || cfg.IsProduction()) {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{AddSource: true}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{AddSource: true}))
}
