package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process-wide slog.Logger shared by the API and
// the worker. Production always emits JSON for the log shipper;
// elsewhere LOG_FORMAT picks between json and the readable text handler
// used during development.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}

	var handler slog.Handler
	if cfg.IsProduction() || (cfg != nil && cfg.LogFormat == "json") {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}
