package telemetry

import (
	"log/slog"
	"os"
)

// InitSlog points the default logger at stderr so stdout stays
// reserved for document output. Verbose enables debug-level
// protocol tracing.
func InitSlog(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}
