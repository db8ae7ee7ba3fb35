// Package telemetry sets up process-wide structured logging the way
// nobletooth-kiwi's pkg/utils/log.go does: two flags pick a slog handler
// once, at process startup.
package telemetry

import (
	"flag"
	"log/slog"
	"os"
)

var (
	logHandlerType = flag.String("log_handler_type", "text", "structured log handler: text or json")
	logLevel       = flag.String("log_level", "info", "minimum log level: debug, info, warn, error")
)

// Init parses the registered flags (if not already parsed) and installs
// the resulting handler as both the return value and slog's package
// default, so library code that calls slog.Default() picks it up too.
func Init() *slog.Logger {
	if !flag.Parsed() {
		flag.Parse()
	}

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch *logHandlerType {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
