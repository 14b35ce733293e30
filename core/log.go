package core

import "log/slog"

var logger = slog.New(slog.DiscardHandler)

// SetLogger sets the platform-specific log output.
// Firmware points it at the USB serial console, host tools at stderr.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	logger = l
}

// Logger returns the shared logger. Never call it from interrupt context.
func Logger() *slog.Logger {
	return logger
}
