// Package serial opens the board's telemetry port on the host.
package serial

import (
	"io"

	"segpad/config"
)

// Port is an open serial port
type Port interface {
	io.ReadWriteCloser

	// Flush discards buffered data
	Flush() error
}

// Config holds serial port settings
type Config struct {
	// Device path (e.g., "/dev/ttyACM0", "COM3")
	Device string

	// Baud rate; USB CDC ignores it
	Baud int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int
}

// DefaultConfig returns settings for the board's telemetry UART
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 100,
	}
}

// FromBoard takes the device and baud rate from a board file
func FromBoard(t config.TelemetryConfig) *Config {
	cfg := DefaultConfig(t.Port)
	if t.Baud > 0 {
		cfg.Baud = t.Baud
	}
	return cfg
}
