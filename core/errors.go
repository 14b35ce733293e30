package core

import "errors"

var (
	// ErrConfiguration marks invalid pin or digit-count setup. Fatal at init.
	ErrConfiguration = errors.New("configuration error")

	// ErrStuckKey marks a release wait that hit its bound. Recoverable.
	ErrStuckKey = errors.New("stuck key")

	// ErrBackpressure is returned when the key event queue is full.
	ErrBackpressure = errors.New("event queue full")

	// ErrStaleRead marks a display frame read while a producer was mid-update.
	ErrStaleRead = errors.New("stale display read")
)

// ConfigurationError describes a setup problem detected at init
type ConfigurationError struct {
	Component string // "display", "keypad", ...
	Field     string
	Reason    string
}

func (e *ConfigurationError) Error() string {
	msg := e.Component + ": invalid " + e.Field
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// Is reports ErrConfiguration equivalence for errors.Is
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// NewConfigError is shorthand for a ConfigurationError
func NewConfigError(component, field, reason string) *ConfigurationError {
	return &ConfigurationError{Component: component, Field: field, Reason: reason}
}

// StuckKeyWarning reports a key that stayed down past the release bound
type StuckKeyWarning struct {
	Symbol rune
	Row    int
	Col    int
	Waited uint32 // ticks spent waiting for release
}

func (w *StuckKeyWarning) Error() string {
	return "stuck key " + string(w.Symbol) +
		" at row " + itoa(w.Row) + " col " + itoa(w.Col) +
		" after " + utoa(TimerToMS(w.Waited)) + "ms"
}

// Is reports ErrStuckKey equivalence for errors.Is
func (w *StuckKeyWarning) Is(target error) bool {
	return target == ErrStuckKey
}

// StaleReadWarning reports a torn display frame. Tolerated for one refresh.
type StaleReadWarning struct {
	Digit      int
	Generation uint32
}

func (w *StaleReadWarning) Error() string {
	return "stale read on digit " + itoa(w.Digit) + " at generation " + utoa(w.Generation)
}

// Is reports ErrStaleRead equivalence for errors.Is
func (w *StaleReadWarning) Is(target error) bool {
	return target == ErrStaleRead
}
