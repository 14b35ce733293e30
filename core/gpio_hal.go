package core

// GPIOPin identifies a hardware GPIO pin number
type GPIOPin uint32

// Edge selects which pin transition fires an interrupt
type Edge uint8

const (
	EdgeFalling Edge = iota
	EdgeRising
	EdgeBoth
)

// GPIODriver is the abstract GPIO interface that core code uses.
// Platform-specific implementations handle actual hardware control.
type GPIODriver interface {
	// ConfigureOutput configures a pin as a digital output
	// Returns error if pin is invalid
	ConfigureOutput(pin GPIOPin) error

	// ConfigureInputPullUp configures a pin as a digital input with pull-up resistor
	ConfigureInputPullUp(pin GPIOPin) error

	// ConfigureInputPullDown configures a pin as a digital input with pull-down resistor
	ConfigureInputPullDown(pin GPIOPin) error

	// SetPin sets the pin to high (true) or low (false)
	SetPin(pin GPIOPin, value bool) error

	// GetPin reads the current pin state
	GetPin(pin GPIOPin) (bool, error)

	// ReadPin reads the current pin state (alias for GetPin for convenience)
	ReadPin(pin GPIOPin) bool
}

// EdgeHandler runs in interrupt context. It must not block, allocate or log.
type EdgeHandler func(pin GPIOPin)

// InterruptDriver registers pin-change interrupts.
type InterruptDriver interface {
	// SetEdgeInterrupt installs handler for the given edge on an input pin.
	// A nil handler removes the interrupt.
	SetEdgeInterrupt(pin GPIOPin, edge Edge, handler EdgeHandler) error
}

// Global singletons used by core code.
var (
	gpioDriver GPIODriver
	irqDriver  InterruptDriver
)

// SetGPIODriver is called by target-specific code to register its driver.
func SetGPIODriver(d GPIODriver) {
	gpioDriver = d
}

// MustGPIO returns the configured driver or panics if missing.
func MustGPIO() GPIODriver {
	if gpioDriver == nil {
		panic("GPIO driver not configured")
	}
	return gpioDriver
}

// SetInterruptDriver registers the pin-change interrupt driver.
func SetInterruptDriver(d InterruptDriver) {
	irqDriver = d
}

// MustInterrupts returns the configured interrupt driver or panics if missing.
func MustInterrupts() InterruptDriver {
	if irqDriver == nil {
		panic("interrupt driver not configured")
	}
	return irqDriver
}
