package core

// PWMPin identifies a hardware pin capable of PWM output
type PWMPin uint32

// PWMDriver is the abstract servo-pulse interface that core code uses.
// Platform-specific implementations handle actual hardware control.
type PWMDriver interface {
	// ConfigureServo configures a pin for a 50Hz servo pulse train
	ConfigureServo(pin PWMPin) error

	// SetPulseWidth sets the high time of each period in microseconds
	SetPulseWidth(pin PWMPin, micros uint32) error
}

// Global singleton used by core code.
var pwmDriver PWMDriver

// SetPWMDriver is called by target-specific code to register its driver.
func SetPWMDriver(d PWMDriver) {
	pwmDriver = d
}

// MustPWM returns the configured driver or panics if missing.
func MustPWM() PWMDriver {
	if pwmDriver == nil {
		panic("PWM driver not configured")
	}
	return pwmDriver
}
