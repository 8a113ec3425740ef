package driver

import (
	"fmt"
	"sync"

	"github.com/stianeikeland/go-rpio/v4"
)

// RPIOPWMSetter drives servo pins through go-rpio's software PWM, grounded
// on the sibling hardware-abstraction layer's pin bookkeeping (map of
// initialized rpio.Pin by pin number, guarded by a mutex).
type RPIOPWMSetter struct {
	mu   sync.Mutex
	pins map[int]rpio.Pin
}

// OpenRPIOPWMSetter opens the GPIO memory map and prepares the given pins
// for PWM output at a 1MHz tick rate, so duty-cycle lengths can be given
// directly in microseconds.
func OpenRPIOPWMSetter(pins ...int) (*RPIOPWMSetter, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("driver: open GPIO: %w", err)
	}

	s := &RPIOPWMSetter{pins: make(map[int]rpio.Pin, len(pins))}
	for _, pinNum := range pins {
		p := rpio.Pin(pinNum)
		p.Mode(rpio.Pwm)
		p.Freq(1000000) // 1 tick per microsecond
		p.DutyCycle(0, pwmPeriodUS)
		s.pins[pinNum] = p
	}
	return s, nil
}

// SetPulseWidthUS sets pin's high pulse width within the 20ms PWM period.
func (s *RPIOPWMSetter) SetPulseWidthUS(pin int, us int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pins[pin]
	if !ok {
		return fmt.Errorf("driver: pin %d not configured for PWM", pin)
	}
	p.DutyCycle(uint32(us), pwmPeriodUS)
	return nil
}

// Close releases the GPIO memory map.
func (s *RPIOPWMSetter) Close() error {
	return rpio.Close()
}
