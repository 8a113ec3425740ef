// Package driver maps throttle/steering percentages to servo pulse widths
// and drives them through a PWMSetter, following the teacher's pattern of
// an interface-backed hardware boundary (internal/hal.HAL in the EdgeFlow
// sibling example) so the command loop can be tested without real GPIO.
package driver

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/sparkfun-avc/control/internal/telemetry"
)

// ErrBadPercentage is returned when a throttle or steering percentage falls
// outside its accepted range. It indicates a caller bug, not a recoverable
// condition.
var ErrBadPercentage = errors.New("driver: percentage out of range")

const (
	throttleNeutralUS = 1500
	throttleDiffUS    = 500
	throttleMinT      = -0.25
	throttleMaxT      = 1.0

	steeringCenterUS = 1650
	steeringDiffUS   = 300
	steeringMinS     = -1.0
	steeringMaxS     = 1.0

	pwmPeriodUS = 20000 // 20ms, 50Hz
)

func roundDownTen(us float64) int {
	return int(math.Floor(us/10)) * 10
}

// ThrottlePulseUS maps a throttle percentage to a servo pulse width in
// microseconds. t must be in [-0.25, 1.0]; maxThrottle (in [0, 1]) further
// clamps the usable range.
func ThrottlePulseUS(t, maxThrottle float64) (int, error) {
	if t < throttleMinT || t > throttleMaxT {
		return 0, fmt.Errorf("%w: throttle %v", ErrBadPercentage, t)
	}
	lower := throttleMinT * maxThrottle
	upper := throttleMaxT * maxThrottle
	clamped := t
	if clamped < lower {
		clamped = lower
	}
	if clamped > upper {
		clamped = upper
	}
	return roundDownTen(throttleNeutralUS + throttleDiffUS*clamped), nil
}

// SteeringPulseUS maps a steering percentage in [-1, 1] to a servo pulse
// width in microseconds.
func SteeringPulseUS(s float64) (int, error) {
	if s < steeringMinS || s > steeringMaxS {
		return 0, fmt.Errorf("%w: steering %v", ErrBadPercentage, s)
	}
	return roundDownTen(steeringCenterUS + steeringDiffUS*s), nil
}

// PWMSetter drives a single servo pulse width on a pin. RPIOPWMSetter is
// the production implementation; tests supply a fake.
type PWMSetter interface {
	SetPulseWidthUS(pin int, us int) error
	Close() error
}

// Notifier publishes the commanded throttle/steering so a monitoring
// consumer can correlate it with the pose stream. *telemetry.Producer
// satisfies this.
type Notifier interface {
	DriveCommand(throttlePercent, steeringPercent float64)
}

// Driver owns the throttle and steering servo pins exclusively and
// maintains the last commanded input.
type Driver struct {
	mu sync.Mutex

	pwm          PWMSetter
	throttlePin  int
	steeringPin  int
	maxThrottle  float64
	notifier     Notifier
	lastThrottle float64
	lastSteering float64
}

// New builds a Driver. notifier may be nil if commanded-input telemetry is
// not wanted.
func New(pwm PWMSetter, throttlePin, steeringPin int, maxThrottle float64, notifier Notifier) *Driver {
	return &Driver{
		pwm:         pwm,
		throttlePin: throttlePin,
		steeringPin: steeringPin,
		maxThrottle: maxThrottle,
		notifier:    notifier,
	}
}

// SetMaxThrottle caps forward throttle for subsequent Drive calls.
func (d *Driver) SetMaxThrottle(m float64) error {
	if m < 0 || m > 1 {
		return fmt.Errorf("%w: max_throttle %v", ErrBadPercentage, m)
	}
	d.mu.Lock()
	d.maxThrottle = m
	d.mu.Unlock()
	return nil
}

// Drive validates throttle and steering, commands both servos, and
// notifies the telemetry stream of the commanded input. An error leaves
// the servos at their previous setting.
func (d *Driver) Drive(throttle, steering float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	tUS, err := ThrottlePulseUS(throttle, d.maxThrottle)
	if err != nil {
		return err
	}
	sUS, err := SteeringPulseUS(steering)
	if err != nil {
		return err
	}

	if err := d.pwm.SetPulseWidthUS(d.throttlePin, tUS); err != nil {
		return fmt.Errorf("driver: set throttle pulse: %w", err)
	}
	if err := d.pwm.SetPulseWidthUS(d.steeringPin, sUS); err != nil {
		return fmt.Errorf("driver: set steering pulse: %w", err)
	}

	d.lastThrottle = throttle
	d.lastSteering = steering
	if d.notifier != nil {
		d.notifier.DriveCommand(throttle, steering)
	}
	return nil
}

// Stop commands the servos to neutral/center, used on the shutdown path.
func (d *Driver) Stop() error {
	return d.Drive(0, 0)
}

// LastCommand returns the most recently commanded throttle and steering.
func (d *Driver) LastCommand() (throttle, steering float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastThrottle, d.lastSteering
}

var _ Notifier = (*telemetry.Producer)(nil)
