package driver

import (
	"errors"
	"testing"
)

type fakePWM struct {
	pulses map[int]int
	closed bool
	err    error
}

func newFakePWM() *fakePWM { return &fakePWM{pulses: make(map[int]int)} }

func (f *fakePWM) SetPulseWidthUS(pin int, us int) error {
	if f.err != nil {
		return f.err
	}
	f.pulses[pin] = us
	return nil
}

func (f *fakePWM) Close() error {
	f.closed = true
	return nil
}

type fakeNotifier struct {
	throttle, steering float64
	called             bool
}

func (f *fakeNotifier) DriveCommand(throttle, steering float64) {
	f.throttle, f.steering = throttle, steering
	f.called = true
}

func TestThrottlePulseUSBoundaries(t *testing.T) {
	if _, err := ThrottlePulseUS(-0.251, 1.0); !errors.Is(err, ErrBadPercentage) {
		t.Errorf("expected ErrBadPercentage at -0.251, got %v", err)
	}
	if _, err := ThrottlePulseUS(-0.25, 1.0); err != nil {
		t.Errorf("expected -0.25 to be accepted, got %v", err)
	}
}

func TestThrottlePulseUSNeutralAndScale(t *testing.T) {
	us, err := ThrottlePulseUS(0, 1.0)
	if err != nil {
		t.Fatalf("ThrottlePulseUS: %v", err)
	}
	if us != 1500 {
		t.Errorf("neutral throttle = %d, want 1500", us)
	}
	us, err = ThrottlePulseUS(1.0, 1.0)
	if err != nil {
		t.Fatalf("ThrottlePulseUS: %v", err)
	}
	if us != 2000 {
		t.Errorf("full throttle = %d, want 2000", us)
	}
}

func TestThrottlePulseUSClampedByMaxThrottle(t *testing.T) {
	us, err := ThrottlePulseUS(1.0, 0.5)
	if err != nil {
		t.Fatalf("ThrottlePulseUS: %v", err)
	}
	if us != 1750 {
		t.Errorf("half-max full throttle = %d, want 1750", us)
	}
}

func TestSteeringPulseUSRange(t *testing.T) {
	if _, err := SteeringPulseUS(-1.001); !errors.Is(err, ErrBadPercentage) {
		t.Errorf("expected ErrBadPercentage at -1.001, got %v", err)
	}
	us, err := SteeringPulseUS(0)
	if err != nil || us != 1650 {
		t.Errorf("center steering = %d, err %v, want 1650", us, err)
	}
	us, err = SteeringPulseUS(1)
	if err != nil || us != 1950 {
		t.Errorf("full right steering = %d, err %v, want 1950", us, err)
	}
}

func TestDriverDriveSetsBothPinsAndNotifies(t *testing.T) {
	pwm := newFakePWM()
	notifier := &fakeNotifier{}
	d := New(pwm, 18, 4, 1.0, notifier)

	if err := d.Drive(0.5, 0.25); err != nil {
		t.Fatalf("Drive: %v", err)
	}
	if pwm.pulses[18] != 1750 {
		t.Errorf("throttle pulse = %d, want 1750", pwm.pulses[18])
	}
	if pwm.pulses[4] != 1720 {
		t.Errorf("steering pulse = %d, want 1720", pwm.pulses[4])
	}
	if !notifier.called || notifier.throttle != 0.5 || notifier.steering != 0.25 {
		t.Errorf("notifier not called with commanded input: %+v", notifier)
	}
}

func TestDriverDriveRejectsBadPercentage(t *testing.T) {
	d := New(newFakePWM(), 18, 4, 1.0, nil)
	if err := d.Drive(2.0, 0); !errors.Is(err, ErrBadPercentage) {
		t.Errorf("expected ErrBadPercentage, got %v", err)
	}
}

func TestDriverStopCommandsNeutral(t *testing.T) {
	pwm := newFakePWM()
	d := New(pwm, 18, 4, 1.0, nil)
	if err := d.Drive(0.8, -0.5); err != nil {
		t.Fatalf("Drive: %v", err)
	}
	if err := d.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if pwm.pulses[18] != 1500 || pwm.pulses[4] != 1650 {
		t.Errorf("Stop did not command neutral: %+v", pwm.pulses)
	}
}

func TestDriverSetMaxThrottleRejectsOutOfRange(t *testing.T) {
	d := New(newFakePWM(), 18, 4, 1.0, nil)
	if err := d.SetMaxThrottle(1.5); !errors.Is(err, ErrBadPercentage) {
		t.Errorf("expected ErrBadPercentage, got %v", err)
	}
}
