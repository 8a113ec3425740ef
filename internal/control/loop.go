package control

import (
	"context"
	"sync"
	"time"

	"github.com/sparkfun-avc/control/internal/bus"
	"github.com/sparkfun-avc/control/internal/geo"
	"github.com/sparkfun-avc/control/internal/obslog"
	"github.com/sparkfun-avc/control/internal/telemetry"
	"github.com/sparkfun-avc/control/internal/timeutil"
	"github.com/sparkfun-avc/control/internal/waypoint"
)

// DefaultTickInterval is the command loop's default period (50 Hz).
const DefaultTickInterval = 20 * time.Millisecond

// DefaultCalibrationDuration is how long a calibrate-compass request runs
// the sensor worker's calibration routine for.
const DefaultCalibrationDuration = 20 * time.Second

// steeringSaturationDegrees is the bearing error beyond which steering is
// fully saturated at ±1.
const steeringSaturationDegrees = 45.0

// PoseSource reports the filter's current best estimate of position and
// heading, decoupling the loop from the concrete estimator types.
type PoseSource interface {
	EstimatedLocation() (xM, yM float64)
	EstimatedHeading() float64
}

// Driver is the command loop's view of the servo driver.
type Driver interface {
	Drive(throttle, steering float64) error
	Stop() error
	SetMaxThrottle(m float64) error
}

// CompassCalibrator runs a blocking compass calibration and returns once it
// completes, fails, or ctx is canceled.
type CompassCalibrator interface {
	CalibrateCompass(ctx context.Context, duration time.Duration) error
}

// ThrottleCurve maps the absolute (unsigned) steering command to a
// throttle fraction in [0,1]. The default is the flat nominal-throttle
// policy the source exhibits: steering never reduces throttle. A caller may
// inject a curve that eases off as steeringAbs approaches 1.
type ThrottleCurve func(steeringAbs float64) float64

// FlatThrottleCurve always returns 1.0, applying max_throttle unscaled
// regardless of how saturated steering is.
func FlatThrottleCurve(steeringAbs float64) float64 { return 1.0 }

// Loop is the 50 Hz command loop: it steers toward the active waypoint
// generator's current target and arbitrates the start/stop/calibrate/reset
// state machine.
type Loop struct {
	pose     PoseSource
	driver   Driver
	producer *telemetry.Producer
	clock    timeutil.Clock

	tickInterval        time.Duration
	calibrationDuration  time.Duration
	throttleCurve        ThrottleCurve
	calibrator           CompassCalibrator

	genMu sync.Mutex
	gen   waypoint.Generator

	stateMu      sync.Mutex
	state        State
	beforeCalib  State
}

// Options configures a Loop beyond its required collaborators.
type Options struct {
	TickInterval        time.Duration
	CalibrationDuration time.Duration
	ThrottleCurve       ThrottleCurve
	Calibrator          CompassCalibrator
}

// New builds an idle Loop.
func New(pose PoseSource, driver Driver, gen waypoint.Generator, producer *telemetry.Producer, clock timeutil.Clock, opts Options) *Loop {
	tick := opts.TickInterval
	if tick <= 0 {
		tick = DefaultTickInterval
	}
	calDur := opts.CalibrationDuration
	if calDur <= 0 {
		calDur = DefaultCalibrationDuration
	}
	curve := opts.ThrottleCurve
	if curve == nil {
		curve = FlatThrottleCurve
	}
	return &Loop{
		pose:                pose,
		driver:              driver,
		producer:            producer,
		clock:               clock,
		tickInterval:        tick,
		calibrationDuration: calDur,
		throttleCurve:       curve,
		calibrator:          opts.Calibrator,
		gen:                 gen,
		state:               StateIdle,
	}
}

// State returns the loop's current state.
func (l *Loop) State() State {
	l.stateMu.Lock()
	defer l.stateMu.Unlock()
	return l.state
}

// SetWaypoints atomically replaces the active generator and resets its
// index, per the waypoint-consumer thread's contract in the concurrency
// model.
func (l *Loop) SetWaypoints(gen waypoint.Generator) {
	l.genMu.Lock()
	defer l.genMu.Unlock()
	if gen != nil {
		gen.Reset()
	}
	l.gen = gen
}

func (l *Loop) generator() waypoint.Generator {
	l.genMu.Lock()
	defer l.genMu.Unlock()
	return l.gen
}

// HandleCommand applies one command-exchange verb to the state machine. It
// never returns an error to the caller for an illegal transition; that case
// is logged and the command is dropped, per spec.md §7's policy that
// command parsing/dispatch errors never propagate out of the consumer.
func (l *Loop) HandleCommand(ctx context.Context, cmd telemetry.Command) {
	switch cmd.Verb {
	case telemetry.CommandCalibrateCompass:
		l.beginCalibration(ctx)
		return
	case "set-max-throttle":
		if err := l.driver.SetMaxThrottle(cmd.MaxThrottle); err != nil {
			obslog.Bus(l.producer, obslog.Warn, "control: set-max-throttle: %v", err)
		}
		return
	}

	l.stateMu.Lock()
	cur := l.state
	to, ok := next(cur, cmd.Verb)
	if ok {
		l.state = to
	}
	l.stateMu.Unlock()

	if !ok {
		obslog.Bus(l.producer, obslog.Warn, "%v", &ErrInvalidTransition{From: cur, Verb: cmd.Verb})
		return
	}

	if to == StateIdle && cur != StateDone {
		if err := l.driver.Stop(); err != nil {
			obslog.Bus(l.producer, obslog.Error, "control: stop on transition to idle: %v", err)
		}
	}
	if to == StateIdle && cur == StateDone {
		l.generator().Reset()
	}
}

func (l *Loop) beginCalibration(ctx context.Context) {
	l.stateMu.Lock()
	if l.state == StateCalibrating {
		l.stateMu.Unlock()
		return
	}
	l.beforeCalib = l.state
	l.state = StateCalibrating
	l.stateMu.Unlock()

	l.producer.ForwardCommand(telemetry.CommandCalibrateCompass)

	if err := l.driver.Stop(); err != nil {
		obslog.Bus(l.producer, obslog.Error, "control: stop before calibration: %v", err)
	}

	if l.calibrator == nil {
		l.endCalibration()
		return
	}

	go func() {
		if err := l.calibrator.CalibrateCompass(ctx, l.calibrationDuration); err != nil {
			obslog.Bus(l.producer, obslog.Error, "control: compass calibration: %v", err)
		}
		l.endCalibration()
	}()
}

func (l *Loop) endCalibration() {
	l.stateMu.Lock()
	defer l.stateMu.Unlock()
	if l.state == StateCalibrating {
		l.state = l.beforeCalib
	}
}

// Run drives the tick loop until ctx is canceled. Command dispatch is the
// caller's responsibility (typically a bus.Consume goroutine calling
// HandleCommand); Run only advances RUNNING-state steering/throttle.
func (l *Loop) Run(ctx context.Context) {
	ticker := l.clock.NewTicker(l.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = l.driver.Stop()
			return
		case <-ticker.C():
			l.tick()
		}
	}
}

func (l *Loop) tick() {
	if l.State() != StateRunning {
		return
	}

	gen := l.generator()
	xM, yM := l.pose.EstimatedLocation()

	if gen.Reached(xM, yM) {
		gen.Advance()
		if gen.Done() {
			if err := l.driver.Drive(0, 0); err != nil {
				obslog.Bus(l.producer, obslog.Error, "control: drive(0,0) at course end: %v", err)
			}
			l.stateMu.Lock()
			l.state = StateDone
			l.stateMu.Unlock()
			return
		}
	}

	target, err := gen.Current(xM, yM)
	if err != nil {
		obslog.Bus(l.producer, obslog.Warn, "control: generator.Current: %v", err)
		return
	}

	headingD := l.pose.EstimatedHeading()
	bearingD := geo.RelativeDegrees(xM, yM, target.X, target.Y)
	steering := clamp(geo.WrapDegrees(bearingD-headingD)/steeringSaturationDegrees, -1, 1)
	throttle := l.throttleCurve(abs(steering))

	if err := l.driver.Drive(throttle, steering); err != nil {
		obslog.Bus(l.producer, obslog.Error, "control: drive: %v", err)
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// ConsumeCommands subscribes to the command exchange and forwards every
// parsed verb to HandleCommand until ctx is canceled, mirroring the
// teacher's dedicated subscriber-goroutine pattern.
func (l *Loop) ConsumeCommands(ctx context.Context, b *bus.Bus) {
	b.Consume(ctx, telemetry.ExchangeCommand, func(payload []byte) {
		cmd, err := telemetry.ParseCommand(payload)
		if err != nil {
			obslog.Bus(l.producer, obslog.Warn, "control: discard command: %v", err)
			return
		}
		l.HandleCommand(ctx, cmd)
	})
}
