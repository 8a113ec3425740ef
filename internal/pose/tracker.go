// Package pose fuses the telemetry bus's GPS, compass, and drive-command
// readings into a running position/heading estimate, the wiring spec.md
// §4.5 assumes exists between sensoringest/driver and the command loop but
// leaves to "a pose source". It drives internal/estimator's PositionFilter
// the way control/loop.go drives the waypoint generator: one small actor,
// fed by the bus, exposing a narrow interface (control.PoseSource) to its
// consumer.
package pose

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sparkfun-avc/control/internal/bus"
	"github.com/sparkfun-avc/control/internal/estimator"
	"github.com/sparkfun-avc/control/internal/geo"
	"github.com/sparkfun-avc/control/internal/obslog"
	"github.com/sparkfun-avc/control/internal/telemetry"
	"github.com/sparkfun-avc/control/internal/timeutil"
)

// Tracker maintains a PositionFilter kept current by telemetry-bus
// readings and periodic predict ticks driven by the last commanded
// throttle/steering.
type Tracker struct {
	origin geo.Origin
	clock  timeutil.Clock

	topSpeedMPS      float64
	maxTurnRateDPerS float64

	producer *telemetry.Producer

	mu           sync.Mutex
	filter       *estimator.PositionFilter
	estCompass   *estimator.EstimatedCompass
	lastThrottle float64
	lastSteering float64
}

// New builds a Tracker seeded at origin with zero heading and speed.
// reverseDeadTime and reverseTravelRateDPerS parameterize the
// reverse-switching compass estimate (config.VehicleConfig's
// GetReverseDeadTime/GetReverseTravelRateDPerS).
func New(origin geo.Origin, topSpeedMPS, maxTurnRateDPerS float64, producer *telemetry.Producer, clock timeutil.Clock, reverseDeadTime time.Duration, reverseTravelRateDPerS float64) *Tracker {
	return &Tracker{
		origin:           origin,
		clock:            clock,
		topSpeedMPS:      topSpeedMPS,
		maxTurnRateDPerS: maxTurnRateDPerS,
		producer:         producer,
		filter:           estimator.NewPositionFilter(0, 0, 0, 0),
		estCompass:       estimator.NewEstimatedCompass(reverseDeadTime, reverseTravelRateDPerS, clock),
	}
}

// EstimatedLocation implements control.PoseSource.
func (t *Tracker) EstimatedLocation() (xM, yM float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.filter.EstimatedLocation()
}

// EstimatedHeading implements control.PoseSource.
func (t *Tracker) EstimatedHeading() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.filter.EstimatedHeading()
}

// EstimatedSpeed returns the filter's current speed estimate in meters per
// second, for status reporting.
func (t *Tracker) EstimatedSpeed() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.filter.EstimatedSpeed()
}

// ConsumeTelemetry subscribes to the telemetry exchange and folds GPS,
// compass, and drive-command readings into the filter as they arrive.
func (t *Tracker) ConsumeTelemetry(ctx context.Context, b *bus.Bus) {
	b.Consume(ctx, telemetry.ExchangeTelemetry, func(payload []byte) {
		kind, err := telemetry.DecodeReadingKind(payload)
		if err != nil {
			obslog.Bus(t.producer, obslog.Warn, "pose: malformed telemetry payload: %v", err)
			return
		}
		switch kind {
		case telemetry.KindGPS:
			t.handleGPS(payload)
		case telemetry.KindCompass:
			t.handleCompass(payload)
		case telemetry.KindDriveCommand:
			t.handleDriveCommand(payload)
		}
	})
}

func (t *Tracker) handleGPS(payload []byte) {
	var r telemetry.GPSReading
	if err := json.Unmarshal(payload, &r); err != nil {
		obslog.Bus(t.producer, obslog.Warn, "pose: malformed GPS reading: %v", err)
		return
	}
	xM := t.origin.LongitudeToMOffset(r.LongitudeD)
	yM := t.origin.LatitudeToMOffset(r.LatitudeD)

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.filter.UpdateGPSFull(xM, yM, r.HeadingD, r.SpeedMPS, r.AccuracyM, r.AccuracyM, t.topSpeedMPS); err != nil {
		obslog.Bus(t.producer, obslog.Warn, "pose: GPS update: %v", err)
	}
}

func (t *Tracker) handleCompass(payload []byte) {
	var r telemetry.CompassReading
	if err := json.Unmarshal(payload, &r); err != nil {
		obslog.Bus(t.producer, obslog.Warn, "pose: malformed compass reading: %v", err)
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	headingD := t.estCompass.EstimateHeading(r.HeadingD)
	if err := t.filter.UpdateCompass(headingD, r.Confidence); err != nil {
		obslog.Bus(t.producer, obslog.Warn, "pose: compass update: %v", err)
	}
}

func (t *Tracker) handleDriveCommand(payload []byte) {
	var r telemetry.DriveCommandReading
	if err := json.Unmarshal(payload, &r); err != nil {
		obslog.Bus(t.producer, obslog.Warn, "pose: malformed drive-command reading: %v", err)
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastThrottle = r.ThrottlePercent
	t.lastSteering = r.SteeringPercent
	t.estCompass.ProcessDriveCommand(r.SteeringPercent)
}

// Run predicts the filter forward and folds in the throttle-derived speed
// estimate every tickInterval, until ctx is canceled.
func (t *Tracker) Run(ctx context.Context, tickInterval time.Duration) {
	ticker := t.clock.NewTicker(tickInterval)
	defer ticker.Stop()
	last := t.clock.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C():
			dtS := now.Sub(last).Seconds()
			last = now
			t.tick(dtS)
		}
	}
}

func (t *Tracker) tick(dtS float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	turnRateDPerS := t.lastSteering * t.maxTurnRateDPerS
	t.filter.Predict(dtS, turnRateDPerS)
	speedMPS := t.lastThrottle * t.topSpeedMPS
	if err := t.filter.UpdateSpeedFromThrottle(speedMPS); err != nil {
		obslog.Bus(t.producer, obslog.Warn, "pose: throttle speed update: %v", err)
	}
}
