package estimator

import (
	"time"

	"github.com/sparkfun-avc/control/internal/geo"
	"github.com/sparkfun-avc/control/internal/timeutil"
)

// EstimatedCompass smooths raw compass headings across a direction reversal:
// the magnetometer on the reference hardware lags a hard steering reversal by
// deadTimeS before it starts tracking again, so a naive consumer sees a
// stale heading right when the vehicle is turning hardest. It estimates the
// true heading from the commanded turn rate during that window and blends
// back to the raw compass reading once the two agree.
//
// Grounded on original_source/control/estimated_compass.py; deadTimeS and
// travelRateDPerS are config.VehicleConfig.GetReverseDeadTime/
// GetReverseTravelRateDPerS, not the Python's hardcoded constants.
type EstimatedCompass struct {
	clock           timeutil.Clock
	deadTime        time.Duration
	travelRateDPerS float64

	turn float64

	turning          bool
	delaying         bool
	seeded           bool
	turnTime         time.Time
	updateTime       time.Time
	lastTurn         float64
	estimatedHeading float64
	estimatedCompass float64
}

// NewEstimatedCompass builds an EstimatedCompass that passes compass
// readings through unmodified until the first drive command with nonzero
// turn arrives.
func NewEstimatedCompass(deadTime time.Duration, travelRateDPerS float64, clock timeutil.Clock) *EstimatedCompass {
	return &EstimatedCompass{
		clock:           clock,
		deadTime:        deadTime,
		travelRateDPerS: travelRateDPerS,
	}
}

// ProcessDriveCommand records the vehicle's current turn command, detecting
// a direction reversal (turn crossing zero) to start the dead-time delay.
func (e *EstimatedCompass) ProcessDriveCommand(turn float64) {
	now := e.clock.Now()
	e.turnTime = now
	e.updateTime = now

	if turn > 0.1 || turn < -0.1 {
		if e.lastTurn == 0 || (e.lastTurn > 0 && turn < 0) || (e.lastTurn < 0 && turn > 0) {
			e.delaying = true
			e.seeded = false
		}
		e.turning = true
	}
	e.lastTurn = turn
	e.turn = turn
}

// EstimateHeading returns the best-estimate heading given the latest raw
// compass reading: the raw value while driving straight, or an
// extrapolation from the commanded turn rate while the compass is still
// catching up to a reversal.
func (e *EstimatedCompass) EstimateHeading(compassHeadingD float64) float64 {
	if !e.turning {
		return compassHeadingD
	}

	if !e.seeded {
		e.estimatedHeading = compassHeadingD
		e.estimatedCompass = compassHeadingD
		e.seeded = true
		e.updateTime = e.clock.Now()
		return compassHeadingD
	}

	now := e.clock.Now()
	dtS := now.Sub(e.updateTime).Seconds()
	e.updateTime = now

	e.estimatedHeading = geo.WrapDegrees(e.estimatedHeading + e.carTurnRateDPerS()*dtS)

	if e.delaying {
		if !e.turnTime.IsZero() && now.Sub(e.turnTime) >= e.deadTime {
			e.delaying = false
		}
		return e.estimatedHeading
	}

	stepD := e.compassTurnRateDPerS() * dtS
	e.estimatedCompass = geo.WrapDegrees(e.estimatedCompass + stepD)

	if geo.DifferenceD(e.estimatedCompass, e.estimatedHeading) < absFloat(stepD) {
		e.turning = false
	}
	return e.estimatedHeading
}

// carTurnRateDPerS approximates the vehicle's own turn rate from the
// commanded steering fraction, as a fixed linear scale (full deflection ≈
// 90°/s).
func (e *EstimatedCompass) carTurnRateDPerS() float64 {
	return e.turn * 90.0
}

// compassTurnRateDPerS approximates how fast the magnetometer itself swings
// once it starts moving again, signed toward the commanded turn direction.
func (e *EstimatedCompass) compassTurnRateDPerS() float64 {
	if e.turn < 0 {
		return -e.travelRateDPerS
	}
	return e.travelRateDPerS
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
