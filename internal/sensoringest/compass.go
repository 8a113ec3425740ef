// Package sensoringest drives the serial link's NMEA/binary alternation,
// computes compass headings from the inertial frame's magnetic-flux axes,
// and runs the compass calibration procedure, grounded on
// original_source/control/estimated_compass.py and sup800f_telemetry.py.
package sensoringest

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/sparkfun-avc/control/internal/geo"
	"github.com/sparkfun-avc/control/internal/obslog"
	"github.com/sparkfun-avc/control/internal/timeutil"
)

// ErrCalibrationInProgress is returned when a calibration run is requested
// while one is already active. It is a warning, not a fatal condition; the
// request is simply ignored.
var ErrCalibrationInProgress = errors.New("sensoringest: calibration already in progress")

// initialOutlierThreshold is the starting run-length before a streak of
// rejected outliers is logged; it grows by outlierThresholdStep each time
// it's crossed, so a persistently noisy sensor doesn't spam the log.
const (
	initialOutlierThreshold = 10
	outlierThresholdStep    = 10
	outlierSigmaBound       = 2.0
	confidenceSigmaBound    = 1.0
)

type fluxSample struct {
	x, y float64
}

// Compass converts raw magnetic-flux readings to a heading, tracking
// calibration offsets and outlier statistics.
type Compass struct {
	mu sync.Mutex

	declinationD float64

	offsetX, offsetY float64
	magnitudeMu       float64
	magnitudeSigma    float64

	outlierRun       int
	outlierThreshold int

	calibrating bool
	calStart    time.Time
	calDuration time.Duration
	calSamples  []fluxSample
}

// NewCompass builds a Compass with zero calibration offsets (magnitude
// statistics start at zero sigma, so every reading is initially treated as
// non-outlier until a calibration run has been completed).
func NewCompass(declinationD float64) *Compass {
	return &Compass{
		declinationD:     declinationD,
		outlierThreshold: initialOutlierThreshold,
	}
}

// Heading computes a heading and confidence from a raw flux reading. ok is
// false when the sample was rejected as a statistical outlier (only
// possible after a calibration run has established magnitude statistics).
func (c *Compass) Heading(fluxX, fluxY float64) (headingD, confidence float64, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	dx := fluxX - c.offsetX
	dy := fluxY - c.offsetY
	magnitude := dx*dx + dy*dy

	var stdDevsAway float64
	if c.magnitudeSigma > 0 {
		stdDevsAway = math.Abs(c.magnitudeMu-magnitude) / c.magnitudeSigma
	}

	if stdDevsAway > outlierSigmaBound {
		c.outlierRun++
		if c.outlierRun > c.outlierThreshold {
			obslog.Logf("sensoringest: %d consecutive compass outliers rejected", c.outlierRun)
			c.outlierThreshold += outlierThresholdStep
		}
		return 0, 0, false
	}
	c.outlierRun = 0

	headingD = geo.WrapDegrees(270 - math.Atan2(dy, dx)*180/math.Pi + c.declinationD)
	confidence = 1.0
	if stdDevsAway > confidenceSigmaBound {
		confidence = 2 - stdDevsAway
	}
	return headingD, confidence, true
}

// BeginCalibration starts a calibration run lasting duration, sampled
// against clock. Only one run may be active; a concurrent request returns
// ErrCalibrationInProgress.
func (c *Compass) BeginCalibration(clock timeutil.Clock, duration time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calibrating {
		return ErrCalibrationInProgress
	}
	c.calibrating = true
	c.calStart = clock.Now()
	c.calDuration = duration
	c.calSamples = c.calSamples[:0]
	return nil
}

// Calibrating reports whether a calibration run is active.
func (c *Compass) Calibrating() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calibrating
}

// RecordCalibrationSample feeds one raw flux sample into the active
// calibration run. It is a no-op if no run is active. Returns true once
// the run's duration has elapsed and the new offsets/statistics have been
// committed.
func (c *Compass) RecordCalibrationSample(fluxX, fluxY float64, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.calibrating {
		return false
	}
	c.calSamples = append(c.calSamples, fluxSample{x: fluxX, y: fluxY})
	if now.Sub(c.calStart) < c.calDuration {
		return false
	}
	c.finishCalibrationLocked()
	return true
}

func (c *Compass) finishCalibrationLocked() {
	if len(c.calSamples) == 0 {
		c.calibrating = false
		return
	}

	minX, maxX := c.calSamples[0].x, c.calSamples[0].x
	minY, maxY := c.calSamples[0].y, c.calSamples[0].y
	for _, s := range c.calSamples {
		if s.x < minX {
			minX = s.x
		}
		if s.x > maxX {
			maxX = s.x
		}
		if s.y < minY {
			minY = s.y
		}
		if s.y > maxY {
			maxY = s.y
		}
	}
	c.offsetX = (minX + maxX) / 2
	c.offsetY = (minY + maxY) / 2

	n := float64(len(c.calSamples))
	var sum float64
	magnitudes := make([]float64, len(c.calSamples))
	for i, s := range c.calSamples {
		dx := s.x - c.offsetX
		dy := s.y - c.offsetY
		m := dx*dx + dy*dy
		magnitudes[i] = m
		sum += m
	}
	mu := sum / n

	var variance float64
	for _, m := range magnitudes {
		d := m - mu
		variance += d * d
	}
	variance /= n

	c.magnitudeMu = mu
	c.magnitudeSigma = math.Sqrt(variance)
	c.outlierRun = 0
	c.outlierThreshold = initialOutlierThreshold
	c.calibrating = false
	c.calSamples = nil
}
