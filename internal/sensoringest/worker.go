package sensoringest

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sparkfun-avc/control/internal/obslog"
	"github.com/sparkfun-avc/control/internal/sensorserial"
	"github.com/sparkfun-avc/control/internal/telemetry"
	"github.com/sparkfun-avc/control/internal/timeutil"
)

// lowSpeedThresholdMPS is the speed below which a GPS fix's self-reported
// course is unreliable enough to replace with the most recent compass
// heading (10 km/h).
const lowSpeedThresholdMPS = 10.0 / 3.6

// binaryFramesPerCycle is how many binary frames are read before the
// worker returns to NMEA mode, so GPS fixes and inertial frames both flow
// without either starving the other.
const binaryFramesPerCycle = 3

// maxConsecutiveFailures bounds the inner retry loop before the worker
// escalates to a mode reset.
const maxConsecutiveFailures = 5

// modeSwitchReadBudget bounds how many reads SwitchMode waits for an
// ack/nack before giving up.
const modeSwitchReadBudget = 20

// DeviceID identifies readings produced by this worker's sensor module.
const DeviceID = "sup800f"

// Worker owns the serial handle exclusively and alternates between NMEA
// and binary read modes, publishing canonical readings to the telemetry
// producer.
type Worker struct {
	codec    *sensorserial.Codec
	producer *telemetry.Producer
	compass  *Compass
	clock    timeutil.Clock

	deviceID string
	hdop     float64

	lastCompassHeadingD float64
	haveCompassHeading  bool

	moduleReportsCalibrated bool
}

// NewWorker builds a Worker over an already-opened codec.
func NewWorker(codec *sensorserial.Codec, producer *telemetry.Producer, compass *Compass, clock timeutil.Clock) *Worker {
	return &Worker{
		codec:    codec,
		producer: producer,
		compass:  compass,
		clock:    clock,
		deviceID: DeviceID,
		hdop:     5.0,
	}
}

// Run drives the outer retry loop until ctx is canceled. It never returns
// a parsing or transient I/O error: those are logged and retried, per the
// error-handling policy that sensor parsing errors never propagate out of
// the worker.
func (w *Worker) Run(ctx context.Context) error {
	mode := sensorserial.ModeNMEA
	failures := 0

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		var err error
		switch mode {
		case sensorserial.ModeNMEA:
			err = w.runNMEACycle()
			if err == nil {
				mode = sensorserial.ModeBinary
			}
		default:
			err = w.runBinaryCycle()
			if err == nil {
				mode = sensorserial.ModeNMEA
			}
		}

		if err == nil {
			failures = 0
			continue
		}

		obslog.Bus(w.producer, obslog.Warn, "sensor ingest: %v", err)
		failures++
		if failures > maxConsecutiveFailures {
			w.resetMode()
			failures = 0
		}
	}
}

// resetMode tries to force the module back to NMEA mode, falling back to
// binary mode if that fails.
func (w *Worker) resetMode() {
	if err := w.codec.SwitchMode(sensorserial.ModeNMEA, true, modeSwitchReadBudget); err != nil {
		obslog.Bus(w.producer, obslog.Error, "sensor ingest: mode reset to NMEA failed: %v", err)
		if err := w.codec.SwitchMode(sensorserial.ModeBinary, true, modeSwitchReadBudget); err != nil {
			obslog.Bus(w.producer, obslog.Error, "sensor ingest: mode reset to binary also failed: %v", err)
		}
	}
}

// runNMEACycle reads and processes a single NMEA sentence.
func (w *Worker) runNMEACycle() error {
	line, err := w.codec.ReadLine()
	if err != nil {
		return err
	}

	switch {
	case strings.HasPrefix(line, "$GPRMC"):
		fix, err := sensorserial.ParseGPRMC(line)
		if err != nil {
			obslog.Bus(w.producer, obslog.Debug, "sensor ingest: discard GPRMC: %v", err)
			return nil
		}
		if !fix.Valid {
			return nil
		}
		w.emitGPSReading(fix)
	case strings.HasPrefix(line, "$GPGSA"):
		gsa, err := sensorserial.ParseGPGSA(line)
		if err != nil {
			obslog.Bus(w.producer, obslog.Debug, "sensor ingest: discard GPGSA: %v", err)
			return nil
		}
		w.hdop = gsa.HDOP
	case strings.HasPrefix(line, "$GPGGA"):
		gga, err := sensorserial.ParseGPGGA(line)
		if err != nil {
			obslog.Bus(w.producer, obslog.Debug, "sensor ingest: discard GPGGA: %v", err)
			return nil
		}
		obslog.Bus(w.producer, obslog.Debug, "sensor ingest: GPGGA fix quality=%d satellites=%d", gga.FixQuality, gga.SatellitesUsed)
	case strings.HasPrefix(line, "$PSTI"):
		calibrated := sensorserial.IsCompassCalibratedSentence(line)
		if calibrated != w.moduleReportsCalibrated {
			w.moduleReportsCalibrated = calibrated
			obslog.Bus(w.producer, obslog.Debug, "sensor ingest: module-reported compass calibration state now %v", calibrated)
		}
	}
	return nil
}

func (w *Worker) emitGPSReading(fix *sensorserial.GPSFix) {
	headingD := fix.CourseD
	haveHeading := true
	if fix.SpeedMPS < lowSpeedThresholdMPS {
		if w.haveCompassHeading {
			headingD = w.lastCompassHeadingD
		} else {
			haveHeading = false
		}
	}

	speed := fix.SpeedMPS
	reading := telemetry.GPSReading{
		LatitudeD:     fix.LatitudeD,
		LongitudeD:    fix.LongitudeD,
		AccuracyM:     w.hdop,
		UnixTimestamp: fix.UnixTimestamp,
		DeviceID:      w.deviceID,
		SpeedMPS:      &speed,
	}
	if haveHeading {
		reading.HeadingD = &headingD
	}
	w.producer.GPSReading(reading)
}

// runBinaryCycle reads binaryFramesPerCycle binary frames, emitting
// accelerometer and compass readings for each.
func (w *Worker) runBinaryCycle() error {
	for i := 0; i < binaryFramesPerCycle; i++ {
		payload, err := w.codec.ReadBinaryFrame()
		if errors.Is(err, sensorserial.ErrFrameChecksum) || errors.Is(err, sensorserial.ErrFrameBadTrailer) {
			obslog.Bus(w.producer, obslog.Debug, "sensor ingest: discard binary frame: %v", err)
			continue
		}
		if err != nil {
			return err
		}
		msg, err := sensorserial.ParseBinaryFrame(payload)
		if err != nil {
			obslog.Bus(w.producer, obslog.Debug, "sensor ingest: discard binary frame: %v", err)
			continue
		}

		w.producer.AccelerometerReading(telemetry.AccelerometerReading{
			XG:       float64(msg.AccelerationGX),
			YG:       float64(msg.AccelerationGY),
			ZG:       float64(msg.AccelerationGZ),
			DeviceID: w.deviceID,
		})
		w.producer.BarometerReading(telemetry.BarometerReading{
			PressureP:    msg.PressureP,
			TemperatureC: float64(msg.TemperatureC),
			DeviceID:     w.deviceID,
		})

		fluxX := float64(msg.MagneticFluxUTX)
		fluxY := float64(msg.MagneticFluxUTY)

		if w.compass.Calibrating() {
			w.compass.RecordCalibrationSample(fluxX, fluxY, w.clock.Now())
			continue
		}

		headingD, confidence, ok := w.compass.Heading(fluxX, fluxY)
		if !ok {
			continue
		}
		w.lastCompassHeadingD = headingD
		w.haveCompassHeading = true
		w.producer.CompassReading(telemetry.CompassReading{
			HeadingD:   headingD,
			Confidence: confidence,
			DeviceID:   w.deviceID,
		})
	}
	return nil
}

// CalibrateCompass switches to binary mode, drains a handful of frames to
// let the module settle, then records samples for duration before
// reverting to NMEA mode. It runs synchronously and is meant to be called
// from its own goroutine by the command loop.
func (w *Worker) CalibrateCompass(ctx context.Context, duration time.Duration) error {
	const drainFrames = 10

	if err := w.codec.SwitchMode(sensorserial.ModeBinary, true, modeSwitchReadBudget); err != nil {
		return err
	}

	for i := 0; i < drainFrames; i++ {
		if _, err := w.codec.ReadBinaryFrame(); err != nil {
			return err
		}
	}

	if err := w.compass.BeginCalibration(w.clock, duration); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		payload, err := w.codec.ReadBinaryFrame()
		if err != nil {
			continue
		}
		msg, err := sensorserial.ParseBinaryFrame(payload)
		if err != nil {
			continue
		}
		done := w.compass.RecordCalibrationSample(float64(msg.MagneticFluxUTX), float64(msg.MagneticFluxUTY), w.clock.Now())
		if done {
			break
		}
	}

	return w.codec.SwitchMode(sensorserial.ModeNMEA, true, modeSwitchReadBudget)
}
