package sensoringest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sparkfun-avc/control/internal/bus"
	"github.com/sparkfun-avc/control/internal/sensorserial"
	"github.com/sparkfun-avc/control/internal/telemetry"
)

// fakePort is a minimal in-memory SerialPorter: reads drain a fixed buffer,
// writes are captured for assertions, mirroring sensorserial's own test
// double since that one is unexported to its package.
type fakePort struct {
	mu      sync.Mutex
	read    *bytes.Reader
	written bytes.Buffer
}

func newFakePort(data []byte) *fakePort { return &fakePort{read: bytes.NewReader(data)} }

func (p *fakePort) Read(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n, err := p.read.Read(buf)
	if err == io.EOF {
		return n, io.EOF
	}
	return n, err
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.Write(b)
}

func (p *fakePort) Close() error { return nil }

func collectTelemetry(t *testing.T, b *bus.Bus) (<-chan map[string]interface{}, func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan map[string]interface{}, 64)
	go b.Consume(ctx, telemetry.ExchangeTelemetry, func(payload []byte) {
		var v map[string]interface{}
		if err := json.Unmarshal(payload, &v); err == nil {
			out <- v
		}
	})
	return out, cancel
}

func waitForReading(t *testing.T, ch <-chan map[string]interface{}, kind string) map[string]interface{} {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case v := <-ch:
			if v["kind"] == kind {
				return v
			}
		case <-deadline:
			t.Fatalf("timed out waiting for telemetry kind %q", kind)
		}
	}
}

func TestWorkerRunNMEACycleEmitsGPSReading(t *testing.T) {
	line := "$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A\r\n"
	port := newFakePort([]byte(line))
	codec := sensorserial.NewCodec(port)
	b := bus.New()
	producer := telemetry.NewProducer(b)
	ch, cancel := collectTelemetry(t, b)
	defer cancel()

	w := NewWorker(codec, producer, NewCompass(0), nil)
	if err := w.runNMEACycle(); err != nil {
		t.Fatalf("runNMEACycle: %v", err)
	}

	reading := waitForReading(t, ch, "gps")
	if reading["latitude_d"] == nil {
		t.Error("expected latitude_d in GPS reading")
	}
}

func TestWorkerRunNMEACycleUpdatesHDOPFromGSA(t *testing.T) {
	line := "$GPGSA,A,3,04,05,,09,12,,,24,,,,,2.5,1.3,2.1*39\r\n"
	port := newFakePort([]byte(line))
	codec := sensorserial.NewCodec(port)
	b := bus.New()
	producer := telemetry.NewProducer(b)

	w := NewWorker(codec, producer, NewCompass(0), nil)
	if err := w.runNMEACycle(); err != nil {
		t.Fatalf("runNMEACycle: %v", err)
	}
	if w.hdop != 1.3 {
		t.Errorf("hdop = %v, want 1.3", w.hdop)
	}
}

func TestWorkerRunNMEACycleGPGGAEmitsNoTelemetry(t *testing.T) {
	line := "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47\r\n"
	port := newFakePort([]byte(line))
	codec := sensorserial.NewCodec(port)
	b := bus.New()
	producer := telemetry.NewProducer(b)
	ch, cancel := collectTelemetry(t, b)
	defer cancel()

	w := NewWorker(codec, producer, NewCompass(0), nil)
	if err := w.runNMEACycle(); err != nil {
		t.Fatalf("runNMEACycle: %v", err)
	}

	select {
	case v := <-ch:
		t.Errorf("GPGGA is diagnostic-only and should not publish telemetry, got %v", v)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestWorkerRunNMEACycleTracksPSTICalibrationState(t *testing.T) {
	port := newFakePort([]byte("$PSTI,030,1,dummy*00\r\n"))
	codec := sensorserial.NewCodec(port)
	b := bus.New()
	producer := telemetry.NewProducer(b)

	w := NewWorker(codec, producer, NewCompass(0), nil)
	if err := w.runNMEACycle(); err != nil {
		t.Fatalf("runNMEACycle: %v", err)
	}
	if !w.moduleReportsCalibrated {
		t.Error("expected moduleReportsCalibrated = true after a $PSTI,...,1 sentence")
	}
}

func TestWorkerGPSLowSpeedUsesCompassHeadingFallback(t *testing.T) {
	w := &Worker{deviceID: DeviceID, hdop: 2.0, lastCompassHeadingD: 45, haveCompassHeading: true}
	b := bus.New()
	producer := telemetry.NewProducer(b)
	w.producer = producer
	ch, cancel := collectTelemetry(t, b)
	defer cancel()

	w.emitGPSReading(&sensorserial.GPSFix{
		LatitudeD: 10, LongitudeD: 20, SpeedMPS: 0.5, CourseD: 300, Valid: true,
	})

	reading := waitForReading(t, ch, "gps")
	heading, ok := reading["heading_d"].(float64)
	if !ok || heading != 45 {
		t.Errorf("heading_d = %v, want 45 (compass fallback at low speed)", reading["heading_d"])
	}
}

func TestWorkerGPSHighSpeedUsesCourseDirectly(t *testing.T) {
	w := &Worker{deviceID: DeviceID, hdop: 2.0}
	b := bus.New()
	producer := telemetry.NewProducer(b)
	w.producer = producer
	ch, cancel := collectTelemetry(t, b)
	defer cancel()

	w.emitGPSReading(&sensorserial.GPSFix{
		LatitudeD: 10, LongitudeD: 20, SpeedMPS: 5.0, CourseD: 300, Valid: true,
	})

	reading := waitForReading(t, ch, "gps")
	if reading["heading_d"] != 300.0 {
		t.Errorf("heading_d = %v, want 300", reading["heading_d"])
	}
}

func TestWorkerRunBinaryCycleEmitsAccelAndBarometer(t *testing.T) {
	msg := sensorserial.BinaryMessage{
		AccelerationGX: 0.1, AccelerationGY: 0.2, AccelerationGZ: 0.98,
		MagneticFluxUTX: 1, MagneticFluxUTY: 0, MagneticFluxUTZ: 0,
		PressureP: 101325, TemperatureC: 22.5,
	}
	payload := sensorserial.EncodeBinaryFrame([3]byte{1, 2, 3}, msg)
	frame := sensorserial.EncodeFrame(payload)

	var buf bytes.Buffer
	for i := 0; i < binaryFramesPerCycle; i++ {
		buf.Write(frame)
	}
	port := newFakePort(buf.Bytes())
	codec := sensorserial.NewCodec(port)
	b := bus.New()
	producer := telemetry.NewProducer(b)
	ch, cancel := collectTelemetry(t, b)
	defer cancel()

	w := NewWorker(codec, producer, NewCompass(0), nil)
	if err := w.runBinaryCycle(); err != nil {
		t.Fatalf("runBinaryCycle: %v", err)
	}

	waitForReading(t, ch, "accelerometer")
	waitForReading(t, ch, "barometer")
	waitForReading(t, ch, "compass")
}
