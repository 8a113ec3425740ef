package telemetry

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/sparkfun-avc/control/internal/bus"
)

// Exchange names, per spec.md §6.
const (
	ExchangeCommand          = "command"
	ExchangeCommandForwarded = "command-forwarded"
	ExchangeTelemetry        = "telemetry"
	ExchangeWaypoint         = "waypoint"
	ExchangeLogs             = "logs"
)

// Producer is the polymorphic typed layer over the raw bus: it serializes
// canonical readings and commands to their wire shape and publishes them to
// the right exchange, so callers never hand-encode JSON.
type Producer struct {
	b *bus.Bus
}

// NewProducer wraps a bus.Bus.
func NewProducer(b *bus.Bus) *Producer {
	return &Producer{b: b}
}

// Publish exposes the raw bus publish so Producer satisfies obslog.Publisher,
// letting log calls surface on the logs exchange without obslog importing bus.
func (p *Producer) Publish(exchange string, payload []byte) { p.b.Publish(exchange, payload) }

// Start publishes the "start" command.
func (p *Producer) Start() { p.b.Publish(ExchangeCommand, []byte(CommandStart)) }

// Stop publishes the "stop" command.
func (p *Producer) Stop() { p.b.Publish(ExchangeCommand, []byte(CommandStop)) }

// Reset publishes the "reset" command.
func (p *Producer) Reset() { p.b.Publish(ExchangeCommand, []byte(CommandReset)) }

// CalibrateCompass publishes the "calibrate-compass" command.
func (p *Producer) CalibrateCompass() {
	p.b.Publish(ExchangeCommand, []byte(CommandCalibrateCompass))
}

// SetMaxThrottle publishes "set-max-throttle=<f>".
func (p *Producer) SetMaxThrottle(max float64) {
	cmd := fmt.Sprintf("%s=%s", commandSetMaxThrottleKey, strconv.FormatFloat(max, 'g', -1, 64))
	p.b.Publish(ExchangeCommand, []byte(cmd))
}

// ForwardCommand republishes a verb on the command-forwarded exchange, for
// the sensor worker's view of commands the control loop has already acted
// on (currently just calibrate-compass, which the worker itself executes).
func (p *Producer) ForwardCommand(verb string) {
	p.b.Publish(ExchangeCommandForwarded, []byte(verb))
}

// ParseCommand decodes an ASCII command-exchange payload.
func ParseCommand(payload []byte) (Command, error) {
	s := string(payload)
	if strings.HasPrefix(s, commandSetMaxThrottleKey+"=") {
		v, err := strconv.ParseFloat(strings.TrimPrefix(s, commandSetMaxThrottleKey+"="), 64)
		if err != nil {
			return Command{}, fmt.Errorf("bad set-max-throttle value: %w", err)
		}
		return Command{Verb: commandSetMaxThrottleKey, MaxThrottle: v}, nil
	}
	switch s {
	case CommandStart, CommandStop, CommandReset, CommandCalibrateCompass:
		return Command{Verb: s}, nil
	default:
		return Command{}, fmt.Errorf("unrecognized command %q", s)
	}
}

// GPSReading publishes a GPS reading to the telemetry exchange.
func (p *Producer) GPSReading(r GPSReading) {
	r.Kind = KindGPS
	p.publishTelemetry(r)
}

// CompassReading publishes a compass reading to the telemetry exchange.
func (p *Producer) CompassReading(r CompassReading) {
	r.Kind = KindCompass
	p.publishTelemetry(r)
}

// AccelerometerReading publishes an accelerometer reading.
func (p *Producer) AccelerometerReading(r AccelerometerReading) {
	r.Kind = KindAccelerometer
	p.publishTelemetry(r)
}

// BarometerReading publishes a barometer reading.
func (p *Producer) BarometerReading(r BarometerReading) {
	r.Kind = KindBarometer
	p.publishTelemetry(r)
}

// DriveCommand publishes the most recently commanded throttle/steering.
func (p *Producer) DriveCommand(throttlePercent, steeringPercent float64) {
	p.publishTelemetry(DriveCommandReading{
		Kind:            KindDriveCommand,
		ThrottlePercent: throttlePercent,
		SteeringPercent: steeringPercent,
	})
}

func (p *Producer) publishTelemetry(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	p.b.Publish(ExchangeTelemetry, data)
}

// LoadWaypoints publishes a waypoint load command.
func (p *Producer) LoadWaypoints(file string) {
	data, err := json.Marshal(WaypointCommand{Command: "load", File: file})
	if err != nil {
		return
	}
	p.b.Publish(ExchangeWaypoint, data)
}

// Log publishes a structured log message to the logs exchange.
func (p *Producer) Log(level LogLevel, message string) {
	data, err := json.Marshal(LogMessage{Level: level, Message: message})
	if err != nil {
		return
	}
	p.b.Publish(ExchangeLogs, data)
}

// DecodeReadingKind peeks at a telemetry payload's "kind" field without
// fully decoding it, so a consumer can dispatch to the right struct.
func DecodeReadingKind(payload []byte) (Kind, error) {
	var tagged struct {
		Kind Kind `json:"kind"`
	}
	if err := json.Unmarshal(payload, &tagged); err != nil {
		return "", err
	}
	return tagged.Kind, nil
}
