// Package telemetry defines the canonical sensor-reading payloads carried
// on the message bus and a typed producer layer for publishing them,
// replacing the teacher's singleton-producer-keyed-by-thread pattern with
// an explicit *bus.Bus reference passed into each actor (spec.md §9).
package telemetry

// Kind discriminates the JSON-encoded Reading union. Go has no native sum
// type, so each payload carries an explicit "kind" tag.
type Kind string

const (
	KindGPS           Kind = "gps"
	KindCompass       Kind = "compass"
	KindAccelerometer Kind = "accelerometer"
	KindBarometer     Kind = "barometer"
	KindDriveCommand  Kind = "drive-command"
)

// GPSReading is the canonical GPS bus payload.
type GPSReading struct {
	Kind          Kind    `json:"kind"`
	LatitudeD     float64 `json:"latitude_d"`
	LongitudeD    float64 `json:"longitude_d"`
	AccuracyM     float64 `json:"accuracy_m"`
	HeadingD      *float64 `json:"heading_d,omitempty"`
	SpeedMPS      *float64 `json:"speed_m_s,omitempty"`
	UnixTimestamp float64 `json:"unix_timestamp_s"`
	DeviceID      string  `json:"device_id"`
}

// CompassReading is the canonical compass bus payload.
type CompassReading struct {
	Kind       Kind    `json:"kind"`
	HeadingD   float64 `json:"heading_d"`
	Confidence float64 `json:"confidence"`
	DeviceID   string  `json:"device_id"`
}

// AccelerometerReading is the canonical three-axis accelerometer payload.
type AccelerometerReading struct {
	Kind     Kind    `json:"kind"`
	XG       float64 `json:"x_g"`
	YG       float64 `json:"y_g"`
	ZG       float64 `json:"z_g"`
	DeviceID string  `json:"device_id"`
}

// BarometerReading is the canonical pressure/temperature payload decoded
// from the binary inertial frame (an addition over the distilled spec: the
// frame carries these fields but spec.md never gives them a bus shape; see
// SPEC_FULL.md §4).
type BarometerReading struct {
	Kind         Kind    `json:"kind"`
	PressureP    uint32  `json:"pressure_p"`
	TemperatureC float64 `json:"temperature_c"`
	DeviceID     string  `json:"device_id"`
}

// DriveCommandReading reports the throttle/steering percentages the driver
// most recently commanded to the servos, so a monitoring consumer can
// correlate commanded input with the pose/telemetry stream.
type DriveCommandReading struct {
	Kind             Kind    `json:"kind"`
	ThrottlePercent  float64 `json:"throttle_percent"`
	SteeringPercent  float64 `json:"steering_percent"`
}

// Command is one of the ASCII command-exchange verbs. MaxThrottle carries
// the float argument when Verb is "set-max-throttle".
type Command struct {
	Verb           string
	MaxThrottle    float64
}

const (
	CommandStart             = "start"
	CommandStop              = "stop"
	CommandReset             = "reset"
	CommandCalibrateCompass  = "calibrate-compass"
	commandSetMaxThrottleKey = "set-max-throttle"
)

// WaypointCommand is the waypoint-exchange payload: { "command": "load",
// "file": "<name>" }.
type WaypointCommand struct {
	Command string `json:"command"`
	File    string `json:"file"`
}

// LogLevel enumerates the logs-exchange payload's level field.
type LogLevel string

const (
	LogDebug    LogLevel = "debug"
	LogInfo     LogLevel = "info"
	LogWarn     LogLevel = "warn"
	LogError    LogLevel = "error"
	LogCritical LogLevel = "critical"
)

// LogMessage is the logs-exchange bus payload.
type LogMessage struct {
	Level   LogLevel `json:"level"`
	Message string   `json:"message"`
}
