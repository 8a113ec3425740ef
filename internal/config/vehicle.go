// Package config loads the vehicle's tuning configuration: reference
// origin, sensor module wiring, PWM pin assignment, and control-loop
// tunables. It mirrors the teacher's TuningConfig shape (pointer fields +
// Get* accessor defaults + Validate) so partial config files are safe and
// every tunable has a documented default.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is the default location of the vehicle config file.
const DefaultConfigPath = "config/vehicle.json"

// VehicleConfig is the root configuration for the vehicle. All fields are
// optional; omitted fields fall back to the Get* accessor defaults.
type VehicleConfig struct {
	// Planar frame origin.
	ReferenceLatitudeD  *float64 `json:"reference_latitude_d,omitempty" yaml:"reference_latitude_d,omitempty"`
	ReferenceLongitudeD *float64 `json:"reference_longitude_d,omitempty" yaml:"reference_longitude_d,omitempty"`

	// Compass.
	MagneticDeclinationD *float64 `json:"magnetic_declination_d,omitempty" yaml:"magnetic_declination_d,omitempty"`
	CalibrationSeconds   *float64 `json:"calibration_seconds,omitempty" yaml:"calibration_seconds,omitempty"`

	// Serial link.
	SerialDevice *string `json:"serial_device,omitempty" yaml:"serial_device,omitempty"`
	SerialBaud   *int    `json:"serial_baud,omitempty" yaml:"serial_baud,omitempty"`

	// PWM pins (BCM numbering).
	ThrottlePin *int `json:"throttle_pin,omitempty" yaml:"throttle_pin,omitempty"`
	SteeringPin *int `json:"steering_pin,omitempty" yaml:"steering_pin,omitempty"`
	ButtonPin   *int `json:"button_pin,omitempty" yaml:"button_pin,omitempty"`

	// Control loop.
	MaxThrottle   *float64 `json:"max_throttle,omitempty" yaml:"max_throttle,omitempty"`
	ChaseDistance *float64 `json:"chase_distance_m,omitempty" yaml:"chase_distance_m,omitempty"`
	TickInterval  *string  `json:"tick_interval,omitempty" yaml:"tick_interval,omitempty"`

	// Reverse-switching model (spec.md §9 Open Question), configurable
	// rather than hard-coded.
	ReverseDeadTime        *string  `json:"reverse_dead_time,omitempty" yaml:"reverse_dead_time,omitempty"`
	ReverseTravelRateDPerS *float64 `json:"reverse_travel_rate_d_per_s,omitempty" yaml:"reverse_travel_rate_d_per_s,omitempty"`

	// Waypoints.
	WaypointFile *string `json:"waypoint_file,omitempty" yaml:"waypoint_file,omitempty"`
	WaypointDir  *string `json:"waypoint_dir,omitempty" yaml:"waypoint_dir,omitempty"`

	// Pose estimation (spec.md §4.5 Open Question: the original source
	// feeds the position filter's throttle/steering observation variants
	// an already-converted speed_m_s/turn_rate_d_s; these two tunables are
	// the conversion this project chose, full throttle/steering mapping
	// linearly onto the vehicle's measured top speed and turn rate).
	TopSpeedMPS      *float64 `json:"top_speed_m_s,omitempty" yaml:"top_speed_m_s,omitempty"`
	MaxTurnRateDPerS *float64 `json:"max_turn_rate_d_s,omitempty" yaml:"max_turn_rate_d_s,omitempty"`
}

// Float64, Int, and String build pointers to literals for constructing
// partial configs in tests and call sites.
func Float64(v float64) *float64 { return &v }
func Int(v int) *int             { return &v }
func String(v string) *string    { return &v }

// EmptyVehicleConfig returns a VehicleConfig with all fields nil.
func EmptyVehicleConfig() *VehicleConfig {
	return &VehicleConfig{}
}

// LoadVehicleConfig loads a VehicleConfig from a JSON or YAML file (chosen
// by extension). Fields omitted from the file keep their Get* defaults.
func LoadVehicleConfig(path string) (*VehicleConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml, or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyVehicleConfig()
	if ext == ".json" {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that any set values are in range.
func (c *VehicleConfig) Validate() error {
	if c.MaxThrottle != nil {
		if *c.MaxThrottle < 0 || *c.MaxThrottle > 1 {
			return fmt.Errorf("max_throttle must be between 0 and 1, got %f", *c.MaxThrottle)
		}
	}
	if c.TickInterval != nil && *c.TickInterval != "" {
		if _, err := time.ParseDuration(*c.TickInterval); err != nil {
			return fmt.Errorf("invalid tick_interval %q: %w", *c.TickInterval, err)
		}
	}
	if c.ReverseDeadTime != nil && *c.ReverseDeadTime != "" {
		if _, err := time.ParseDuration(*c.ReverseDeadTime); err != nil {
			return fmt.Errorf("invalid reverse_dead_time %q: %w", *c.ReverseDeadTime, err)
		}
	}
	if c.ChaseDistance != nil && *c.ChaseDistance <= 0 {
		return fmt.Errorf("chase_distance_m must be positive, got %f", *c.ChaseDistance)
	}
	return nil
}

// GetReferenceLatitudeD returns the reference latitude or the default
// (Boulder, CO — the original project's test site).
func (c *VehicleConfig) GetReferenceLatitudeD() float64 {
	if c.ReferenceLatitudeD == nil {
		return 40.09
	}
	return *c.ReferenceLatitudeD
}

// GetReferenceLongitudeD returns the reference longitude or the default.
func (c *VehicleConfig) GetReferenceLongitudeD() float64 {
	if c.ReferenceLongitudeD == nil {
		return -105.18
	}
	return *c.ReferenceLongitudeD
}

// GetMagneticDeclinationD returns the magnetic declination or the default
// (8.666°, the reference site's value).
func (c *VehicleConfig) GetMagneticDeclinationD() float64 {
	if c.MagneticDeclinationD == nil {
		return 8.666
	}
	return *c.MagneticDeclinationD
}

// GetCalibrationSeconds returns the compass calibration run duration.
func (c *VehicleConfig) GetCalibrationSeconds() float64 {
	if c.CalibrationSeconds == nil {
		return 30
	}
	return *c.CalibrationSeconds
}

// GetSerialDevice returns the serial device path or the default.
func (c *VehicleConfig) GetSerialDevice() string {
	if c.SerialDevice == nil {
		return "/dev/ttyAMA0"
	}
	return *c.SerialDevice
}

// GetSerialBaud returns the serial baud rate or the default (115200).
func (c *VehicleConfig) GetSerialBaud() int {
	if c.SerialBaud == nil {
		return 115200
	}
	return *c.SerialBaud
}

// GetThrottlePin returns the throttle PWM pin or the default.
func (c *VehicleConfig) GetThrottlePin() int {
	if c.ThrottlePin == nil {
		return 18
	}
	return *c.ThrottlePin
}

// GetSteeringPin returns the steering PWM pin or the default.
func (c *VehicleConfig) GetSteeringPin() int {
	if c.SteeringPin == nil {
		return 4
	}
	return *c.SteeringPin
}

// GetButtonPin returns the start/stop button GPIO pin or the default.
func (c *VehicleConfig) GetButtonPin() int {
	if c.ButtonPin == nil {
		return 17
	}
	return *c.ButtonPin
}

// GetMaxThrottle returns the configured max throttle, or the default (0.5).
func (c *VehicleConfig) GetMaxThrottle() float64 {
	if c.MaxThrottle == nil {
		return 0.5
	}
	return *c.MaxThrottle
}

// GetChaseDistance returns the pure-pursuit chase distance in meters.
func (c *VehicleConfig) GetChaseDistance() float64 {
	if c.ChaseDistance == nil {
		return 15.0
	}
	return *c.ChaseDistance
}

// GetTickInterval returns the command loop tick interval, default 20ms (50Hz).
func (c *VehicleConfig) GetTickInterval() time.Duration {
	if c.TickInterval == nil || *c.TickInterval == "" {
		return 20 * time.Millisecond
	}
	d, err := time.ParseDuration(*c.TickInterval)
	if err != nil {
		return 20 * time.Millisecond
	}
	return d
}

// GetReverseDeadTime returns the reverse-switching dead time, default 250ms.
func (c *VehicleConfig) GetReverseDeadTime() time.Duration {
	if c.ReverseDeadTime == nil || *c.ReverseDeadTime == "" {
		return 250 * time.Millisecond
	}
	d, err := time.ParseDuration(*c.ReverseDeadTime)
	if err != nil {
		return 250 * time.Millisecond
	}
	return d
}

// GetReverseTravelRateDPerS returns the reverse travel rate, default 60°/s.
func (c *VehicleConfig) GetReverseTravelRateDPerS() float64 {
	if c.ReverseTravelRateDPerS == nil {
		return 60.0
	}
	return *c.ReverseTravelRateDPerS
}

// GetWaypointFile returns the configured waypoint file name, or "" if unset.
func (c *VehicleConfig) GetWaypointFile() string {
	if c.WaypointFile == nil {
		return ""
	}
	return *c.WaypointFile
}

// GetWaypointDir returns the safe directory waypoint files must live under.
func (c *VehicleConfig) GetWaypointDir() string {
	if c.WaypointDir == nil {
		return "waypoints"
	}
	return *c.WaypointDir
}

// GetTopSpeedMPS returns the vehicle's measured top speed at full throttle,
// used to convert a commanded throttle fraction into the position filter's
// speed-from-throttle observation. Default 3.0 m/s, the reference vehicle's
// measured pace.
func (c *VehicleConfig) GetTopSpeedMPS() float64 {
	if c.TopSpeedMPS == nil {
		return 3.0
	}
	return *c.TopSpeedMPS
}

// GetMaxTurnRateDPerS returns the vehicle's turn rate at full steering
// deflection, used to convert a commanded steering fraction into the
// position filter's predict-step turn rate. Default 90°/s.
func (c *VehicleConfig) GetMaxTurnRateDPerS() float64 {
	if c.MaxTurnRateDPerS == nil {
		return 90.0
	}
	return *c.MaxTurnRateDPerS
}
