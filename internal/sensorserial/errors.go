package sensorserial

import "errors"

// Sentinel errors for the dual-mode protocol, matched with errors.Is by
// callers (sensoringest escalates SerialIo/ModeChange, drops the rest).
var (
	// ErrSerialIO marks a transient read/write failure on the underlying port.
	ErrSerialIO = errors.New("sensorserial: serial io error")
	// ErrFrameChecksum marks a binary frame whose XOR checksum didn't match.
	ErrFrameChecksum = errors.New("sensorserial: frame checksum mismatch")
	// ErrFrameBadTrailer marks a binary frame missing the 0D 0A trailer.
	ErrFrameBadTrailer = errors.New("sensorserial: frame bad trailer")
	// ErrModeChange marks a mode-switch command that saw neither ack nor nack.
	ErrModeChange = errors.New("sensorserial: mode change not acknowledged")
	// ErrParseSentence marks an NMEA sentence that failed to parse.
	ErrParseSentence = errors.New("sensorserial: sentence parse error")
	// ErrParseBinary marks a binary payload that failed to parse.
	ErrParseBinary = errors.New("sensorserial: binary parse error")
)
