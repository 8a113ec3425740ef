package sensorserial

import (
	"encoding/binary"
	"fmt"
	"math"
)

// binaryFrameFieldsOffset is the number of bytes to skip at the start of a
// binary frame's payload before the IEEE-754 fields begin: 3 id/sub-id
// bytes, plus one undocumented extra byte observed in captures from the
// sensor module but never explained in its firmware docs. Preserved as a
// fixed skip per the original implementation; verify against firmware docs
// before relying on it for a different module revision.
const binaryFrameFieldsOffset = 4

// binaryFrameFieldsLength is the number of bytes the eight fields occupy:
// 3 accel + 3 flux + pressure + temperature, 4 bytes each.
const binaryFrameFieldsLength = 8 * 4

// BinaryMessage is the decoded inertial frame emitted by the sensor module
// in binary mode.
type BinaryMessage struct {
	AccelerationGX float32
	AccelerationGY float32
	AccelerationGZ float32

	MagneticFluxUTX float32
	MagneticFluxUTY float32
	MagneticFluxUTZ float32

	PressureP    uint32
	TemperatureC float32
}

// ParseBinaryFrame decodes a binary frame payload (as returned by
// GetMessage) into a BinaryMessage. Returns ErrParseBinary if the payload
// is too short to contain the fixed fields.
func ParseBinaryFrame(payload []byte) (*BinaryMessage, error) {
	if len(payload) < binaryFrameFieldsOffset+binaryFrameFieldsLength {
		return nil, fmt.Errorf("%w: payload too short (%d bytes)", ErrParseBinary, len(payload))
	}
	f := payload[binaryFrameFieldsOffset:]

	readF32 := func(i int) float32 {
		bits := binary.BigEndian.Uint32(f[i*4:])
		return math.Float32frombits(bits)
	}

	msg := &BinaryMessage{
		AccelerationGX:  readF32(0),
		AccelerationGY:  readF32(1),
		AccelerationGZ:  readF32(2),
		MagneticFluxUTX: readF32(3),
		MagneticFluxUTY: readF32(4),
		MagneticFluxUTZ: readF32(5),
		PressureP:       binary.BigEndian.Uint32(f[6*4:]),
		TemperatureC:    readF32(7),
	}
	return msg, nil
}

// EncodeBinaryFrame is the inverse of ParseBinaryFrame, for tests and
// simulators: it builds a frame payload (id/sub-id prefix + fields) given a
// 3-byte id/sub-id prefix and a message.
func EncodeBinaryFrame(idSubID [3]byte, msg BinaryMessage) []byte {
	payload := make([]byte, binaryFrameFieldsOffset+binaryFrameFieldsLength)
	copy(payload[0:3], idSubID[:])
	// payload[3] is the undocumented extra byte; left zero.

	f := payload[binaryFrameFieldsOffset:]
	writeF32 := func(i int, v float32) {
		binary.BigEndian.PutUint32(f[i*4:], math.Float32bits(v))
	}
	writeF32(0, msg.AccelerationGX)
	writeF32(1, msg.AccelerationGY)
	writeF32(2, msg.AccelerationGZ)
	writeF32(3, msg.MagneticFluxUTX)
	writeF32(4, msg.MagneticFluxUTY)
	writeF32(5, msg.MagneticFluxUTZ)
	binary.BigEndian.PutUint32(f[6*4:], msg.PressureP)
	writeF32(7, msg.TemperatureC)
	return payload
}

// ModeChangePayload builds the "09 | mode | storage" configuration payload
// used to switch the module between NMEA and binary output modes.
func ModeChangePayload(mode byte, ramOnly bool) []byte {
	storage := byte(1)
	if ramOnly {
		storage = 0
	}
	return []byte{modeChangeMessageID, mode, storage}
}

// IsAck reports whether a binary frame payload is a mode-change ack.
func IsAck(payload []byte) bool {
	return len(payload) > 0 && payload[0] == ackMessageID
}

// IsNack reports whether a binary frame payload is a mode-change nack.
func IsNack(payload []byte) bool {
	return len(payload) > 0 && payload[0] == nackMessageID
}
