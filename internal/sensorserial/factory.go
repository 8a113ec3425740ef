package sensorserial

import (
	"go.bug.st/serial"
)

// OpenReal opens a real serial port at the given path using the provided
// port options, returning it as a SerialPorter suitable for a Codec.
func OpenReal(path string, opts PortOptions) (SerialPorter, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, err
	}

	return port, nil
}
