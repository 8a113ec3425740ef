package buttonwatcher

import "github.com/stianeikeland/go-rpio/v4"

// RPIOPinReader reads a single input pin through go-rpio, pulled down so an
// unpressed button reads low and a press pulls it high.
type RPIOPinReader struct {
	pin rpio.Pin
}

// OpenRPIOPinReader configures pinNum as a pulled-down digital input.
func OpenRPIOPinReader(pinNum int) (*RPIOPinReader, error) {
	if err := rpio.Open(); err != nil {
		return nil, err
	}
	p := rpio.Pin(pinNum)
	p.Input()
	p.PullDown()
	return &RPIOPinReader{pin: p}, nil
}

// Read reports whether the pin currently reads high.
func (r *RPIOPinReader) Read() (bool, error) {
	return r.pin.Read() == rpio.High, nil
}

// Close releases the GPIO memory map.
func (r *RPIOPinReader) Close() error {
	return rpio.Close()
}
