package sensorserial

import (
	"bytes"
	"io"
	"sync"
)

// fakePort is a minimal in-memory SerialPorter for unit tests, mirroring the
// teacher's TestSerialPort pattern: reads come from a fixed buffer, writes
// go to a buffer for assertions.
type fakePort struct {
	mu      sync.Mutex
	read    *bytes.Reader
	written bytes.Buffer
	closed  bool
}

func newFakePort(data []byte) *fakePort {
	return &fakePort{read: bytes.NewReader(data)}
}

func (p *fakePort) Read(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, io.EOF
	}
	return p.read.Read(buf)
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.Write(b)
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}
