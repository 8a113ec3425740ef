package sensorserial

import (
	"bufio"
	"bytes"
	"errors"
	"testing"
)

func TestEncodeDecodeFrameRoundTrip(t *testing.T) {
	payload := []byte{0x09, 0x02, 0x01}
	frame := EncodeFrame(payload)
	r := bufio.NewReader(bytes.NewReader(frame))
	got, err := GetMessage(r)
	if err != nil {
		t.Fatalf("GetMessage: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("got payload %v, want %v", got, payload)
	}
}

func TestGetMessageSkipsGarbageBeforeStart(t *testing.T) {
	payload := []byte{1, 2, 3}
	frame := EncodeFrame(payload)
	noisy := append([]byte{0xFF, 0x00, 0xA0, 0x01}, frame...)
	r := bufio.NewReader(bytes.NewReader(noisy))
	got, err := GetMessage(r)
	if err != nil {
		t.Fatalf("GetMessage: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("got payload %v, want %v", got, payload)
	}
}

func TestGetMessageBadChecksum(t *testing.T) {
	payload := []byte{1, 2, 3}
	frame := EncodeFrame(payload)
	frame[len(frame)-3] ^= 0xFF // corrupt checksum byte
	r := bufio.NewReader(bytes.NewReader(frame))
	_, err := GetMessage(r)
	if !errors.Is(err, ErrFrameChecksum) {
		t.Errorf("got error %v, want ErrFrameChecksum", err)
	}
}

func TestGetMessageBadTrailer(t *testing.T) {
	payload := []byte{1, 2, 3}
	frame := EncodeFrame(payload)
	frame[len(frame)-1] = 0x00 // corrupt trailing 0A
	r := bufio.NewReader(bytes.NewReader(frame))
	_, err := GetMessage(r)
	if !errors.Is(err, ErrFrameBadTrailer) {
		t.Errorf("got error %v, want ErrFrameBadTrailer", err)
	}
}

func TestXorChecksumAllGeneratedFrames(t *testing.T) {
	payloads := [][]byte{
		{},
		{0x00},
		{0x09, 0x02, 0x01},
		bytes.Repeat([]byte{0xAB}, 40),
	}
	for _, p := range payloads {
		frame := EncodeFrame(p)
		checksum := frame[2+2+len(p)]
		if checksum != xorChecksum(p) {
			t.Errorf("checksum mismatch for payload %v", p)
		}
	}
}
