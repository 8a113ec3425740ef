// Package buttonwatcher polls a single GPIO input and turns its press
// sequence into start/stop command-exchange verbs, grounded on the
// DigitalRead poll pattern the hardware-abstraction layer in the example
// pack uses for rpio input pins.
package buttonwatcher

import (
	"context"
	"time"

	"github.com/sparkfun-avc/control/internal/telemetry"
	"github.com/sparkfun-avc/control/internal/timeutil"
)

// debounceInterval is the minimum time a reading must hold steady before
// counting as a press edge.
const debounceInterval = 50 * time.Millisecond

// doublePressWindow is how long after one press a second press counts as a
// "stop" rather than a fresh "start".
const doublePressWindow = time.Second

// pollInterval is how often the pin is sampled; finer than the debounce
// interval so an edge is caught promptly.
const pollInterval = 10 * time.Millisecond

// PinReader reads the current logical level of the button's GPIO pin.
// Pressed (logical 1) returns true.
type PinReader interface {
	Read() (bool, error)
}

// CommandEmitter is the command-producing side the watcher drives. It is
// satisfied by *telemetry.Producer.
type CommandEmitter interface {
	Start()
	Stop()
}

// Watcher debounces a button pin and emits start/stop per the press rule:
// first press starts, a press within doublePressWindow of the last one
// stops, any other press starts.
type Watcher struct {
	pin   PinReader
	emit  CommandEmitter
	clock timeutil.Clock

	lastPress time.Time
	havePress bool
}

// New builds a Watcher over pin, emitting through emit.
func New(pin PinReader, emit CommandEmitter, clock timeutil.Clock) *Watcher {
	return &Watcher{pin: pin, emit: emit, clock: clock}
}

// Run polls the pin until ctx is canceled, debouncing and dispatching
// presses as they're detected.
func (w *Watcher) Run(ctx context.Context) {
	var stableLevel bool
	var lastChange time.Time
	var debounced bool

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		pressed, err := w.pin.Read()
		if err != nil {
			w.clock.Sleep(pollInterval)
			continue
		}

		now := w.clock.Now()
		if pressed != stableLevel {
			stableLevel = pressed
			lastChange = now
			debounced = false
		} else if !debounced && now.Sub(lastChange) >= debounceInterval {
			debounced = true
			if pressed {
				w.onPress(now)
			}
		}

		w.clock.Sleep(pollInterval)
	}
}

func (w *Watcher) onPress(now time.Time) {
	stop := w.havePress && now.Sub(w.lastPress) < doublePressWindow
	w.lastPress = now
	w.havePress = true

	if stop {
		w.emit.Stop()
	} else {
		w.emit.Start()
	}
}

var _ CommandEmitter = (*telemetry.Producer)(nil)
