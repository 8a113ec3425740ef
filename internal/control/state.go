// Package control runs the 50 Hz command loop that steers the vehicle
// toward its current waypoint and the state machine that arbitrates
// start/stop/calibrate/reset commands arriving off the command bus,
// grounded on the teacher's cmd/radar/radar.go event-consumer loop.
package control

import "fmt"

// State is one of the command loop's states.
type State string

const (
	StateIdle        State = "idle"
	StateRunning     State = "running"
	StateCalibrating State = "calibrating"
	StateDone        State = "done"
	StateShutdown    State = "shutdown"
)

// transitions enumerates the legal State graph; any state not mapped here,
// or a verb not found in its map, leaves the state unchanged.
var transitions = map[State]map[string]State{
	StateIdle: {
		"start": StateRunning,
	},
	StateRunning: {
		"stop":     StateIdle,
		"done":     StateDone,
		"shutdown": StateShutdown,
	},
	StateDone: {
		"reset": StateIdle,
	},
}

// next computes the state reached from cur on verb. calibrate-compass is
// handled outside this table because it applies from any state and must
// remember the state to return to.
func next(cur State, verb string) (State, bool) {
	m, ok := transitions[cur]
	if !ok {
		return cur, false
	}
	to, ok := m[verb]
	return to, ok
}

// ErrInvalidTransition describes a verb with no legal transition from the
// current state; Loop.HandleCommand logs it and ignores the verb rather
// than treating it as fatal.
type ErrInvalidTransition struct {
	From State
	Verb string
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("control: %q has no transition for verb %q", e.From, e.Verb)
}
