// Package onboarding runs the guided first-connection flow: a five
// state screen that drives the BLE link from idle through searching
// and connecting to connected, with cancel, retry, and skip paths.
package onboarding

import "fmt"

// State is one phase of the onboarding screen.
type State int

const (
	StateIdle State = iota
	StateSearching
	StateConnecting
	StateConnected
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSearching:
		return "searching"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Event is an input to the onboarding state machine.
type Event int

const (
	EventConnectRequested Event = iota
	EventDeviceChosen
	EventLinkEstablished
	EventFailed
	EventCancelled
	EventPeerDropped
	EventRetry
)

func (e Event) String() string {
	switch e {
	case EventConnectRequested:
		return "connect requested"
	case EventDeviceChosen:
		return "device chosen"
	case EventLinkEstablished:
		return "link established"
	case EventFailed:
		return "failed"
	case EventCancelled:
		return "cancelled"
	case EventPeerDropped:
		return "peer dropped"
	case EventRetry:
		return "retry"
	default:
		return fmt.Sprintf("Event(%d)", int(e))
	}
}

// transitions is the complete transition table. A missing entry means
// the event is ignored in that state.
var transitions = map[State]map[Event]State{
	StateIdle: {
		EventConnectRequested: StateSearching,
	},
	StateSearching: {
		EventDeviceChosen: StateConnecting,
		EventFailed:       StateError,
		EventCancelled:    StateIdle,
	},
	StateConnecting: {
		EventLinkEstablished: StateConnected,
		EventFailed:          StateError,
		EventCancelled:       StateIdle,
	},
	StateConnected: {
		EventPeerDropped: StateIdle,
	},
	StateError: {
		EventRetry: StateIdle,
	},
}

// Machine holds the bare onboarding state. It is not safe for
// concurrent use; the Screen serializes access to it.
type Machine struct {
	state State
}

// NewMachine starts in StateIdle.
func NewMachine() *Machine { return &Machine{state: StateIdle} }

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Fire applies ev. It returns the resulting state and whether the
// event caused a transition; ignored events leave the state alone.
func (m *Machine) Fire(ev Event) (State, bool) {
	next, ok := transitions[m.state][ev]
	if !ok {
		return m.state, false
	}
	m.state = next
	return next, true
}
