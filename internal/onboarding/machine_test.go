package onboarding

import "testing"

func TestMachineStartsIdle(t *testing.T) {
	if got := NewMachine().State(); got != StateIdle {
		t.Errorf("initial state = %v, want idle", got)
	}
}

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		from  State
		event Event
		to    State
	}{
		{StateIdle, EventConnectRequested, StateSearching},
		{StateSearching, EventDeviceChosen, StateConnecting},
		{StateSearching, EventFailed, StateError},
		{StateSearching, EventCancelled, StateIdle},
		{StateConnecting, EventLinkEstablished, StateConnected},
		{StateConnecting, EventFailed, StateError},
		{StateConnecting, EventCancelled, StateIdle},
		{StateConnected, EventPeerDropped, StateIdle},
		{StateError, EventRetry, StateIdle},
	}
	for _, tc := range cases {
		m := &Machine{state: tc.from}
		got, ok := m.Fire(tc.event)
		if !ok || got != tc.to {
			t.Errorf("%v + %v = %v (fired=%v), want %v", tc.from, tc.event, got, ok, tc.to)
		}
	}
}

func TestIgnoredEvents(t *testing.T) {
	cases := []struct {
		state State
		event Event
	}{
		{StateIdle, EventFailed},
		{StateIdle, EventRetry},
		{StateIdle, EventPeerDropped},
		{StateSearching, EventConnectRequested},
		{StateSearching, EventLinkEstablished},
		{StateConnecting, EventDeviceChosen},
		{StateConnected, EventConnectRequested},
		{StateConnected, EventCancelled},
		{StateError, EventCancelled},
		{StateError, EventConnectRequested},
	}
	for _, tc := range cases {
		m := &Machine{state: tc.state}
		got, ok := m.Fire(tc.event)
		if ok || got != tc.state {
			t.Errorf("%v + %v = %v (fired=%v), want event ignored", tc.state, tc.event, got, ok)
		}
	}
}

func TestHappyPathSequence(t *testing.T) {
	m := NewMachine()
	for _, ev := range []Event{EventConnectRequested, EventDeviceChosen, EventLinkEstablished} {
		if _, ok := m.Fire(ev); !ok {
			t.Fatalf("%v unexpectedly ignored in %v", ev, m.State())
		}
	}
	if m.State() != StateConnected {
		t.Errorf("final state = %v, want connected", m.State())
	}
}

func TestStateStrings(t *testing.T) {
	want := map[State]string{
		StateIdle:       "idle",
		StateSearching:  "searching",
		StateConnecting: "connecting",
		StateConnected:  "connected",
		StateError:      "error",
	}
	for st, name := range want {
		if st.String() != name {
			t.Errorf("State(%d).String() = %q, want %q", int(st), st.String(), name)
		}
	}
}
