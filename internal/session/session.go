// Package session publishes live link state to the rest of the app.
// A Session wraps the BLE client, mirrors its events into a watchable
// State value, and rides a context.Context so nested operations reach
// the one shared link without globals.
package session

import (
	"context"
	"sync"

	"github.com/ItsSilva/lumilink/internal/ble"
)

// Link is the slice of the BLE client a session drives.
type Link interface {
	Connect(ctx context.Context) (*ble.Device, error)
	Disconnect() error
	Reconnect(ctx context.Context) (*ble.Device, error)
	Send(text string) error
	CurrentDevice() *ble.Device
	Notify(ble.Handlers)
}

// Compile-time check that the BLE client satisfies Link.
var _ Link = (*ble.Client)(nil)

// State is a snapshot of the link as seen by consumers.
type State struct {
	Device       *ble.Device // nil when no link is up
	Connected    bool
	LastReceived string // most recent notification text, sticky across links
}

// Session owns one Link and republishes its events as state changes.
type Session struct {
	link Link

	mu       sync.Mutex
	state    State
	watchers []func(State)
}

// New wraps link and starts mirroring its events. Construct one
// session per process and hand it around with NewContext.
func New(link Link) *Session {
	s := &Session{link: link}
	if dev := link.CurrentDevice(); dev != nil {
		s.state = State{Device: dev, Connected: dev.Connected}
	}
	link.Notify(ble.Handlers{
		OnConnected: func(dev ble.Device) {
			s.publish(func(st *State) {
				st.Device = &dev
				st.Connected = true
			})
		},
		OnDisconnected: func() {
			s.publish(func(st *State) {
				st.Device = nil
				st.Connected = false
			})
		},
		OnDataReceived: func(text string) {
			s.publish(func(st *State) { st.LastReceived = text })
		},
	})
	return s
}

// State returns the current snapshot.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Watch registers fn for every state change and calls it once with
// the current state so late subscribers start in sync.
func (s *Session) Watch(fn func(State)) {
	s.mu.Lock()
	s.watchers = append(s.watchers, fn)
	cur := s.state
	s.mu.Unlock()
	fn(cur)
}

// publish applies mutate and fans the new state out. Watcher
// callbacks run outside the lock.
func (s *Session) publish(mutate func(*State)) {
	s.mu.Lock()
	mutate(&s.state)
	cur := s.state
	watchers := make([]func(State), len(s.watchers))
	copy(watchers, s.watchers)
	s.mu.Unlock()
	for _, fn := range watchers {
		fn(cur)
	}
}

// Connect establishes the link. State updates arrive through the
// mirrored events, not the return value.
func (s *Session) Connect(ctx context.Context) (*ble.Device, error) {
	return s.link.Connect(ctx)
}

// Disconnect tears the link down.
func (s *Session) Disconnect() error { return s.link.Disconnect() }

// Reconnect re-establishes the link with the last chosen device.
func (s *Session) Reconnect(ctx context.Context) (*ble.Device, error) {
	return s.link.Reconnect(ctx)
}

// Send writes text to the connected device.
func (s *Session) Send(text string) error { return s.link.Send(text) }

// Device returns the connected device, or nil.
func (s *Session) Device() *ble.Device { return s.link.CurrentDevice() }
