package onboarding

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ItsSilva/lumilink/internal/ble"
	"github.com/ItsSilva/lumilink/internal/session"
)

// Flow is the slice of the session the screen drives.
type Flow interface {
	Connect(ctx context.Context) (*ble.Device, error)
	Disconnect() error
	Watch(fn func(session.State))
}

// Compile-time check that the session satisfies Flow.
var _ Flow = (*session.Session)(nil)

// View is what the screen shows at one instant.
type View struct {
	State   State
	Message string      // operator guidance or error detail
	Device  *ble.Device // set while in StateConnected
}

// Renderer receives the view after every change.
type Renderer interface {
	Render(View)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(View)

func (f RendererFunc) Render(v View) { f(v) }

// DefaultAdvanceDelay keeps the success state on screen long enough
// to read before the flow moves on.
const DefaultAdvanceDelay = 1500 * time.Millisecond

// Options tunes screen behavior.
type Options struct {
	AdvanceDelay time.Duration // pause on StateConnected before next fires
}

// Screen drives the onboarding flow against a Flow and reports every
// change to a Renderer. Methods are safe for concurrent use; renders
// and the next callback run outside the lock.
type Screen struct {
	flow     Flow
	renderer Renderer
	next     func()
	opts     Options

	mu       sync.Mutex
	machine  *Machine
	gen      int // connect attempt generation; results from older attempts are stale
	message  string
	device   *ble.Device
	advanced bool
	timer    *time.Timer
}

// NewScreen wires a screen to flow. next fires at most once, after
// the advance delay on success or immediately on Skip.
func NewScreen(flow Flow, renderer Renderer, next func(), opts Options) *Screen {
	if opts.AdvanceDelay <= 0 {
		opts.AdvanceDelay = DefaultAdvanceDelay
	}
	s := &Screen{
		flow:     flow,
		renderer: renderer,
		next:     next,
		opts:     opts,
		machine:  NewMachine(),
	}
	flow.Watch(s.observe)
	s.renderer.Render(s.View())
	return s
}

// Connect starts the search and connect sequence. The call returns
// once the attempt is running; the outcome lands through the renderer
// and, on success, the scheduled next callback.
func (s *Screen) Connect(ctx context.Context) {
	s.mu.Lock()
	if _, ok := s.machine.Fire(EventConnectRequested); !ok {
		s.mu.Unlock()
		return
	}
	s.gen++
	gen := s.gen
	s.message = "Searching for Lumi..."
	s.device = nil
	view := s.viewLocked()
	s.mu.Unlock()
	s.renderer.Render(view)

	go func() {
		dev, err := s.flow.Connect(ctx)
		s.finish(gen, dev, err)
	}()
}

// DeviceChosen moves the screen to connecting once the chooser has
// settled on adv. The connect flow's chooser reports through here.
func (s *Screen) DeviceChosen(adv ble.Advertisement) {
	s.mu.Lock()
	if _, ok := s.machine.Fire(EventDeviceChosen); !ok {
		s.mu.Unlock()
		return
	}
	s.message = fmt.Sprintf("Connecting to %s...", adv.Name)
	view := s.viewLocked()
	s.mu.Unlock()
	s.renderer.Render(view)
}

// Cancel abandons the attempt in flight or tears down a fresh link,
// returning the screen to idle.
func (s *Screen) Cancel() {
	s.mu.Lock()
	switch s.machine.State() {
	case StateSearching, StateConnecting:
		s.machine.Fire(EventCancelled)
		s.gen++ // the in-flight result is now stale
		s.stopAdvanceLocked()
		s.message = "Cancelled"
		s.device = nil
		view := s.viewLocked()
		s.mu.Unlock()
		s.renderer.Render(view)
	case StateConnected:
		s.mu.Unlock()
		// The disconnect comes back through observe and lands the
		// screen in idle.
		s.flow.Disconnect()
	default:
		s.mu.Unlock()
	}
}

// Retry acknowledges a failure and returns the screen to idle. The
// caller decides when to connect again.
func (s *Screen) Retry() {
	s.mu.Lock()
	if _, ok := s.machine.Fire(EventRetry); !ok {
		s.mu.Unlock()
		return
	}
	s.message = ""
	s.device = nil
	view := s.viewLocked()
	s.mu.Unlock()
	s.renderer.Render(view)
}

// Skip leaves onboarding immediately without touching the link.
func (s *Screen) Skip() {
	s.mu.Lock()
	if s.advanced {
		s.mu.Unlock()
		return
	}
	s.advanced = true
	s.stopAdvanceLocked()
	s.mu.Unlock()
	if s.next != nil {
		s.next()
	}
}

// State returns the current machine state.
func (s *Screen) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.State()
}

// View returns the current render snapshot.
func (s *Screen) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// finish lands the result of one connect attempt. A result from an
// attempt the user already cancelled or retried is stale; a stale
// success also tears its link down so no orphan connection survives.
func (s *Screen) finish(gen int, dev *ble.Device, err error) {
	s.mu.Lock()
	if gen != s.gen {
		stale := err == nil
		s.mu.Unlock()
		if stale {
			s.flow.Disconnect()
		}
		return
	}
	if err != nil {
		s.machine.Fire(EventFailed)
		s.message = err.Error()
		s.device = nil
		view := s.viewLocked()
		s.mu.Unlock()
		s.renderer.Render(view)
		return
	}

	// A chooser that never reported its pick leaves the machine in
	// searching; account for the pick before landing the success.
	if s.machine.State() == StateSearching {
		s.machine.Fire(EventDeviceChosen)
	}
	s.machine.Fire(EventLinkEstablished)
	s.device = dev
	s.message = fmt.Sprintf("Connected to %s", dev.Name)
	s.scheduleAdvanceLocked()
	view := s.viewLocked()
	s.mu.Unlock()
	s.renderer.Render(view)
}

// observe mirrors session changes into the machine. Only a lost link
// while connected moves the screen; every other change is already
// reflected through the connect flow itself.
func (s *Screen) observe(st session.State) {
	s.mu.Lock()
	if st.Connected || s.machine.State() != StateConnected {
		s.mu.Unlock()
		return
	}
	s.machine.Fire(EventPeerDropped)
	s.device = nil
	s.message = "Connection lost"
	s.stopAdvanceLocked()
	view := s.viewLocked()
	s.mu.Unlock()
	s.renderer.Render(view)
}

// advance fires next after the delay, unless the screen already moved
// on or the link dropped while the timer ran.
func (s *Screen) advance() {
	s.mu.Lock()
	if s.advanced || s.machine.State() != StateConnected {
		s.mu.Unlock()
		return
	}
	s.advanced = true
	s.mu.Unlock()
	if s.next != nil {
		s.next()
	}
}

func (s *Screen) scheduleAdvanceLocked() {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.opts.AdvanceDelay, s.advance)
}

func (s *Screen) stopAdvanceLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Screen) viewLocked() View {
	return View{State: s.machine.State(), Message: s.message, Device: s.device}
}
