package session

import (
	"context"
	"errors"
	"testing"

	"github.com/ItsSilva/lumilink/internal/ble"
)

// fakeLink simulates the BLE client for session tests.
type fakeLink struct {
	handlers    []ble.Handlers
	device      *ble.Device
	connects    int
	disconnects int
	reconnects  int
	sent        []string
	connectErr  error
}

func (f *fakeLink) Connect(context.Context) (*ble.Device, error) {
	f.connects++
	if f.connectErr != nil {
		return nil, f.connectErr
	}
	dev := ble.Device{ID: "AA:BB", Name: "Lumi-01", Connected: true}
	f.device = &dev
	f.emitConnected(dev)
	return &dev, nil
}

func (f *fakeLink) Disconnect() error {
	f.disconnects++
	f.device = nil
	f.emitDisconnected()
	return nil
}

func (f *fakeLink) Reconnect(ctx context.Context) (*ble.Device, error) {
	f.reconnects++
	return f.Connect(ctx)
}

func (f *fakeLink) Send(text string) error {
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeLink) CurrentDevice() *ble.Device { return f.device }

func (f *fakeLink) Notify(h ble.Handlers) { f.handlers = append(f.handlers, h) }

func (f *fakeLink) emitConnected(dev ble.Device) {
	for _, h := range f.handlers {
		if h.OnConnected != nil {
			h.OnConnected(dev)
		}
	}
}

func (f *fakeLink) emitDisconnected() {
	for _, h := range f.handlers {
		if h.OnDisconnected != nil {
			h.OnDisconnected()
		}
	}
}

func (f *fakeLink) emitData(text string) {
	for _, h := range f.handlers {
		if h.OnDataReceived != nil {
			h.OnDataReceived(text)
		}
	}
}

func TestInitialStateEmpty(t *testing.T) {
	s := New(&fakeLink{})
	st := s.State()
	if st.Device != nil || st.Connected || st.LastReceived != "" {
		t.Errorf("initial state = %+v, want empty", st)
	}
}

func TestSeedsFromExistingLink(t *testing.T) {
	link := &fakeLink{device: &ble.Device{ID: "AA:BB", Name: "Lumi-01", Connected: true}}
	s := New(link)

	st := s.State()
	if !st.Connected || st.Device == nil || st.Device.ID != "AA:BB" {
		t.Errorf("state = %+v, want seeded from live link", st)
	}
}

func TestStateTracksEvents(t *testing.T) {
	link := &fakeLink{}
	s := New(link)

	if _, err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	st := s.State()
	if !st.Connected || st.Device == nil || st.Device.Name != "Lumi-01" {
		t.Errorf("state after connect = %+v", st)
	}

	link.emitData("BAT:90")
	if got := s.State().LastReceived; got != "BAT:90" {
		t.Errorf("LastReceived = %q, want BAT:90", got)
	}

	if err := s.Disconnect(); err != nil {
		t.Fatalf("Disconnect failed: %v", err)
	}
	st = s.State()
	if st.Connected || st.Device != nil {
		t.Errorf("state after disconnect = %+v, want no device", st)
	}
	if st.LastReceived != "BAT:90" {
		t.Errorf("LastReceived = %q, want sticky BAT:90", st.LastReceived)
	}
}

func TestWatchDeliversCurrentStateFirst(t *testing.T) {
	link := &fakeLink{}
	s := New(link)
	if _, err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	var got []State
	s.Watch(func(st State) { got = append(got, st) })

	if len(got) != 1 || !got[0].Connected {
		t.Errorf("immediate delivery = %+v, want current connected state", got)
	}
}

func TestWatchersSeeEveryChange(t *testing.T) {
	link := &fakeLink{}
	s := New(link)

	var got []State
	s.Watch(func(st State) { got = append(got, st) })

	if _, err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	link.emitData("OK")
	if err := s.Disconnect(); err != nil {
		t.Fatalf("Disconnect failed: %v", err)
	}

	// Initial snapshot plus three changes.
	if len(got) != 4 {
		t.Fatalf("watcher fired %d times, want 4", len(got))
	}
	if got[1].Device == nil || got[2].LastReceived != "OK" || got[3].Connected {
		t.Errorf("sequence = %+v", got)
	}
}

func TestMultipleWatchers(t *testing.T) {
	link := &fakeLink{}
	s := New(link)

	first, second := 0, 0
	s.Watch(func(State) { first++ })
	s.Watch(func(State) { second++ })

	link.emitData("x")

	// One immediate call each plus the change.
	if first != 2 || second != 2 {
		t.Errorf("watchers fired %d/%d times, want 2/2", first, second)
	}
}

func TestPassThrough(t *testing.T) {
	link := &fakeLink{}
	s := New(link)

	if _, err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if err := s.Send("hello"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if err := s.Disconnect(); err != nil {
		t.Fatalf("Disconnect failed: %v", err)
	}
	if _, err := s.Reconnect(context.Background()); err != nil {
		t.Fatalf("Reconnect failed: %v", err)
	}

	if link.connects != 2 || link.disconnects != 1 || link.reconnects != 1 {
		t.Errorf("calls = %d/%d/%d, want 2 connects, 1 disconnect, 1 reconnect",
			link.connects, link.disconnects, link.reconnects)
	}
	if len(link.sent) != 1 || link.sent[0] != "hello" {
		t.Errorf("sent = %q, want [hello]", link.sent)
	}
	if dev := s.Device(); dev == nil || dev.ID != "AA:BB" {
		t.Errorf("Device = %+v, want the reconnected device", dev)
	}
}

func TestContextRoundTrip(t *testing.T) {
	s := New(&fakeLink{})
	ctx := NewContext(context.Background(), s)

	got, err := FromContext(ctx)
	if err != nil {
		t.Fatalf("FromContext failed: %v", err)
	}
	if got != s {
		t.Error("FromContext returned a different session")
	}
}

func TestFromContextMissing(t *testing.T) {
	if _, err := FromContext(context.Background()); !errors.Is(err, ErrNoSession) {
		t.Errorf("error = %v, want ErrNoSession", err)
	}
}
