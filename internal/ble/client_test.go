package ble

import (
	"context"
	"errors"
	"testing"
)

func TestConnectHappyPath(t *testing.T) {
	adapter := newMockAdapter(
		Advertisement{ID: "AA:BB:CC:DD:EE:01", Name: "Lumi-01", RSSI: -40},
		Advertisement{ID: "AA:BB:CC:DD:EE:02", Name: "HMSoft-7", RSSI: -60},
	)
	c := NewClient(adapter, nil, DefaultClientOptions())

	var connected []Device
	c.Notify(Handlers{OnConnected: func(d Device) { connected = append(connected, d) }})

	dev, err := c.Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if dev.ID != "AA:BB:CC:DD:EE:01" || dev.Name != "Lumi-01" || !dev.Connected {
		t.Errorf("got device %+v, want first advertised Lumi connected", dev)
	}

	cur := c.CurrentDevice()
	if cur == nil || *cur != *dev {
		t.Errorf("CurrentDevice = %+v, want %+v", cur, dev)
	}

	if len(connected) != 1 || connected[0].ID != dev.ID {
		t.Errorf("connected events = %+v, want one event for %s", connected, dev.ID)
	}

	conn := adapter.latestConnection()
	if conn.gotService != ServiceUUID || conn.gotChar != CharUUID {
		t.Errorf("discovered %s/%s, want %s/%s", conn.gotService, conn.gotChar, ServiceUUID, CharUUID)
	}
}

func TestConnectNotSupported(t *testing.T) {
	adapter := newMockAdapter()
	adapter.supported = false
	c := NewClient(adapter, nil, DefaultClientOptions())

	var got []error
	c.Notify(Handlers{OnError: func(err error) { got = append(got, err) }})

	if _, err := c.Connect(context.Background()); !errors.Is(err, ErrNotSupported) {
		t.Errorf("Connect error = %v, want ErrNotSupported", err)
	}
	if _, err := c.Reconnect(context.Background()); !errors.Is(err, ErrNotSupported) {
		t.Errorf("Reconnect error = %v, want ErrNotSupported", err)
	}
	if len(got) != 2 {
		t.Errorf("error observer saw %d events, want 2", len(got))
	}
}

func TestConnectNoDeviceFound(t *testing.T) {
	c := NewClient(newMockAdapter(), nil, DefaultClientOptions())
	if _, err := c.Connect(context.Background()); !errors.Is(err, ErrNoDeviceSelected) {
		t.Errorf("Connect error = %v, want ErrNoDeviceSelected", err)
	}
	if c.CurrentDevice() != nil {
		t.Error("CurrentDevice should be nil after failed connect")
	}
}

func TestConnectWhileBusy(t *testing.T) {
	adapter := newMockAdapter(Advertisement{ID: "AA:BB", Name: "Lumi-01"})
	entered := make(chan struct{})
	release := make(chan struct{})
	chooser := func(ctx context.Context, found <-chan Advertisement) (Advertisement, error) {
		close(entered)
		<-release
		return <-found, nil
	}
	c := NewClient(adapter, chooser, DefaultClientOptions())

	errCh := make(chan error, 1)
	go func() {
		_, err := c.Connect(context.Background())
		errCh <- err
	}()
	<-entered

	if _, err := c.Connect(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("overlapping Connect error = %v, want ErrBusy", err)
	}
	if err := c.Disconnect(); !errors.Is(err, ErrBusy) {
		t.Errorf("Disconnect during connect error = %v, want ErrBusy", err)
	}

	close(release)
	if err := <-errCh; err != nil {
		t.Fatalf("first Connect failed: %v", err)
	}
}

func TestConnectDiscoverFailure(t *testing.T) {
	adapter := newMockAdapter(Advertisement{ID: "AA:BB", Name: "Lumi-01"})
	adapter.discoverErr = errors.New("gatt refused")
	c := NewClient(adapter, nil, DefaultClientOptions())

	_, err := c.Connect(context.Background())
	var gattErr *GattError
	if !errors.As(err, &gattErr) || gattErr.Op != "discover" {
		t.Fatalf("Connect error = %v, want GattError for discover", err)
	}
	if !adapter.latestConnection().isDisconnected() {
		t.Error("connection left open after discovery failure")
	}
	if c.CurrentDevice() != nil {
		t.Error("CurrentDevice should be nil after failed connect")
	}
}

func TestSendWithoutConnection(t *testing.T) {
	c := NewClient(newMockAdapter(), nil, DefaultClientOptions())
	if err := c.Send("hello"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Send error = %v, want ErrNotConnected", err)
	}
}

func TestSendWritesPayload(t *testing.T) {
	adapter := newMockAdapter(Advertisement{ID: "AA:BB", Name: "Lumi-01"})
	c := NewClient(adapter, nil, DefaultClientOptions())
	if _, err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	if err := c.Send("héllo"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	char := adapter.latestConnection().char
	if len(char.writes) != 1 || string(char.writes[0]) != "héllo" {
		t.Errorf("writes = %q, want single UTF-8 payload", char.writes)
	}
}

func TestNotificationDelivery(t *testing.T) {
	adapter := newMockAdapter(Advertisement{ID: "AA:BB", Name: "Lumi-01"})
	c := NewClient(adapter, nil, DefaultClientOptions())

	var got []string
	c.Notify(Handlers{OnDataReceived: func(text string) { got = append(got, text) }})

	if _, err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	char := adapter.latestConnection().char
	char.SimulateNotification([]byte("BAT:87"))
	char.SimulateNotification([]byte("OK"))

	if len(got) != 2 || got[0] != "BAT:87" || got[1] != "OK" {
		t.Errorf("received = %q, want [BAT:87 OK]", got)
	}
}

func TestStaleNotificationDropped(t *testing.T) {
	adapter := newMockAdapter(Advertisement{ID: "AA:BB", Name: "Lumi-01"})
	c := NewClient(adapter, nil, DefaultClientOptions())

	var got []string
	c.Notify(Handlers{OnDataReceived: func(text string) { got = append(got, text) }})

	if _, err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	char := adapter.latestConnection().char

	if err := c.Disconnect(); err != nil {
		t.Fatalf("Disconnect failed: %v", err)
	}
	char.SimulateNotification([]byte("late"))

	if len(got) != 0 {
		t.Errorf("received %q after disconnect, want none", got)
	}
}

func TestDisconnectClearsState(t *testing.T) {
	adapter := newMockAdapter(Advertisement{ID: "AA:BB", Name: "Lumi-01"})
	c := NewClient(adapter, nil, DefaultClientOptions())

	drops := 0
	c.Notify(Handlers{OnDisconnected: func() { drops++ }})

	if _, err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if err := c.Disconnect(); err != nil {
		t.Fatalf("Disconnect failed: %v", err)
	}

	if c.CurrentDevice() != nil {
		t.Error("CurrentDevice should be nil after disconnect")
	}
	if !adapter.latestConnection().isDisconnected() {
		t.Error("platform connection not released")
	}
	if drops != 1 {
		t.Errorf("disconnected events = %d, want 1", drops)
	}
	if err := c.Send("x"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Send after disconnect = %v, want ErrNotConnected", err)
	}
}

func TestDisconnectWithoutConnection(t *testing.T) {
	c := NewClient(newMockAdapter(), nil, DefaultClientOptions())

	drops := 0
	c.Notify(Handlers{OnDisconnected: func() { drops++ }})

	if err := c.Disconnect(); err != nil {
		t.Errorf("Disconnect with no link = %v, want nil", err)
	}
	if drops != 0 {
		t.Errorf("disconnected events = %d, want 0", drops)
	}
}

func TestPlatformDropEmitsDisconnected(t *testing.T) {
	adapter := newMockAdapter(Advertisement{ID: "AA:BB", Name: "Lumi-01"})
	c := NewClient(adapter, nil, DefaultClientOptions())

	drops := 0
	c.Notify(Handlers{OnDisconnected: func() { drops++ }})

	if _, err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	conn := adapter.latestConnection()

	conn.SimulateDisconnect()
	if c.CurrentDevice() != nil {
		t.Error("CurrentDevice should be nil after link drop")
	}
	if drops != 1 {
		t.Errorf("disconnected events = %d, want 1", drops)
	}

	// A second report for the same dead link must be ignored.
	conn.SimulateDisconnect()
	if drops != 1 {
		t.Errorf("disconnected events after repeat = %d, want 1", drops)
	}
}

func TestReconnectWithoutPrior(t *testing.T) {
	c := NewClient(newMockAdapter(), nil, DefaultClientOptions())
	if _, err := c.Reconnect(context.Background()); !errors.Is(err, ErrNoPriorDevice) {
		t.Errorf("Reconnect error = %v, want ErrNoPriorDevice", err)
	}
}

func TestReconnectAfterDisconnect(t *testing.T) {
	adapter := newMockAdapter(Advertisement{ID: "AA:BB", Name: "Lumi-01"})
	c := NewClient(adapter, nil, DefaultClientOptions())

	if _, err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if err := c.Disconnect(); err != nil {
		t.Fatalf("Disconnect failed: %v", err)
	}

	dev, err := c.Reconnect(context.Background())
	if err != nil {
		t.Fatalf("Reconnect failed: %v", err)
	}
	if dev.ID != "AA:BB" || !dev.Connected {
		t.Errorf("got device %+v, want prior device connected", dev)
	}
	if got := adapter.connectCount(); got != 2 {
		t.Errorf("platform connects = %d, want 2", got)
	}
}

func TestReconnectWhileConnected(t *testing.T) {
	adapter := newMockAdapter(Advertisement{ID: "AA:BB", Name: "Lumi-01"})
	c := NewClient(adapter, nil, DefaultClientOptions())

	if _, err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	dev, err := c.Reconnect(context.Background())
	if err != nil {
		t.Fatalf("Reconnect failed: %v", err)
	}
	if dev.ID != "AA:BB" {
		t.Errorf("got device %+v, want existing link", dev)
	}
	if got := adapter.connectCount(); got != 1 {
		t.Errorf("platform connects = %d, want 1 (no re-dial)", got)
	}
}

func TestConnectWhileConnected(t *testing.T) {
	adapter := newMockAdapter(Advertisement{ID: "AA:BB", Name: "Lumi-01"})
	c := NewClient(adapter, nil, DefaultClientOptions())

	var connected int
	c.Notify(Handlers{OnConnected: func(Device) { connected++ }})

	if _, err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	dev, err := c.Connect(context.Background())
	if err != nil {
		t.Fatalf("second Connect failed: %v", err)
	}
	if dev.ID != "AA:BB" {
		t.Errorf("got device %+v, want existing link", dev)
	}
	if got := adapter.connectCount(); got != 1 {
		t.Errorf("platform connects = %d, want 1 (no re-dial)", got)
	}
	if connected != 1 {
		t.Errorf("OnConnected fired %d times, want 1", connected)
	}
}

func TestReconnectAfterDrop(t *testing.T) {
	adapter := newMockAdapter(Advertisement{ID: "AA:BB", Name: "Lumi-01"})
	c := NewClient(adapter, nil, DefaultClientOptions())

	if _, err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	adapter.latestConnection().SimulateDisconnect()

	dev, err := c.Reconnect(context.Background())
	if err != nil {
		t.Fatalf("Reconnect failed: %v", err)
	}
	if cur := c.CurrentDevice(); cur == nil || cur.ID != dev.ID {
		t.Errorf("CurrentDevice = %+v, want %+v", cur, dev)
	}
}
