package ble

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Device is the published record of the peripheral the client is
// linked to. CurrentDevice returns nil once the link ends.
type Device struct {
	ID        string
	Name      string
	Connected bool
}

// ClientOptions configures device matching and operation deadlines.
type ClientOptions struct {
	NamePrefixes       []string      // advertised name prefixes to match
	ServiceUUID        string        // UART service UUID
	CharacteristicUUID string        // notify/write characteristic UUID
	ScanTimeout        time.Duration // chooser window (0 = until the chooser decides)
	ConnectTimeout     time.Duration // GATT handshake deadline (0 = none)
}

// DefaultClientOptions returns the stock Lumi matching rules with no
// operation deadlines.
func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		NamePrefixes:       DefaultNamePrefixes,
		ServiceUUID:        ServiceUUID,
		CharacteristicUUID: CharUUID,
	}
}

// Client owns the link to a single Lumi peripheral. All connection
// state lives here; operations are safe for concurrent use, and at
// most one connect, reconnect, or disconnect runs at a time. A second
// lifecycle call while one is in flight fails with ErrBusy.
type Client struct {
	adapter Adapter
	chooser Chooser
	opts    ClientOptions

	observers observerList

	mu     sync.Mutex
	busy   bool
	gen    int // link generation; callbacks from older links are stale
	device *Device
	conn   Connection
	char   Characteristic
	prior  *Advertisement // last chosen identity; survives a graceful disconnect
}

// NewClient creates a client that discovers peripherals through
// adapter and resolves device selection through chooser. A nil
// chooser takes the first match.
func NewClient(adapter Adapter, chooser Chooser, opts ClientOptions) *Client {
	if chooser == nil {
		chooser = FirstMatch()
	}
	if len(opts.NamePrefixes) == 0 {
		opts.NamePrefixes = DefaultNamePrefixes
	}
	if opts.ServiceUUID == "" {
		opts.ServiceUUID = ServiceUUID
	}
	if opts.CharacteristicUUID == "" {
		opts.CharacteristicUUID = CharUUID
	}
	return &Client{
		adapter: adapter,
		chooser: chooser,
		opts:    opts,
	}
}

// Supported reports whether the platform has a usable BLE adapter.
// It never powers anything on.
func (c *Client) Supported() bool {
	return c.adapter.Supported()
}

// Notify registers handlers for link events. Registration is append
// only: handlers from earlier calls keep firing alongside later ones.
func (c *Client) Notify(h Handlers) {
	c.observers.add(h)
}

// CurrentDevice returns a snapshot of the connected device, or nil
// when no link is up. It never queries the platform.
func (c *Client) CurrentDevice() *Device {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return nil
	}
	dev := *c.device
	return &dev
}

// Connect scans for Lumi hardware, lets the chooser pick a device,
// and brings up the full link: GATT connection, characteristic
// discovery, notification subscription, and disconnect routing. On
// success observers receive exactly one OnConnected and the returned
// record is also available from CurrentDevice. With a link already up
// it returns the current device; switching devices starts with
// Disconnect.
func (c *Client) Connect(ctx context.Context) (*Device, error) {
	if !c.adapter.Supported() {
		return nil, c.fail(ErrNotSupported)
	}
	if err := c.acquire(); err != nil {
		return nil, c.fail(err)
	}
	defer c.release()

	c.mu.Lock()
	if c.device != nil {
		dev := *c.device
		c.mu.Unlock()
		return &dev, nil
	}
	c.mu.Unlock()

	adv, err := c.choose(ctx)
	if err != nil {
		return nil, c.fail(err)
	}
	dev, err := c.establish(ctx, adv)
	if err != nil {
		return nil, c.fail(err)
	}
	return dev, nil
}

// Reconnect re-establishes the link with the last chosen device,
// skipping the chooser. The prior identity survives a graceful
// Disconnect but not a process restart.
func (c *Client) Reconnect(ctx context.Context) (*Device, error) {
	if !c.adapter.Supported() {
		return nil, c.fail(ErrNotSupported)
	}
	if err := c.acquire(); err != nil {
		return nil, c.fail(err)
	}
	defer c.release()

	c.mu.Lock()
	prior := c.prior
	// Already linked; nothing to re-establish.
	if c.device != nil {
		dev := *c.device
		c.mu.Unlock()
		return &dev, nil
	}
	c.mu.Unlock()
	if prior == nil {
		return nil, c.fail(ErrNoPriorDevice)
	}

	dev, err := c.establish(ctx, *prior)
	if err != nil {
		return nil, c.fail(err)
	}
	return dev, nil
}

// Disconnect tears down the current link. Calling it with no link is
// a no-op. Local state is cleared even when the platform refuses the
// disconnect request.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return c.fail(ErrBusy)
	}
	conn := c.conn
	dev := c.device
	if conn == nil {
		c.mu.Unlock()
		return nil
	}
	c.gen++
	c.device = nil
	c.conn = nil
	c.char = nil
	c.mu.Unlock()

	err := conn.Disconnect()
	slog.Info("[BLE] disconnected", "device", dev.Name)
	c.observers.emitDisconnected()
	if err != nil {
		return c.fail(fmt.Errorf("ble: disconnect: %w", err))
	}
	return nil
}

// Send writes text to the device as a single unframed UTF-8 payload.
func (c *Client) Send(text string) error {
	c.mu.Lock()
	char := c.char
	c.mu.Unlock()
	if char == nil {
		return c.fail(ErrNotConnected)
	}
	if err := char.Write([]byte(text)); err != nil {
		return c.fail(&GattError{Op: "write", Err: err})
	}
	slog.Debug("[BLE] sent", "bytes", len(text))
	return nil
}

// choose enables the adapter, runs a filtered scan, and hands the
// discovery stream to the chooser.
func (c *Client) choose(ctx context.Context) (Advertisement, error) {
	if err := c.adapter.Enable(); err != nil {
		return Advertisement{}, fmt.Errorf("ble: enable adapter: %w", err)
	}

	if c.opts.ScanTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.ScanTimeout)
		defer cancel()
	}
	scanCtx, stopScan := context.WithCancel(ctx)
	defer stopScan()

	found, err := c.adapter.Scan(scanCtx, c.filter())
	if err != nil {
		return Advertisement{}, fmt.Errorf("ble: scan: %w", err)
	}

	adv, err := c.chooser(ctx, found)

	// End the scan and drain the stream before connecting; some
	// platform stacks refuse to connect while a scan is running.
	stopScan()
	for range found {
	}

	if err != nil {
		return Advertisement{}, err
	}
	slog.Debug("[BLE] device chosen", "device", adv.Name, "id", adv.ID)
	return adv, nil
}

// establish runs the GATT sequence against a chosen advertisement and
// commits the resulting link.
func (c *Client) establish(ctx context.Context, adv Advertisement) (*Device, error) {
	if c.opts.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.ConnectTimeout)
		defer cancel()
	}

	conn, err := c.adapter.Connect(ctx, adv.ID)
	if err != nil {
		return nil, &GattError{Op: "connect", Err: err}
	}

	char, err := conn.DiscoverCharacteristic(c.opts.ServiceUUID, c.opts.CharacteristicUUID)
	if err != nil {
		conn.Disconnect()
		return nil, &GattError{Op: "discover", Err: err}
	}

	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	if err := char.Subscribe(func(data []byte) { c.handleNotification(gen, data) }); err != nil {
		conn.Disconnect()
		return nil, &GattError{Op: "subscribe", Err: err}
	}

	c.mu.Lock()
	chosen := adv
	c.device = &Device{ID: adv.ID, Name: adv.Name, Connected: true}
	c.conn = conn
	c.char = char
	c.prior = &chosen
	dev := *c.device
	c.mu.Unlock()

	conn.OnDisconnect(func() { c.handleDrop(gen) })

	slog.Info("[BLE] connected", "device", dev.Name, "id", dev.ID)
	c.observers.emitConnected(dev)
	return &dev, nil
}

// handleNotification decodes one notification and delivers it as one
// complete string. No buffering or reassembly across notifications.
func (c *Client) handleNotification(gen int, data []byte) {
	c.mu.Lock()
	stale := c.gen != gen
	c.mu.Unlock()
	if stale {
		return
	}
	text := string(data)
	slog.Debug("[BLE] notification", "bytes", len(data))
	c.observers.emitData(text)
}

// handleDrop reacts to the platform reporting a lost link. Events for
// links already torn down locally are ignored.
func (c *Client) handleDrop(gen int) {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	c.gen++
	dev := c.device
	c.device = nil
	c.conn = nil
	c.char = nil
	c.mu.Unlock()

	if dev != nil {
		slog.Warn("[BLE] connection dropped", "device", dev.Name)
	}
	c.observers.emitDisconnected()
}

// acquire claims the single in-flight lifecycle operation slot.
func (c *Client) acquire() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return ErrBusy
	}
	c.busy = true
	return nil
}

func (c *Client) release() {
	c.mu.Lock()
	c.busy = false
	c.mu.Unlock()
}

// fail logs err, reports it to error observers, and returns it
// unchanged. Every client error funnels through here so no failure is
// swallowed.
func (c *Client) fail(err error) error {
	slog.Error("[BLE] operation failed", "error", err)
	c.observers.emitError(err)
	return err
}

func (c *Client) filter() Filter {
	return Filter{
		NamePrefixes: c.opts.NamePrefixes,
		ServiceUUID:  c.opts.ServiceUUID,
	}
}
