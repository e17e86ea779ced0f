// Package sim provides an in-memory Bluetooth adapter backed by a
// scripted Lumi peripheral. It lets the CLI and tests run the full
// onboarding flow on machines without BLE hardware.
package sim

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ItsSilva/lumilink/internal/ble"
)

// Options configures the simulated peripheral.
type Options struct {
	Name string        // advertised name (default "Lumi-SIM")
	Echo bool          // echo written payloads back as notifications
	Tick time.Duration // interval between battery status lines (0 = none)
}

// Adapter is a ble.Adapter with exactly one peripheral on the air.
type Adapter struct {
	opts Options
	id   string

	mu   sync.Mutex
	conn *Connection
}

// New creates a simulated adapter. The peripheral gets a fresh UUID
// as its device ID on every call.
func New(opts Options) *Adapter {
	if opts.Name == "" {
		opts.Name = "Lumi-SIM"
	}
	return &Adapter{opts: opts, id: uuid.NewString()}
}

// DeviceID returns the simulated peripheral's platform identifier.
func (a *Adapter) DeviceID() string { return a.id }

func (a *Adapter) Supported() bool { return true }

func (a *Adapter) Enable() error { return nil }

// Scan reports the peripheral once, then stays open until ctx is
// cancelled, like a real scan would.
func (a *Adapter) Scan(ctx context.Context, filter ble.Filter) (<-chan ble.Advertisement, error) {
	found := make(chan ble.Advertisement, 1)
	go func() {
		defer close(found)
		if filter.Match(a.opts.Name, filter.ServiceUUID == ble.ServiceUUID) {
			adv := ble.Advertisement{ID: a.id, Name: a.opts.Name, RSSI: -40 - rand.IntN(20)}
			select {
			case found <- adv:
			case <-ctx.Done():
				return
			}
		}
		<-ctx.Done()
	}()
	return found, nil
}

func (a *Adapter) Connect(_ context.Context, id string) (ble.Connection, error) {
	if id != a.id {
		return nil, fmt.Errorf("device %s: not in range", id)
	}
	conn := newConnection(a.opts)
	a.mu.Lock()
	a.conn = conn
	a.mu.Unlock()
	return conn, nil
}

// Active returns the most recent simulated connection, or nil before
// any connect. Tests reach Inject and DropLink through it.
func (a *Adapter) Active() *Connection {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.conn
}

// Compile-time check that Adapter implements ble.Adapter.
var _ ble.Adapter = (*Adapter)(nil)

// Connection is the host side of a simulated link. Inject and
// DropLink script peripheral behavior.
type Connection struct {
	opts Options

	mu       sync.Mutex
	notifyCb func([]byte)
	dropCb   func()
	closed   bool
	ticking  bool
	battery  int
	stop     chan struct{}
}

func newConnection(opts Options) *Connection {
	return &Connection{opts: opts, battery: 100, stop: make(chan struct{})}
}

func (c *Connection) DiscoverCharacteristic(serviceUUID, charUUID string) (ble.Characteristic, error) {
	if serviceUUID != ble.ServiceUUID {
		return nil, fmt.Errorf("service %s not found", serviceUUID)
	}
	if charUUID != ble.CharUUID {
		return nil, fmt.Errorf("characteristic %s not found", charUUID)
	}
	return &characteristic{conn: c}, nil
}

func (c *Connection) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.stop)
	return nil
}

func (c *Connection) OnDisconnect(cb func()) {
	c.mu.Lock()
	c.dropCb = cb
	c.mu.Unlock()
}

// Inject delivers text as a notification from the peripheral.
func (c *Connection) Inject(text string) {
	c.mu.Lock()
	cb := c.notifyCb
	closed := c.closed
	c.mu.Unlock()
	if cb != nil && !closed {
		cb([]byte(text))
	}
}

// DropLink closes the link and fires the disconnect callback, as the
// platform would report a peripheral going away.
func (c *Connection) DropLink() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.stop)
	cb := c.dropCb
	c.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// tick drains the battery one percent per interval and reports it.
func (c *Connection) tick() {
	ticker := time.NewTicker(c.opts.Tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			if c.battery > 5 {
				c.battery--
			}
			line := fmt.Sprintf("BAT:%d", c.battery)
			c.mu.Unlock()
			c.Inject(line)
		case <-c.stop:
			return
		}
	}
}

var _ ble.Connection = (*Connection)(nil)

type characteristic struct {
	conn *Connection
}

func (ch *characteristic) Write(data []byte) error {
	c := ch.conn
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return fmt.Errorf("link closed")
	}
	if c.opts.Echo {
		c.Inject(string(data))
	}
	return nil
}

func (ch *characteristic) Subscribe(cb func([]byte)) error {
	c := ch.conn
	c.mu.Lock()
	c.notifyCb = cb
	start := c.opts.Tick > 0 && !c.ticking
	if start {
		c.ticking = true
	}
	c.mu.Unlock()
	if start {
		go c.tick()
	}
	return nil
}
