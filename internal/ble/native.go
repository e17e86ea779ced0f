package ble

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"tinygo.org/x/bluetooth"
)

// NativeAdapter drives the platform Bluetooth stack through
// tinygo-org/bluetooth. Device IDs are whatever the platform uses as
// an address string: MAC addresses on Linux and Windows,
// CoreBluetooth UUIDs on macOS.
type NativeAdapter struct {
	adapter *bluetooth.Adapter

	// mu protects the connections map.
	mu          sync.Mutex
	connections map[string]*nativeConnection // keyed by device ID
}

// NewNativeAdapter wraps the default platform adapter.
func NewNativeAdapter() *NativeAdapter {
	return &NativeAdapter{
		adapter:     bluetooth.DefaultAdapter,
		connections: make(map[string]*nativeConnection),
	}
}

func (a *NativeAdapter) Supported() bool {
	return a.adapter != nil
}

func (a *NativeAdapter) Enable() error {
	if err := a.adapter.Enable(); err != nil {
		return err
	}

	// The platform reports lost links through the adapter-level
	// connect handler with connected=false.
	a.adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		if connected {
			return
		}
		id := device.Address.String()
		a.mu.Lock()
		conn, ok := a.connections[id]
		delete(a.connections, id)
		a.mu.Unlock()
		if ok {
			conn.notifyDisconnect()
		}
	})

	return nil
}

func (a *NativeAdapter) Scan(ctx context.Context, filter Filter) (<-chan Advertisement, error) {
	var svc *bluetooth.UUID
	if filter.ServiceUUID != "" {
		parsed, err := bluetooth.ParseUUID(filter.ServiceUUID)
		if err != nil {
			return nil, fmt.Errorf("parse service UUID: %w", err)
		}
		svc = &parsed
	}

	found := make(chan Advertisement, 8)
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			a.adapter.StopScan()
		case <-done:
		}
	}()

	go func() {
		defer close(found)
		defer close(done)

		// BlueZ replays a device on every property change, so the
		// callback fires repeatedly for hardware already reported.
		var mu sync.Mutex
		seen := make(map[string]bool)

		err := a.adapter.Scan(func(_ *bluetooth.Adapter, result bluetooth.ScanResult) {
			name := result.LocalName()
			if !filter.Match(name, svc != nil && result.HasServiceUUID(*svc)) {
				return
			}
			id := result.Address.String()
			mu.Lock()
			dup := seen[id]
			seen[id] = true
			mu.Unlock()
			if dup {
				return
			}
			select {
			case found <- Advertisement{ID: id, Name: name, RSSI: int(result.RSSI)}:
			case <-ctx.Done():
			}
		})
		if err != nil && ctx.Err() == nil {
			slog.Error("[BLE] scan failed", "error", err)
		}
	}()

	return found, nil
}

func (a *NativeAdapter) Connect(ctx context.Context, id string) (Connection, error) {
	var addr bluetooth.Address
	addr.Set(id)

	type connectResult struct {
		device bluetooth.Device
		err    error
	}
	ch := make(chan connectResult, 1)
	go func() {
		device, err := a.adapter.Connect(addr, bluetooth.ConnectionParams{})
		ch <- connectResult{device, err}
	}()

	select {
	case <-ctx.Done():
		// The platform attempt cannot be aborted from here. If it
		// lands after cancellation, drop the link instead of leaking
		// an untracked connection.
		go func() {
			if result := <-ch; result.err == nil {
				result.device.Disconnect()
			}
		}()
		return nil, fmt.Errorf("device %s: %w", id, ctx.Err())
	case result := <-ch:
		if result.err != nil {
			return nil, fmt.Errorf("device %s: %w", id, result.err)
		}
		conn := &nativeConnection{device: &result.device}

		// Track the connection so the adapter-level handler can route
		// its disconnect event.
		a.mu.Lock()
		a.connections[id] = conn
		a.mu.Unlock()

		return conn, nil
	}
}

// Compile-time check that NativeAdapter implements Adapter.
var _ Adapter = (*NativeAdapter)(nil)

type nativeConnection struct {
	device *bluetooth.Device

	mu           sync.Mutex
	disconnectCb func()
}

func (c *nativeConnection) DiscoverCharacteristic(serviceUUID, charUUID string) (Characteristic, error) {
	svc, err := bluetooth.ParseUUID(serviceUUID)
	if err != nil {
		return nil, fmt.Errorf("parse service UUID: %w", err)
	}
	char, err := bluetooth.ParseUUID(charUUID)
	if err != nil {
		return nil, fmt.Errorf("parse characteristic UUID: %w", err)
	}

	svcs, err := c.device.DiscoverServices([]bluetooth.UUID{svc})
	if err != nil {
		return nil, fmt.Errorf("discover services: %w", err)
	}
	if len(svcs) == 0 {
		return nil, fmt.Errorf("service %s not found", serviceUUID)
	}

	chars, err := svcs[0].DiscoverCharacteristics([]bluetooth.UUID{char})
	if err != nil {
		return nil, fmt.Errorf("discover characteristics: %w", err)
	}
	if len(chars) == 0 {
		return nil, fmt.Errorf("characteristic %s not found", charUUID)
	}

	return &nativeCharacteristic{char: &chars[0]}, nil
}

func (c *nativeConnection) Disconnect() error {
	return c.device.Disconnect()
}

func (c *nativeConnection) OnDisconnect(cb func()) {
	c.mu.Lock()
	c.disconnectCb = cb
	c.mu.Unlock()
}

func (c *nativeConnection) notifyDisconnect() {
	c.mu.Lock()
	cb := c.disconnectCb
	c.mu.Unlock()
	if cb != nil {
		cb()
	}
}

type nativeCharacteristic struct {
	char *bluetooth.DeviceCharacteristic
}

func (c *nativeCharacteristic) Write(data []byte) error {
	_, err := c.char.WriteWithoutResponse(data)
	return err
}

func (c *nativeCharacteristic) Subscribe(cb func([]byte)) error {
	return c.char.EnableNotifications(func(buf []byte) {
		cb(buf)
	})
}
