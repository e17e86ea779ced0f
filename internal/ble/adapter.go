// Package ble pairs the host with a Lumi peripheral over Bluetooth Low
// Energy. It wraps the platform BLE stack behind a small adapter
// abstraction and owns the link lifecycle through a single Client:
// discovery, GATT connect, characteristic lookup, notification
// subscription, and UTF-8 text transfer in both directions.
package ble

import (
	"context"
	"strings"
)

// Lumi BLE UUIDs (HM-10 style UART service).
const (
	ServiceUUID = "0000ffe0-0000-1000-8000-00805f9b34fb"
	CharUUID    = "0000ffe1-0000-1000-8000-00805f9b34fb"
)

// DefaultNamePrefixes match the advertised names of Lumi hardware,
// including boards still carrying the HM-10 factory name.
var DefaultNamePrefixes = []string{"Lumi", "HMSoft"}

// Advertisement is a peripheral as seen during a scan.
type Advertisement struct {
	ID   string // platform device identifier (MAC, or a UUID on Darwin)
	Name string
	RSSI int
}

// Filter selects which advertisements a scan reports. A peripheral
// matches when its name carries any of the prefixes or it advertises
// the service UUID. An empty filter matches everything.
type Filter struct {
	NamePrefixes []string
	ServiceUUID  string
}

// DefaultFilter matches Lumi hardware by name prefix or service UUID.
func DefaultFilter() Filter {
	return Filter{NamePrefixes: DefaultNamePrefixes, ServiceUUID: ServiceUUID}
}

// Match reports whether a scan result passes the filter. hasService
// tells whether the advertisement carries f.ServiceUUID; the adapter
// implementation computes it because payload parsing is platform
// specific.
func (f Filter) Match(name string, hasService bool) bool {
	if len(f.NamePrefixes) == 0 && f.ServiceUUID == "" {
		return true
	}
	for _, p := range f.NamePrefixes {
		if p != "" && strings.HasPrefix(name, p) {
			return true
		}
	}
	return f.ServiceUUID != "" && hasService
}

// Characteristic represents a BLE GATT characteristic.
type Characteristic interface {
	// Write sends data to the characteristic.
	Write(data []byte) error
	// Subscribe registers a callback for notifications on this characteristic.
	Subscribe(callback func(data []byte)) error
}

// Connection represents an active BLE connection to a peripheral.
type Connection interface {
	// DiscoverCharacteristic finds a characteristic by UUID within a service.
	DiscoverCharacteristic(serviceUUID, charUUID string) (Characteristic, error)
	// Disconnect terminates the connection.
	Disconnect() error
	// OnDisconnect registers a callback invoked when the connection drops.
	OnDisconnect(callback func())
}

// Adapter abstracts the platform BLE stack for testing and simulation.
type Adapter interface {
	// Supported reports whether a usable BLE adapter is present.
	// Pure capability check, no side effects.
	Supported() bool
	// Enable powers on the BLE adapter.
	Enable() error
	// Scan streams advertisements matching the filter until ctx is
	// cancelled. The returned channel is closed when the scan ends.
	Scan(ctx context.Context, filter Filter) (<-chan Advertisement, error)
	// Connect establishes a connection to the device with the given ID.
	Connect(ctx context.Context, id string) (Connection, error)
}

// Chooser picks one advertisement from a scan stream. It is the
// programmatic stand-in for a platform device chooser: it consumes
// discoveries until it settles on one, and returns ErrNoDeviceSelected
// when dismissed without a pick.
type Chooser func(ctx context.Context, found <-chan Advertisement) (Advertisement, error)

// FirstMatch returns a Chooser that takes the first device found.
func FirstMatch() Chooser {
	return func(ctx context.Context, found <-chan Advertisement) (Advertisement, error) {
		select {
		case adv, ok := <-found:
			if !ok {
				return Advertisement{}, ErrNoDeviceSelected
			}
			return adv, nil
		case <-ctx.Done():
			return Advertisement{}, ctx.Err()
		}
	}
}
