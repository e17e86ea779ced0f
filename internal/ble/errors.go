package ble

import (
	"errors"
	"fmt"
)

// Errors reported by the Client. All are matchable with errors.Is.
var (
	// ErrNotSupported indicates no usable BLE adapter is present on
	// this platform.
	ErrNotSupported = errors.New("bluetooth not supported")
	// ErrNoDeviceSelected indicates the device chooser was dismissed
	// without picking a device.
	ErrNoDeviceSelected = errors.New("no device selected")
	// ErrNotConnected indicates an operation that needs a live link
	// was called without one.
	ErrNotConnected = errors.New("not connected")
	// ErrNoPriorDevice indicates Reconnect was called before any
	// device was ever chosen in this process.
	ErrNoPriorDevice = errors.New("no previously connected device")
	// ErrBusy indicates a connect, reconnect, or disconnect is already
	// in flight.
	ErrBusy = errors.New("operation already in progress")
)

// GattError wraps a failure from one step of the GATT sequence.
type GattError struct {
	Op  string // "connect", "discover", "subscribe", "write"
	Err error
}

func (e *GattError) Error() string {
	return fmt.Sprintf("ble: %s: %v", e.Op, e.Err)
}

func (e *GattError) Unwrap() error { return e.Err }
