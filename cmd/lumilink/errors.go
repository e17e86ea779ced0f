package main

import (
	"errors"
	"fmt"

	"github.com/ItsSilva/lumilink/internal/ble"
	"github.com/ItsSilva/lumilink/internal/session"
)

// Command-level errors
var (
	// ErrConnectionLost indicates the link dropped while a command was
	// mid-operation, as opposed to ble.ErrNotConnected which means the
	// command never had a link to begin with.
	ErrConnectionLost = errors.New("connection lost")
)

// formatUserError maps internal errors onto messages an operator can
// act on. Anything unrecognized falls through unchanged.
func formatUserError(err error) string {
	switch {
	case errors.Is(err, ble.ErrNotSupported):
		return "Bluetooth is not available on this machine. Try --simulate to use a simulated device."
	case errors.Is(err, ble.ErrNoDeviceSelected):
		return "No device was selected. Make sure your Lumi is powered on and nearby, then try again."
	case errors.Is(err, ble.ErrNoPriorDevice):
		return "No device has been connected in this session, so there is nothing to reconnect to."
	case errors.Is(err, ble.ErrNotConnected):
		return "Not connected to a device."
	case errors.Is(err, ble.ErrBusy):
		return "Another Bluetooth operation is still in progress. Wait for it to finish and try again."
	case errors.Is(err, ErrConnectionLost):
		return "The connection to the device was lost."
	case errors.Is(err, session.ErrNoSession):
		return "Internal error: no session attached to this command."
	}

	var gattErr *ble.GattError
	if errors.As(err, &gattErr) {
		return fmt.Sprintf("The %s step failed (%v). Move closer to the device and try again.", gattErr.Op, gattErr.Err)
	}

	return err.Error()
}
