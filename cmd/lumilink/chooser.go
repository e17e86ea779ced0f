package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/ItsSilva/lumilink/internal/ble"
)

// interactiveChooser lists devices as the scan finds them and lets
// the operator pick one by number. On a non-terminal stdin it falls
// back to taking the first match.
func interactiveChooser() ble.Chooser {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return ble.FirstMatch()
	}

	return func(ctx context.Context, found <-chan ble.Advertisement) (ble.Advertisement, error) {
		fmt.Println("Scanning. Pick a device by number, Enter for the first one, q to give up:")

		lines := make(chan string)
		go func() {
			defer close(lines)
			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				select {
				case lines <- strings.TrimSpace(scanner.Text()):
				case <-ctx.Done():
					return
				}
			}
		}()

		var devices []ble.Advertisement
		for {
			select {
			case adv, ok := <-found:
				if !ok {
					// Scan ended. A nil channel blocks, so the list
					// collected so far keeps being served below.
					found = nil
					if len(devices) == 0 {
						return ble.Advertisement{}, ble.ErrNoDeviceSelected
					}
					if len(devices) == 1 {
						fmt.Printf("Scan finished, taking %s.\n", devices[0].Name)
						return devices[0], nil
					}
					fmt.Println("Scan finished, pick from the list above.")
					continue
				}
				devices = append(devices, adv)
				fmt.Printf("  [%d] %s  %s  %d dBm\n", len(devices), adv.Name, adv.ID, adv.RSSI)

			case line, ok := <-lines:
				if !ok {
					return ble.Advertisement{}, ble.ErrNoDeviceSelected
				}
				if line == "q" {
					return ble.Advertisement{}, ble.ErrNoDeviceSelected
				}
				if line == "" {
					if len(devices) > 0 {
						return devices[0], nil
					}
					continue
				}
				n, err := strconv.Atoi(line)
				if err != nil || n < 1 || n > len(devices) {
					fmt.Printf("Pick a number between 1 and %d, or q.\n", len(devices))
					continue
				}
				return devices[n-1], nil

			case <-ctx.Done():
				return ble.Advertisement{}, ctx.Err()
			}
		}
	}
}

// pickByID returns a chooser that waits for one specific device to
// show up in the scan.
func pickByID(id string) ble.Chooser {
	return func(ctx context.Context, found <-chan ble.Advertisement) (ble.Advertisement, error) {
		for {
			select {
			case adv, ok := <-found:
				if !ok {
					return ble.Advertisement{}, fmt.Errorf("device %s not seen: %w", id, ble.ErrNoDeviceSelected)
				}
				if adv.ID == id {
					return adv, nil
				}
			case <-ctx.Done():
				return ble.Advertisement{}, ctx.Err()
			}
		}
	}
}
