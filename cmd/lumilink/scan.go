package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ItsSilva/lumilink/internal/ble"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for Lumi devices",
	Long: `Scan for nearby Lumi hardware and list what was found.

By default only devices matching the configured name prefixes or
advertising the Lumi service show up; --all lists every BLE device in
range.`,
	RunE: runScan,
}

var (
	scanDuration time.Duration
	scanAll      bool
)

func init() {
	scanCmd.Flags().DurationVarP(&scanDuration, "duration", "d", 10*time.Second, "How long to scan")
	scanCmd.Flags().BoolVarP(&scanAll, "all", "a", false, "List every device, not just Lumi hardware")
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := commandSetup()
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, scanDuration)
	defer cancelTimeout()

	adapter := newAdapter()
	if !adapter.Supported() {
		return ble.ErrNotSupported
	}
	if err := adapter.Enable(); err != nil {
		return fmt.Errorf("enable adapter: %w", err)
	}

	filter := ble.Filter{
		NamePrefixes: cfg.Device.NamePrefixes,
		ServiceUUID:  cfg.Device.ServiceUUID,
	}
	if scanAll {
		filter = ble.Filter{}
	}

	found, err := adapter.Scan(ctx, filter)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Scanning for %s (Ctrl+C to stop early)...\n", scanDuration)

	var devices []ble.Advertisement
	for adv := range found {
		devices = append(devices, adv)
	}

	if len(devices) == 0 {
		fmt.Println("No devices discovered")
		return nil
	}

	// Strongest signal first
	sort.Slice(devices, func(i, j int) bool {
		return devices[i].RSSI > devices[j].RSSI
	})

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tID\tRSSI")
	for _, d := range devices {
		name := d.Name
		if name == "" {
			name = "(unknown)"
		}
		fmt.Fprintf(w, "%s\t%s\t%d dBm\n", name, d.ID, d.RSSI)
	}
	return w.Flush()
}
