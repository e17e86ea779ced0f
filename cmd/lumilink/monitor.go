package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ItsSilva/lumilink/internal/ble"
)

// monitorCmd represents the monitor command
var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Stream device notifications",
	Long: `Connect to a Lumi device and print every notification it sends
until interrupted.`,
	RunE: runMonitor,
}

var (
	monitorDevice     string
	monitorHex        bool
	monitorTimestamps bool
	monitorReconnect  bool
)

func init() {
	monitorCmd.Flags().StringVarP(&monitorDevice, "device", "d", "", "Device ID to connect to (skips the chooser)")
	monitorCmd.Flags().BoolVar(&monitorHex, "hex", false, "Print payloads as hex instead of text")
	monitorCmd.Flags().BoolVarP(&monitorTimestamps, "timestamps", "t", false, "Prefix every line with the arrival time")
	monitorCmd.Flags().BoolVarP(&monitorReconnect, "reconnect", "r", false, "Reconnect automatically if the link drops")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := commandSetup()
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	chooser := interactiveChooser()
	if monitorDevice != "" {
		chooser = pickByID(monitorDevice)
	}
	client := ble.NewClient(newAdapter(), chooser, clientOptions(cfg))

	dropped := make(chan struct{}, 1)
	client.Notify(ble.Handlers{
		OnDataReceived: func(text string) {
			line := text
			if monitorHex {
				line = fmt.Sprintf("% x", []byte(text))
			}
			if monitorTimestamps {
				line = time.Now().Format("15:04:05.000") + "  " + line
			}
			fmt.Println(line)
		},
		OnDisconnected: func() {
			select {
			case dropped <- struct{}{}:
			default:
			}
		},
	})

	dev, err := client.Connect(ctx)
	if err != nil {
		return err
	}
	defer client.Disconnect()
	fmt.Fprintf(os.Stderr, "Connected to %s (%s); Ctrl+C to stop.\n", dev.Name, dev.ID)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-dropped:
			if !monitorReconnect {
				return ErrConnectionLost
			}
			fmt.Fprintln(os.Stderr, "Link dropped, reconnecting...")
			if _, err := client.Reconnect(ctx); err != nil {
				return fmt.Errorf("reconnect after drop: %w", err)
			}
			fmt.Fprintln(os.Stderr, "Reconnected.")
		}
	}
}
