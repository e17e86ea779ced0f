package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ItsSilva/lumilink/internal/ble"
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send <text>",
	Short: "Send a text payload to a Lumi device",
	Long: `Connect to a Lumi device, write one UTF-8 text payload to it, and
optionally wait for a reply.`,
	Args: cobra.ExactArgs(1),
	RunE: runSend,
}

var (
	sendDevice string
	sendWait   time.Duration
)

func init() {
	sendCmd.Flags().StringVarP(&sendDevice, "device", "d", "", "Device ID to connect to (skips the chooser)")
	sendCmd.Flags().DurationVarP(&sendWait, "wait", "w", 0, "Wait this long for replies after sending")
}

func runSend(cmd *cobra.Command, args []string) error {
	text := args[0]

	cfg, err := commandSetup()
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	chooser := interactiveChooser()
	if sendDevice != "" {
		chooser = pickByID(sendDevice)
	}
	client := ble.NewClient(newAdapter(), chooser, clientOptions(cfg))

	replies := make(chan string, 8)
	client.Notify(ble.Handlers{
		OnDataReceived: func(reply string) {
			select {
			case replies <- reply:
			default:
			}
		},
	})

	dev, err := client.Connect(ctx)
	if err != nil {
		return err
	}
	defer client.Disconnect()

	if err := client.Send(text); err != nil {
		return err
	}
	fmt.Printf("Sent %d bytes to %s.\n", len(text), dev.Name)

	if sendWait <= 0 {
		return nil
	}

	timer := time.NewTimer(sendWait)
	defer timer.Stop()

	got := false
	for {
		select {
		case reply := <-replies:
			got = true
			fmt.Printf("Reply: %s\n", reply)
		case <-timer.C:
			if !got {
				fmt.Println("No reply.")
			}
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
