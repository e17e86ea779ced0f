package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ItsSilva/lumilink/internal/ble"
	"github.com/ItsSilva/lumilink/internal/config"
	"github.com/ItsSilva/lumilink/internal/onboarding"
	"github.com/ItsSilva/lumilink/internal/session"
)

// onboardCmd represents the onboard command
var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Guided first connection to a Lumi device",
	Long: `Walk through finding and connecting a Lumi device.

The flow searches for nearby Lumi hardware, connects to the first
match, and moves on by itself shortly after the link is up.

Keys:
  enter  start searching (after a cancel or retry)
  c      cancel the attempt in flight, or disconnect
  r      acknowledge a failure and return to the start
  s      skip onboarding
  q      quit`,
	RunE: runOnboard,
}

func runOnboard(cmd *cobra.Command, args []string) error {
	cfg, err := commandSetup()
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true

	// First run convenience: put a starter config file in place.
	if flagConfig == "" {
		if path, err := config.WriteDefault(); err == nil && path != "" {
			slog.Info("[CONFIG] wrote starter config", "path", path)
		}
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	// The chooser reports its pick to the screen so the display moves
	// from searching to connecting at the right moment.
	var screen *onboarding.Screen
	chooser := func(ctx context.Context, found <-chan ble.Advertisement) (ble.Advertisement, error) {
		adv, err := ble.FirstMatch()(ctx, found)
		if err == nil && screen != nil {
			screen.DeviceChosen(adv)
		}
		return adv, err
	}

	client := ble.NewClient(newAdapter(), chooser, clientOptions(cfg))
	sess := session.New(client)
	ctx = session.NewContext(ctx, sess)
	defer sess.Disconnect()

	renderer := newScreenRenderer()
	defer renderer.Close()

	done := make(chan struct{})
	next := func() {
		if err := greetDevice(ctx); err != nil {
			slog.Warn("[ONBOARD] greeting failed", "error", err)
		}
		close(done)
	}

	screen = onboarding.NewScreen(sess, renderer, next, onboarding.Options{
		AdvanceDelay: cfg.Onboarding.AdvanceDelay.Duration,
	})

	// Raw mode delivers single keypresses; Ctrl+C then arrives as a
	// byte instead of a signal and is handled in the key loop.
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		if old, rawErr := term.MakeRaw(fd); rawErr == nil {
			defer term.Restore(fd, old)
		}
	}
	fmt.Print("Keys: Enter connect, c cancel, r retry, s skip, q quit\r\n")

	screen.Connect(ctx)

	keys := readKeys(ctx)
	for {
		select {
		case <-done:
			fmt.Print("Onboarding complete.\r\n")
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case key, ok := <-keys:
			if !ok {
				// Stdin closed; keep waiting on the flow itself.
				keys = nil
				continue
			}
			switch key {
			case '\r', '\n':
				screen.Connect(ctx)
			case 'c':
				screen.Cancel()
			case 'r':
				screen.Retry()
			case 's':
				screen.Skip()
			case 'q', 3: // 3 is Ctrl+C in raw mode
				return context.Canceled
			}
		}
	}
}

// greetDevice runs the first exchange after onboarding: it pulls the
// shared session out of ctx and sends a hello so the device can show
// the link is live. A skipped onboarding has no link and sends
// nothing.
func greetDevice(ctx context.Context) error {
	sess, err := session.FromContext(ctx)
	if err != nil {
		return err
	}
	if !sess.State().Connected {
		return nil
	}
	return sess.Send("HELLO")
}

// readKeys delivers stdin one byte at a time. The channel closes when
// stdin does.
func readKeys(ctx context.Context) <-chan byte {
	keys := make(chan byte)
	go func() {
		defer close(keys)
		buf := make([]byte, 1)
		for {
			n, err := os.Stdin.Read(buf)
			if err != nil {
				return
			}
			if n == 0 {
				continue
			}
			select {
			case keys <- buf[0]:
			case <-ctx.Done():
				return
			}
		}
	}()
	return keys
}
