package main

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/ItsSilva/lumilink/internal/onboarding"
)

// clearLineSequence clears the current terminal line
const clearLineSequence = "\r\033[K"

// spinnerFrames animate while the flow is searching or connecting.
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

var stateColors = map[onboarding.State]*color.Color{
	onboarding.StateIdle:       color.New(color.FgWhite),
	onboarding.StateSearching:  color.New(color.FgCyan),
	onboarding.StateConnecting: color.New(color.FgYellow),
	onboarding.StateConnected:  color.New(color.FgGreen),
	onboarding.StateError:      color.New(color.FgRed),
}

// screenRenderer draws the onboarding view as one updating terminal
// line, spinning while the flow is in a transient state. Settled
// states get a trailing newline so the history stays readable.
type screenRenderer struct {
	mu      sync.Mutex
	view    onboarding.View
	frame   int
	ticking bool
	stop    chan struct{}
}

func newScreenRenderer() *screenRenderer {
	return &screenRenderer{}
}

func (r *screenRenderer) Render(v onboarding.View) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.view = v
	transient := v.State == onboarding.StateSearching || v.State == onboarding.StateConnecting
	if transient && !r.ticking {
		r.ticking = true
		r.stop = make(chan struct{})
		go r.spin(r.stop)
	}
	if !transient && r.ticking {
		r.ticking = false
		close(r.stop)
	}
	r.drawLocked(!transient)
}

// Close stops the spinner goroutine if one is running.
func (r *screenRenderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ticking {
		r.ticking = false
		close(r.stop)
	}
}

func (r *screenRenderer) spin(stop chan struct{}) {
	ticker := time.NewTicker(120 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.mu.Lock()
			r.frame++
			r.drawLocked(false)
			r.mu.Unlock()
		case <-stop:
			return
		}
	}
}

// drawLocked repaints the status line. The \r\n ending keeps output
// aligned when the terminal is in raw mode.
func (r *screenRenderer) drawLocked(newline bool) {
	v := r.view
	c, ok := stateColors[v.State]
	if !ok {
		c = color.New(color.FgWhite)
	}

	line := c.Sprintf("[%s]", strings.ToUpper(v.State.String()))
	if v.State == onboarding.StateSearching || v.State == onboarding.StateConnecting {
		line += " " + spinnerFrames[r.frame%len(spinnerFrames)]
	}
	if v.Message != "" {
		line += " " + v.Message
	}

	fmt.Print(clearLineSequence + line)
	if newline {
		fmt.Print("\r\n")
	}
}
