package ble

import "sync"

// Handlers receives link events from a Client. Any subset of fields
// may be set; nil handlers are skipped at dispatch.
type Handlers struct {
	// OnConnected fires once per established link with the new record.
	OnConnected func(Device)
	// OnDisconnected fires when the link ends, requested or dropped.
	OnDisconnected func()
	// OnError fires with every error the client returns.
	OnError func(error)
	// OnDataReceived fires once per notification with the decoded text.
	OnDataReceived func(string)
}

// observerList fans link events out to every registered Handlers set.
// Registration is append only; a subscriber stays active for the life
// of the client.
type observerList struct {
	mu   sync.Mutex
	subs []Handlers
}

func (l *observerList) add(h Handlers) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.subs = append(l.subs, h)
}

// snapshot copies the subscriber list so emit helpers can iterate
// outside the lock. A handler may register further handlers or call
// back into the client without deadlocking.
func (l *observerList) snapshot() []Handlers {
	l.mu.Lock()
	defer l.mu.Unlock()
	subs := make([]Handlers, len(l.subs))
	copy(subs, l.subs)
	return subs
}

func (l *observerList) emitConnected(dev Device) {
	for _, h := range l.snapshot() {
		if h.OnConnected != nil {
			h.OnConnected(dev)
		}
	}
}

func (l *observerList) emitDisconnected() {
	for _, h := range l.snapshot() {
		if h.OnDisconnected != nil {
			h.OnDisconnected()
		}
	}
}

func (l *observerList) emitError(err error) {
	for _, h := range l.snapshot() {
		if h.OnError != nil {
			h.OnError(err)
		}
	}
}

func (l *observerList) emitData(text string) {
	for _, h := range l.snapshot() {
		if h.OnDataReceived != nil {
			h.OnDataReceived(text)
		}
	}
}
