// Package hotkey watches global modifier-key state and emits record
// start/stop events when a configured combination is held and released.
package hotkey

import (
	"errors"
	"sync"
	"time"

	hook "github.com/robotn/gohook"
)

// ErrPermissionDenied is returned when the OS refuses to install the global
// event hook. On macOS this means the accessibility permission is missing.
var ErrPermissionDenied = errors.New("hotkey: accessibility permission denied")

// EventType identifies a hotkey transition.
type EventType int

const (
	// RecordStart is emitted when all required modifiers become held.
	RecordStart EventType = iota + 1
	// RecordStop is emitted when the combination is released.
	RecordStop
)

// Event is a single hotkey transition.
type Event struct {
	Type EventType
	Time time.Time
}

// eventBuffer bounds the monitor-to-orchestrator channel. Sends block once
// full so start/stop ordering is never lost.
const eventBuffer = 16

// Monitor subscribes to global keyboard events and tracks the configured
// combo. It runs for the process lifetime; events are delivered on a bounded
// channel in press/release order.
type Monitor struct {
	combo  Combo
	events chan Event
	done   chan struct{}

	mu      sync.Mutex
	started bool
}

// NewMonitor creates a Monitor for the given combo.
func NewMonitor(combo Combo) *Monitor {
	return &Monitor{
		combo:  combo,
		events: make(chan Event, eventBuffer),
		done:   make(chan struct{}),
	}
}

// Start installs the global hook and begins emitting events.
// A missing accessibility permission is a fatal error; the caller is expected
// to surface grant instructions and exit rather than retry.
func (m *Monitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return errors.New("hotkey: monitor already started")
	}

	if !IsAccessibilityEnabled(true) {
		return ErrPermissionDenied
	}

	raw := hook.Start()
	m.started = true
	go m.loop(raw)
	return nil
}

// Events returns the channel of hotkey transitions.
func (m *Monitor) Events() <-chan Event {
	return m.events
}

// Stop uninstalls the hook and stops event delivery.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return
	}
	m.started = false
	close(m.done)
	hook.End()
}

func (m *Monitor) loop(raw chan hook.Event) {
	tracker := newComboTracker(m.combo)

	for {
		select {
		case <-m.done:
			return
		case ev, ok := <-raw:
			if !ok {
				return
			}

			var tr transition
			switch ev.Kind {
			case hook.KeyDown, hook.KeyHold:
				// KeyHold covers key-repeat storms; the tracker makes
				// repeated downs idempotent.
				tr = tracker.process(ev.Rawcode, true)
			case hook.KeyUp:
				tr = tracker.process(ev.Rawcode, false)
			default:
				continue
			}

			switch tr {
			case transitionStart:
				m.emit(Event{Type: RecordStart, Time: time.Now()})
			case transitionStop:
				m.emit(Event{Type: RecordStop, Time: time.Now()})
			}
		}
	}
}

func (m *Monitor) emit(ev Event) {
	select {
	case m.events <- ev:
	case <-m.done:
	}
}
