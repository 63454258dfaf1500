// Package alert implements the AlertManager stage: it tracks per-session
// active alerts and runs a repeat-timer state machine until the alert is
// resolved by a later non-blocking event or capped at a maximum number of
// repeats.
package alert

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/echohq/echo/internal/bus"
	"github.com/echohq/echo/internal/events"
)

// RepeatCallback is invoked each time an active alert's repeat timer fires.
// The SpeakerEngine registers this to replay the critical narration.
type RepeatCallback func(blockReason events.BlockReason, hasBlockReason bool, text string)

type activeAlert struct {
	sessionID   string
	blockReason events.BlockReason
	hasReason   bool
	text        string
	options     []string
	createdAt   time.Time
	repeatCount int
	cancel      context.CancelFunc
	done        chan struct{}
}

// Manager is the AlertManager. It never touches audio directly; activation
// and replay are delegated to a registered callback to break the cyclic
// reference with the SpeakerEngine.
type Manager struct {
	rawBus          *bus.Bus[events.RawEvent]
	repeatInterval  time.Duration
	maxRepeats      int

	mu       sync.Mutex
	alerts   map[string]*activeAlert
	callback RepeatCallback

	sub    *bus.Subscription[events.RawEvent]
	cancel context.CancelFunc
	done   chan struct{}
}

// New constructs an AlertManager with the given repeat interval and max
// repeat count.
func New(rawBus *bus.Bus[events.RawEvent], repeatInterval time.Duration, maxRepeats int) *Manager {
	return &Manager{
		rawBus:         rawBus,
		repeatInterval: repeatInterval,
		maxRepeats:     maxRepeats,
		alerts:         make(map[string]*activeAlert),
		done:           make(chan struct{}),
	}
}

// SetRepeatCallback registers the callback invoked on each repeat-timer fire.
func (m *Manager) SetRepeatCallback(cb RepeatCallback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callback = cb
}

// Start subscribes to the raw bus and begins the resolve loop.
func (m *Manager) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.sub = m.rawBus.Subscribe()
	go m.consumeLoop(ctx)
}

// Stop cancels the resolve loop, cancels every live repeat timer, and
// unsubscribes from the raw bus. Blocks until all timers have terminated.
func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	<-m.done

	m.mu.Lock()
	alerts := make([]*activeAlert, 0, len(m.alerts))
	for _, a := range m.alerts {
		alerts = append(alerts, a)
	}
	m.alerts = make(map[string]*activeAlert)
	m.mu.Unlock()

	for _, a := range alerts {
		a.cancel()
		<-a.done
	}
	m.rawBus.Unsubscribe(m.sub)
}

// Activate replaces any existing alert for session_id (cancelling its
// timer) and starts a fresh repeat timer. Called by the SpeakerEngine
// after a critical narration has been played.
func (m *Manager) Activate(sessionID string, blockReason events.BlockReason, hasBlockReason bool, text string, options []string) {
	m.mu.Lock()
	existing, hadExisting := m.alerts[sessionID]
	delete(m.alerts, sessionID)
	m.mu.Unlock()
	if hadExisting {
		existing.cancel()
		<-existing.done
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &activeAlert{
		sessionID:   sessionID,
		blockReason: blockReason,
		hasReason:   hasBlockReason,
		text:        text,
		options:     options,
		createdAt:   time.Now(),
		cancel:      cancel,
		done:        make(chan struct{}),
	}
	m.mu.Lock()
	m.alerts[sessionID] = a
	m.mu.Unlock()

	go m.repeatLoop(ctx, a)
}

// HasActiveAlert reports whether sessionID currently has an active alert.
func (m *Manager) HasActiveAlert(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.alerts[sessionID]
	return ok
}

// ActiveCount returns the total number of active alerts across sessions.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.alerts)
}

func (m *Manager) clear(sessionID string) {
	m.mu.Lock()
	a, ok := m.alerts[sessionID]
	if ok {
		delete(m.alerts, sessionID)
	}
	m.mu.Unlock()
	if ok {
		a.cancel()
		<-a.done
	}
}

func (m *Manager) consumeLoop(ctx context.Context) {
	defer close(m.done)
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-m.sub.C():
			if !ok {
				return
			}
			m.handle(e)
		}
	}
}

func (m *Manager) handle(e events.RawEvent) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("alert: panic handling event %s: %v", e.ID, r)
		}
	}()
	if e.Kind == events.KindAgentBlocked {
		// Activation flows via the SpeakerEngine, not here.
		return
	}
	if m.HasActiveAlert(e.SessionID) {
		m.clear(e.SessionID)
	}
}

func (m *Manager) repeatLoop(ctx context.Context, a *activeAlert) {
	defer close(a.done)
	if m.repeatInterval <= 0 {
		return
	}
	for {
		timer := time.NewTimer(m.repeatInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		m.mu.Lock()
		cb := m.callback
		m.mu.Unlock()
		if cb != nil {
			func() {
				defer func() {
					if r := recover(); r != nil {
						log.Printf("alert: repeat callback panicked for session %s: %v", a.sessionID, r)
					}
				}()
				cb(a.blockReason, a.hasReason, a.text)
			}()
		}

		a.repeatCount++
		if a.repeatCount >= m.maxRepeats {
			return
		}
	}
}
