// Package speaker implements the SpeakerEngine: it consumes narrations from
// the NarrationBus, synthesizes speech, and drives local playback and
// optional remote publishing with priority-aware scheduling.
package speaker

import (
	"context"
	"log"
	"sync"

	"github.com/echohq/echo/internal/alert"
	"github.com/echohq/echo/internal/bus"
	"github.com/echohq/echo/internal/events"
)

// State is the SpeakerEngine's composite availability state.
type State string

const (
	StateActive   State = "active"
	StateDegraded State = "degraded"
	StateDisabled State = "disabled"
)

// Engine is the SpeakerEngine: it consumes narrations and speaks them in
// priority order, alert tones preempting normal speech.
type Engine struct {
	narrationBus     *bus.Bus[events.Narration]
	provider         Provider
	player           *Player
	publisher        *RemotePublisher
	alertManager     *alert.Manager
	backlogThreshold int

	mu               sync.Mutex
	providerAvailable bool

	sub    *bus.Subscription[events.Narration]
	cancel context.CancelFunc
	done   chan struct{}
}

// New constructs a SpeakerEngine and registers its repeat callback with the
// AlertManager, breaking the cyclic reference: the AlertManager never holds
// a pointer back to the engine.
func New(narrationBus *bus.Bus[events.Narration], provider Provider, player *Player, publisher *RemotePublisher, alertManager *alert.Manager, backlogThreshold int) *Engine {
	e := &Engine{
		narrationBus:     narrationBus,
		provider:         provider,
		player:           player,
		publisher:        publisher,
		alertManager:     alertManager,
		backlogThreshold: backlogThreshold,
		done:             make(chan struct{}),
	}
	alertManager.SetRepeatCallback(e.onRepeat)
	return e
}

// Start launches the player, probes provider availability, and begins
// consuming narrations.
func (e *Engine) Start(ctx context.Context) {
	e.player.Start()
	if e.publisher.Enabled() {
		if err := e.publisher.Connect(ctx); err != nil {
			log.Printf("speaker: remote publisher connect failed: %v", err)
		}
	}
	e.setAvailable(e.provider.Available(ctx))

	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.sub = e.narrationBus.Subscribe()
	go e.consumeLoop(ctx)
}

// Stop halts the consume loop and the player.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
	<-e.done
	e.narrationBus.Unsubscribe(e.sub)
	e.player.Stop()
	e.publisher.Close()
}

// State reports the composite availability derived from TTS provider and
// audio device availability.
func (e *Engine) State() State {
	e.mu.Lock()
	ttsOK := e.providerAvailable
	e.mu.Unlock()
	deviceOK := e.player.IsAvailable()

	switch {
	case ttsOK && deviceOK:
		return StateActive
	case !ttsOK && !deviceOK:
		return StateDisabled
	default:
		return StateDegraded
	}
}

// TTSAvailable reports the last-probed availability of the TTS provider.
func (e *Engine) TTSAvailable() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.providerAvailable
}

// AudioAvailable reports whether a local playback device was found.
func (e *Engine) AudioAvailable() bool {
	return e.player.IsAvailable()
}

// RemoteConnected reports whether the optional WebRTC publisher has an
// established peer connection.
func (e *Engine) RemoteConnected() bool {
	return e.publisher.Connected()
}

func (e *Engine) setAvailable(v bool) {
	e.mu.Lock()
	e.providerAvailable = v
	e.mu.Unlock()
}

func (e *Engine) consumeLoop(ctx context.Context) {
	defer close(e.done)
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-e.sub.C():
			if !ok {
				return
			}
			e.handle(ctx, n)
		}
	}
}

func (e *Engine) handle(ctx context.Context, n events.Narration) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("speaker: panic handling narration for session %s: %v", n.SessionID, r)
		}
	}()

	switch n.Priority {
	case events.PriorityCritical:
		e.handleCritical(ctx, n)
	case events.PriorityLow:
		e.handleLow(ctx, n)
	default:
		e.handleNormal(ctx, n)
	}
}

func (e *Engine) handleCritical(ctx context.Context, n events.Narration) {
	e.player.Interrupt()
	e.player.PlayAlert(n.BlockReason, n.HasBlockReason)

	pcm := e.synthesize(ctx, n.Text)
	if pcm != nil {
		e.player.PlayImmediate(pcm)
		if err := e.publisher.Publish(pcm); err != nil {
			log.Printf("speaker: remote publish failed: %v", err)
		}
	}
	e.alertManager.Activate(n.SessionID, n.BlockReason, n.HasBlockReason, n.Text, n.Options)
}

func (e *Engine) handleNormal(ctx context.Context, n events.Narration) {
	pcm := e.synthesize(ctx, n.Text)
	if pcm == nil {
		return
	}
	e.player.Enqueue(pcm, 1)
	if err := e.publisher.Publish(pcm); err != nil {
		log.Printf("speaker: remote publish failed: %v", err)
	}
}

func (e *Engine) handleLow(ctx context.Context, n events.Narration) {
	if e.player.Depth() > e.backlogThreshold {
		log.Printf("speaker: dropping LOW priority narration, backlog depth=%d", e.player.Depth())
		return
	}
	pcm := e.synthesize(ctx, n.Text)
	if pcm == nil {
		return
	}
	e.player.Enqueue(pcm, 2)
	if err := e.publisher.Publish(pcm); err != nil {
		log.Printf("speaker: remote publish failed: %v", err)
	}
}

// Narrate synthesizes and plays text synchronously, blocking until
// playback has been issued to the device. The VoiceEngine uses this for its
// confirmation narration so speech precedes the subsequent keystroke
// dispatch, unlike the bus-driven async path used for ordinary
// tool/session narrations.
func (e *Engine) Narrate(ctx context.Context, text string) error {
	pcm := e.synthesize(ctx, text)
	if pcm == nil {
		return nil
	}
	e.player.PlayImmediate(pcm)
	return e.publisher.Publish(pcm)
}

// onRepeat is the AlertManager's RepeatCallback: replay the critical
// narration for an alert that has not yet been resolved.
func (e *Engine) onRepeat(blockReason events.BlockReason, hasBlockReason bool, text string) {
	ctx := context.Background()
	e.player.Interrupt()
	e.player.PlayAlert(blockReason, hasBlockReason)
	pcm := e.synthesize(ctx, text)
	if pcm != nil {
		e.player.PlayImmediate(pcm)
		if err := e.publisher.Publish(pcm); err != nil {
			log.Printf("speaker: remote publish failed on repeat: %v", err)
		}
	}
}

// synthesize never panics the caller; a nil return means skip silently.
func (e *Engine) synthesize(ctx context.Context, text string) []byte {
	if e.provider == nil || text == "" {
		return nil
	}
	pcm, err := e.provider.Synthesize(ctx, text)
	if err != nil {
		log.Printf("speaker: synthesize failed: %v", err)
		return nil
	}
	return pcm
}
