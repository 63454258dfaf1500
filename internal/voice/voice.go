// Package voice implements the VoiceEngine: it listens for microphone
// responses to blocked agent prompts, matches them against the offered
// options, and dispatches the result back into the agent's terminal.
package voice

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/echohq/echo/internal/bus"
	"github.com/echohq/echo/internal/events"
)

// Narrator is the minimal synchronous speech capability the VoiceEngine
// needs from the SpeakerEngine. Kept as an interface so this package does
// not need to import speaker's concrete type, and so tests can supply a
// fake.
type Narrator interface {
	Narrate(ctx context.Context, text string) error
}

// Config bundles the VoiceEngine's tunables.
type Config struct {
	ListenTimeout       time.Duration
	SilenceThreshold    float64
	SilenceDuration     time.Duration
	MaxRecordDuration   time.Duration
	ConfidenceThreshold float64
	SampleRate          int
}

// Engine is the VoiceEngine: it owns the listen-capture-transcribe-match-
// dispatch cycle for spoken responses to blocked prompts.
type Engine struct {
	rawBus      *bus.Bus[events.RawEvent]
	responseBus *bus.Bus[events.Response]
	mic         *Microphone
	stt         *STTClient
	dispatcher  *Dispatcher
	narrator    Narrator
	cfg         Config

	mu            sync.Mutex
	activeSession string
	activeCancel  context.CancelFunc
	activeDone    chan struct{}

	sub    *bus.Subscription[events.RawEvent]
	cancel context.CancelFunc
	done   chan struct{}
}

// New constructs a VoiceEngine. narrator may be nil (narration is then
// skipped, per the graceful degradation rules in §4.4/§7).
func New(rawBus *bus.Bus[events.RawEvent], responseBus *bus.Bus[events.Response], mic *Microphone, stt *STTClient, dispatcher *Dispatcher, narrator Narrator, cfg Config) *Engine {
	return &Engine{
		rawBus:      rawBus,
		responseBus: responseBus,
		mic:         mic,
		stt:         stt,
		dispatcher:  dispatcher,
		narrator:    narrator,
		cfg:         cfg,
		done:        make(chan struct{}),
	}
}

// Start probes the STT client and begins consuming the raw bus.
func (e *Engine) Start(ctx context.Context) {
	e.stt.Start(ctx)

	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.sub = e.rawBus.Subscribe()
	go e.consumeLoop(ctx)
}

// Stop cancels the consume loop and any active listen task.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
	<-e.done
	e.rawBus.Unsubscribe(e.sub)
	e.cancelActive()
}

// IsListening reports whether a listen task is currently active.
func (e *Engine) IsListening() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.activeSession != ""
}

// State mirrors the SpeakerEngine's composite availability: active when
// both the microphone and the STT client are usable, disabled when neither
// is, degraded otherwise.
func (e *Engine) State() string {
	micOK := e.mic.IsAvailable()
	sttOK := e.stt.IsAvailable()
	switch {
	case micOK && sttOK:
		return "active"
	case !micOK && !sttOK:
		return "disabled"
	default:
		return "degraded"
	}
}

// STTAvailable reports the last-probed availability of the STT client.
func (e *Engine) STTAvailable() bool {
	return e.stt.IsAvailable()
}

// MicAvailable reports whether a capture device was found.
func (e *Engine) MicAvailable() bool {
	return e.mic.IsAvailable()
}

// DispatchAvailable reports whether a keystroke dispatch method is usable.
func (e *Engine) DispatchAvailable() bool {
	return e.dispatcher.Available()
}

func (e *Engine) consumeLoop(ctx context.Context) {
	defer close(e.done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-e.sub.C():
			if !ok {
				return
			}
			e.handle(ctx, ev)
		}
	}
}

func (e *Engine) handle(ctx context.Context, ev events.RawEvent) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("voice: panic handling event %s: %v", ev.ID, r)
		}
	}()

	if ev.Kind == events.KindAgentBlocked && len(ev.Options) > 0 {
		e.startListen(ctx, ev.SessionID, ev.Options, ev.BlockReason)
		return
	}

	e.mu.Lock()
	isActiveSession := e.activeSession == ev.SessionID
	e.mu.Unlock()
	if isActiveSession {
		e.cancelActive()
	}
}

// startListen is single-flight across sessions: a new blocked event always
// wins, cancelling whatever listen task (for any session) is currently
// running.
func (e *Engine) startListen(ctx context.Context, sessionID string, options []string, blockReason events.BlockReason) {
	e.cancelActive()

	listenCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	e.mu.Lock()
	e.activeSession = sessionID
	e.activeCancel = cancel
	e.activeDone = done
	e.mu.Unlock()

	go e.listenCycle(listenCtx, done, sessionID, options, blockReason)
}

func (e *Engine) cancelActive() {
	e.mu.Lock()
	cancel := e.activeCancel
	done := e.activeDone
	e.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (e *Engine) clearActive(sessionID string) {
	e.mu.Lock()
	if e.activeSession == sessionID {
		e.activeSession = ""
		e.activeCancel = nil
		e.activeDone = nil
	}
	e.mu.Unlock()
}

// listenCycle runs the capture-transcribe-match-respond-dispatch cycle for
// a single blocked prompt.
func (e *Engine) listenCycle(ctx context.Context, done chan struct{}, sessionID string, options []string, blockReason events.BlockReason) {
	defer close(done)
	defer e.clearActive(sessionID)

	pcm := e.mic.CaptureUntilSilence(ctx, e.cfg.ListenTimeout, e.cfg.MaxRecordDuration, e.cfg.SilenceThreshold, e.cfg.SilenceDuration, e.cfg.SampleRate)
	if pcm == nil {
		return
	}

	transcript, ok := e.stt.Transcribe(ctx, pcm, e.cfg.SampleRate)
	if !ok {
		e.narrate(ctx, "I couldn't understand. Please repeat or type your response.")
		return
	}

	result := Match(transcript, options, blockReason)
	if result.Confidence < e.cfg.ConfidenceThreshold {
		e.narrate(ctx, "I didn't catch that clearly. Please repeat.")
		return
	}

	e.responseBus.Emit(events.Response{
		Text:        result.Text,
		Transcript:  transcript,
		SessionID:   sessionID,
		Timestamp:   float64(time.Now().UnixNano()) / 1e9,
		MatchMethod: result.Method,
		Confidence:  result.Confidence,
		Options:     options,
	})

	e.narrate(ctx, "Sending: "+result.Text)

	if !e.dispatcher.Dispatch(result.Text) {
		e.narrate(ctx, "Couldn't send response. Please type: "+result.Text+".")
	}
}

// HandleManualResponse bypasses capture/STT/matching: it emits a verbatim
// Response, narrates confirmation, and dispatches.
func (e *Engine) HandleManualResponse(ctx context.Context, sessionID, text string) bool {
	e.responseBus.Emit(events.Response{
		Text:        text,
		Transcript:  text,
		SessionID:   sessionID,
		Timestamp:   float64(time.Now().UnixNano()) / 1e9,
		MatchMethod: events.MatchVerbatim,
		Confidence:  1.0,
	})
	e.narrate(ctx, "Sending: "+text)
	return e.dispatcher.Dispatch(text)
}

func (e *Engine) narrate(ctx context.Context, text string) {
	if e.narrator == nil {
		return
	}
	if err := e.narrator.Narrate(ctx, text); err != nil {
		log.Printf("voice: narration failed: %v", err)
	}
}
