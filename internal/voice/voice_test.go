package voice

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/echohq/echo/internal/bus"
	"github.com/echohq/echo/internal/events"
)

type fakeNarrator struct {
	mu    sync.Mutex
	texts []string
}

func (f *fakeNarrator) Narrate(ctx context.Context, text string) error {
	f.mu.Lock()
	f.texts = append(f.texts, text)
	f.mu.Unlock()
	return nil
}

func (f *fakeNarrator) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.texts)
}

func newTestEngine() (*Engine, *fakeNarrator, *bus.Bus[events.RawEvent], *bus.Bus[events.Response]) {
	rawBus := bus.New[events.RawEvent]("raw", 16)
	responseBus := bus.New[events.Response]("response", 16)
	mic := &Microphone{available: false} // no device on test host: CaptureUntilSilence returns nil immediately
	stt := NewSTTClient("https://example.invalid", "", "whisper-1", time.Second)
	dispatcher := &Dispatcher{method: DispatchNone}
	narrator := &fakeNarrator{}
	cfg := Config{
		ListenTimeout:       50 * time.Millisecond,
		SilenceThreshold:    0.01,
		SilenceDuration:     200 * time.Millisecond,
		MaxRecordDuration:   time.Second,
		ConfidenceThreshold: 0.6,
		SampleRate:          16000,
	}
	e := New(rawBus, responseBus, mic, stt, dispatcher, narrator, cfg)
	return e, narrator, rawBus, responseBus
}

func TestVoiceEngineListenCycleEndsSilentlyWithoutMic(t *testing.T) {
	e, narrator, rawBus, _ := newTestEngine()
	e.Start(context.Background())
	defer e.Stop()

	rawBus.Emit(events.RawEvent{
		Kind:        events.KindAgentBlocked,
		SessionID:   "s1",
		BlockReason: events.BlockPermissionPrompt,
		Options:     []string{"Allow", "Deny"},
	})

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && e.IsListening() {
		time.Sleep(5 * time.Millisecond)
	}
	if e.IsListening() {
		t.Fatal("expected listen cycle to end once capture returns nil")
	}
	if narrator.count() != 0 {
		t.Fatalf("expected no narration when mic capture yields nothing, got %d", narrator.count())
	}
}

func TestVoiceEngineNewBlockedEventWinsSingleFlight(t *testing.T) {
	e, _, rawBus, _ := newTestEngine()
	// The mic is unavailable, so each listen cycle ends as soon as it starts.
	e.mic = &Microphone{available: false}
	e.Start(context.Background())
	defer e.Stop()

	rawBus.Emit(events.RawEvent{Kind: events.KindAgentBlocked, SessionID: "s1", Options: []string{"A", "B"}})
	rawBus.Emit(events.RawEvent{Kind: events.KindAgentBlocked, SessionID: "s2", Options: []string{"C", "D"}})

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && e.IsListening() {
		time.Sleep(5 * time.Millisecond)
	}
	// Both cycles complete quickly (mic unavailable); assert no panic/deadlock occurred.
	if e.IsListening() {
		t.Fatal("expected both listen cycles to have completed")
	}
}

func TestVoiceEngineNonBlockedEventCancelsActiveListen(t *testing.T) {
	e, _, rawBus, _ := newTestEngine()
	e.Start(context.Background())
	defer e.Stop()

	e.mu.Lock()
	e.activeSession = "s1"
	ctx, cancel := context.WithCancel(context.Background())
	e.activeCancel = cancel
	done := make(chan struct{})
	e.activeDone = done
	e.mu.Unlock()
	// Stand-in for listenCycle: it runs until cancelled, then clears the
	// active session before signalling done, as listenCycle's defers do.
	go func() {
		<-ctx.Done()
		e.clearActive("s1")
		close(done)
	}()

	rawBus.Emit(events.RawEvent{Kind: events.KindToolExecuted, SessionID: "s1"})

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && e.IsListening() {
		time.Sleep(5 * time.Millisecond)
	}
	if e.IsListening() {
		t.Fatal("expected non-blocked event to cancel the active listen for its session")
	}
}

func TestHandleManualResponseEmitsVerbatimResponse(t *testing.T) {
	e, narrator, _, responseBus := newTestEngine()
	sub := responseBus.Subscribe()
	defer responseBus.Unsubscribe(sub)

	ok := e.HandleManualResponse(context.Background(), "s1", "manual text")
	if ok {
		t.Fatal("expected dispatch to report false with DispatchNone")
	}

	select {
	case resp := <-sub.C():
		if resp.Text != "manual text" || resp.MatchMethod != events.MatchVerbatim || resp.Confidence != 1.0 {
			t.Fatalf("unexpected response: %+v", resp)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a response to be emitted")
	}

	if narrator.count() == 0 {
		t.Fatal("expected a confirmation narration")
	}
}
