// Package summarizer implements the Summarizer stage: it subscribes to the
// raw event bus, routes each event by kind, and produces Narration events
// onto the narration bus.
package summarizer

import (
	"context"
	"log"

	"github.com/echohq/echo/internal/bus"
	"github.com/echohq/echo/internal/events"
)

// Summarizer is the single-consumer cooperative loop that batches raw
// events and turns them into narrations.
type Summarizer struct {
	rawBus       *bus.Bus[events.RawEvent]
	narrationBus *bus.Bus[events.Narration]
	batcher      *EventBatcher
	llm          *LLMSummarizer

	sub    *bus.Subscription[events.RawEvent]
	cancel context.CancelFunc
	done   chan struct{}
}

// New constructs a Summarizer wired to rawBus/narrationBus and the given
// LLM summarizer client.
func New(rawBus *bus.Bus[events.RawEvent], narrationBus *bus.Bus[events.Narration], llm *LLMSummarizer) *Summarizer {
	s := &Summarizer{
		rawBus:       rawBus,
		narrationBus: narrationBus,
		batcher:      NewEventBatcher(),
		llm:          llm,
		done:         make(chan struct{}),
	}
	s.batcher.SetFlushCallback(func(n events.Narration) {
		s.narrationBus.Emit(n)
	})
	return s
}

// Start subscribes to the raw bus and begins the consume loop.
func (s *Summarizer) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.sub = s.rawBus.Subscribe()
	if s.llm != nil {
		s.llm.Start(ctx)
	}
	go s.consumeLoop(ctx)
}

// Stop cancels the consume loop, flushes any pending batch, and
// unsubscribes from the raw bus. It blocks until the loop has exited.
func (s *Summarizer) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	<-s.done
	if n := s.batcher.Flush(); n != nil {
		s.narrationBus.Emit(*n)
	}
	s.rawBus.Unsubscribe(s.sub)
}

func (s *Summarizer) consumeLoop(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-s.sub.C():
			if !ok {
				return
			}
			s.handle(ctx, e)
		}
	}
}

func (s *Summarizer) handle(ctx context.Context, e events.RawEvent) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("summarizer: panic handling event %s: %v", e.ID, r)
		}
	}()

	switch e.Kind {
	case events.KindToolExecuted:
		s.handleToolExecuted(e)
	case events.KindAgentBlocked:
		s.flushBatch()
		s.narrationBus.Emit(events.Narration{
			Text:           renderBlocked(e),
			Priority:       events.PriorityCritical,
			SourceKind:     e.Kind,
			SessionID:      e.SessionID,
			SourceEventID:  e.ID,
			Method:         events.MethodTemplate,
			BlockReason:    e.BlockReason,
			HasBlockReason: true,
			Options:        e.Options,
		})
	case events.KindAgentMessage:
		s.flushBatch()
		s.narrationBus.Emit(s.llm.Summarize(ctx, e))
	case events.KindAgentStopped:
		s.flushBatch()
		s.narrationBus.Emit(events.Narration{
			Text:          renderStopped(e),
			Priority:      events.PriorityNormal,
			SourceKind:    e.Kind,
			SessionID:     e.SessionID,
			SourceEventID: e.ID,
			Method:        events.MethodTemplate,
		})
	case events.KindSessionStart:
		s.flushBatch()
		s.narrationBus.Emit(events.Narration{
			Text:          "New coding session started.",
			Priority:      events.PriorityLow,
			SourceKind:    e.Kind,
			SessionID:     e.SessionID,
			SourceEventID: e.ID,
			Method:        events.MethodTemplate,
		})
	case events.KindSessionEnd:
		s.flushBatch()
		s.narrationBus.Emit(events.Narration{
			Text:          "Session ended.",
			Priority:      events.PriorityLow,
			SourceKind:    e.Kind,
			SessionID:     e.SessionID,
			SourceEventID: e.ID,
			Method:        events.MethodTemplate,
		})
	default:
		log.Printf("summarizer: unknown event kind %q, dropping", e.Kind)
	}
}

func (s *Summarizer) handleToolExecuted(e events.RawEvent) {
	if narration := s.batcher.Add(e); narration != nil {
		s.narrationBus.Emit(*narration)
	}
}

func (s *Summarizer) flushBatch() {
	if n := s.batcher.Flush(); n != nil {
		s.narrationBus.Emit(*n)
	}
}
