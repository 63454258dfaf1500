package summarizer

import (
	"testing"
	"time"

	"github.com/echohq/echo/internal/events"
)

func toolEvent(tool, path string) events.RawEvent {
	return events.RawEvent{ID: "evt", ToolName: tool, ToolInput: map[string]any{"file_path": path}}
}

func TestBatcherFlushesAtMaxSize(t *testing.T) {
	b := NewEventBatcher()
	var last *events.Narration
	for i := 0; i < MaxBatchSize-1; i++ {
		if n := b.Add(toolEvent("Edit", "/a.ts")); n != nil {
			t.Fatalf("unexpected early flush at event %d", i)
		}
	}
	last = b.Add(toolEvent("Edit", "/z.ts"))
	if last == nil {
		t.Fatal("expected synchronous flush at MaxBatchSize")
	}
	if b.HasPending() {
		t.Fatal("expected empty batch after max-size flush")
	}
}

func TestBatcherFlushesOnTimer(t *testing.T) {
	b := NewEventBatcher()
	flushed := make(chan events.Narration, 1)
	b.SetFlushCallback(func(n events.Narration) { flushed <- n })

	b.Add(toolEvent("Edit", "/a.ts"))
	b.Add(toolEvent("Edit", "/b.ts"))

	select {
	case n := <-flushed:
		if n.Text != "Edited 2 files." {
			t.Fatalf("got %q", n.Text)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for timer flush")
	}
	if b.HasPending() {
		t.Fatal("expected empty batch after timer flush")
	}
}

func TestBatcherExplicitFlushOnEmptyIsNoop(t *testing.T) {
	b := NewEventBatcher()
	if n := b.Flush(); n != nil {
		t.Fatalf("expected nil flush on empty batch, got %v", n)
	}
}

func TestBatcherExplicitFlushCancelsTimer(t *testing.T) {
	b := NewEventBatcher()
	flushed := make(chan events.Narration, 1)
	b.SetFlushCallback(func(n events.Narration) { flushed <- n })

	b.Add(toolEvent("Read", "/a.ts"))
	n := b.Flush()
	if n == nil {
		t.Fatal("expected flush to return the pending narration")
	}

	select {
	case <-flushed:
		t.Fatal("timer callback fired after explicit flush cancelled it")
	case <-time.After(600 * time.Millisecond):
	}
}
