package summarizer

import (
	"log"
	"sync"
	"time"

	"github.com/echohq/echo/internal/events"
)

// BatchWindow is the open-window duration for accumulating tool_executed
// events before a timer-triggered flush.
const BatchWindow = 500 * time.Millisecond

// MaxBatchSize is the hard cap on batch size before a synchronous flush.
const MaxBatchSize = 10

// EventBatcher collapses rapid consecutive tool_executed events into a
// single Narration. It is a single-writer accumulator: Add and Flush must
// be called from the same goroutine (the Summarizer's consume loop).
type EventBatcher struct {
	mu            sync.Mutex
	batch         []events.RawEvent
	timer         *time.Timer
	flushCallback func(events.Narration)
}

// NewEventBatcher constructs an empty batcher.
func NewEventBatcher() *EventBatcher {
	return &EventBatcher{}
}

// SetFlushCallback sets the callback invoked when a batch flushes on timer
// expiry (as opposed to an explicit Flush call or a max-size flush).
func (b *EventBatcher) SetFlushCallback(cb func(events.Narration)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flushCallback = cb
}

// Add appends a tool_executed event to the batch. It returns a non-nil
// Narration immediately if the batch reached MaxBatchSize and was flushed
// synchronously; otherwise it returns nil and the batch will flush later,
// on timer expiry or an explicit Flush.
func (b *EventBatcher) Add(e events.RawEvent) *events.Narration {
	b.mu.Lock()

	b.batch = append(b.batch, e)
	if len(b.batch) >= MaxBatchSize {
		narration := b.flushLocked()
		b.mu.Unlock()
		return narration
	}

	if len(b.batch) == 1 {
		b.scheduleFlushLocked()
	}
	b.mu.Unlock()
	return nil
}

// Flush force-flushes the current batch, cancelling any pending timer.
// Returns nil if the batch was empty.
func (b *EventBatcher) Flush() *events.Narration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.flushLocked()
}

// HasPending reports whether there are events waiting in the batch.
func (b *EventBatcher) HasPending() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.batch) > 0
}

func (b *EventBatcher) flushLocked() *events.Narration {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	if len(b.batch) == 0 {
		return nil
	}
	batch := b.batch
	b.batch = nil

	n := renderBatchNarration(batch)
	return &n
}

func (b *EventBatcher) scheduleFlushLocked() {
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(BatchWindow, b.timerFlush)
}

func (b *EventBatcher) timerFlush() {
	narration := b.Flush()
	if narration == nil {
		return
	}
	b.mu.Lock()
	cb := b.flushCallback
	b.mu.Unlock()
	if cb == nil {
		return
	}
	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("summarizer: batcher flush callback panicked: %v", r)
			}
		}()
		cb(*narration)
	}()
}

func renderBatchNarration(batch []events.RawEvent) events.Narration {
	last := batch[len(batch)-1]
	return events.Narration{
		Text:          renderBatch(batch),
		Priority:      events.PriorityNormal,
		SourceKind:    events.KindToolExecuted,
		SessionID:     last.SessionID,
		SourceEventID: last.ID,
		Method:        events.MethodTemplate,
	}
}
