package bus

import (
	"testing"
	"time"
)

func TestSubscribeEmitDelivers(t *testing.T) {
	b := New[int]("test", 4)
	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	b.Emit(42)

	select {
	case v := <-sub.C():
		if v != 42 {
			t.Fatalf("got %d, want 42", v)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestEmitFairOutToMultipleSubscribers(t *testing.T) {
	b := New[string]("test", 4)
	a := b.Subscribe()
	c := b.Subscribe()
	defer b.Unsubscribe(a)
	defer b.Unsubscribe(c)

	b.Emit("hello")

	for _, sub := range []*Subscription[string]{a, c} {
		select {
		case v := <-sub.C():
			if v != "hello" {
				t.Fatalf("got %q, want %q", v, "hello")
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestEmitDropsOnFullQueue(t *testing.T) {
	b := New[int]("test", 1)
	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	b.Emit(1) // fills the queue
	b.Emit(2) // must be dropped, not block

	v := <-sub.C()
	if v != 1 {
		t.Fatalf("got %d, want 1 (oldest undropped item)", v)
	}
	select {
	case <-sub.C():
		t.Fatal("expected no further items, the second emit should have been dropped")
	default:
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New[int]("test", 4)
	sub := b.Subscribe()
	b.Unsubscribe(sub)

	b.Emit(1)

	select {
	case v, ok := <-sub.C():
		if ok {
			t.Fatalf("got %d after unsubscribe, want no delivery", v)
		}
	default:
	}
}

func TestSubscriberCount(t *testing.T) {
	b := New[int]("test", 4)
	if b.SubscriberCount() != 0 {
		t.Fatalf("expected 0 subscribers initially")
	}
	sub := b.Subscribe()
	if b.SubscriberCount() != 1 {
		t.Fatalf("expected 1 subscriber after Subscribe")
	}
	b.Unsubscribe(sub)
	if b.SubscriberCount() != 0 {
		t.Fatalf("expected 0 subscribers after Unsubscribe")
	}
}
