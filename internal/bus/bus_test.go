package bus

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestMemoryBus_PublishSubscribe(t *testing.T) {
	bus := NewMemoryBus(nil)
	defer bus.Close()

	var received atomic.Int32
	var wg sync.WaitGroup

	err := bus.Subscribe(context.Background(), "shapeeval.run.completed", func(ctx context.Context, event Event) error {
		received.Add(1)
		wg.Done()
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	wg.Add(3)
	for i := 0; i < 3; i++ {
		err := bus.Publish(context.Background(), "shapeeval.run.completed", NewEvent(TypeRunCompleted, "test", i))
		if err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
	}

	waitOrFail(t, &wg, time.Second)

	if got := received.Load(); got != 3 {
		t.Errorf("Received %d events, want 3", got)
	}
}

func TestMemoryBus_MultipleSubscribers(t *testing.T) {
	bus := NewMemoryBus(nil)
	defer bus.Close()

	var count1, count2 atomic.Int32
	var wg sync.WaitGroup

	bus.Subscribe(context.Background(), "topic", func(ctx context.Context, event Event) error {
		count1.Add(1)
		wg.Done()
		return nil
	})
	bus.Subscribe(context.Background(), "topic", func(ctx context.Context, event Event) error {
		count2.Add(1)
		wg.Done()
		return nil
	})

	wg.Add(2)
	bus.Publish(context.Background(), "topic", Event{ID: "test", Type: "test"})
	waitOrFail(t, &wg, time.Second)

	if count1.Load() != 1 || count2.Load() != 1 {
		t.Errorf("Expected both subscribers to receive 1 event, got %d and %d", count1.Load(), count2.Load())
	}
}

func TestMemoryBus_NoSubscribers(t *testing.T) {
	bus := NewMemoryBus(nil)
	defer bus.Close()

	// Publishing to a topic with no subscribers should not error
	if err := bus.Publish(context.Background(), "empty.topic", Event{ID: "test"}); err != nil {
		t.Errorf("Publish() to empty topic error = %v", err)
	}
}

func TestMemoryBus_Close(t *testing.T) {
	bus := NewMemoryBus(nil)

	if err := bus.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if err := bus.Publish(context.Background(), "test", Event{}); err == nil {
		t.Error("Publish() after Close() should error")
	}
	err := bus.Subscribe(context.Background(), "test", func(ctx context.Context, event Event) error {
		return nil
	})
	if err == nil {
		t.Error("Subscribe() after Close() should error")
	}
}

func TestMemoryBus_CloseDrainsHandlers(t *testing.T) {
	bus := NewMemoryBus(nil)

	var done atomic.Bool
	bus.Subscribe(context.Background(), "slow", func(ctx context.Context, event Event) error {
		time.Sleep(20 * time.Millisecond)
		done.Store(true)
		return nil
	})
	bus.Publish(context.Background(), "slow", Event{ID: "1"})

	if err := bus.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !done.Load() {
		t.Error("Close() returned before the in-flight handler finished")
	}
}

func TestNewEvent(t *testing.T) {
	a := NewEvent(TypeRunCompleted, "shapeeval", map[string]float64{"global_map": 0.5})
	b := NewEvent(TypeRunCompleted, "shapeeval", nil)

	if a.ID == b.ID {
		t.Errorf("NewEvent() produced duplicate id %q", a.ID)
	}
	if !strings.HasPrefix(a.ID, TypeRunCompleted) {
		t.Errorf("ID = %q, want %s prefix", a.ID, TypeRunCompleted)
	}
	if a.Type != TypeRunCompleted || a.Source != "shapeeval" || a.Timestamp == 0 {
		t.Errorf("NewEvent() = %+v", a)
	}
	if got := Topic("shapeeval.", TypeRunFailed); got != "shapeeval.run.failed" {
		t.Errorf("Topic() = %q", got)
	}
}

func waitOrFail(t *testing.T, wg *sync.WaitGroup, timeout time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		t.Fatal("Timeout waiting for events")
	}
}
