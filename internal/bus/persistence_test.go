package bus

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestEventLogger(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "nested", "events.log")

	el, err := NewEventLogger(logPath)
	if err != nil {
		t.Fatalf("NewEventLogger failed: %v", err)
	}

	for _, id := range []string{"a", "b", "c"} {
		if err := el.Log("shapeeval.run.completed", Event{ID: id, Type: TypeRunCompleted}); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}
	if err := el.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := el.Log("topic", Event{ID: "late"}); err == nil {
		t.Error("Log after Close should fail")
	}

	events, err := ReadEvents(logPath, time.Time{}, 0)
	if err != nil {
		t.Fatalf("ReadEvents failed: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].Event.ID != "a" || events[2].Topic != "shapeeval.run.completed" {
		t.Errorf("unexpected events %+v", events)
	}

	limited, _ := ReadEvents(logPath, time.Time{}, 2)
	if len(limited) != 2 || limited[0].Event.ID != "b" || limited[1].Event.ID != "c" {
		t.Errorf("limit 2 = %+v, want the newest two events b and c", limited)
	}

	future, _ := ReadEvents(logPath, time.Now().Add(time.Hour), 0)
	if len(future) != 0 {
		t.Errorf("since in the future returned %d events", len(future))
	}
}

func TestEventLogger_AppendsAcrossOpens(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "events.log")

	for i := 0; i < 2; i++ {
		el, err := NewEventLogger(logPath)
		if err != nil {
			t.Fatalf("NewEventLogger failed: %v", err)
		}
		el.Log("topic", Event{ID: "e"})
		el.Close()
	}

	events, _ := ReadEvents(logPath, time.Time{}, 0)
	if len(events) != 2 {
		t.Errorf("expected 2 events after reopening, got %d", len(events))
	}
}

func TestReadEvents_SkipsMalformedAndMissing(t *testing.T) {
	dir := t.TempDir()

	events, err := ReadEvents(filepath.Join(dir, "missing.log"), time.Time{}, 0)
	if err != nil || len(events) != 0 {
		t.Errorf("missing file = %v, %v; want empty, nil", events, err)
	}

	logPath := filepath.Join(dir, "events.log")
	content := "not json\n" +
		`{"event":{"id":"ok","type":"run.completed"},"topic":"t","timestamp":"2024-01-01T00:00:00Z"}` + "\n"
	if err := os.WriteFile(logPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	events, err = ReadEvents(logPath, time.Time{}, 0)
	if err != nil {
		t.Fatalf("ReadEvents failed: %v", err)
	}
	if len(events) != 1 || events[0].Event.ID != "ok" {
		t.Errorf("events = %+v", events)
	}
}

func TestLoggedBus(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "events.log")
	el, err := NewEventLogger(logPath)
	if err != nil {
		t.Fatalf("NewEventLogger failed: %v", err)
	}

	inner := NewMemoryBus(nil)
	bus := NewLoggedBus(inner, el, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	bus.Subscribe(context.Background(), "topic", func(ctx context.Context, event Event) error {
		wg.Done()
		return nil
	})

	if err := bus.Publish(context.Background(), "topic", Event{ID: "logged"}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	waitOrFail(t, &wg, time.Second)

	if err := bus.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	events, _ := ReadEvents(logPath, time.Time{}, 0)
	if len(events) != 1 || events[0].Event.ID != "logged" {
		t.Errorf("events = %+v", events)
	}
}
