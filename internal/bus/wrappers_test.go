package bus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	apperrors "github.com/resul4e/shapeeval/internal/pkg/errors"
)

type recordingBus struct {
	mu        sync.Mutex
	published []string
	closed    bool
	err       error
}

func (b *recordingBus) Publish(_ context.Context, topic string, event Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, topic+"/"+event.ID)
	return b.err
}

func (b *recordingBus) Subscribe(context.Context, string, Handler) error { return nil }

func (b *recordingBus) Close() error {
	b.closed = true
	return nil
}

type recordingMetrics struct {
	topics []string
	errs   int
}

func (m *recordingMetrics) RecordBusPublish(topic string, _ time.Duration, err error) {
	m.topics = append(m.topics, topic)
	if err != nil {
		m.errs++
	}
}

func TestRateLimitedBus_Throttles(t *testing.T) {
	inner := &recordingBus{}
	bus := NewRateLimitedBus(inner, 20) // burst 20, then one every 50ms

	start := time.Now()
	for i := 0; i < 22; i++ {
		if err := bus.Publish(context.Background(), "t", Event{ID: "e"}); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("22 publishes at 20/s took %v, want at least ~100ms", elapsed)
	}
	if len(inner.published) != 22 {
		t.Errorf("published %d events, want 22", len(inner.published))
	}
}

func TestRateLimitedBus_ContextCancelled(t *testing.T) {
	inner := &recordingBus{}
	bus := NewRateLimitedBus(inner, 0.001) // burst of one

	if err := bus.Publish(context.Background(), "t", Event{ID: "first"}); err != nil {
		t.Fatalf("first Publish() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := bus.Publish(ctx, "t", Event{ID: "second"})
	if err == nil {
		t.Error("Publish() should fail when the limiter cannot admit before the deadline")
	} else if got := apperrors.ExitCode(err); got != apperrors.ExitUnavailable {
		t.Errorf("ExitCode(%v) = %d, want %d", err, got, apperrors.ExitUnavailable)
	}
	if len(inner.published) != 1 {
		t.Errorf("published %d events, want 1", len(inner.published))
	}

	bus.Close()
	if !inner.closed {
		t.Error("Close() did not close the inner bus")
	}
}

func TestInstrumentedBus(t *testing.T) {
	inner := &recordingBus{}
	m := &recordingMetrics{}
	bus := NewInstrumentedBus(inner, m)

	bus.Publish(context.Background(), "ok", Event{ID: "1"})
	inner.err = errors.New("down")
	bus.Publish(context.Background(), "bad", Event{ID: "2"})

	if len(m.topics) != 2 || m.topics[0] != "ok" || m.topics[1] != "bad" {
		t.Errorf("recorded topics = %v", m.topics)
	}
	if m.errs != 1 {
		t.Errorf("recorded %d errors, want 1", m.errs)
	}
}
