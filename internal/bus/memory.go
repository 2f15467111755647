package bus

import (
	"context"
	"sync"
	"time"

	"github.com/resul4e/shapeeval/internal/pkg/errors"
	"github.com/resul4e/shapeeval/internal/pkg/logger"
)

// defaultDrain bounds how long Close waits for running handlers.
const defaultDrain = 10 * time.Second

// MemoryBus delivers events to in-process subscribers. Each handler call runs
// on its own goroutine with a context that outlives the publisher's, so a
// run.failed event sent after cancellation still reaches its subscribers.
type MemoryBus struct {
	mu       sync.RWMutex
	topics   map[string][]Handler
	closed   bool
	running  sync.WaitGroup
	drainFor time.Duration
	log      *logger.Logger
}

func NewMemoryBus(log *logger.Logger) *MemoryBus {
	if log == nil {
		log = logger.Discard()
	}
	return &MemoryBus{
		topics:   make(map[string][]Handler),
		drainFor: defaultDrain,
		log:      log,
	}
}

func (b *MemoryBus) Publish(ctx context.Context, topic string, event Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return errors.ServiceUnavailableError("memory bus")
	}

	hctx := context.WithoutCancel(ctx)
	for _, h := range b.topics[topic] {
		b.running.Add(1)
		go func() {
			defer b.running.Done()
			if err := h(hctx, event); err != nil {
				b.log.WithError(err).Warn("Subscriber failed", "topic", topic, "event_id", event.ID)
			}
		}()
	}
	return nil
}

func (b *MemoryBus) Subscribe(_ context.Context, topic string, handler Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return errors.ServiceUnavailableError("memory bus")
	}
	b.topics[topic] = append(b.topics[topic], handler)
	return nil
}

// Close stops accepting events and waits for running handlers.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.topics = nil
	b.mu.Unlock()

	if !b.DrainTimeout(b.drainFor) {
		b.log.Warn("Memory bus closed with handlers still running", "waited", b.drainFor)
	}
	return nil
}

// DrainTimeout waits up to timeout for running handlers and reports whether
// they all finished.
func (b *MemoryBus) DrainTimeout(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		b.running.Wait()
		close(done)
	}()

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-done:
		return true
	case <-t.C:
		return false
	}
}
