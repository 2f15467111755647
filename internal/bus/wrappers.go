package bus

import (
	"context"
	"math"
	"time"

	"golang.org/x/time/rate"

	"github.com/resul4e/shapeeval/internal/pkg/errors"
	"github.com/resul4e/shapeeval/internal/pkg/logger"
)

// MetricsRecorder receives one call per publish. internal/metrics implements
// it; the interface keeps this package free of Prometheus.
type MetricsRecorder interface {
	RecordBusPublish(topic string, d time.Duration, err error)
}

// passthrough forwards Subscribe and Close to the wrapped bus. Wrappers embed
// it and override Publish.
type passthrough struct {
	inner Bus
}

func (p passthrough) Subscribe(ctx context.Context, topic string, handler Handler) error {
	return p.inner.Subscribe(ctx, topic, handler)
}

func (p passthrough) Close() error {
	return p.inner.Close()
}

// InstrumentedBus reports publish latency and failures.
type InstrumentedBus struct {
	passthrough
	metrics MetricsRecorder
}

func NewInstrumentedBus(inner Bus, metrics MetricsRecorder) *InstrumentedBus {
	return &InstrumentedBus{passthrough: passthrough{inner}, metrics: metrics}
}

func (b *InstrumentedBus) Publish(ctx context.Context, topic string, event Event) error {
	start := time.Now()
	err := b.inner.Publish(ctx, topic, event)
	b.metrics.RecordBusPublish(topic, time.Since(start), err)
	return err
}

// LoggedBus appends every successfully published event to an event log, so
// `shapeeval events` can list what a run announced.
type LoggedBus struct {
	passthrough
	events *EventLogger
	log    *logger.Logger
}

func NewLoggedBus(inner Bus, events *EventLogger, log *logger.Logger) *LoggedBus {
	if log == nil {
		log = logger.Discard()
	}
	return &LoggedBus{passthrough: passthrough{inner}, events: events, log: log}
}

// Publish publishes, then records the event. A failed log write is only
// warned about; the event has already gone out.
func (b *LoggedBus) Publish(ctx context.Context, topic string, event Event) error {
	if err := b.inner.Publish(ctx, topic, event); err != nil {
		return err
	}
	if err := b.events.Log(topic, event); err != nil {
		b.log.WithError(err).Warn("Event not written to log",
			"topic", topic,
			"event_id", event.ID,
			"path", b.events.Path(),
		)
	}
	return nil
}

// Close closes the inner bus and then the event log.
func (b *LoggedBus) Close() error {
	err := b.inner.Close()
	if lerr := b.events.Close(); lerr != nil && err == nil {
		err = lerr
	}
	return err
}

// RateLimitedBus throttles publishes. Publish blocks until the limiter admits
// the event or ctx is done.
type RateLimitedBus struct {
	passthrough
	limiter *rate.Limiter
}

// NewRateLimitedBus allows eventsPerSecond publishes with a burst of
// ceil(eventsPerSecond), at least one.
func NewRateLimitedBus(inner Bus, eventsPerSecond float64) *RateLimitedBus {
	burst := max(int(math.Ceil(eventsPerSecond)), 1)
	return &RateLimitedBus{
		passthrough: passthrough{inner},
		limiter:     rate.NewLimiter(rate.Limit(eventsPerSecond), burst),
	}
}

func (b *RateLimitedBus) Publish(ctx context.Context, topic string, event Event) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return errors.TimeoutError("waiting for bus rate limit", err)
	}
	return b.inner.Publish(ctx, topic, event)
}
