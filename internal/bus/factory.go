package bus

import (
	"fmt"
	"strings"

	"github.com/resul4e/shapeeval/internal/config"
	"github.com/resul4e/shapeeval/internal/pkg/errors"
	"github.com/resul4e/shapeeval/internal/pkg/logger"
)

// NewBus creates a Bus based on the configuration, wrapped with the event log,
// metrics and rate limit when configured. It returns nil, nil when the bus is
// disabled. metrics may be nil.
func NewBus(cfg config.BusConfig, metrics MetricsRecorder, log *logger.Logger) (Bus, error) {
	var b Bus
	switch strings.ToLower(cfg.Type) {
	case "none", "":
		return nil, nil

	case "memory":
		b = NewMemoryBus(log)

	case "kafka":
		brokers := cfg.KafkaBrokerList()
		if len(brokers) == 0 {
			return nil, errors.New(errors.CodeValidation, "kafka brokers not configured")
		}
		kb, err := NewKafkaBus(KafkaConfig{
			Brokers:  brokers,
			ClientID: cfg.KafkaClientID,
			Version:  cfg.KafkaVersion,
		})
		if err != nil {
			return nil, err
		}
		b = kb

	default:
		return nil, errors.New(errors.CodeValidation, fmt.Sprintf("unknown bus type: %s", cfg.Type))
	}

	if cfg.EventLog != "" {
		el, err := NewEventLogger(cfg.EventLog)
		if err != nil {
			b.Close()
			return nil, err
		}
		b = NewLoggedBus(b, el, log)
	}
	if metrics != nil {
		b = NewInstrumentedBus(b, metrics)
	}
	if cfg.RateLimit > 0 {
		b = NewRateLimitedBus(b, cfg.RateLimit)
	}
	return b, nil
}
