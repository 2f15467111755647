package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"

	apperrors "github.com/resul4e/shapeeval/internal/pkg/errors"
)

func TestNewKafkaBus_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  KafkaConfig
	}{
		{
			name: "empty brokers",
			cfg:  KafkaConfig{},
		},
		{
			name: "invalid kafka version",
			cfg: KafkaConfig{
				Brokers: []string{"localhost:9092"},
				Version: "invalid",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewKafkaBus(tt.cfg)
			if !apperrors.IsValidation(err) {
				t.Errorf("NewKafkaBus() error = %v, want validation error", err)
			}
		})
	}
}

func TestNewSaramaConfig_Defaults(t *testing.T) {
	cfg, err := NewSaramaConfig(KafkaConfig{Brokers: []string{"localhost:9092"}})
	if err != nil {
		t.Fatalf("NewSaramaConfig() error = %v", err)
	}
	if cfg.ClientID != "shapeeval" {
		t.Errorf("ClientID = %q, want shapeeval", cfg.ClientID)
	}
	if cfg.Version != sarama.V2_8_0_0 {
		t.Errorf("Version = %v, want 2.8.0", cfg.Version)
	}
	if !cfg.Producer.Return.Successes {
		t.Error("sync producer requires Return.Successes")
	}
	if cfg.Producer.RequiredAcks != sarama.WaitForAll {
		t.Errorf("RequiredAcks = %v, want WaitForAll", cfg.Producer.RequiredAcks)
	}
}

func TestKafkaBus_Publish(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	bus := NewKafkaBusWithProducer(producer)

	event := NewEvent(TypeRunCompleted, "shapeeval", map[string]any{"dataset": "psb"})

	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var got Event
		if err := json.Unmarshal(val, &got); err != nil {
			return err
		}
		if got.ID != event.ID || got.Type != TypeRunCompleted {
			return fmt.Errorf("unexpected event %+v", got)
		}
		return nil
	})

	if err := bus.Publish(context.Background(), "shapeeval.run.completed", event); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if err := bus.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

func TestKafkaBus_PublishFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	bus := NewKafkaBusWithProducer(producer)
	defer bus.Close()

	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	err := bus.Publish(context.Background(), "topic", NewEvent(TypeRunFailed, "shapeeval", nil))
	if err == nil {
		t.Fatal("Publish() should fail")
	}
	if apperrors.ExitCode(err) != apperrors.ExitUnavailable {
		t.Errorf("ExitCode() = %d, want %d", apperrors.ExitCode(err), apperrors.ExitUnavailable)
	}
	if !errors.Is(err, sarama.ErrOutOfBrokers) {
		t.Errorf("Publish() error = %v, want to wrap ErrOutOfBrokers", err)
	}
}

func TestKafkaBus_Closed(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	bus := NewKafkaBusWithProducer(producer)

	if err := bus.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	// Second close is a no-op.
	if err := bus.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if err := bus.Publish(context.Background(), "topic", Event{ID: "x"}); err == nil {
		t.Error("Publish() after Close() should error")
	}
}

func TestKafkaBus_SubscribeUnsupported(t *testing.T) {
	bus := NewKafkaBusWithProducer(mocks.NewSyncProducer(t, nil))
	defer bus.Close()

	err := bus.Subscribe(context.Background(), "topic", func(context.Context, Event) error { return nil })
	if err == nil {
		t.Error("Subscribe() should be rejected")
	}
}
