package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/resul4e/shapeeval/internal/bus"
	"github.com/resul4e/shapeeval/internal/config"
	"github.com/resul4e/shapeeval/internal/history"
	"github.com/resul4e/shapeeval/internal/metrics"
	"github.com/resul4e/shapeeval/internal/retrieval"
)

const (
	eventSource    = "shapeeval"
	publishTimeout = 10 * time.Second
)

func evaluateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Run the full evaluation and write every table",
		Long: `Run the k sweep, per-query statistics, class MAP and tiered recall over
one result table. When configured, the run is published to the event bus,
saved to the run history and exported as a Prometheus textfile.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd,
				bindInt("min-k", func(c *config.Config) *int { return &c.Evaluation.MinK }),
				bindInt("max-k", func(c *config.Config) *int { return &c.Evaluation.MaxK }),
				bindInt("per-query-max-k", func(c *config.Config) *int { return &c.Evaluation.PerQueryMaxK }),
				bindInt("tiers", func(c *config.Config) *int { return &c.Evaluation.NumTiers }),
				bindInt("decimals", func(c *config.Config) *int { return &c.Evaluation.MAPDecimals }),
			)
			if err != nil {
				return err
			}
			return a.evaluate(cmd.Context())
		},
	}

	cmd.Flags().Int("min-k", 1, "smallest k of the sweep")
	cmd.Flags().Int("max-k", 30, "largest k of the sweep")
	cmd.Flags().Int("per-query-max-k", 20, "ranks averaged per query")
	cmd.Flags().Int("tiers", 6, "number of recall tiers")
	cmd.Flags().Int("decimals", 2, "decimals of class MAP")

	return cmd
}

func (a *app) evaluate(ctx context.Context) error {
	log := a.log.WithDataset(a.cfg.Input.Dataset)

	var m *metrics.Metrics
	var obs retrieval.Observer
	var rec bus.MetricsRecorder
	if a.cfg.Metrics.Enabled {
		m = metrics.New()
		obs, rec = m, m
	}

	eb, err := bus.NewBus(a.cfg.Bus, rec, log.WithComponent("bus"))
	if err != nil {
		return err
	}
	if eb != nil {
		defer eb.Close()
		if a.cfg.Bus.Type == "memory" {
			if err := a.logRunEvents(ctx, eb); err != nil {
				return err
			}
		}
	}

	store, err := history.NewStore(a.cfg.History)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	failed := func(err error) error {
		a.publish(ctx, eb, bus.TypeRunFailed, map[string]string{
			"dataset": a.cfg.Input.Dataset,
			"error":   err.Error(),
		})
		return err
	}

	e, err := a.evaluator(obs)
	if err != nil {
		return failed(err)
	}

	report, err := e.Run(ctx, a.runOptions())
	if err != nil {
		return failed(err)
	}

	w, err := a.writer()
	if err != nil {
		return err
	}
	if err := w.WriteReport(report); err != nil {
		return err
	}

	run := history.FromReport(report)
	a.publish(ctx, eb, bus.TypeRunCompleted, run)

	if store != nil {
		if err := store.Save(ctx, run); err != nil {
			log.WithError(err).Warn("Failed to save run history", "run", run.ID)
		}
	}

	if m != nil {
		if err := m.WriteTextfile(a.cfg.Metrics.TextfilePath); err != nil {
			return err
		}
	}

	log.Info("Report written",
		"queries", report.Queries,
		"classes", report.Classes,
		"global_map", report.MAP.Global,
		"duration", report.Duration.Round(time.Millisecond),
	)
	return nil
}

// publish sends an event when a bus is configured. Failures are logged, not
// returned. The event is still sent when ctx was cancelled, so an interrupted
// run announces its failure.
func (a *app) publish(ctx context.Context, eb bus.Bus, eventType string, payload any) {
	if eb == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	topic := bus.Topic(a.cfg.Bus.TopicPrefix, eventType)
	if err := eb.Publish(ctx, topic, bus.NewEvent(eventType, eventSource, payload)); err != nil {
		a.log.WithError(err).Warn("Failed to publish event", "topic", topic)
	}
}

// logRunEvents subscribes a logger to the run topics of an in-process bus,
// so memory-bus events show up in the command's log.
func (a *app) logRunEvents(ctx context.Context, eb bus.Bus) error {
	log := a.log.WithComponent("events")
	for _, eventType := range []string{bus.TypeRunCompleted, bus.TypeRunFailed} {
		topic := bus.Topic(a.cfg.Bus.TopicPrefix, eventType)
		err := eb.Subscribe(ctx, topic, func(_ context.Context, ev bus.Event) error {
			log.Info("Run event", "topic", topic, "type", ev.Type, "event_id", ev.ID)
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}
