package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/resul4e/shapeeval/internal/bus"
	"github.com/resul4e/shapeeval/internal/history"
	apperrors "github.com/resul4e/shapeeval/internal/pkg/errors"
	"github.com/resul4e/shapeeval/internal/report"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past evaluation runs of a dataset",
		Long: `List the runs of --dataset saved by evaluate, oldest first. Runs are read
from the Redis history store; the memory store only lives as long as one
evaluate invocation and has nothing to list.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			since, _ := flags.GetDuration("since")
			limit, _ := flags.GetInt("limit")
			clearRuns, _ := flags.GetBool("clear")
			datasets, _ := flags.GetBool("datasets")

			switch a.cfg.History.Type {
			case "none", "":
				return apperrors.ValidationError("run history is disabled: set history.type to redis")
			case "memory":
				return apperrors.ValidationError(
					"history.type memory keeps runs only within one process: set history.type to redis to list past runs")
			}

			store, err := history.NewStore(a.cfg.History)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			w, err := a.writer()
			if err != nil {
				return err
			}

			if datasets {
				names, err := store.Datasets(ctx)
				if err != nil {
					return err
				}
				return w.WriteTable("datasets", report.DatasetRecords(names))
			}

			if clearRuns {
				if err := store.Delete(ctx, a.cfg.Input.Dataset); err != nil {
					return err
				}
				a.log.Info("Run history cleared", "dataset", a.cfg.Input.Dataset)
				return nil
			}

			var from time.Time
			if since > 0 {
				from = time.Now().Add(-since)
			}
			runs, err := store.List(ctx, a.cfg.Input.Dataset, from, limit)
			if err != nil {
				return err
			}
			return w.WriteTable("history", report.RunRecords(runs))
		},
	}
	cmd.Flags().Duration("since", 0, "only runs started within this window (0 = all)")
	cmd.Flags().Int("limit", 20, "newest runs to show (0 = all)")
	cmd.Flags().Bool("clear", false, "delete every stored run of the dataset")
	cmd.Flags().Bool("datasets", false, "list the datasets with stored runs")
	cmd.MarkFlagsMutuallyExclusive("clear", "datasets")
	return cmd
}

func eventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List events recorded in the bus event log",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			if a.cfg.Bus.EventLog == "" {
				return apperrors.ValidationError("no event log: set bus.event_log")
			}
			since, _ := cmd.Flags().GetDuration("since")
			limit, _ := cmd.Flags().GetInt("limit")

			var from time.Time
			if since > 0 {
				from = time.Now().Add(-since)
			}
			events, err := bus.ReadEvents(a.cfg.Bus.EventLog, from, limit)
			if err != nil {
				return err
			}

			records := make([]report.EventRecord, len(events))
			for i, le := range events {
				records[i] = report.EventRecord{
					Time:  le.Timestamp.UTC().Format(time.RFC3339),
					Topic: le.Topic,
					Type:  le.Event.Type,
					ID:    le.Event.ID,
				}
			}

			w, err := a.writer()
			if err != nil {
				return err
			}
			return w.WriteTable("events", records)
		},
	}
	cmd.Flags().Duration("since", 0, "only events within this window (0 = all)")
	cmd.Flags().Int("limit", 0, "newest events to show (0 = all)")
	return cmd
}
