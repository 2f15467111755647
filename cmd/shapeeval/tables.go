package main

import (
	"github.com/spf13/cobra"

	"github.com/resul4e/shapeeval/internal/config"
	"github.com/resul4e/shapeeval/internal/report"
	"github.com/resul4e/shapeeval/internal/retrieval"
)

func statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Mean statistics at one k",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			k, _ := cmd.Flags().GetInt("k")

			e, err := a.evaluator(nil)
			if err != nil {
				return err
			}
			s, err := e.Statistics(cmd.Context(), k)
			if err != nil {
				return err
			}
			w, err := a.writer()
			if err != nil {
				return err
			}
			return w.WriteTable("stats", report.SweepRecords([]retrieval.MetricRow{{K: k, Statistics: s}}))
		},
	}
	cmd.Flags().IntP("k", "k", 10, "number of ranked results")
	return cmd
}

func sweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Mean statistics for every k in a range",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd,
				bindInt("min-k", func(c *config.Config) *int { return &c.Evaluation.MinK }),
				bindInt("max-k", func(c *config.Config) *int { return &c.Evaluation.MaxK }),
			)
			if err != nil {
				return err
			}
			e, err := a.evaluator(nil)
			if err != nil {
				return err
			}
			rows, err := e.Sweep(cmd.Context(), a.cfg.Evaluation.MinK, a.cfg.Evaluation.MaxK)
			if err != nil {
				return err
			}
			w, err := a.writer()
			if err != nil {
				return err
			}
			return w.WriteTable(report.TableSweep, report.SweepRecords(rows))
		},
	}
	cmd.Flags().Int("min-k", 1, "smallest k")
	cmd.Flags().Int("max-k", 30, "largest k")
	return cmd
}

func perQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "per-query",
		Short: "Statistics of each query averaged over k = 1..max-k",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd,
				bindInt("max-k", func(c *config.Config) *int { return &c.Evaluation.PerQueryMaxK }),
			)
			if err != nil {
				return err
			}
			e, err := a.evaluator(nil)
			if err != nil {
				return err
			}
			rows, err := e.PerQuery(cmd.Context(), a.cfg.Evaluation.PerQueryMaxK)
			if err != nil {
				return err
			}
			w, err := a.writer()
			if err != nil {
				return err
			}
			return w.WriteTable(report.TablePerQuery, report.PerQueryRecords(rows))
		},
	}
	cmd.Flags().Int("max-k", 20, "ranks averaged per query")
	return cmd
}

func mapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "map",
		Short: "Mean average precision per class and over the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd,
				bindInt("max-k", func(c *config.Config) *int { return &c.Evaluation.PerQueryMaxK }),
				bindInt("decimals", func(c *config.Config) *int { return &c.Evaluation.MAPDecimals }),
			)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			e, err := a.evaluator(nil)
			if err != nil {
				return err
			}
			rows, err := e.PerQuery(ctx, a.cfg.Evaluation.PerQueryMaxK)
			if err != nil {
				return err
			}
			m := e.MeanAveragePrecision(ctx, rows, a.cfg.Evaluation.MAPDecimals)

			w, err := a.writer()
			if err != nil {
				return err
			}
			if err := w.WriteTable(report.TableMAP, report.ClassMAPRecords(m)); err != nil {
				return err
			}
			return w.WriteTable("global_map", []report.GlobalMAPRecord{{
				Dataset:   a.cfg.Input.Dataset,
				Queries:   len(rows),
				GlobalMAP: m.Global,
			}})
		},
	}
	cmd.Flags().Int("max-k", 20, "ranks averaged per query")
	cmd.Flags().Int("decimals", 2, "decimals of class MAP")
	return cmd
}

func tiersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tiers",
		Short: "Tiered recall curve of each class",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd,
				bindInt("tiers", func(c *config.Config) *int { return &c.Evaluation.NumTiers }),
			)
			if err != nil {
				return err
			}
			e, err := a.evaluator(nil)
			if err != nil {
				return err
			}
			curves, err := e.TieredRecall(cmd.Context(), a.cfg.Evaluation.NumTiers)
			if err != nil {
				return err
			}
			w, err := a.writer()
			if err != nil {
				return err
			}
			return w.WriteTable(report.TableTiers, report.TierRecords(curves))
		},
	}
	cmd.Flags().Int("tiers", 6, "number of tiers")
	return cmd
}
