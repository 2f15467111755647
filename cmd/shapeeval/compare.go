package main

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/resul4e/shapeeval/internal/config"
	"github.com/resul4e/shapeeval/internal/dataset"
	apperrors "github.com/resul4e/shapeeval/internal/pkg/errors"
	"github.com/resul4e/shapeeval/internal/report"
	"github.com/resul4e/shapeeval/internal/retrieval"
)

func compareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare two result tables of the same database",
		Long: `Evaluate the --results table and the --against table side by side, for
example exact k-NN against approximate nearest-neighbour results. Writes the
two k sweeps in one table and the class and global MAP with their deltas
(against minus results).

Both tables use --class-counts when given; otherwise each counts its own
query column.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd,
				bindInt("min-k", func(c *config.Config) *int { return &c.Evaluation.MinK }),
				bindInt("max-k", func(c *config.Config) *int { return &c.Evaluation.MaxK }),
				bindInt("per-query-max-k", func(c *config.Config) *int { return &c.Evaluation.PerQueryMaxK }),
				bindInt("decimals", func(c *config.Config) *int { return &c.Evaluation.MAPDecimals }),
			)
			if err != nil {
				return err
			}
			against, _ := cmd.Flags().GetString("against")
			if against == "" {
				return apperrors.ValidationError("no table to compare with: pass --against")
			}

			base, err := a.evaluator(nil)
			if err != nil {
				return err
			}
			other, err := a.evaluatorFor(against, nil)
			if err != nil {
				return err
			}

			c, err := retrieval.Compare(cmd.Context(), base, other, a.runOptions())
			if err != nil {
				return err
			}

			w, err := a.writer()
			if err != nil {
				return err
			}
			if err := w.WriteTable("compare_sweep", report.CompareSweepRecords(c)); err != nil {
				return err
			}
			if err := w.WriteTable("compare_map", report.CompareMAPRecords(c)); err != nil {
				return err
			}

			a.log.WithDataset(a.cfg.Input.Dataset).Info("Comparison written",
				"against", against,
				"global_map", c.Global.Base,
				"against_global_map", c.Global.Against,
			)
			return nil
		},
	}

	cmd.Flags().String("against", "", "result table to compare with (.csv, .csv.gz, .csv.zst)")
	cmd.Flags().Int("min-k", 1, "smallest k of the sweep")
	cmd.Flags().Int("max-k", 30, "largest k of the sweep")
	cmd.Flags().Int("per-query-max-k", 20, "ranks averaged per query")
	cmd.Flags().Int("decimals", 2, "decimals of class MAP")

	return cmd
}

func perfCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "perf FILE...",
		Short: "Query time per k from timing tables",
		Long: `Read one or more timing tables (perf_knn.csv, perf_ann.csv, ...) holding the
mean query time in microseconds for k = 1, 2, ... and write them as one
series,k,microseconds table. The series name is the file name without its
extensions and "perf_" prefix.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}

			var records []report.PerfRecord
			for _, path := range args {
				t, err := dataset.LoadTimings(path)
				if err != nil {
					return err
				}
				records = append(records, report.PerfRecords(seriesName(path), t)...)
			}

			w, err := a.writer()
			if err != nil {
				return err
			}
			return w.WriteTable("perf", records)
		},
	}
	return cmd
}

// seriesName turns "runs/perf_ann.csv.zst" into "ann".
func seriesName(path string) string {
	name := filepath.Base(path)
	if i := strings.IndexByte(name, '.'); i > 0 {
		name = name[:i]
	}
	return strings.TrimPrefix(name, "perf_")
}
