// Package main provides the shapeeval command, which scores precomputed
// k-nearest-neighbour shape retrieval results.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	apperrors "github.com/resul4e/shapeeval/internal/pkg/errors"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(apperrors.ExitCode(err))
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "shapeeval",
		Short: "Score 3D shape retrieval results",
		Long: `shapeeval evaluates precomputed k-nearest-neighbour query results of a
labelled 3D shape database. Each result row is a query label followed by
the labels of its ranked matches, closest first.

It reports precision, recall, specificity and accuracy over a range of k,
per-query statistics, per-class mean average precision and tiered recall,
compares two result tables of one database and tabulates query timings.

Examples:
  shapeeval evaluate --results knn.csv.zst --dataset psb
  shapeeval sweep --results knn.csv --min-k 1 --max-k 30 --format csv
  shapeeval map --results knn.csv --decimals 3
  shapeeval compare --results knn.csv --against ann.csv
  shapeeval perf perf_knn.csv perf_ann.csv
  shapeeval standardize volume_norm.csv`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.StringP("config", "c", "", "config file path")
	pf.BoolP("verbose", "v", false, "verbose output")
	pf.StringP("format", "f", "", "output format (text, csv, json, yaml)")
	pf.StringP("output", "o", "", "write tables into this directory instead of stdout")
	pf.String("results", "", "query result table (.csv, .csv.gz, .csv.zst)")
	pf.String("class-counts", "", "label,count table (default: count the query column)")
	pf.String("dataset", "", "dataset name used in logs, metrics and history")
	pf.Int("workers", 0, "queries evaluated concurrently")

	rootCmd.AddCommand(
		evaluateCmd(),
		statsCmd(),
		sweepCmd(),
		perQueryCmd(),
		mapCmd(),
		tiersCmd(),
		compareCmd(),
		perfCmd(),
		standardizeCmd(),
		histCmd(),
		historyCmd(),
		eventsCmd(),
		versionCmd(),
	)

	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "shapeeval %s\n", version)
			fmt.Fprintf(out, "  commit: %s\n", commit)
			fmt.Fprintf(out, "  built:  %s\n", date)
		},
	}
}
