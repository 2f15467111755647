package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/resul4e/shapeeval/internal/config"
	"github.com/resul4e/shapeeval/internal/dataset"
	apperrors "github.com/resul4e/shapeeval/internal/pkg/errors"
	"github.com/resul4e/shapeeval/internal/pkg/logger"
	"github.com/resul4e/shapeeval/internal/report"
	"github.com/resul4e/shapeeval/internal/retrieval"
)

// app carries the resolved configuration of one command invocation.
type app struct {
	cfg *config.Config
	log *logger.Logger
	out io.Writer
}

// intFlag binds a command flag to an integer config field.
type intFlag struct {
	name string
	dst  func(*config.Config) *int
}

func bindInt(name string, dst func(*config.Config) *int) intFlag {
	return intFlag{name: name, dst: dst}
}

// newApp loads the config file and environment, then applies the global flags
// and binds on top. A flag only overrides when it was set.
func newApp(cmd *cobra.Command, binds ...intFlag) (*app, error) {
	flags := cmd.Flags()
	configPath, _ := flags.GetString("config")

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeValidation, "failed to load config", err)
	}

	if v, _ := flags.GetBool("verbose"); v {
		cfg.Log.Level = "debug"
	}
	setString(cmd, "format", &cfg.Output.Format)
	setString(cmd, "output", &cfg.Output.Dir)
	setString(cmd, "results", &cfg.Input.ResultsPath)
	setString(cmd, "class-counts", &cfg.Input.ClassCountsPath)
	setString(cmd, "dataset", &cfg.Input.Dataset)
	setInt(cmd, "workers", &cfg.Evaluation.Workers)
	for _, b := range binds {
		setInt(cmd, b.name, b.dst(cfg))
	}

	if err := cfg.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeValidation, "invalid flags", err)
	}

	return &app{
		cfg: cfg,
		log: logger.NewWithWriter(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format),
		out: cmd.OutOrStdout(),
	}, nil
}

func setString(cmd *cobra.Command, name string, dst *string) {
	if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
		*dst = f.Value.String()
	}
}

func setInt(cmd *cobra.Command, name string, dst *int) {
	if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
		if v, err := cmd.Flags().GetInt(name); err == nil {
			*dst = v
		}
	}
}

// loadInputs reads a result table and its class counts: the configured
// class-count table, or the table's own query column.
func (a *app) loadInputs(resultsPath string) (*dataset.Table, dataset.ClassCounts, error) {
	in := a.cfg.Input
	if resultsPath == "" {
		return nil, dataset.ClassCounts{}, apperrors.ValidationError("no result table: pass --results or set input.results")
	}

	table, err := dataset.LoadResults(resultsPath)
	if err != nil {
		return nil, dataset.ClassCounts{}, err
	}

	counts := dataset.CountClasses(table)
	if in.ClassCountsPath != "" {
		if counts, err = dataset.LoadClassCounts(in.ClassCountsPath); err != nil {
			return nil, dataset.ClassCounts{}, err
		}
	}

	a.log.Debug("Loaded inputs",
		"results", resultsPath,
		"queries", table.Len(),
		"depth", table.Depth(),
		"classes", counts.Len(),
	)
	return table, counts, nil
}

// evaluator builds an evaluator over the configured result table. obs may be nil.
func (a *app) evaluator(obs retrieval.Observer) (*retrieval.Evaluator, error) {
	return a.evaluatorFor(a.cfg.Input.ResultsPath, obs)
}

func (a *app) evaluatorFor(resultsPath string, obs retrieval.Observer) (*retrieval.Evaluator, error) {
	table, counts, err := a.loadInputs(resultsPath)
	if err != nil {
		return nil, err
	}
	opts := []retrieval.Option{
		retrieval.WithWorkers(a.cfg.Evaluation.Workers),
		retrieval.WithLogger(a.log.WithComponent("retrieval")),
	}
	if obs != nil {
		opts = append(opts, retrieval.WithObserver(obs))
	}
	return retrieval.New(table, counts, opts...)
}

func (a *app) runOptions() retrieval.RunOptions {
	ev := a.cfg.Evaluation
	return retrieval.RunOptions{
		Dataset:      a.cfg.Input.Dataset,
		MinK:         ev.MinK,
		MaxK:         ev.MaxK,
		PerQueryMaxK: ev.PerQueryMaxK,
		NumTiers:     ev.NumTiers,
		MAPDecimals:  ev.MAPDecimals,
	}
}

func (a *app) writer() (*report.Writer, error) {
	return report.NewWriter(a.cfg.Output.Format, a.cfg.Output.Dir, a.out)
}
