package retrieval

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/resul4e/shapeeval/internal/dataset"
	"github.com/resul4e/shapeeval/internal/pkg/errors"
	"github.com/resul4e/shapeeval/internal/pkg/logger"
)

// Phase names reported to the Observer and used as span names.
const (
	PhaseSweep    = "sweep"
	PhasePerQuery = "per_query"
	PhaseMAP      = "map"
	PhaseTiers    = "tiers"
)

// Observer receives evaluation measurements. internal/metrics provides a
// Prometheus implementation.
type Observer interface {
	ObservePhase(phase string, d time.Duration, err error)
	ObserveQueries(n int)
	ObserveReport(r *Report)
}

type noopObserver struct{}

func (noopObserver) ObservePhase(string, time.Duration, error) {}
func (noopObserver) ObserveQueries(int)                        {}
func (noopObserver) ObserveReport(*Report)                     {}

// Evaluator evaluates one result table against one set of class counts.
// It is safe for concurrent use; all inputs are read-only.
type Evaluator struct {
	table    *dataset.Table
	counts   dataset.ClassCounts
	workers  int
	log      *logger.Logger
	tracer   trace.Tracer
	observer Observer
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithWorkers bounds the number of queries evaluated concurrently.
func WithWorkers(n int) Option {
	return func(e *Evaluator) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(e *Evaluator) {
		if l != nil {
			e.log = l
		}
	}
}

// WithObserver sets the measurement sink.
func WithObserver(o Observer) Option {
	return func(e *Evaluator) {
		if o != nil {
			e.observer = o
		}
	}
}

// New validates the inputs and returns an Evaluator.
//
// Every query and result label must be present in counts, and no query may
// rank more members of its class than the class has. Nothing is computed when
// validation fails.
func New(table *dataset.Table, counts dataset.ClassCounts, opts ...Option) (*Evaluator, error) {
	if table == nil || table.Len() == 0 {
		return nil, errors.ValidationError("no queries to evaluate")
	}

	e := &Evaluator{
		table:    table,
		counts:   counts,
		workers:  1,
		log:      logger.Discard(),
		tracer:   otel.Tracer("github.com/resul4e/shapeeval/internal/retrieval"),
		observer: noopObserver{},
	}
	for _, opt := range opts {
		opt(e)
	}

	if err := e.validate(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Evaluator) validate() error {
	for i, q := range e.table.Queries {
		if err := checkQuery(q, e.counts); err != nil {
			return fmt.Errorf("query %d: %w", i, err)
		}
	}
	return nil
}

// Queries returns the number of queries, which is also the database size.
func (e *Evaluator) Queries() int {
	return e.table.Len()
}

// Statistics returns the mean statistics over all queries at k.
func (e *Evaluator) Statistics(ctx context.Context, k int) (Statistics, error) {
	if err := e.checkK(k); err != nil {
		return Statistics{}, err
	}
	per := make([]Statistics, e.table.Len())
	err := e.forEachQuery(ctx, func(i int, q dataset.QueryResult) error {
		s, err := queryStatistics(q, k, e.counts, e.table.Len())
		per[i] = s
		return err
	})
	if err != nil {
		return Statistics{}, err
	}
	return meanStatistics(per), nil
}

// Sweep returns one row of mean statistics for each k in [minK, maxK].
func (e *Evaluator) Sweep(ctx context.Context, minK, maxK int) (rows []MetricRow, err error) {
	ctx, done := e.phase(ctx, PhaseSweep, attribute.Int("min_k", minK), attribute.Int("max_k", maxK))
	defer func() { done(err) }()

	if minK > maxK {
		return nil, errors.ValidationError(fmt.Sprintf("min k %d exceeds max k %d", minK, maxK))
	}
	if err := e.checkK(minK); err != nil {
		return nil, err
	}
	if err := e.checkK(maxK); err != nil {
		return nil, err
	}

	width := maxK - minK + 1
	total := e.table.Len()
	per := make([][]Statistics, total)
	err = e.forEachQuery(ctx, func(i int, q dataset.QueryResult) error {
		row := make([]Statistics, width)
		for k := minK; k <= maxK; k++ {
			s, err := queryStatistics(q, k, e.counts, total)
			if err != nil {
				return err
			}
			row[k-minK] = s
		}
		per[i] = row
		return nil
	})
	if err != nil {
		return nil, err
	}

	rows = make([]MetricRow, width)
	column := make([]Statistics, total)
	for k := minK; k <= maxK; k++ {
		for i := range per {
			column[i] = per[i][k-minK]
		}
		rows[k-minK] = MetricRow{K: k, Statistics: meanStatistics(column)}
	}
	e.log.Debug("Sweep complete", "min_k", minK, "max_k", maxK, "queries", total)
	return rows, nil
}

// PerQuery returns, for every query, the mean of its statistics over
// k = 1..maxK. Rows are in input order and ModelIndex is the row index.
func (e *Evaluator) PerQuery(ctx context.Context, maxK int) (rows []MetricRow, err error) {
	ctx, done := e.phase(ctx, PhasePerQuery, attribute.Int("max_k", maxK))
	defer func() { done(err) }()

	if err := e.checkK(maxK); err != nil {
		return nil, err
	}

	total := e.table.Len()
	rows = make([]MetricRow, total)
	err = e.forEachQuery(ctx, func(i int, q dataset.QueryResult) error {
		s, err := averageOverK(q, maxK, e.counts, total)
		if err != nil {
			return err
		}
		rows[i] = MetricRow{K: maxK, ModelIndex: i, Label: q.Label, Statistics: s}
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.observer.ObserveQueries(total)
	return rows, nil
}

// MeanAveragePrecision computes per-class and global MAP from per-query rows.
func (e *Evaluator) MeanAveragePrecision(ctx context.Context, rows []MetricRow, decimals int) MAPResult {
	_, done := e.phase(ctx, PhaseMAP, attribute.Int("decimals", decimals))
	result := ComputeMeanAveragePrecision(ClassPrecisions(rows), decimals)
	done(nil)
	return result
}

// TieredRecall returns the mean tier curve of every class, sorted by label.
func (e *Evaluator) TieredRecall(ctx context.Context, numTiers int) (curves []TierCurve, err error) {
	ctx, done := e.phase(ctx, PhaseTiers, attribute.Int("num_tiers", numTiers))
	defer func() { done(err) }()

	if numTiers < 1 {
		return nil, errors.ValidationError(fmt.Sprintf("number of tiers must be positive, got %d", numTiers))
	}
	vectors := make([][]float64, e.table.Len())
	err = e.forEachQuery(ctx, func(i int, q dataset.QueryResult) error {
		v, err := queryTiers(q, e.counts, numTiers)
		vectors[i] = v
		return err
	})
	if err != nil {
		return nil, err
	}
	return aggregateTiers(e.table.Queries, vectors, numTiers), nil
}

// Run computes the sweep, per-query table, MAP and tier curves.
func (e *Evaluator) Run(ctx context.Context, opts RunOptions) (*Report, error) {
	ctx, span := e.tracer.Start(ctx, "Evaluator.Run",
		trace.WithAttributes(
			attribute.String("dataset", opts.Dataset),
			attribute.Int("queries", e.table.Len()),
		))
	defer span.End()

	report := &Report{
		Dataset:   opts.Dataset,
		Queries:   e.table.Len(),
		Classes:   e.counts.Len(),
		StartedAt: time.Now(),
	}
	log := e.log.WithDataset(opts.Dataset)
	log.Info("Evaluation started", "queries", report.Queries, "classes", report.Classes, "workers", e.workers)

	fail := func(err error) (*Report, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.WithError(err).Error("Evaluation failed")
		return nil, err
	}

	var err error
	if report.Sweep, err = e.Sweep(ctx, opts.MinK, opts.MaxK); err != nil {
		return fail(err)
	}
	if report.PerQuery, err = e.PerQuery(ctx, opts.PerQueryMaxK); err != nil {
		return fail(err)
	}
	report.MAP = e.MeanAveragePrecision(ctx, report.PerQuery, opts.MAPDecimals)
	if report.Tiers, err = e.TieredRecall(ctx, opts.NumTiers); err != nil {
		return fail(err)
	}

	report.Duration = time.Since(report.StartedAt)
	e.observer.ObserveReport(report)
	log.Info("Evaluation complete", "global_map", report.MAP.Global, "duration", report.Duration)
	return report, nil
}

func (e *Evaluator) checkK(k int) error {
	if depth := e.table.Depth(); k < 1 || k > depth {
		return errors.ValidationError(fmt.Sprintf("k must be between 1 and %d, got %d", depth, k))
	}
	return nil
}

// forEachQuery runs fn for every query on a bounded pool. fn writes its result
// into a slot indexed by i; callers reduce the slots in order afterwards.
func (e *Evaluator) forEachQuery(ctx context.Context, fn func(i int, q dataset.QueryResult) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, q := range e.table.Queries {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := fn(i, q); err != nil {
				return fmt.Errorf("query %d: %w", i, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	// The parent may have been cancelled before any goroutine looked.
	return ctx.Err()
}

// phase starts a span and returns a completion func that ends it and reports
// the duration to the observer.
func (e *Evaluator) phase(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	ctx, span := e.tracer.Start(ctx, "Evaluator."+name, trace.WithAttributes(attrs...))
	start := time.Now()
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		e.observer.ObservePhase(name, time.Since(start), err)
	}
}
