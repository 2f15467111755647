package retrieval

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"
)

// SweepPair holds the statistics of two result tables at one k.
type SweepPair struct {
	K       int        `json:"k" yaml:"k"`
	Base    Statistics `json:"base" yaml:"base"`
	Against Statistics `json:"against" yaml:"against"`
}

// MAPDelta compares the MAP of one class across two result tables. A class
// that only one table queries has zero MAP and zero queries on the other side.
type MAPDelta struct {
	Label          string  `json:"label" yaml:"label"`
	Base           float64 `json:"base" yaml:"base"`
	Against        float64 `json:"against" yaml:"against"`
	Delta          float64 `json:"delta" yaml:"delta"`
	BaseQueries    int     `json:"base_queries" yaml:"base_queries"`
	AgainstQueries int     `json:"against_queries" yaml:"against_queries"`
}

// Comparison is the side-by-side evaluation of two result tables of the same
// database, typically exact k-NN against an approximate index.
type Comparison struct {
	Sweep  []SweepPair `json:"sweep" yaml:"sweep"`
	MAP    []MAPDelta  `json:"map" yaml:"map"`
	Global MAPDelta    `json:"global" yaml:"global"`
}

type side struct {
	sweep []MetricRow
	mapr  MAPResult
}

// Compare runs the sweep and MAP of both evaluators with the same options.
// Delta is against minus base, rounded like the class MAP. Classes are sorted
// by label.
func Compare(ctx context.Context, base, against *Evaluator, opts RunOptions) (*Comparison, error) {
	var a, b side
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		a, err = base.side(gctx, opts)
		return err
	})
	g.Go(func() (err error) {
		b, err = against.side(gctx, opts)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	c := &Comparison{Sweep: make([]SweepPair, len(a.sweep))}
	for i := range a.sweep {
		c.Sweep[i] = SweepPair{K: a.sweep[i].K, Base: a.sweep[i].Statistics, Against: b.sweep[i].Statistics}
	}

	byLabel := make(map[string]*MAPDelta)
	entry := func(label string) *MAPDelta {
		d, ok := byLabel[label]
		if !ok {
			d = &MAPDelta{Label: label}
			byLabel[label] = d
		}
		return d
	}
	for _, cp := range a.mapr.PerClass {
		d := entry(cp.Label)
		d.Base, d.BaseQueries = cp.MAP, cp.Queries
	}
	for _, cp := range b.mapr.PerClass {
		d := entry(cp.Label)
		d.Against, d.AgainstQueries = cp.MAP, cp.Queries
	}
	for _, d := range byLabel {
		d.Delta = roundTo(d.Against-d.Base, opts.MAPDecimals)
		c.MAP = append(c.MAP, *d)
	}
	sort.Slice(c.MAP, func(i, j int) bool { return c.MAP[i].Label < c.MAP[j].Label })

	c.Global = MAPDelta{
		Base:           a.mapr.Global,
		Against:        b.mapr.Global,
		Delta:          b.mapr.Global - a.mapr.Global,
		BaseQueries:    base.Queries(),
		AgainstQueries: against.Queries(),
	}
	return c, nil
}

func (e *Evaluator) side(ctx context.Context, opts RunOptions) (side, error) {
	sweep, err := e.Sweep(ctx, opts.MinK, opts.MaxK)
	if err != nil {
		return side{}, err
	}
	rows, err := e.PerQuery(ctx, opts.PerQueryMaxK)
	if err != nil {
		return side{}, err
	}
	return side{sweep: sweep, mapr: e.MeanAveragePrecision(ctx, rows, opts.MAPDecimals)}, nil
}
