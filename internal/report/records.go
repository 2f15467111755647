package report

import (
	"time"

	"github.com/resul4e/shapeeval/internal/dataset"
	"github.com/resul4e/shapeeval/internal/features"
	"github.com/resul4e/shapeeval/internal/history"
	"github.com/resul4e/shapeeval/internal/retrieval"
)

// SweepRecord is one row of the precision/recall sweep.
type SweepRecord struct {
	K           int     `csv:"k" json:"k" yaml:"k"`
	Precision   float64 `csv:"precision" json:"precision" yaml:"precision"`
	Recall      float64 `csv:"recall" json:"recall" yaml:"recall"`
	Specificity float64 `csv:"specificity" json:"specificity" yaml:"specificity"`
	Accuracy    float64 `csv:"accuracy" json:"accuracy" yaml:"accuracy"`
}

// PerQueryRecord is one query's statistics averaged over k.
type PerQueryRecord struct {
	ModelIndex  int     `csv:"model_index" json:"model_index" yaml:"model_index"`
	Label       string  `csv:"label" json:"label" yaml:"label"`
	Precision   float64 `csv:"precision" json:"precision" yaml:"precision"`
	Recall      float64 `csv:"recall" json:"recall" yaml:"recall"`
	Specificity float64 `csv:"specificity" json:"specificity" yaml:"specificity"`
	Accuracy    float64 `csv:"accuracy" json:"accuracy" yaml:"accuracy"`
}

// ClassMAPRecord is one class's mean average precision.
type ClassMAPRecord struct {
	Label   string  `csv:"label" json:"label" yaml:"label"`
	MAP     float64 `csv:"map" json:"map" yaml:"map"`
	Queries int     `csv:"queries" json:"queries" yaml:"queries"`
}

// TierRecord is one tier of one class curve.
type TierRecord struct {
	Label      string  `csv:"label" json:"label" yaml:"label"`
	Tier       int     `csv:"tier" json:"tier" yaml:"tier"`
	Quality    float64 `csv:"quality" json:"quality" yaml:"quality"`
	Cumulative float64 `csv:"cumulative" json:"cumulative" yaml:"cumulative"`
}

// SummaryRecord describes a whole run.
type SummaryRecord struct {
	Dataset   string  `csv:"dataset" json:"dataset" yaml:"dataset"`
	Queries   int     `csv:"queries" json:"queries" yaml:"queries"`
	Classes   int     `csv:"classes" json:"classes" yaml:"classes"`
	GlobalMAP float64 `csv:"global_map" json:"global_map" yaml:"global_map"`
	StartedAt string  `csv:"started_at" json:"started_at" yaml:"started_at"`
	Duration  string  `csv:"duration" json:"duration" yaml:"duration"`
}

// GlobalMAPRecord is the database-wide mean average precision.
type GlobalMAPRecord struct {
	Dataset   string  `csv:"dataset" json:"dataset" yaml:"dataset"`
	Queries   int     `csv:"queries" json:"queries" yaml:"queries"`
	GlobalMAP float64 `csv:"global_map" json:"global_map" yaml:"global_map"`
}

// EventRecord is one logged bus event.
type EventRecord struct {
	Time  string `csv:"time" json:"time" yaml:"time"`
	Topic string `csv:"topic" json:"topic" yaml:"topic"`
	Type  string `csv:"type" json:"type" yaml:"type"`
	ID    string `csv:"id" json:"id" yaml:"id"`
}

// CompareSweepRecord puts the statistics of two result tables at one k side
// by side.
type CompareSweepRecord struct {
	K                  int     `csv:"k" json:"k" yaml:"k"`
	Precision          float64 `csv:"precision" json:"precision" yaml:"precision"`
	AgainstPrecision   float64 `csv:"against_precision" json:"against_precision" yaml:"against_precision"`
	Recall             float64 `csv:"recall" json:"recall" yaml:"recall"`
	AgainstRecall      float64 `csv:"against_recall" json:"against_recall" yaml:"against_recall"`
	Specificity        float64 `csv:"specificity" json:"specificity" yaml:"specificity"`
	AgainstSpecificity float64 `csv:"against_specificity" json:"against_specificity" yaml:"against_specificity"`
	Accuracy           float64 `csv:"accuracy" json:"accuracy" yaml:"accuracy"`
	AgainstAccuracy    float64 `csv:"against_accuracy" json:"against_accuracy" yaml:"against_accuracy"`
}

// CompareMAPRecord is one class's MAP in both tables. The global row has an
// empty label and scope "global".
type CompareMAPRecord struct {
	Scope          string  `csv:"scope" json:"scope" yaml:"scope"`
	Label          string  `csv:"label" json:"label" yaml:"label"`
	MAP            float64 `csv:"map" json:"map" yaml:"map"`
	AgainstMAP     float64 `csv:"against_map" json:"against_map" yaml:"against_map"`
	Delta          float64 `csv:"delta" json:"delta" yaml:"delta"`
	Queries        int     `csv:"queries" json:"queries" yaml:"queries"`
	AgainstQueries int     `csv:"against_queries" json:"against_queries" yaml:"against_queries"`
}

// PerfRecord is the mean query time of one series at one k.
type PerfRecord struct {
	Series       string  `csv:"series" json:"series" yaml:"series"`
	K            int     `csv:"k" json:"k" yaml:"k"`
	Microseconds float64 `csv:"microseconds" json:"microseconds" yaml:"microseconds"`
}

// DatasetRecord names a dataset with stored runs.
type DatasetRecord struct {
	Dataset string `csv:"dataset" json:"dataset" yaml:"dataset"`
}

// HistogramRecord is one histogram bin.
type HistogramRecord struct {
	Series string  `csv:"series" json:"series" yaml:"series"`
	Lo     float64 `csv:"lo" json:"lo" yaml:"lo"`
	Hi     float64 `csv:"hi" json:"hi" yaml:"hi"`
	Count  int     `csv:"count" json:"count" yaml:"count"`
}

// ValueRecord is one standardised feature value.
type ValueRecord struct {
	Index int     `csv:"index" json:"index" yaml:"index"`
	Value float64 `csv:"value" json:"value" yaml:"value"`
}

// SweepRecords flattens sweep rows.
func SweepRecords(rows []retrieval.MetricRow) []SweepRecord {
	out := make([]SweepRecord, len(rows))
	for i, r := range rows {
		out[i] = SweepRecord{
			K:           r.K,
			Precision:   r.Precision,
			Recall:      r.Recall,
			Specificity: r.Specificity,
			Accuracy:    r.Accuracy,
		}
	}
	return out
}

// PerQueryRecords flattens per-query rows.
func PerQueryRecords(rows []retrieval.MetricRow) []PerQueryRecord {
	out := make([]PerQueryRecord, len(rows))
	for i, r := range rows {
		out[i] = PerQueryRecord{
			ModelIndex:  r.ModelIndex,
			Label:       r.Label,
			Precision:   r.Precision,
			Recall:      r.Recall,
			Specificity: r.Specificity,
			Accuracy:    r.Accuracy,
		}
	}
	return out
}

// ClassMAPRecords flattens per-class MAP in its sorted order.
func ClassMAPRecords(m retrieval.MAPResult) []ClassMAPRecord {
	out := make([]ClassMAPRecord, len(m.PerClass))
	for i, cp := range m.PerClass {
		out[i] = ClassMAPRecord{Label: cp.Label, MAP: cp.MAP, Queries: cp.Queries}
	}
	return out
}

// TierRecords flattens tier curves, one record per class and tier. Tiers are
// numbered from 1.
func TierRecords(curves []retrieval.TierCurve) []TierRecord {
	var out []TierRecord
	for _, c := range curves {
		cum := c.Cumulative()
		for t, q := range c.Tiers {
			out = append(out, TierRecord{Label: c.Label, Tier: t + 1, Quality: q, Cumulative: cum[t]})
		}
	}
	return out
}

// SummaryRecords describes a report as a one-row table.
func SummaryRecords(r *retrieval.Report) []SummaryRecord {
	return []SummaryRecord{{
		Dataset:   r.Dataset,
		Queries:   r.Queries,
		Classes:   r.Classes,
		GlobalMAP: r.MAP.Global,
		StartedAt: r.StartedAt.UTC().Format(time.RFC3339),
		Duration:  r.Duration.Round(time.Millisecond).String(),
	}}
}

// RunRecords describes stored runs, oldest first.
func RunRecords(runs []history.Run) []SummaryRecord {
	out := make([]SummaryRecord, len(runs))
	for i, r := range runs {
		out[i] = SummaryRecord{
			Dataset:   r.Dataset,
			Queries:   r.Queries,
			Classes:   r.Classes,
			GlobalMAP: r.GlobalMAP,
			StartedAt: r.StartedAt.UTC().Format(time.RFC3339),
			Duration:  r.Duration.Round(time.Millisecond).String(),
		}
	}
	return out
}

// CompareSweepRecords flattens a comparison sweep.
func CompareSweepRecords(c *retrieval.Comparison) []CompareSweepRecord {
	out := make([]CompareSweepRecord, len(c.Sweep))
	for i, p := range c.Sweep {
		out[i] = CompareSweepRecord{
			K:                  p.K,
			Precision:          p.Base.Precision,
			AgainstPrecision:   p.Against.Precision,
			Recall:             p.Base.Recall,
			AgainstRecall:      p.Against.Recall,
			Specificity:        p.Base.Specificity,
			AgainstSpecificity: p.Against.Specificity,
			Accuracy:           p.Base.Accuracy,
			AgainstAccuracy:    p.Against.Accuracy,
		}
	}
	return out
}

// CompareMAPRecords lists the class deltas by label, then the global row.
func CompareMAPRecords(c *retrieval.Comparison) []CompareMAPRecord {
	row := func(scope string, d retrieval.MAPDelta) CompareMAPRecord {
		return CompareMAPRecord{
			Scope:          scope,
			Label:          d.Label,
			MAP:            d.Base,
			AgainstMAP:     d.Against,
			Delta:          d.Delta,
			Queries:        d.BaseQueries,
			AgainstQueries: d.AgainstQueries,
		}
	}
	out := make([]CompareMAPRecord, 0, len(c.MAP)+1)
	for _, d := range c.MAP {
		out = append(out, row("class", d))
	}
	return append(out, row("global", c.Global))
}

// PerfRecords numbers a timing table from k = 1.
func PerfRecords(series string, t dataset.Timings) []PerfRecord {
	out := make([]PerfRecord, len(t))
	for i, us := range t {
		out[i] = PerfRecord{Series: series, K: i + 1, Microseconds: us}
	}
	return out
}

// DatasetRecords wraps dataset names.
func DatasetRecords(names []string) []DatasetRecord {
	out := make([]DatasetRecord, len(names))
	for i, n := range names {
		out[i] = DatasetRecord{Dataset: n}
	}
	return out
}

// HistogramRecords flattens a histogram, one record per bin.
func HistogramRecords(series string, h features.Histogram) []HistogramRecord {
	out := make([]HistogramRecord, len(h.Counts))
	for i, c := range h.Counts {
		out[i] = HistogramRecord{Series: series, Lo: h.Edges[i], Hi: h.Edges[i+1], Count: c}
	}
	return out
}

// ValueRecords numbers values from 0.
func ValueRecords(values []float64) []ValueRecord {
	out := make([]ValueRecord, len(values))
	for i, v := range values {
		out[i] = ValueRecord{Index: i, Value: v}
	}
	return out
}
