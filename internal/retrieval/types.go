package retrieval

import "time"

// ConfusionCounts are the confusion-matrix counts of one query at one k.
type ConfusionCounts struct {
	TP int `json:"tp"`
	FP int `json:"fp"`
	FN int `json:"fn"`
	TN int `json:"tn"`
}

// Statistics are the retrieval-quality metrics derived from confusion counts,
// or their mean over a set of queries.
type Statistics struct {
	Precision   float64 `json:"precision" yaml:"precision"`
	Recall      float64 `json:"recall" yaml:"recall"`
	Specificity float64 `json:"specificity" yaml:"specificity"`
	Accuracy    float64 `json:"accuracy" yaml:"accuracy"`
}

// MetricRow is one row of a metric table. Sweep rows carry K; per-query rows
// carry ModelIndex and Label, and K is the largest k averaged over.
type MetricRow struct {
	K          int    `json:"k" yaml:"k"`
	ModelIndex int    `json:"model_index" yaml:"model_index"`
	Label      string `json:"label,omitempty" yaml:"label,omitempty"`
	Statistics `yaml:",inline"`
}

// ClassPrecision is the mean average precision of one class.
type ClassPrecision struct {
	Label   string  `json:"label" yaml:"label"`
	MAP     float64 `json:"map" yaml:"map"`
	Queries int     `json:"queries" yaml:"queries"`
}

// MAPResult holds per-class and global mean average precision.
//
// PerClass is sorted by descending MAP, ties by ascending label. Global is the
// mean precision over every query in the database, so large classes weigh
// more than small ones.
type MAPResult struct {
	PerClass []ClassPrecision `json:"per_class" yaml:"per_class"`
	Global   float64          `json:"global" yaml:"global"`
	Decimals int              `json:"decimals" yaml:"decimals"`
}

// AsMap returns the per-class MAP keyed by label.
func (r MAPResult) AsMap() map[string]float64 {
	m := make(map[string]float64, len(r.PerClass))
	for _, cp := range r.PerClass {
		m[cp.Label] = cp.MAP
	}
	return m
}

// TierCurve is the mean tier quality of one class.
type TierCurve struct {
	Label   string    `json:"label" yaml:"label"`
	Queries int       `json:"queries" yaml:"queries"`
	Tiers   []float64 `json:"tiers" yaml:"tiers"`
}

// Cumulative returns the prefix sums of the tier vector: the fraction of the
// class recovered within the first t+1 tiers.
func (c TierCurve) Cumulative() []float64 {
	return Cumulative(c.Tiers)
}

// Cumulative prefix-sums a tier vector.
func Cumulative(tiers []float64) []float64 {
	out := make([]float64, len(tiers))
	var sum float64
	for i, v := range tiers {
		sum += v
		out[i] = sum
	}
	return out
}

// RunOptions selects what Run computes.
type RunOptions struct {
	Dataset      string
	MinK         int
	MaxK         int
	PerQueryMaxK int
	NumTiers     int
	MAPDecimals  int
}

// Report is the result of a full evaluation run.
type Report struct {
	Dataset   string        `json:"dataset" yaml:"dataset"`
	Queries   int           `json:"queries" yaml:"queries"`
	Classes   int           `json:"classes" yaml:"classes"`
	Sweep     []MetricRow   `json:"sweep" yaml:"sweep"`
	PerQuery  []MetricRow   `json:"per_query" yaml:"per_query"`
	MAP       MAPResult     `json:"map" yaml:"map"`
	Tiers     []TierCurve   `json:"tiers" yaml:"tiers"`
	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
}
