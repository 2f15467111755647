package retrieval

import (
	"math"
	"sort"
)

// ComputeMeanAveragePrecision aggregates per-query precision grouped by class.
//
// Per-class values are rounded to decimals. Global is the unrounded mean over
// all queries (micro average), not the mean of the class means. Values are
// summed in sorted order, so the result is bit-identical for any permutation
// of the input queries.
func ComputeMeanAveragePrecision(classToPrecisions map[string][]float64, decimals int) MAPResult {
	result := MAPResult{
		PerClass: make([]ClassPrecision, 0, len(classToPrecisions)),
		Decimals: decimals,
	}

	var all []float64
	for label, precisions := range classToPrecisions {
		if len(precisions) == 0 {
			continue
		}
		result.PerClass = append(result.PerClass, ClassPrecision{
			Label:   label,
			MAP:     roundTo(orderedMean(precisions), decimals),
			Queries: len(precisions),
		})
		all = append(all, precisions...)
	}
	result.Global = orderedMean(all)

	sort.Slice(result.PerClass, func(i, j int) bool {
		a, b := result.PerClass[i], result.PerClass[j]
		if a.MAP != b.MAP {
			return a.MAP > b.MAP
		}
		return a.Label < b.Label
	})
	return result
}

// ClassPrecisions groups the precision column of per-query rows by label,
// keeping row order within a class.
func ClassPrecisions(rows []MetricRow) map[string][]float64 {
	out := make(map[string][]float64)
	for _, r := range rows {
		out[r.Label] = append(out[r.Label], r.Precision)
	}
	return out
}

func orderedMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	return sum / float64(len(sorted))
}

func roundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
