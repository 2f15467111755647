package retrieval

import (
	"fmt"
	"sort"

	"github.com/resul4e/shapeeval/internal/dataset"
	"github.com/resul4e/shapeeval/internal/pkg/errors"
)

// DefaultNumTiers is the number of tiers reported when none is configured.
const DefaultNumTiers = 6

// ComputeTieredRecall returns, per class, the mean tier-quality vector of all
// queries of that class.
//
// For a query whose class has n members, tier t is the rank window
// [t*n, (t+1)*n) and its quality is the number of same-class labels in the
// window divided by n. Windows running past the ranked list are truncated.
// Every query contributes to its class mean, including a class's only query.
// Unknown labels and queries ranking more class members than the class has
// are rejected before anything is computed.
func ComputeTieredRecall(queries []dataset.QueryResult, counts dataset.ClassCounts, numTiers int) (map[string][]float64, error) {
	if numTiers < 1 {
		return nil, errors.ValidationError(fmt.Sprintf("number of tiers must be positive, got %d", numTiers))
	}
	vectors := make([][]float64, len(queries))
	for i, q := range queries {
		if err := checkQuery(q, counts); err != nil {
			return nil, fmt.Errorf("query %d: %w", i, err)
		}
		v, err := queryTiers(q, counts, numTiers)
		if err != nil {
			return nil, fmt.Errorf("query %d: %w", i, err)
		}
		vectors[i] = v
	}

	out := make(map[string][]float64)
	for _, c := range aggregateTiers(queries, vectors, numTiers) {
		out[c.Label] = c.Tiers
	}
	return out, nil
}

func queryTiers(q dataset.QueryResult, counts dataset.ClassCounts, numTiers int) ([]float64, error) {
	n, err := counts.Count(q.Label)
	if err != nil {
		return nil, err
	}

	quality := make([]float64, numTiers)
	for t := range quality {
		start := t * n
		if start >= len(q.Ranked) {
			break
		}
		end := min(start+n, len(q.Ranked))

		matches := 0
		for _, label := range q.Ranked[start:end] {
			if label == q.Label {
				matches++
			}
		}
		quality[t] = float64(matches) / float64(n)
	}
	return quality, nil
}

// aggregateTiers averages per-query vectors by class. Vectors are summed in
// query order and the curves are returned sorted by label.
func aggregateTiers(queries []dataset.QueryResult, vectors [][]float64, numTiers int) []TierCurve {
	byLabel := make(map[string]*TierCurve)
	for i, q := range queries {
		c, ok := byLabel[q.Label]
		if !ok {
			c = &TierCurve{Label: q.Label, Tiers: make([]float64, numTiers)}
			byLabel[q.Label] = c
		}
		for t, v := range vectors[i] {
			c.Tiers[t] += v
		}
		c.Queries++
	}

	curves := make([]TierCurve, 0, len(byLabel))
	for _, c := range byLabel {
		for t := range c.Tiers {
			c.Tiers[t] /= float64(c.Queries)
		}
		curves = append(curves, *c)
	}
	sort.Slice(curves, func(i, j int) bool { return curves[i].Label < curves[j].Label })
	return curves
}
