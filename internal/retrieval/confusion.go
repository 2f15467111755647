// Package retrieval computes retrieval-quality metrics over k-nearest-neighbour
// query results: confusion counts, precision, recall, specificity and accuracy
// per k, mean average precision per class, and tiered recall curves.
//
// Every function here is pure. The Evaluator adds a bounded worker pool,
// tracing and metrics around the same computations.
package retrieval

import (
	"fmt"

	"github.com/resul4e/shapeeval/internal/dataset"
	"github.com/resul4e/shapeeval/internal/pkg/errors"
)

// ComputeConfusion computes the confusion counts of one query at k.
//
// TP is the number of the first k ranked labels equal to the query label,
// FP = k - TP, FN = class size - TP and TN = totalShapes - FP.
func ComputeConfusion(query string, ranked []string, k int, counts dataset.ClassCounts, totalShapes int) (ConfusionCounts, error) {
	if k < 1 || k > len(ranked) {
		return ConfusionCounts{}, errors.ValidationError(
			fmt.Sprintf("k must be between 1 and %d, got %d", len(ranked), k))
	}
	classSize, err := counts.Count(query)
	if err != nil {
		return ConfusionCounts{}, err
	}

	correct := 0
	for _, label := range ranked[:k] {
		if label == query {
			correct++
		}
	}

	cc := ConfusionCounts{
		TP: correct,
		FP: k - correct,
		FN: classSize - correct,
		TN: totalShapes - (k - correct),
	}
	if cc.FN < 0 {
		return ConfusionCounts{}, errors.ValidationError(
			fmt.Sprintf("class %q has %d members but %d matches in the top %d", query, classSize, correct, k)).
			WithDetail("label", query)
	}
	return cc, nil
}

// Statistics derives the metrics of one query.
//
// Recall is defined as 1 when TP+FN is 0 and specificity as 1 when FP+TN is 0,
// so no NaN reaches an aggregate.
func (c ConfusionCounts) Statistics(totalShapes int) Statistics {
	var s Statistics
	if n := c.TP + c.FP; n > 0 {
		s.Precision = float64(c.TP) / float64(n)
	}
	if n := c.TP + c.FN; n > 0 {
		s.Recall = float64(c.TP) / float64(n)
	} else {
		s.Recall = 1
	}
	if n := c.FP + c.TN; n > 0 {
		s.Specificity = float64(c.TN) / float64(n)
	} else {
		s.Specificity = 1
	}
	if totalShapes > 0 {
		s.Accuracy = float64(c.TP+c.TN) / float64(totalShapes)
	}
	return s
}

// ComputeStatistics returns the mean statistics over all queries at k.
// The database size is the number of queries.
func ComputeStatistics(queries []dataset.QueryResult, k int, counts dataset.ClassCounts) (Statistics, error) {
	if len(queries) == 0 {
		return Statistics{}, errors.ValidationError("no queries to evaluate")
	}
	per := make([]Statistics, len(queries))
	for i, q := range queries {
		if err := checkQuery(q, counts); err != nil {
			return Statistics{}, fmt.Errorf("query %d: %w", i, err)
		}
		s, err := queryStatistics(q, k, counts, len(queries))
		if err != nil {
			return Statistics{}, fmt.Errorf("query %d: %w", i, err)
		}
		per[i] = s
	}
	return meanStatistics(per), nil
}

// checkQuery verifies that every ranked label is a known class and that the
// query's class has at least as many members as the list ranks.
func checkQuery(q dataset.QueryResult, counts dataset.ClassCounts) error {
	n, err := counts.Count(q.Label)
	if err != nil {
		return err
	}
	matches := 0
	for _, label := range q.Ranked {
		if label == q.Label {
			matches++
			continue
		}
		if !counts.Has(label) {
			return errors.LabelNotFoundError(label)
		}
	}
	if matches > n {
		return errors.ValidationError(
			fmt.Sprintf("class %q has %d members but %d are ranked", q.Label, n, matches)).
			WithDetail("label", q.Label)
	}
	return nil
}

func queryStatistics(q dataset.QueryResult, k int, counts dataset.ClassCounts, totalShapes int) (Statistics, error) {
	cc, err := ComputeConfusion(q.Label, q.Ranked, k, counts, totalShapes)
	if err != nil {
		return Statistics{}, err
	}
	return cc.Statistics(totalShapes), nil
}

// averageOverK is the mean of a query's statistics over k = 1..maxK.
func averageOverK(q dataset.QueryResult, maxK int, counts dataset.ClassCounts, totalShapes int) (Statistics, error) {
	per := make([]Statistics, 0, maxK)
	for k := 1; k <= maxK; k++ {
		s, err := queryStatistics(q, k, counts, totalShapes)
		if err != nil {
			return Statistics{}, err
		}
		per = append(per, s)
	}
	return meanStatistics(per), nil
}

// meanStatistics sums in slice order; callers pass slices in query order so
// the result does not depend on scheduling.
func meanStatistics(per []Statistics) Statistics {
	if len(per) == 0 {
		return Statistics{}
	}
	var sum Statistics
	for _, s := range per {
		sum.Precision += s.Precision
		sum.Recall += s.Recall
		sum.Specificity += s.Specificity
		sum.Accuracy += s.Accuracy
	}
	n := float64(len(per))
	return Statistics{
		Precision:   sum.Precision / n,
		Recall:      sum.Recall / n,
		Specificity: sum.Specificity / n,
		Accuracy:    sum.Accuracy / n,
	}
}
