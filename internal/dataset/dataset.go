// Package dataset loads the precomputed nearest-neighbour result tables that
// the retrieval evaluator consumes.
//
// A result table has one row per query shape: the query's class label followed
// by the labels of the retrieved shapes in ascending distance order. A class
// count table maps each label to the number of shapes of that class in the
// database, the query included.
package dataset

import (
	"sort"

	"github.com/resul4e/shapeeval/internal/pkg/errors"
)

// QueryResult is one row of a result table.
type QueryResult struct {
	Label  string
	Ranked []string
}

// Table is a parsed result table. It is not modified after parsing.
type Table struct {
	Queries []QueryResult
}

// Len returns the number of queries, which is also the database size.
func (t *Table) Len() int {
	return len(t.Queries)
}

// Depth returns the number of ranked results per query.
func (t *Table) Depth() int {
	if len(t.Queries) == 0 {
		return 0
	}
	return len(t.Queries[0].Ranked)
}

// ClassCounts is an immutable label -> class size mapping.
type ClassCounts struct {
	counts map[string]int
	total  int
}

// NewClassCounts copies counts into a ClassCounts. Every count must be at least 1.
func NewClassCounts(counts map[string]int) (ClassCounts, error) {
	cc := ClassCounts{counts: make(map[string]int, len(counts))}
	for label, n := range counts {
		if label == "" {
			return ClassCounts{}, errors.ValidationError("class counts contain an empty label")
		}
		if n < 1 {
			return ClassCounts{}, errors.ValidationError("class count must be at least 1").
				WithDetail("label", label)
		}
		cc.counts[label] = n
		cc.total += n
	}
	return cc, nil
}

// CountClasses builds class counts from the query label column in a single
// group-by pass.
func CountClasses(t *Table) ClassCounts {
	cc := ClassCounts{counts: make(map[string]int)}
	for _, q := range t.Queries {
		cc.counts[q.Label]++
		cc.total++
	}
	return cc
}

// Count returns the class size of label, or a NOT_FOUND error.
func (c ClassCounts) Count(label string) (int, error) {
	n, ok := c.counts[label]
	if !ok {
		return 0, errors.LabelNotFoundError(label)
	}
	return n, nil
}

// Has reports whether label is known.
func (c ClassCounts) Has(label string) bool {
	_, ok := c.counts[label]
	return ok
}

// Labels returns all labels in ascending order.
func (c ClassCounts) Labels() []string {
	labels := make([]string, 0, len(c.counts))
	for l := range c.counts {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}

// Len returns the number of classes.
func (c ClassCounts) Len() int {
	return len(c.counts)
}

// Total returns the sum of all class sizes.
func (c ClassCounts) Total() int {
	return c.total
}
