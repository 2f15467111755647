package features

import (
	"fmt"
	"math"
	"sort"

	"github.com/resul4e/shapeeval/internal/pkg/errors"
)

// Histogram counts values into fixed bins. Edges has one more entry than
// Counts; bin i is [Edges[i], Edges[i+1]) except the last, which also holds
// its right edge. Values outside the edges are counted in Below and Above and
// NaN values in NaN.
type Histogram struct {
	Edges  []float64 `json:"edges" yaml:"edges"`
	Counts []int     `json:"counts" yaml:"counts"`
	Below  int       `json:"below" yaml:"below"`
	Above  int       `json:"above" yaml:"above"`
	NaN    int       `json:"nan" yaml:"nan"`
}

// Total returns the number of binned values.
func (h Histogram) Total() int {
	n := 0
	for _, c := range h.Counts {
		n += c
	}
	return n
}

// Linspace returns n evenly spaced values from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{lo}
	}
	step := (hi - lo) / float64(n-1)
	out := make([]float64, n)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	out[n-1] = hi
	return out
}

// NewHistogram bins values with edges = Linspace(lo, hi, edges).
func NewHistogram(values []float64, lo, hi float64, edges int) (Histogram, error) {
	if edges < 2 {
		return Histogram{}, errors.ValidationError(fmt.Sprintf("a histogram needs at least 2 edges, got %d", edges))
	}
	if !(lo < hi) {
		return Histogram{}, errors.ValidationError(fmt.Sprintf("histogram range [%v, %v] is empty", lo, hi))
	}
	return HistogramWithEdges(values, Linspace(lo, hi, edges)), nil
}

// HistogramWithEdges bins values with the given ascending edges.
func HistogramWithEdges(values, edges []float64) Histogram {
	h := Histogram{
		Edges:  edges,
		Counts: make([]int, len(edges)-1),
	}
	last := len(edges) - 1
	for _, v := range values {
		switch {
		case math.IsNaN(v):
			h.NaN++
		case v < edges[0]:
			h.Below++
		case v > edges[last]:
			h.Above++
		default:
			i := sort.SearchFloat64s(edges, v)
			// Values on an edge open the bin to its right, except the
			// final edge.
			if i == last || edges[i] != v {
				i--
			}
			h.Counts[i]++
		}
	}
	return h
}

// Preset is a named histogram range used for a standard diagnostic.
type Preset struct {
	Lo, Hi float64
	Edges  int
}

// Presets are the ranges used for the standard diagnostic plots.
var Presets = map[string]Preset{
	"standardized": {Lo: -3, Hi: 3, Edges: 35},
	"barycenter":   {Lo: 0, Hi: 1, Edges: 30},
	"alignment":    {Lo: 0, Hi: 1, Edges: 30},
	"scale":        {Lo: 0.9, Hi: 1.1, Edges: 10},
}

// LookupPreset returns the named preset.
func LookupPreset(name string) (Preset, error) {
	p, ok := Presets[name]
	if !ok {
		return Preset{}, errors.NotFoundError(fmt.Sprintf("histogram preset %q", name))
	}
	return p, nil
}
