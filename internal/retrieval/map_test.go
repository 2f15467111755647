package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeMeanAveragePrecision(t *testing.T) {
	result := ComputeMeanAveragePrecision(map[string][]float64{
		"plant": {0.2, 0.4},
		"human": {0.9, 0.7, 0.8},
		"chair": {0.8},
		"bird":  {0.8},
	}, 2)

	labels := make([]string, len(result.PerClass))
	for i, cp := range result.PerClass {
		labels[i] = cp.Label
	}
	// human, bird and chair all round to 0.8; ties break by label.
	assert.Equal(t, []string{"bird", "chair", "human", "plant"}, labels)
	assert.Equal(t, 0.3, result.PerClass[3].MAP)
	assert.Equal(t, 3, result.PerClass[2].Queries)

	// Micro average over all seven queries, not the mean of class means.
	assert.InDelta(t, (0.2+0.4+0.9+0.7+0.8+0.8+0.8)/7, result.Global, 1e-12)
	assert.Equal(t, 2, result.Decimals)
}

func TestComputeMeanAveragePrecision_Rounding(t *testing.T) {
	result := ComputeMeanAveragePrecision(map[string][]float64{
		"a": {1.0 / 3},
	}, 3)
	assert.Equal(t, 0.333, result.PerClass[0].MAP)
	assert.InDelta(t, 1.0/3, result.Global, 1e-15)

	result = ComputeMeanAveragePrecision(map[string][]float64{"a": {0.875}}, 2)
	assert.Equal(t, 0.88, result.PerClass[0].MAP)
}

func TestComputeMeanAveragePrecision_Empty(t *testing.T) {
	result := ComputeMeanAveragePrecision(map[string][]float64{"a": nil}, 2)
	assert.Empty(t, result.PerClass)
	assert.Equal(t, 0.0, result.Global)
}

func TestClassPrecisions(t *testing.T) {
	rows := []MetricRow{
		{Label: "cat", Statistics: Statistics{Precision: 0.5}},
		{Label: "dog", Statistics: Statistics{Precision: 1}},
		{Label: "cat", Statistics: Statistics{Precision: 0.25}},
	}
	got := ClassPrecisions(rows)
	assert.Equal(t, []float64{0.5, 0.25}, got["cat"])
	assert.Equal(t, []float64{1}, got["dog"])
}

func TestMAPResult_AsMap(t *testing.T) {
	r := MAPResult{PerClass: []ClassPrecision{{Label: "cat", MAP: 0.5}, {Label: "dog", MAP: 0.25}}}
	assert.Equal(t, map[string]float64{"cat": 0.5, "dog": 0.25}, r.AsMap())
}
