package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resul4e/shapeeval/internal/pkg/errors"
)

const smallTable = `cat,cat,dog,cat,dog
dog,dog,cat,dog,cat
cat,dog,cat,cat,dog
`

func TestParseResults(t *testing.T) {
	table, err := ParseResults(strings.NewReader(smallTable))
	require.NoError(t, err)

	assert.Equal(t, 3, table.Len())
	assert.Equal(t, 4, table.Depth())
	assert.Equal(t, "cat", table.Queries[0].Label)
	assert.Equal(t, []string{"cat", "dog", "cat", "dog"}, table.Queries[0].Ranked)
	assert.Equal(t, "dog", table.Queries[1].Label)
}

func TestParseResults_TrimsWhitespace(t *testing.T) {
	table, err := ParseResults(strings.NewReader("cat , cat,dog \n"))
	require.NoError(t, err)
	assert.Equal(t, "cat", table.Queries[0].Label)
	assert.Equal(t, []string{"cat", "dog"}, table.Queries[0].Ranked)
}

func TestParseResults_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantRow string
	}{
		{
			name:    "missing label",
			input:   "cat,cat,dog\n,dog,cat\n",
			wantRow: "2",
		},
		{
			name:    "ragged row",
			input:   "cat,cat,dog\ndog,dog\n",
			wantRow: "2",
		},
		{
			name:    "no results",
			input:   "cat\n",
			wantRow: "1",
		},
		{
			name:    "empty result label",
			input:   "cat,cat,dog\ndog,cat,,dog\n",
			wantRow: "2",
		},
		{
			name:    "bare quote",
			input:   "cat,cat,dog\ndog,ca\"t,dog\n",
			wantRow: "2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := ParseResults(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Nil(t, table, "no partial table on error")
			assert.True(t, errors.IsInvalidInput(err), "want INVALID_INPUT, got %v", err)

			var appErr *errors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.wantRow, appErr.Details["row"])
		})
	}
}

func TestParseResults_Empty(t *testing.T) {
	_, err := ParseResults(strings.NewReader("\n\n"))
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestCountClasses(t *testing.T) {
	table, err := ParseResults(strings.NewReader(smallTable))
	require.NoError(t, err)

	cc := CountClasses(table)
	assert.Equal(t, 2, cc.Len())
	assert.Equal(t, 3, cc.Total())
	assert.Equal(t, []string{"cat", "dog"}, cc.Labels())

	n, err := cc.Count("cat")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = cc.Count("plant")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	assert.False(t, cc.Has("plant"))
}

func TestNewClassCounts(t *testing.T) {
	cc, err := NewClassCounts(map[string]int{"cat": 2, "dog": 5})
	require.NoError(t, err)
	assert.Equal(t, 7, cc.Total())

	_, err = NewClassCounts(map[string]int{"cat": 0})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	_, err = NewClassCounts(map[string]int{"": 1})
	require.Error(t, err)
}

func TestParseClassCounts(t *testing.T) {
	cc, err := ParseClassCounts(strings.NewReader("label,count\ncat,2\ndog, 3\n"))
	require.NoError(t, err)

	n, err := cc.Count("dog")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 5, cc.Total())
}

func TestParseClassCounts_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"non-numeric count", "cat,two\n"},
		{"zero count", "cat,0\n"},
		{"too many columns", "cat,1,2\n"},
		{"duplicate label", "cat,1\ncat,2\n"},
		{"missing label", ",4\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseClassCounts(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.True(t, errors.IsInvalidInput(err), "got %v", err)
		})
	}
}

func TestLoadResults_Compressed(t *testing.T) {
	dir := t.TempDir()

	plain := filepath.Join(dir, "results.csv")
	require.NoError(t, os.WriteFile(plain, []byte(smallTable), 0o644))

	gz := filepath.Join(dir, "results.csv.gz")
	writeGzip(t, gz, smallTable)

	zst := filepath.Join(dir, "results.csv.zst")
	writeZstd(t, zst, smallTable)

	for _, path := range []string{plain, gz, zst} {
		t.Run(filepath.Base(path), func(t *testing.T) {
			table, err := LoadResults(path)
			require.NoError(t, err)
			assert.Equal(t, 3, table.Len())
			assert.Equal(t, "dog", table.Queries[1].Label)
		})
	}
}

func TestLoadResults_MissingFile(t *testing.T) {
	_, err := LoadResults(filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestLoadResults_ErrorNamesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("cat,cat\ndog\n"), 0o644))

	_, err := LoadResults(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.csv")
	assert.Contains(t, err.Error(), "row 2")
}

func TestLoadClassCounts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counts.csv.gz")
	writeGzip(t, path, "cat,2\ndog,1\n")

	cc, err := LoadClassCounts(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"cat", "dog"}, cc.Labels())
}

func writeGzip(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := gzip.NewWriter(f)
	_, err = zw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
}

func writeZstd(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw, err := zstd.NewWriter(f)
	require.NoError(t, err)
	_, err = zw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
}

func TestParseTimings(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Timings
	}{
		{"one per line", "12.5\n14\n 30.25\n", Timings{12.5, 14, 30.25}},
		{"single row", "12.5,14,30.25\n", Timings{12.5, 14, 30.25}},
		{"scientific", "1.2e+03\n", Timings{1200}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimings(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTimings_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not a number", "12\nfast\n"},
		{"negative", "12\n-3\n"},
		{"nan", "NaN\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTimings(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.True(t, errors.IsInvalidInput(err), "got %v", err)
		})
	}

	_, err := ParseTimings(strings.NewReader(""))
	assert.True(t, errors.IsValidation(err))
}
