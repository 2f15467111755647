// Package features standardises global shape descriptors and bins descriptor
// and normalisation diagnostics into fixed-edge histograms.
package features

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/resul4e/shapeeval/internal/dataset"
	"github.com/resul4e/shapeeval/internal/pkg/errors"
)

// Distribution is one descriptor over a shape database: the database mean and
// standard deviation followed by one raw value per shape.
type Distribution struct {
	Mean   float64
	StdDev float64
	Values []float64
}

// ParseDistribution reads a distribution file. Numbers are separated by
// commas or newlines; the first two are the mean and standard deviation.
func ParseDistribution(r io.Reader) (Distribution, error) {
	var nums []float64
	err := scanLines(r, func(line int, fields []string) error {
		for i, f := range fields {
			v, err := parseFloat(f)
			if err != nil {
				return errors.RowError(line, fmt.Sprintf("column %d: %v", i+1, err))
			}
			nums = append(nums, v)
		}
		return nil
	})
	if err != nil {
		return Distribution{}, err
	}
	if len(nums) < 2 {
		return Distribution{}, errors.ValidationError(
			fmt.Sprintf("distribution needs a mean and a standard deviation, got %d values", len(nums)))
	}
	return Distribution{Mean: nums[0], StdDev: nums[1], Values: nums[2:]}, nil
}

// LoadDistribution reads a distribution file, which may be compressed.
func LoadDistribution(path string) (Distribution, error) {
	rc, err := dataset.Open(path)
	if err != nil {
		return Distribution{}, err
	}
	defer rc.Close()

	d, err := ParseDistribution(rc)
	if err != nil {
		return Distribution{}, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// Standardize returns the z-score of every value.
func Standardize(d Distribution) ([]float64, error) {
	if !(d.StdDev > 0) || math.IsInf(d.StdDev, 0) {
		return nil, errors.ValidationError(
			fmt.Sprintf("standard deviation must be positive and finite, got %v", d.StdDev))
	}
	out := make([]float64, len(d.Values))
	for i, v := range d.Values {
		out[i] = (v - d.Mean) / d.StdDev
	}
	return out, nil
}

// Diagnostics holds a normalisation measurement taken before and after a
// normalisation step, one row per shape.
type Diagnostics struct {
	Before []float64
	After  []float64
}

// Series returns the named column: "before" or "after".
func (d Diagnostics) Series(name string) ([]float64, error) {
	switch name {
	case "before":
		return d.Before, nil
	case "after":
		return d.After, nil
	default:
		return nil, errors.ValidationError(fmt.Sprintf("unknown series %q, want before or after", name))
	}
}

// ParseDiagnostics reads a two-column before,after table.
func ParseDiagnostics(r io.Reader) (Diagnostics, error) {
	var d Diagnostics
	err := scanLines(r, func(line int, fields []string) error {
		if len(fields) != 2 {
			return errors.RowError(line, fmt.Sprintf("expected 2 columns, got %d", len(fields)))
		}
		before, err := parseFloat(fields[0])
		if err != nil {
			return errors.RowError(line, fmt.Sprintf("before: %v", err))
		}
		after, err := parseFloat(fields[1])
		if err != nil {
			return errors.RowError(line, fmt.Sprintf("after: %v", err))
		}
		d.Before = append(d.Before, before)
		d.After = append(d.After, after)
		return nil
	})
	if err != nil {
		return Diagnostics{}, err
	}
	if len(d.Before) == 0 {
		return Diagnostics{}, errors.ValidationError("diagnostics table is empty")
	}
	return d, nil
}

// LoadDiagnostics reads a diagnostics table, which may be compressed.
func LoadDiagnostics(path string) (Diagnostics, error) {
	rc, err := dataset.Open(path)
	if err != nil {
		return Diagnostics{}, err
	}
	defer rc.Close()

	d, err := ParseDiagnostics(rc)
	if err != nil {
		return Diagnostics{}, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// scanLines calls fn with the comma-separated, trimmed, non-empty fields of
// every non-blank line. Lines are numbered from 1.
func scanLines(r io.Reader, fn func(line int, fields []string) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		var fields []string
		for _, f := range strings.Split(sc.Text(), ",") {
			if f = strings.TrimSpace(f); f != "" {
				fields = append(fields, f)
			}
		}
		if len(fields) == 0 {
			continue
		}
		if err := fn(line, fields); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return errors.Wrap(errors.CodeInvalidInput, "reading input", err)
	}
	return nil
}

func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	return v, nil
}
