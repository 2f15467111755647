package dataset

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/resul4e/shapeeval/internal/pkg/errors"
)

// Timings are mean query times in microseconds; Timings[k-1] is the time of
// a k-query. A timing table holds one value per line, or one comma-separated
// row.
type Timings []float64

// ParseTimings parses a query timing table.
func ParseTimings(r io.Reader) (Timings, error) {
	cr := newReader(r)

	var out Timings
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, csvError(err)
		}
		line, _ := cr.FieldPos(0)
		trimFields(record)

		for i, field := range record {
			if field == "" {
				continue
			}
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, errors.RowError(line, fmt.Sprintf("column %d: %q is not a number", i+1, field))
			}
			if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, errors.RowError(line, fmt.Sprintf("column %d: query time %v is not a finite non-negative value", i+1, v))
			}
			out = append(out, v)
		}
	}

	if len(out) == 0 {
		return nil, errors.ValidationError("timing table is empty")
	}
	return out, nil
}

// LoadTimings opens and parses a timing table.
func LoadTimings(path string) (Timings, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	t, err := ParseTimings(rc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}
