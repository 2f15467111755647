package dataset

import (
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/resul4e/shapeeval/internal/pkg/errors"
)

// ParseResults parses a result table. Parsing stops at the first malformed
// row; nothing is returned in that case.
func ParseResults(r io.Reader) (*Table, error) {
	cr := newReader(r)

	table := &Table{}
	depth := -1
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

		label := record[0]
		if label == "" {
			return nil, errors.RowError(line, "missing query label")
		}
		if len(record) < 2 {
			return nil, errors.RowError(line, "no ranked results")
		}

		ranked := record[1:]
		for i, res := range ranked {
			if res == "" {
				return nil, errors.RowError(line, fmt.Sprintf("empty result label in column %d", i+2))
			}
		}

		if depth == -1 {
			depth = len(ranked)
		} else if len(ranked) != depth {
			return nil, errors.RowError(line,
				fmt.Sprintf("ragged row: %d ranked results, expected %d", len(ranked), depth))
		}

		table.Queries = append(table.Queries, QueryResult{Label: label, Ranked: ranked})
	}

	if len(table.Queries) == 0 {
		return nil, errors.ValidationError("result table is empty")
	}
	return table, nil
}

// ParseClassCounts parses a two-column label,count table. An optional
// "label,count" header row is accepted.
func ParseClassCounts(r io.Reader) (ClassCounts, error) {
	cr := newReader(r)

	counts := make(map[string]int)
	first := true
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return ClassCounts{}, csvError(err)
		}
		line, _ := cr.FieldPos(0)
		trimFields(record)

		if first {
			first = false
			if len(record) == 2 && strings.EqualFold(record[0], "label") && strings.EqualFold(record[1], "count") {
				continue
			}
		}

		if len(record) != 2 {
			return ClassCounts{}, errors.RowError(line, fmt.Sprintf("expected 2 columns, got %d", len(record)))
		}
		label := record[0]
		if label == "" {
			return ClassCounts{}, errors.RowError(line, "missing label")
		}
		n, err := strconv.Atoi(record[1])
		if err != nil {
			return ClassCounts{}, errors.RowError(line, fmt.Sprintf("non-numeric count %q", record[1]))
		}
		if n < 1 {
			return ClassCounts{}, errors.RowError(line, fmt.Sprintf("count must be at least 1, got %d", n))
		}
		if _, dup := counts[label]; dup {
			return ClassCounts{}, errors.RowError(line, fmt.Sprintf("duplicate label %q", label))
		}
		counts[label] = n
	}

	if len(counts) == 0 {
		return ClassCounts{}, errors.ValidationError("class count table is empty")
	}
	return NewClassCounts(counts)
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	// Row width is checked by the callers so they can name the offending row.
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return cr
}

func trimFields(record []string) {
	for i := range record {
		record[i] = strings.TrimSpace(record[i])
	}
}

func csvError(err error) error {
	var pe *csv.ParseError
	if stderrors.As(err, &pe) {
		return errors.RowError(pe.StartLine, pe.Err.Error())
	}
	return errors.Wrap(errors.CodeInvalidInput, "reading table", err)
}
