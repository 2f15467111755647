// Package report writes evaluation tables as CSV, JSON, YAML or aligned text.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/resul4e/shapeeval/internal/pkg/errors"
	"github.com/resul4e/shapeeval/internal/retrieval"
)

// Output formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatText = "text"
)

// Table names, also used as file names.
const (
	TableSummary  = "summary"
	TableSweep    = "sweep"
	TablePerQuery = "per_query"
	TableMAP      = "class_map"
	TableTiers    = "tiers"
)

// Writer writes named tables. With a directory each table goes to
// <dir>/<name>.<ext>; otherwise all tables go to the stream, text and CSV
// tables preceded by a "# name" line.
type Writer struct {
	format string
	dir    string
	out    io.Writer
}

// NewWriter creates a writer. dir may be empty.
func NewWriter(format, dir string, out io.Writer) (*Writer, error) {
	switch format {
	case FormatCSV, FormatJSON, FormatYAML, FormatText:
	default:
		return nil, errors.ValidationError(fmt.Sprintf("unknown output format: %s", format))
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.InternalError("creating output directory", err)
		}
	}
	return &Writer{format: format, dir: dir, out: out}, nil
}

// Extension returns the file extension of the writer's format.
func (w *Writer) Extension() string {
	if w.format == FormatText {
		return "txt"
	}
	return w.format
}

// WriteTable writes a slice of records under a name.
func (w *Writer) WriteTable(name string, records any) (err error) {
	out := w.out
	if w.dir != "" {
		path := filepath.Join(w.dir, name+"."+w.Extension())
		f, cerr := os.Create(path)
		if cerr != nil {
			return errors.InternalError("creating "+path, cerr)
		}
		defer func() {
			if cerr := f.Close(); err == nil && cerr != nil {
				err = cerr
			}
		}()
		out = f
	} else if w.format == FormatCSV || w.format == FormatText {
		if _, err := fmt.Fprintf(out, "# %s\n", name); err != nil {
			return err
		}
	}

	switch w.format {
	case FormatCSV:
		err = gocsv.Marshal(records, out)
	case FormatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if w.dir == "" {
			err = enc.Encode(map[string]any{name: records})
		} else {
			err = enc.Encode(records)
		}
	case FormatYAML:
		if w.dir == "" {
			err = yaml.NewEncoder(out).Encode(map[string]any{name: records})
		} else {
			err = yaml.NewEncoder(out).Encode(records)
		}
	case FormatText:
		err = writeText(out, records)
	}
	if err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

// WriteReport writes the summary, sweep, per-query, class MAP and tier tables.
func (w *Writer) WriteReport(r *retrieval.Report) error {
	tables := []struct {
		name    string
		records any
	}{
		{TableSummary, SummaryRecords(r)},
		{TableSweep, SweepRecords(r.Sweep)},
		{TablePerQuery, PerQueryRecords(r.PerQuery)},
		{TableMAP, ClassMAPRecords(r.MAP)},
		{TableTiers, TierRecords(r.Tiers)},
	}
	for _, t := range tables {
		if err := w.WriteTable(t.name, t.records); err != nil {
			return err
		}
	}
	return nil
}

// writeText renders records as an aligned table. Columns and headers come
// from the csv tags.
func writeText(out io.Writer, records any) error {
	s, err := gocsv.MarshalString(records)
	if err != nil {
		return err
	}
	rows, err := csv.NewReader(strings.NewReader(s)).ReadAll()
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	table := tablewriter.NewWriter(out)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(false)
	table.SetHeader(rows[0])
	table.AppendBulk(rows[1:])
	table.Render()
	_, err = fmt.Fprintln(out)
	return err
}
