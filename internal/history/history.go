// Package history keeps summaries of past evaluation runs so a dataset's
// retrieval quality can be compared over time.
package history

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/resul4e/shapeeval/internal/config"
	"github.com/resul4e/shapeeval/internal/pkg/errors"
	"github.com/resul4e/shapeeval/internal/retrieval"
)

// Run summarises one evaluation run.
type Run struct {
	ID        string             `json:"id" yaml:"id"`
	Dataset   string             `json:"dataset" yaml:"dataset"`
	StartedAt time.Time          `json:"started_at" yaml:"started_at"`
	Duration  time.Duration      `json:"duration" yaml:"duration"`
	Queries   int                `json:"queries" yaml:"queries"`
	Classes   int                `json:"classes" yaml:"classes"`
	GlobalMAP float64            `json:"global_map" yaml:"global_map"`
	ClassMAP  map[string]float64 `json:"class_map" yaml:"class_map"`
}

// FromReport summarises a report.
func FromReport(r *retrieval.Report) Run {
	return Run{
		ID:        fmt.Sprintf("%s-%d", r.Dataset, r.StartedAt.UnixNano()),
		Dataset:   r.Dataset,
		StartedAt: r.StartedAt,
		Duration:  r.Duration,
		Queries:   r.Queries,
		Classes:   r.Classes,
		GlobalMAP: r.MAP.Global,
		ClassMAP:  r.MAP.AsMap(),
	}
}

// Store persists run summaries.
type Store interface {
	// Save records a run. Runs older than the store's retention are dropped.
	Save(ctx context.Context, run Run) error

	// List returns the runs of a dataset started at or after since, oldest
	// first. limit > 0 keeps only the newest limit runs.
	List(ctx context.Context, dataset string, since time.Time, limit int) ([]Run, error)

	// Datasets returns the names of all datasets with recorded runs.
	Datasets(ctx context.Context) ([]string, error)

	// Delete removes every run of a dataset.
	Delete(ctx context.Context, dataset string) error

	// Close releases resources.
	Close() error
}

// NewStore creates a Store based on the configuration. It returns nil, nil
// when history is disabled.
func NewStore(cfg config.HistoryConfig) (Store, error) {
	switch strings.ToLower(cfg.Type) {
	case "none", "":
		return nil, nil
	case "memory":
		return NewMemoryStore(cfg.TTL), nil
	case "redis":
		return NewRedisStore(cfg.RedisURL, cfg.TTL)
	default:
		return nil, errors.ValidationError(fmt.Sprintf("unknown history type: %s", cfg.Type))
	}
}

// newest keeps the last limit runs of a chronologically sorted slice.
func newest(runs []Run, limit int) []Run {
	if limit > 0 && len(runs) > limit {
		return runs[len(runs)-limit:]
	}
	return runs
}

func sortRuns(runs []Run) {
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].StartedAt.Before(runs[j].StartedAt)
	})
}
