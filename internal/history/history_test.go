package history

import (
	"context"
	"testing"
	"time"

	"github.com/resul4e/shapeeval/internal/config"
	"github.com/resul4e/shapeeval/internal/pkg/errors"
	"github.com/resul4e/shapeeval/internal/retrieval"
)

func run(dataset string, at time.Time, globalMAP float64) Run {
	return Run{
		ID:        dataset + "-" + at.Format(time.RFC3339Nano),
		Dataset:   dataset,
		StartedAt: at,
		GlobalMAP: globalMAP,
	}
}

func TestFromReport(t *testing.T) {
	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	r := &retrieval.Report{
		Dataset:   "psb",
		Queries:   907,
		Classes:   92,
		StartedAt: started,
		Duration:  2 * time.Second,
		MAP: retrieval.MAPResult{
			PerClass: []retrieval.ClassPrecision{{Label: "chair", MAP: 0.61}},
			Global:   0.43,
		},
	}

	got := FromReport(r)
	if got.Dataset != "psb" || got.Queries != 907 || got.Classes != 92 {
		t.Errorf("FromReport() = %+v", got)
	}
	if got.GlobalMAP != 0.43 || got.ClassMAP["chair"] != 0.61 {
		t.Errorf("FromReport() MAP = %v %v", got.GlobalMAP, got.ClassMAP)
	}
	if got.ID == "" || !got.StartedAt.Equal(started) {
		t.Errorf("FromReport() id/time = %q %v", got.ID, got.StartedAt)
	}
}

func TestMemoryStore_SaveAndList(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	defer s.Close()

	now := time.Now()
	// Saved out of order; List returns them oldest first.
	for _, r := range []Run{
		run("psb", now.Add(-1*time.Hour), 0.5),
		run("psb", now.Add(-3*time.Hour), 0.3),
		run("psb", now.Add(-2*time.Hour), 0.4),
		run("shrec", now, 0.9),
	} {
		if err := s.Save(ctx, r); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	runs, err := s.List(ctx, "psb", time.Time{}, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("List() returned %d runs, want 3", len(runs))
	}
	for i, want := range []float64{0.3, 0.4, 0.5} {
		if runs[i].GlobalMAP != want {
			t.Errorf("runs[%d].GlobalMAP = %v, want %v", i, runs[i].GlobalMAP, want)
		}
	}

	runs, _ = s.List(ctx, "psb", now.Add(-150*time.Minute), 0)
	if len(runs) != 2 {
		t.Errorf("List(since) returned %d runs, want 2", len(runs))
	}

	runs, _ = s.List(ctx, "psb", time.Time{}, 1)
	if len(runs) != 1 || runs[0].GlobalMAP != 0.5 {
		t.Errorf("List(limit 1) = %+v, want newest run", runs)
	}

	names, err := s.Datasets(ctx)
	if err != nil {
		t.Fatalf("Datasets() error = %v", err)
	}
	if len(names) != 2 || names[0] != "psb" || names[1] != "shrec" {
		t.Errorf("Datasets() = %v", names)
	}

	if err := s.Delete(ctx, "psb"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if runs, _ := s.List(ctx, "psb", time.Time{}, 0); len(runs) != 0 {
		t.Errorf("List() after Delete = %+v", runs)
	}
	if names, _ := s.Datasets(ctx); len(names) != 1 || names[0] != "shrec" {
		t.Errorf("Datasets() after Delete = %v", names)
	}
}

func TestMemoryStore_TTL(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Hour)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	_ = s.Save(ctx, run("psb", now.Add(-2*time.Hour), 0.1))
	_ = s.Save(ctx, run("psb", now.Add(-30*time.Minute), 0.2))

	runs, _ := s.List(ctx, "psb", time.Time{}, 0)
	if len(runs) != 1 || runs[0].GlobalMAP != 0.2 {
		t.Errorf("runs after TTL trim = %+v", runs)
	}
}

func TestNewStore(t *testing.T) {
	s, err := NewStore(config.HistoryConfig{Type: "none"})
	if err != nil || s != nil {
		t.Errorf("NewStore(none) = %v, %v; want nil, nil", s, err)
	}

	s, err = NewStore(config.HistoryConfig{Type: "memory", TTL: time.Hour})
	if err != nil {
		t.Fatalf("NewStore(memory) error = %v", err)
	}
	if _, ok := s.(*MemoryStore); !ok {
		t.Errorf("NewStore(memory) = %T", s)
	}

	_, err = NewStore(config.HistoryConfig{Type: "sqlite"})
	if !errors.IsValidation(err) {
		t.Errorf("NewStore(sqlite) error = %v, want validation error", err)
	}
}

func TestNewRedisStore_InvalidURL(t *testing.T) {
	_, err := NewRedisStore("invalid://url", time.Hour)
	if err == nil {
		t.Fatal("expected error for invalid URL")
	}
}

func TestNewRedisStore_ConnectionFailure(t *testing.T) {
	_, err := NewRedisStore("redis://localhost:9999", time.Hour)
	if err == nil {
		t.Fatal("expected error for connection failure")
	}
	if errors.ExitCode(err) != errors.ExitUnavailable {
		t.Errorf("ExitCode() = %d, want %d", errors.ExitCode(err), errors.ExitUnavailable)
	}
}

func TestRedisStore_SaveAndList(t *testing.T) {
	// Skip if Redis not available
	s, err := NewRedisStore("redis://localhost:6379/15", 24*time.Hour)
	if err != nil {
		t.Skip("Redis not available:", err)
	}
	defer s.Close()

	ctx := context.Background()
	const dataset = "test_history"
	defer s.Delete(ctx, dataset)

	now := time.Now()
	saved := []Run{
		run(dataset, now.Add(-10*time.Minute), 0.41),
		run(dataset, now.Add(-5*time.Minute), 0.42),
		run(dataset, now, 0.43),
	}
	saved[2].ClassMAP = map[string]float64{"chair": 0.7}
	for _, r := range saved {
		if err := s.Save(ctx, r); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	runs, err := s.List(ctx, dataset, now.Add(-15*time.Minute), 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(runs) != len(saved) {
		t.Fatalf("expected %d runs, got %d", len(saved), len(runs))
	}
	if runs[2].GlobalMAP != 0.43 || runs[2].ClassMAP["chair"] != 0.7 {
		t.Errorf("newest run = %+v", runs[2])
	}

	names, err := s.Datasets(ctx)
	if err != nil {
		t.Fatalf("Datasets() error = %v", err)
	}
	found := false
	for _, n := range names {
		found = found || n == dataset
	}
	if !found {
		t.Errorf("Datasets() = %v, missing %s", names, dataset)
	}
}
