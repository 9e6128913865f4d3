package localfs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/storyforge/narrative-search/internal/core/domain"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return store
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	want := &domain.Snapshot{
		BuiltAt:        time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC),
		TotalDocuments: 3,
		IDF:            map[string]float64{"gender": 1.0986, "alex": 0.0},
	}
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got == nil {
		t.Fatalf("Load() returned nil snapshot")
	}
	if !got.BuiltAt.Equal(want.BuiltAt) || got.TotalDocuments != 3 {
		t.Fatalf("snapshot metadata = %+v", got)
	}
	if got.IDF["gender"] != 1.0986 {
		t.Fatalf("idf[gender] = %v", got.IDF["gender"])
	}
}

func TestLoadMissingSnapshotReturnsNil(t *testing.T) {
	store := newStore(t)

	snapshot, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if snapshot != nil {
		t.Fatalf("expected nil snapshot for missing file, got %+v", snapshot)
	}
}

func TestLoadCorruptSnapshotFailsWithLoadError(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, snapshotFileName), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	if _, err := store.Load(context.Background()); !errors.Is(err, domain.ErrSnapshotLoad) {
		t.Fatalf("Load() error = %v, want ErrSnapshotLoad", err)
	}
}

func TestLoadRejectsUnsupportedVersion(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	payload := `{"version":99,"built_at":"2026-08-25T10:00:00Z","total_documents":3,"idf":{"a":1}}`
	if err := os.WriteFile(filepath.Join(dir, snapshotFileName), []byte(payload), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	if _, err := store.Load(context.Background()); !errors.Is(err, domain.ErrSnapshotLoad) {
		t.Fatalf("Load() error = %v, want ErrSnapshotLoad", err)
	}
}

func TestSaveOverwritesPreviousSnapshot(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	first := &domain.Snapshot{BuiltAt: time.Now().UTC(), TotalDocuments: 2, IDF: map[string]float64{"a": 0.5}}
	second := &domain.Snapshot{BuiltAt: time.Now().UTC(), TotalDocuments: 5, IDF: map[string]float64{"b": 1.5}}
	if err := store.Save(ctx, first); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Save(ctx, second); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.TotalDocuments != 5 {
		t.Fatalf("TotalDocuments = %d, want 5", got.TotalDocuments)
	}
	if _, ok := got.IDF["a"]; ok {
		t.Fatalf("stale term survived overwrite: %v", got.IDF)
	}
}
