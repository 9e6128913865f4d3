package localfs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/storyforge/narrative-search/internal/core/domain"
)

const (
	snapshotFileName = "term_dictionary.json"
	snapshotVersion  = 1
)

type snapshotFile struct {
	Version        int                `json:"version"`
	BuiltAt        time.Time          `json:"built_at"`
	TotalDocuments int                `json:"total_documents"`
	IDF            map[string]float64 `json:"idf"`
}

// Store persists dictionary snapshots as a single JSON file so restarts can
// serve weights without rescanning the corpus.
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Load returns (nil, nil) when no snapshot has been persisted yet.
func (s *Store) Load(ctx context.Context) (*domain.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrSnapshotLoad, "read snapshot file", err)
	}

	var file snapshotFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, domain.WrapError(domain.ErrSnapshotLoad, "decode snapshot file", err)
	}
	if file.Version != snapshotVersion {
		return nil, domain.WrapError(domain.ErrSnapshotLoad, "check snapshot version",
			fmt.Errorf("unsupported version %d", file.Version))
	}
	if file.TotalDocuments <= 0 || len(file.IDF) == 0 {
		return nil, domain.WrapError(domain.ErrSnapshotLoad, "validate snapshot",
			fmt.Errorf("snapshot has no corpus data"))
	}

	return &domain.Snapshot{
		BuiltAt:        file.BuiltAt,
		TotalDocuments: file.TotalDocuments,
		IDF:            file.IDF,
	}, nil
}

// Save writes atomically: temp file in the same directory, then rename.
func (s *Store) Save(ctx context.Context, snapshot *domain.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if snapshot == nil {
		return domain.WrapError(domain.ErrSnapshotPersist, "validate snapshot", fmt.Errorf("snapshot is nil"))
	}

	data, err := json.Marshal(snapshotFile{
		Version:        snapshotVersion,
		BuiltAt:        snapshot.BuiltAt,
		TotalDocuments: snapshot.TotalDocuments,
		IDF:            snapshot.IDF,
	})
	if err != nil {
		return domain.WrapError(domain.ErrSnapshotPersist, "encode snapshot", err)
	}

	tmp, err := os.CreateTemp(s.dir, snapshotFileName+".tmp-*")
	if err != nil {
		return domain.WrapError(domain.ErrSnapshotPersist, "create temp file", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return domain.WrapError(domain.ErrSnapshotPersist, "write temp file", err)
	}
	if err := tmp.Close(); err != nil {
		return domain.WrapError(domain.ErrSnapshotPersist, "close temp file", err)
	}
	if err := os.Rename(tmpName, s.path()); err != nil {
		return domain.WrapError(domain.ErrSnapshotPersist, "replace snapshot file", err)
	}
	return nil
}

func (s *Store) path() string {
	return filepath.Join(s.dir, snapshotFileName)
}
