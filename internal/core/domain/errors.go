package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrCorpusUnavailable means the corpus could not be read during a
	// dictionary build. Recovered by degrading, never surfaced to queries.
	ErrCorpusUnavailable = errors.New("corpus unavailable")
	// ErrEmptyCorpus is a defensive guard for a zero-document corpus.
	ErrEmptyCorpus = errors.New("empty corpus")
	// ErrSnapshotLoad means a persisted snapshot was unreadable or corrupt.
	ErrSnapshotLoad = errors.New("snapshot load failure")
	// ErrSnapshotPersist means writing the disk mirror failed after a
	// successful in-memory rebuild.
	ErrSnapshotPersist = errors.New("snapshot persist failure")
	// ErrTemporary marks failures worth retrying upstream.
	ErrTemporary = errors.New("temporary failure")
	// ErrInvalidInput marks caller mistakes, mapped to 400 at the edge.
	ErrInvalidInput = errors.New("invalid input")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
