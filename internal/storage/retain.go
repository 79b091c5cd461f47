package storage

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/iced-rs/mdbook-iced/internal/foundation/errors"
	"github.com/iced-rs/mdbook-iced/internal/logfields"
)

// LiveSet is the set of artifact hashes referenced by a run.
type LiveSet interface {
	ContainsHash(hash string) bool
	Hashes() []string
}

// Retain removes every immediate child of dir whose name is not a live hash
// and returns how many were removed. Running it twice is a no-op the second
// time. A missing dir is an error.
func Retain(dir string, live LiveSet) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, errors.WrapError(err, errors.CategoryFileSystem, "failed to list artifact directory").
			Fatal().
			WithContext("path", dir).
			Build()
	}

	removed := 0
	for _, entry := range entries {
		if live.ContainsHash(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			return removed, errors.WrapError(err, errors.CategoryFileSystem, "failed to remove stale artifact").
				Fatal().
				WithContext("path", path).
				Build()
		}
		slog.Debug("Removed stale artifact", logfields.Path(path))
		removed++
	}
	return removed, nil
}
