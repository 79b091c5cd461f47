package workspace

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/iced-rs/mdbook-iced/internal/foundation/errors"
	"github.com/iced-rs/mdbook-iced/internal/logfields"
)

// DefaultSubdir is the workspace directory name below the base directory.
const DefaultSubdir = "icebergs"

// Manager handles the fixed-path workspace directory.
type Manager struct {
	baseDir string
	dir     string
}

// NewPersistentManager creates a workspace manager rooted at baseDir/subdirName.
// The directory is not touched until Create is called.
func NewPersistentManager(baseDir, subdirName string) *Manager {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	if subdirName == "" {
		subdirName = DefaultSubdir
	}
	return &Manager{
		baseDir: baseDir,
		dir:     filepath.Join(baseDir, subdirName),
	}
}

// Create ensures the workspace directory exists. It is idempotent.
func (m *Manager) Create() error {
	if err := os.MkdirAll(m.dir, 0o750); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "create workspace").
			Fatal().
			WithContext("path", m.dir).
			Build()
	}
	slog.Debug("Using persistent workspace", logfields.Path(m.dir))
	return nil
}

// Path returns the workspace directory.
func (m *Manager) Path() string {
	return m.dir
}

// CreateSubdir creates (idempotently) a nested directory within the workspace
// and returns its path.
func (m *Manager) CreateSubdir(elem ...string) (string, error) {
	subdir := filepath.Join(append([]string{m.dir}, elem...)...)
	if err := os.MkdirAll(subdir, 0o750); err != nil {
		return "", errors.WrapError(err, errors.CategoryFileSystem, "create workspace subdirectory").
			Fatal().
			WithContext("path", subdir).
			Build()
	}
	return subdir, nil
}

// Remove deletes the workspace directory and everything below it.
// A missing workspace is not an error.
func (m *Manager) Remove() error {
	if err := os.RemoveAll(m.dir); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "remove workspace").
			Fatal().
			WithContext("path", m.dir).
			Build()
	}
	slog.Info("Removed workspace", logfields.Path(m.dir))
	return nil
}
