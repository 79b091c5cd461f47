// Package book reads an mdBook project from disk for runs that happen
// outside of mdBook, such as the build and watch commands.
package book

import (
	stdErrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/iced-rs/mdbook-iced/internal/config"
	"github.com/iced-rs/mdbook-iced/internal/foundation/errors"
	"github.com/iced-rs/mdbook-iced/internal/mdbook"
)

// ConfigFile is the mdBook configuration file name.
const ConfigFile = "book.toml"

// Book is an mdBook project on disk.
type Book struct {
	Root      string
	Title     string
	SourceDir string
	// Preprocessor is the [preprocessor.iced] table, nil when absent.
	Preprocessor map[string]any
}

type bookFile struct {
	Book struct {
		Title string `toml:"title"`
		Src   string `toml:"src"`
	} `toml:"book"`
	Preprocessor map[string]map[string]any `toml:"preprocessor"`
}

// Load reads book.toml from root.
func Load(root string) (*Book, error) {
	path := filepath.Join(root, ConfigFile)
	var f bookFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		if stdErrors.Is(err, fs.ErrNotExist) {
			return nil, errors.ConfigError("no book.toml found; not an mdBook project").
				WithContext("path", path).
				Build()
		}
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to parse book.toml").
			Fatal().
			UserAction().
			WithContext("path", path).
			Build()
	}

	src := f.Book.Src
	if src == "" {
		src = mdbook.DefaultSourceDir
	}
	if !filepath.IsAbs(src) {
		src = filepath.Join(root, src)
	}

	return &Book{
		Root:         root,
		Title:        f.Book.Title,
		SourceDir:    src,
		Preprocessor: f.Preprocessor[config.PreprocessorName],
	}, nil
}

// Discover lists the markdown pages under the source directory as
// slash-separated relative paths in lexical order. Hidden directories, such
// as the release directory, are skipped.
func (b *Book) Discover() ([]string, error) {
	var pages []string
	err := filepath.WalkDir(b.SourceDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != b.SourceDir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".md" {
			return nil
		}
		rel, err := filepath.Rel(b.SourceDir, path)
		if err != nil {
			return err
		}
		pages = append(pages, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to list book pages").
			Fatal().
			WithContext("path", b.SourceDir).
			Build()
	}
	sort.Strings(pages)
	return pages, nil
}

// ReadPage reads a page returned by Discover.
func (b *Book) ReadPage(rel string) (string, error) {
	path := filepath.Join(b.SourceDir, filepath.FromSlash(rel))
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryFileSystem, "failed to read page").
			Fatal().
			WithContext("path", path).
			Build()
	}
	return string(data), nil
}
