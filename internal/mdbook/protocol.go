package mdbook

import (
	"encoding/json"
	"io"
	"path/filepath"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/iced-rs/mdbook-iced/internal/foundation/errors"
)

// SupportedRenderer is the only renderer embeds make sense for.
const SupportedRenderer = "html"

// Supported mdBook release series.
const (
	SupportedSeries     = "v0.4"
	MinSupportedVersion = "v0.4.40"
)

// DefaultSourceDir is the book source directory when book.src is unset.
const DefaultSourceDir = "src"

// Supports reports whether renderer can display the generated markup.
func Supports(renderer string) bool {
	return renderer == SupportedRenderer
}

// Context is the first element of the preprocessor input.
type Context struct {
	Root          string         `json:"root"`
	Config        map[string]any `json:"config"`
	Renderer      string         `json:"renderer"`
	MdbookVersion string         `json:"mdbook_version"`
}

// PreprocessorTable returns the [preprocessor.<name>] table of the book
// configuration, or nil when the book does not configure it.
func (c *Context) PreprocessorTable(name string) map[string]any {
	preprocessors, _ := c.Config["preprocessor"].(map[string]any)
	table, _ := preprocessors[name].(map[string]any)
	return table
}

// SourceDir is the absolute book source directory.
func (c *Context) SourceDir() string {
	src := DefaultSourceDir
	if book, ok := c.Config["book"].(map[string]any); ok {
		if s, ok := book["src"].(string); ok && s != "" {
			src = s
		}
	}
	if filepath.IsAbs(src) {
		return src
	}
	return filepath.Join(c.Root, src)
}

// ParseInput decodes the [context, book] pair mdBook writes to a
// preprocessor.
func ParseInput(r io.Reader) (*Context, *Book, error) {
	var pair []json.RawMessage
	if err := json.NewDecoder(r).Decode(&pair); err != nil {
		return nil, nil, protocolError(err, "failed to decode preprocessor input")
	}
	if len(pair) != 2 {
		return nil, nil, errors.DocumentError("preprocessor input must be a [context, book] pair").
			WithContext("elements", len(pair)).
			Build()
	}

	var ctx Context
	if err := json.Unmarshal(pair[0], &ctx); err != nil {
		return nil, nil, protocolError(err, "failed to decode preprocessor context")
	}
	var book Book
	if err := json.Unmarshal(pair[1], &book); err != nil {
		return nil, nil, protocolError(err, "failed to decode book")
	}
	return &ctx, &book, nil
}

// WriteBook encodes book for mdBook.
func WriteBook(w io.Writer, book *Book) error {
	if err := json.NewEncoder(w).Encode(book); err != nil {
		return protocolError(err, "failed to encode book")
	}
	return nil
}

// CheckVersion rejects hosts outside the supported mdBook series.
func CheckVersion(version string) error {
	v := version
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return errors.ConfigError("mdbook version is not a valid semantic version").
			WithContext("mdbook_version", version).
			Build()
	}
	if semver.MajorMinor(v) != SupportedSeries || semver.Compare(v, MinSupportedVersion) < 0 {
		return errors.ConfigError("mdbook-iced is not compatible with this mdbook version").
			WithContext("mdbook_version", version).
			WithContext("supported", ">="+strings.TrimPrefix(MinSupportedVersion, "v")+", <0.5.0").
			Build()
	}
	return nil
}

func protocolError(err error, msg string) error {
	return errors.WrapError(err, errors.CategoryDocument, msg).Fatal().Build()
}
