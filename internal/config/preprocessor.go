package config

import (
	"github.com/iced-rs/mdbook-iced/internal/foundation/errors"
	"github.com/iced-rs/mdbook-iced/internal/markup"
)

const (
	// DefaultGitURL is the repository the iced dependency is fetched from.
	DefaultGitURL = "https://github.com/iced-rs/iced.git"
	// PreprocessorName is the key of the preprocessor table in book.toml.
	PreprocessorName = "iced"
)

// DefaultFeatures are the iced crate features enabled for browser builds.
var DefaultFeatures = []string{"webgl", "fira-sans"}

// Preprocessor is the decoded [preprocessor.iced] table.
type Preprocessor struct {
	Reference Reference
	Git       string
	Features  []string
	// Height overrides the settings default embed height for the book.
	Height string
	// Resolve pins branch and tag references to the commit they point at.
	Resolve bool
}

// ParsePreprocessor decodes a preprocessor table as produced by either the
// mdBook JSON context or a TOML decoder.
func ParsePreprocessor(table map[string]any) (*Preprocessor, error) {
	if table == nil {
		return nil, errors.ConfigError("mdbook-iced configuration not found").
			WithContext("table", "preprocessor."+PreprocessorName).
			Build()
	}

	ref, err := ParseReference(table)
	if err != nil {
		return nil, err
	}

	p := &Preprocessor{
		Reference: ref,
		Git:       DefaultGitURL,
		Features:  append([]string(nil), DefaultFeatures...),
	}

	if v, ok := table["git"]; ok {
		s, isString := v.(string)
		if !isString || s == "" {
			return nil, invalidKey("git", "a non-empty string")
		}
		p.Git = s
	}
	if v, ok := table["features"]; ok {
		features, ferr := stringList(v)
		if ferr != nil {
			return nil, invalidKey("features", "a list of strings")
		}
		p.Features = features
	}
	if v, ok := table["height"]; ok {
		s, isString := v.(string)
		if !isString || !markup.ValidHeight(s) {
			return nil, invalidKey("height", "a CSS length such as 200px or 50vh")
		}
		p.Height = s
	}
	if v, ok := table["resolve"]; ok {
		b, isBool := v.(bool)
		if !isBool {
			return nil, invalidKey("resolve", "a boolean")
		}
		p.Resolve = b
	}

	return p, nil
}

func stringList(v any) ([]string, error) {
	switch list := v.(type) {
	case []string:
		return append([]string(nil), list...), nil
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, errors.ConfigError("list item is not a string").Build()
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, errors.ConfigError("value is not a list").Build()
	}
}

func invalidKey(key, want string) error {
	return errors.ConfigError("invalid preprocessor option").
		WithContext("key", key).
		WithContext("expected", want).
		Build()
}
