package environment

import (
	toml "github.com/pelletier/go-toml/v2"

	"github.com/iced-rs/mdbook-iced/internal/config"
	"github.com/iced-rs/mdbook-iced/internal/foundation/errors"
)

// CrateName is the package compiled for every code block. The binding step
// relies on it to locate <target>/release/<CrateName>.wasm.
const CrateName = "iceberg"

// Manifest is the Cargo.toml written to the build root.
type Manifest struct {
	Package      Package                   `toml:"package"`
	Dependencies map[string]Dependency     `toml:"dependencies"`
	Profile      map[string]ProfileOptions `toml:"profile"`
}

type Package struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
	Edition string `toml:"edition"`
	Publish bool   `toml:"publish"`
}

// Dependency is a Git dependency pinned by exactly one of Rev, Branch or Tag.
type Dependency struct {
	Git      string   `toml:"git"`
	Rev      string   `toml:"rev,omitempty"`
	Branch   string   `toml:"branch,omitempty"`
	Tag      string   `toml:"tag,omitempty"`
	Features []string `toml:"features,omitempty"`
}

type ProfileOptions struct {
	OptLevel string `toml:"opt-level"`
}

// NewManifest builds the manifest for an iced dependency at ref.
func NewManifest(gitURL string, ref config.Reference, features []string) Manifest {
	dep := Dependency{Git: gitURL, Features: features}
	switch ref.Kind {
	case config.ReferenceRevision:
		dep.Rev = ref.Value
	case config.ReferenceBranch:
		dep.Branch = ref.Value
	case config.ReferenceTag:
		dep.Tag = ref.Value
	}

	return Manifest{
		Package: Package{
			Name:    CrateName,
			Version: "0.1.0",
			Edition: "2021",
			Publish: false,
		},
		Dependencies: map[string]Dependency{"iced": dep},
		Profile: map[string]ProfileOptions{
			"release": {OptLevel: "s"},
		},
	}
}

// Render returns the manifest as TOML text.
func (m Manifest) Render() (string, error) {
	data, err := toml.Marshal(m)
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryInternal, "failed to render cargo manifest").Build()
	}
	return string(data), nil
}
