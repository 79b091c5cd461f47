package config

import (
	"fmt"

	"github.com/iced-rs/mdbook-iced/internal/foundation/errors"
)

// ReferenceKind identifies how the iced dependency is pinned.
type ReferenceKind string

const (
	ReferenceRevision ReferenceKind = "rev"
	ReferenceBranch   ReferenceKind = "branch"
	ReferenceTag      ReferenceKind = "tag"
)

// referencePrecedence is the lookup order when a table names several kinds.
var referencePrecedence = []ReferenceKind{ReferenceRevision, ReferenceBranch, ReferenceTag}

// Reference is a Git reference to the iced repository.
type Reference struct {
	Kind  ReferenceKind
	Value string
}

// Revision returns a revision reference.
func Revision(rev string) Reference { return Reference{Kind: ReferenceRevision, Value: rev} }

// Branch returns a branch reference.
func Branch(name string) Reference { return Reference{Kind: ReferenceBranch, Value: name} }

// Tag returns a tag reference.
func Tag(name string) Reference { return Reference{Kind: ReferenceTag, Value: name} }

func (r Reference) String() string {
	return fmt.Sprintf("%s=%s", r.Kind, r.Value)
}

// Validate reports a configuration error unless the reference names exactly one
// known kind with a non-empty value.
func (r Reference) Validate() error {
	switch r.Kind {
	case ReferenceRevision, ReferenceBranch, ReferenceTag:
	default:
		return errors.ConfigError("invalid git reference kind").
			WithContext("kind", string(r.Kind)).
			Build()
	}
	if r.Value == "" {
		return errors.ConfigError("git reference value must not be empty").
			WithContext("kind", string(r.Kind)).
			Build()
	}
	return nil
}

// ParseReference picks the reference out of a preprocessor table. Non-string
// values are ignored; rev wins over branch, branch over tag.
func ParseReference(table map[string]any) (Reference, error) {
	for _, kind := range referencePrecedence {
		value, ok := table[string(kind)].(string)
		if !ok {
			continue
		}
		ref := Reference{Kind: kind, Value: value}
		if err := ref.Validate(); err != nil {
			return Reference{}, err
		}
		return ref, nil
	}
	return Reference{}, errors.ConfigError(
		"no git reference found for `iced` in the preprocessor configuration; specify a `rev`, `branch` or `tag`").
		Build()
}
