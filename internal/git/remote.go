package git

import (
	"context"
	"log/slog"

	"github.com/go-git/go-git/v5"
	ggitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/memory"

	appcfg "github.com/iced-rs/mdbook-iced/internal/config"
	"github.com/iced-rs/mdbook-iced/internal/foundation/errors"
	"github.com/iced-rs/mdbook-iced/internal/logfields"
	"github.com/iced-rs/mdbook-iced/internal/retry"
)

// RemoteResolver lists references of a remote repository over the network.
type RemoteResolver struct {
	policy retry.Policy
}

// ResolverOption customizes a RemoteResolver.
type ResolverOption func(*RemoteResolver)

// WithRetryPolicy sets the backoff used for transient network failures.
func WithRetryPolicy(p retry.Policy) ResolverOption {
	return func(r *RemoteResolver) { r.policy = p }
}

// NewRemoteResolver returns a resolver backed by go-git.
func NewRemoteResolver(opts ...ResolverOption) *RemoteResolver {
	r := &RemoteResolver{policy: retry.DefaultPolicy()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the commit a branch or tag reference points at. Revision
// references are returned unchanged without contacting the remote.
func (r *RemoteResolver) Resolve(ctx context.Context, repoURL string, ref appcfg.Reference) (string, error) {
	if ref.Kind == appcfg.ReferenceRevision {
		return ref.Value, nil
	}

	remote := git.NewRemote(memory.NewStorage(), &ggitcfg.RemoteConfig{
		Name: "origin",
		URLs: []string{repoURL},
	})

	var refs []*plumbing.Reference
	err := r.policy.Do(ctx, func(ctx context.Context) error {
		var listErr error
		refs, listErr = remote.ListContext(ctx, &git.ListOptions{PeelingOption: git.AppendPeeled})
		return listErr
	}, isTransient)
	if err != nil {
		return "", classifyRemoteError(err, repoURL)
	}

	commit, err := matchReference(refs, ref)
	if err != nil {
		return "", err
	}
	slog.Debug("Resolved git reference",
		logfields.Reference(ref.String()),
		slog.String("commit", commit),
		slog.String("url", repoURL))
	return commit, nil
}

// matchReference picks the commit for ref out of an advertised reference list.
// Annotated tags resolve to the peeled commit when the remote advertises it.
func matchReference(refs []*plumbing.Reference, ref appcfg.Reference) (string, error) {
	var want plumbing.ReferenceName
	switch ref.Kind {
	case appcfg.ReferenceBranch:
		want = plumbing.NewBranchReferenceName(ref.Value)
	case appcfg.ReferenceTag:
		want = plumbing.NewTagReferenceName(ref.Value)
	default:
		return ref.Value, nil
	}
	peeled := plumbing.ReferenceName(want.String() + "^{}")

	var direct string
	for _, r := range refs {
		if r.Type() != plumbing.HashReference {
			continue
		}
		switch r.Name() {
		case peeled:
			return r.Hash().String(), nil
		case want:
			direct = r.Hash().String()
		}
	}
	if direct != "" {
		return direct, nil
	}

	return "", errors.ConfigError("git reference not found on remote").
		WithContext("reference", ref.String()).
		Build()
}
