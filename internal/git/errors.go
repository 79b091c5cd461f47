package git

import (
	"strings"

	"github.com/iced-rs/mdbook-iced/internal/foundation/errors"
)

// classifyRemoteError turns a go-git listing failure into a configuration
// error carrying a short hint about the likely cause.
func classifyRemoteError(err error, url string) error {
	if err == nil {
		return nil
	}
	if _, ok := errors.AsClassified(err); ok {
		return err
	}

	l := strings.ToLower(err.Error())
	builder := errors.WrapError(err, errors.CategoryConfig, "failed to list remote references").
		Fatal().
		UserAction().
		WithContext("url", url)

	switch {
	case strings.Contains(l, "authentication") || strings.Contains(l, "not authorized"):
		builder.WithContext("hint", "repository requires authentication")
	case strings.Contains(l, "repository not found") || strings.Contains(l, "not found"):
		builder.WithContext("hint", "check the `git` option")
	case isTransient(err):
		builder.WithContext("hint", "network unavailable; set `resolve = false` to build offline")
	}

	return builder.Build()
}

// isTransient reports whether a listing failure may succeed when retried.
func isTransient(err error) bool {
	l := strings.ToLower(err.Error())
	return strings.Contains(l, "timeout") ||
		strings.Contains(l, "no route to host") ||
		strings.Contains(l, "connection") ||
		strings.Contains(l, "temporary failure")
}
