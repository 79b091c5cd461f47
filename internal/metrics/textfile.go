package metrics

import (
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/iced-rs/mdbook-iced/internal/foundation/errors"
)

// WriteTextfile atomically writes everything g gathers to path in the
// Prometheus text format.
func WriteTextfile(path string, g prom.Gatherer) error {
	if err := prom.WriteToTextfile(path, g); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to write metrics file").
			WithContext("path", path).
			Build()
	}
	return nil
}
