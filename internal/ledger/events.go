package ledger

import (
	"context"
	"encoding/json"

	"github.com/iced-rs/mdbook-iced/internal/foundation/errors"
)

// Event types.
const (
	TypeRunStarted   = "RunStarted"
	TypeRunCompleted = "RunCompleted"
	TypeRunFailed    = "RunFailed"
)

// RunStarted is recorded before any page is transformed.
type RunStarted struct {
	Mode        string `json:"mode"`
	Reference   string `json:"reference"`
	Environment string `json:"environment,omitempty"`
}

// RunCompleted carries the counters of a finished run.
type RunCompleted struct {
	Documents  int   `json:"documents"`
	Blocks     int   `json:"blocks"`
	Embeds     int   `json:"embeds"`
	Compiled   int   `json:"compiled"`
	CacheHits  int   `json:"cache_hits"`
	Failures   int   `json:"failures"`
	Pruned     int   `json:"pruned"`
	Released   int   `json:"released"`
	DurationMS int64 `json:"duration_ms"`
}

// RunFailed is recorded when a run aborts.
type RunFailed struct {
	Error      string `json:"error"`
	DurationMS int64  `json:"duration_ms"`
}

// RecordStarted appends a RunStarted event.
func (s *Store) RecordStarted(ctx context.Context, runID string, e RunStarted) error {
	return s.appendJSON(ctx, runID, TypeRunStarted, e)
}

// RecordCompleted appends a RunCompleted event.
func (s *Store) RecordCompleted(ctx context.Context, runID string, e RunCompleted) error {
	return s.appendJSON(ctx, runID, TypeRunCompleted, e)
}

// RecordFailed appends a RunFailed event.
func (s *Store) RecordFailed(ctx context.Context, runID string, e RunFailed) error {
	return s.appendJSON(ctx, runID, TypeRunFailed, e)
}

func (s *Store) appendJSON(ctx context.Context, runID, eventType string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return errors.WrapError(err, errors.CategoryLedger, "failed to marshal event payload").
			WithContext("run_id", runID).
			WithContext("event_type", eventType).
			Build()
	}
	return s.Append(ctx, runID, eventType, payload, nil)
}
