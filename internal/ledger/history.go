package ledger

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"time"

	"github.com/iced-rs/mdbook-iced/internal/logfields"
)

// DefaultHistoryLimit is the number of runs History returns by default.
const DefaultHistoryLimit = 20

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// RunSummary is the folded view of one run.
type RunSummary struct {
	RunID      string
	Status     string
	Mode       string
	Reference  string
	StartedAt  time.Time
	FinishedAt *time.Time
	Stats      RunCompleted
	Error      string

	firstID int64
}

// History returns summaries of the newest runs, newest first.
func (s *Store) History(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	events, err := s.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}

	runs := make(map[string]*RunSummary)
	for _, e := range events {
		summary, ok := runs[e.RunID]
		if !ok {
			summary = &RunSummary{RunID: e.RunID, Status: StatusRunning, StartedAt: e.Timestamp, firstID: e.ID}
			runs[e.RunID] = summary
		}
		apply(summary, e)
	}

	out := make([]RunSummary, 0, len(runs))
	for _, r := range runs {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].firstID > out[j].firstID })
	return out, nil
}

func apply(summary *RunSummary, e Event) {
	switch e.Type {
	case TypeRunStarted:
		var payload RunStarted
		if !decode(e, &payload) {
			return
		}
		summary.Mode = payload.Mode
		summary.Reference = payload.Reference
		summary.StartedAt = e.Timestamp
	case TypeRunCompleted:
		if !decode(e, &summary.Stats) {
			return
		}
		summary.Status = StatusCompleted
		finished := e.Timestamp
		summary.FinishedAt = &finished
	case TypeRunFailed:
		var payload RunFailed
		if !decode(e, &payload) {
			return
		}
		summary.Status = StatusFailed
		summary.Error = payload.Error
		finished := e.Timestamp
		summary.FinishedAt = &finished
	}
}

func decode(e Event, v any) bool {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		slog.Warn("Skipping unreadable ledger event",
			logfields.RunID(e.RunID),
			slog.String("event_type", e.Type),
			logfields.Error(err))
		return false
	}
	return true
}
