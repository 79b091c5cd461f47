package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyHash       = "hash"
	KeyPath       = "path"
	KeyDocument   = "document"
	KeyEmbedID    = "embed_id"
	KeyReference  = "reference"
	KeyCount      = "count"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Hash(h string) slog.Attr         { return slog.String(KeyHash, h) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Document(d string) slog.Attr     { return slog.String(KeyDocument, d) }
func EmbedID(id uint64) slog.Attr     { return slog.Uint64(KeyEmbedID, id) }
func Reference(r string) slog.Attr    { return slog.String(KeyReference, r) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
