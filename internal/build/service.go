package build

import (
	"time"
)

// ReleaseDirName is the directory below the book sources that receives the
// live artifacts. The embed loader fetches them from there.
const ReleaseDirName = ".icebergs"

// Mode names the entry point a run was started from.
type Mode string

const (
	ModePreprocess Mode = "preprocess"
	ModeBuild      Mode = "build"
	ModeWatch      Mode = "watch"
)

// Document is a page rewritten in place by a run.
type Document struct {
	Name    string
	Content string
}

// Request contains the inputs of one run.
type Request struct {
	// Root is the book root; the build workspace lives below it.
	Root string
	// SourceDir is the book source directory.
	SourceDir string
	// Preprocessor is the [preprocessor.iced] table of the book.
	Preprocessor map[string]any
	// Documents are transformed in order.
	Documents []*Document
	Mode      Mode
}

// Status is the overall outcome of a run.
type Status string

const (
	StatusSuccess Status = "success"
	// StatusWarning marks a run where some blocks failed to compile.
	StatusWarning Status = "warning"
	StatusFailed  Status = "failed"
)

// Result contains the outcome of a run.
type Result struct {
	RunID     string
	Status    Status
	Documents int
	Blocks    int
	Embeds    int
	Compiled  int
	CacheHits int
	Failures  int
	// PrunedCache and PrunedRelease count stale artifacts removed from the
	// cache and the release directory.
	PrunedCache   int
	PrunedRelease int
	Released      int
	StartTime     time.Time
	Duration      time.Duration
}
