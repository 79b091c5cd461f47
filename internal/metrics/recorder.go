package metrics

import "time"

// CacheResult enumerates compilation cache outcomes.
type CacheResult string

const (
	CacheHit     CacheResult = "hit"
	CacheMiss    CacheResult = "miss"
	CacheFailure CacheResult = "failure"
)

// Location names a directory garbage collected by a run.
type Location string

const (
	LocationCache   Location = "cache"
	LocationRelease Location = "release"
)

// RunOutcome is the final status of a run.
type RunOutcome string

const (
	OutcomeSuccess RunOutcome = "success"
	OutcomeWarning RunOutcome = "warning"
	OutcomeFailed  RunOutcome = "failed"
)

// Recorder defines observability hooks for runs, stages and compilations.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveRunDuration(d time.Duration)
	IncRunOutcome(outcome RunOutcome)
	IncCacheResult(result CacheResult)
	ObserveCompileDuration(d time.Duration, success bool)
	AddEmbeds(n int)
	AddPruned(location Location, n int)
	AddReleased(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveRunDuration(time.Duration)           {}
func (NoopRecorder) IncRunOutcome(RunOutcome)                   {}
func (NoopRecorder) IncCacheResult(CacheResult)                 {}
func (NoopRecorder) ObserveCompileDuration(time.Duration, bool) {}
func (NoopRecorder) AddEmbeds(int)                              {}
func (NoopRecorder) AddPruned(Location, int)                    {}
func (NoopRecorder) AddReleased(int)                            {}
