package metrics

import (
	"testing"
	"time"
)

func TestNoopRecorder(_ *testing.T) {
	var r Recorder = NoopRecorder{}
	r.ObserveStageDuration("release", time.Millisecond)
	r.ObserveRunDuration(time.Second)
	r.IncRunOutcome(OutcomeFailed)
	r.IncCacheResult(CacheMiss)
	r.ObserveCompileDuration(time.Second, false)
	r.AddEmbeds(1)
	r.AddPruned(LocationRelease, 1)
	r.AddReleased(1)
}

func TestPrometheusRecorderSatisfiesRecorder(_ *testing.T) {
	var _ Recorder = (*PrometheusRecorder)(nil)
}
