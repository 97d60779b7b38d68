package loadtest

import (
	"time"

	hdrhistogram "github.com/HdrHistogram/hdrhistogram-go"

	"ratewright/internal/engine"
)

const (
	histogramMinMicros  = 1
	histogramMaxMicros  = int64(10 * time.Minute / time.Microsecond)
	histogramSigFigures = 3
)

// RunSummary aggregates every connection's final StatsSnapshot into a
// single report, merging latency histograms across connections exactly
// as engine.Stats.Snapshot merges across samples within one connection.
type RunSummary struct {
	Connections int
	Duration    time.Duration

	TxBytes   uint64
	RxBytes   uint64
	GetMisses uint64
	Skips     uint64
	Ops       uint64
	Gets      uint64
	Posts     uint64

	GetLatencyMicros  *hdrhistogram.Histogram
	PostLatencyMicros *hdrhistogram.Histogram

	FatalErrors []error
}

func newRunSummary() *RunSummary {
	return &RunSummary{
		GetLatencyMicros:  hdrhistogram.New(histogramMinMicros, histogramMaxMicros, histogramSigFigures),
		PostLatencyMicros: hdrhistogram.New(histogramMinMicros, histogramMaxMicros, histogramSigFigures),
	}
}

// MergeSnapshots folds a set of per-connection snapshots into one
// RunSummary, the same reduction Harness.Run performs at the end of a
// run. Callers polling live snapshots (internal/tui) can call this on
// every tick, passing the latest snapshot seen per connection, without
// reaching into RunSummary's unexported merge step themselves.
func MergeSnapshots(snaps []engine.StatsSnapshot) *RunSummary {
	r := newRunSummary()
	r.Connections = len(snaps)
	for _, s := range snaps {
		r.merge(s)
	}
	return r
}

func (r *RunSummary) merge(snap engine.StatsSnapshot) {
	r.TxBytes += snap.TxBytes
	r.RxBytes += snap.RxBytes
	r.GetMisses += snap.GetMisses
	r.Skips += snap.Skips
	r.Ops += snap.Ops
	r.Gets += snap.Gets
	r.Posts += snap.Posts
	if snap.GetLatencyMicros != nil {
		r.GetLatencyMicros.Merge(snap.GetLatencyMicros)
	}
	if snap.PostLatencyMicros != nil {
		r.PostLatencyMicros.Merge(snap.PostLatencyMicros)
	}
}

// RPS is the throughput observed over Duration; zero if the run hasn't
// taken any measurable time yet.
func (r *RunSummary) RPS() float64 {
	secs := r.Duration.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(r.Ops) / secs
}
