package engine

import (
	"time"

	hdrhistogram "github.com/HdrHistogram/hdrhistogram-go"
)

// histogramMin/Max/Sigfigs bound the latency range this engine expects
// to measure: 1 microsecond to 10 minutes, 3 significant figures. Same
// bounds the teacher's SafeHistogram uses.
const (
	histogramMinMicros  = 1
	histogramMaxMicros  = int64(10 * time.Minute / time.Microsecond)
	histogramSigFigures = 3
)

// Stats is the per-connection stats recorder (C5). Counters are
// monotonically non-decreasing across a run, per spec.md §3's invariant.
// sampling is fixed at construction: when false, per-op latencies are
// aggregated into counters only and the histograms stay empty.
type Stats struct {
	sampling bool

	TxBytes   uint64
	RxBytes   uint64
	GetMisses uint64
	Skips     uint64
	Ops       uint64
	Gets      uint64
	Posts     uint64

	getLatencyMicros  *hdrhistogram.Histogram
	postLatencyMicros *hdrhistogram.Histogram
}

func NewStats(sampling bool) *Stats {
	s := &Stats{sampling: sampling}
	if sampling {
		s.getLatencyMicros = hdrhistogram.New(histogramMinMicros, histogramMaxMicros, histogramSigFigures)
		s.postLatencyMicros = hdrhistogram.New(histogramMinMicros, histogramMaxMicros, histogramSigFigures)
	}
	return s
}

// LogOp records that a request was issued; queueSize is the op queue
// depth immediately after the push, matching the source's
// stats.log_op(op_queue.size()) call in drive_write_machine's ISSUING
// state.
func (s *Stats) LogOp(queueSize int) {
	s.Ops++
}

// LogGet/LogPost record a completed operation's latency, per spec.md
// §4.3's finish_op step 2.
func (s *Stats) LogGet(op Operation) {
	s.Gets++
	if s.sampling {
		s.getLatencyMicros.RecordValue(latencyMicros(op))
	}
}

func (s *Stats) LogPost(op Operation) {
	s.Posts++
	if s.sampling {
		s.postLatencyMicros.RecordValue(latencyMicros(op))
	}
}

func latencyMicros(op Operation) int64 {
	d := (op.EndTime - op.StartTime) * 1e6
	if d < 0 {
		return 0
	}
	return int64(d)
}

// StatsSnapshot is an immutable copy of Stats safe to hand to another
// goroutine (the aggregation/reporting layer), per C9's stats() contract.
type StatsSnapshot struct {
	TxBytes, RxBytes      uint64
	GetMisses, Skips, Ops uint64
	Gets, Posts           uint64
	GetLatencyMicros      *hdrhistogram.Histogram
	PostLatencyMicros     *hdrhistogram.Histogram
}

func (s *Stats) Snapshot() StatsSnapshot {
	snap := StatsSnapshot{
		TxBytes:   s.TxBytes,
		RxBytes:   s.RxBytes,
		GetMisses: s.GetMisses,
		Skips:     s.Skips,
		Ops:       s.Ops,
		Gets:      s.Gets,
		Posts:     s.Posts,
	}
	if s.sampling {
		snap.GetLatencyMicros = hdrhistogram.New(histogramMinMicros, histogramMaxMicros, histogramSigFigures)
		snap.GetLatencyMicros.Merge(s.getLatencyMicros)
		snap.PostLatencyMicros = hdrhistogram.New(histogramMinMicros, histogramMaxMicros, histogramSigFigures)
		snap.PostLatencyMicros.Merge(s.postLatencyMicros)
	}
	return snap
}
