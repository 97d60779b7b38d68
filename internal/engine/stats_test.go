package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatsLogGetPostCounters(t *testing.T) {
	s := NewStats(true)
	s.LogGet(Operation{StartTime: 0, EndTime: 0.0005})
	s.LogPost(Operation{StartTime: 0, EndTime: 0.001})
	s.LogPost(Operation{StartTime: 0, EndTime: 0.0015})

	assert.EqualValues(t, 1, s.Gets)
	assert.EqualValues(t, 2, s.Posts)

	snap := s.Snapshot()
	assert.EqualValues(t, 1, snap.Gets)
	assert.EqualValues(t, 2, snap.Posts)
	assert.EqualValues(t, 1, snap.GetLatencyMicros.TotalCount())
	assert.EqualValues(t, 2, snap.PostLatencyMicros.TotalCount())
	assert.InDelta(t, 500, snap.GetLatencyMicros.Mean(), 50)
}

func TestStatsWithoutSamplingSkipsHistograms(t *testing.T) {
	s := NewStats(false)
	s.LogGet(Operation{StartTime: 0, EndTime: 1})
	assert.EqualValues(t, 1, s.Gets)

	snap := s.Snapshot()
	assert.Nil(t, snap.GetLatencyMicros)
	assert.Nil(t, snap.PostLatencyMicros)
}

func TestLatencyMicrosClampsNegative(t *testing.T) {
	assert.EqualValues(t, 0, latencyMicros(Operation{StartTime: 5, EndTime: 1}))
	assert.EqualValues(t, 1000, latencyMicros(Operation{StartTime: 0, EndTime: 0.001}))
}

func TestSnapshotIsIndependentOfLiveHistogram(t *testing.T) {
	s := NewStats(true)
	s.LogGet(Operation{StartTime: 0, EndTime: 0.0001})
	snap := s.Snapshot()
	s.LogGet(Operation{StartTime: 0, EndTime: 0.0002})
	assert.EqualValues(t, 1, snap.GetLatencyMicros.TotalCount())
	assert.EqualValues(t, 2, s.getLatencyMicros.TotalCount())
}
