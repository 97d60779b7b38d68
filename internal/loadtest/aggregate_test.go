package loadtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ratewright/internal/engine"
)

func TestMergeSumsCountersAcrossConnections(t *testing.T) {
	r := newRunSummary()
	r.merge(engine.StatsSnapshot{Ops: 10, Gets: 8, Posts: 2, TxBytes: 100, RxBytes: 200, GetMisses: 1})
	r.merge(engine.StatsSnapshot{Ops: 5, Gets: 5, TxBytes: 50, RxBytes: 75})

	assert.EqualValues(t, 15, r.Ops)
	assert.EqualValues(t, 13, r.Gets)
	assert.EqualValues(t, 2, r.Posts)
	assert.EqualValues(t, 150, r.TxBytes)
	assert.EqualValues(t, 275, r.RxBytes)
	assert.EqualValues(t, 1, r.GetMisses)
}

func TestMergeSkipsNilHistograms(t *testing.T) {
	r := newRunSummary()
	assert.NotPanics(t, func() {
		r.merge(engine.StatsSnapshot{Ops: 1})
	})
}

func TestRPSZeroWithoutDuration(t *testing.T) {
	r := newRunSummary()
	r.Ops = 100
	assert.Zero(t, r.RPS())
}

func TestRPSComputesThroughput(t *testing.T) {
	r := newRunSummary()
	r.Ops = 200
	r.Duration = 2 * time.Second
	assert.InDelta(t, 100.0, r.RPS(), 0.001)
}
