package engine

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProtocol records every sendRequest call and lets the test decide
// when (and with what) each one completes, synchronously, so the whole
// state machine can be driven deterministically without a real clock
// or network.
type fakeProtocol struct {
	calls []fakeCall
}

type fakeCall struct {
	method  Method
	path    string
	headers map[string]string
	body    []byte
	done    func(response)
}

func (f *fakeProtocol) sendRequest(method Method, path string, headers map[string]string, body []byte, done func(response)) {
	f.calls = append(f.calls, fakeCall{method: method, path: path, headers: headers, body: body, done: done})
}

func newTestConnection(t *testing.T, mutate func(*Options)) (*Connection, *fakeProtocol, *manualClock, *[]error) {
	t.Helper()
	opts := DefaultOptions()
	opts.Records = 100
	if mutate != nil {
		mutate(&opts)
	}
	clock := newManualClock()
	proto := &fakeProtocol{}
	var fatals []error
	conn, err := NewConnection(clock, rand.New(rand.NewSource(1)), OperationDescriptor{}, opts, true, proto, func(e error) {
		fatals = append(fatals, e)
	})
	require.NoError(t, err)
	return conn, proto, clock, &fatals
}

func TestDepthBoundsConcurrentIssuance(t *testing.T) {
	conn, proto, clock, _ := newTestConnection(t, func(o *Options) { o.Depth = 2 })
	conn.Start(clock.Now())

	assert.Len(t, proto.calls, 2)
	assert.Equal(t, 2, conn.queue.size())
	assert.Equal(t, WriteWaitingForOpQ, conn.writeState)
}

func TestSingleDepthSerializesIssuance(t *testing.T) {
	conn, proto, clock, _ := newTestConnection(t, func(o *Options) { o.Depth = 1 })
	conn.Start(clock.Now())
	require.Len(t, proto.calls, 1)

	for i := 0; i < 5; i++ {
		proto.calls[len(proto.calls)-1].done(response{status: 200, rxBytes: 4})
	}

	assert.EqualValues(t, 6, conn.stats.Ops)
	assert.EqualValues(t, 5, conn.stats.Gets)
	assert.LessOrEqual(t, conn.queue.size(), 1)
}

func TestFinishOpReleasesDepthSlot(t *testing.T) {
	conn, proto, clock, _ := newTestConnection(t, func(o *Options) { o.Depth = 2 })
	conn.Start(clock.Now())
	require.Len(t, proto.calls, 2)

	proto.calls[0].done(response{status: 200, rxBytes: 5})

	assert.Len(t, proto.calls, 3, "completing one op should free a slot and issue a third")
	assert.Equal(t, 2, conn.queue.size())
	assert.EqualValues(t, 1, conn.stats.Gets)
	assert.EqualValues(t, 5, conn.stats.RxBytes)
}

func TestMissStatusIncrementsGetMissesAndContinues(t *testing.T) {
	conn, proto, clock, fatals := newTestConnection(t, func(o *Options) { o.Depth = 1 })
	conn.Start(clock.Now())
	require.Len(t, proto.calls, 1)

	proto.calls[0].done(response{status: 404, rxBytes: 2})

	assert.Empty(t, *fatals)
	assert.EqualValues(t, 1, conn.stats.GetMisses)
	assert.EqualValues(t, 1, conn.stats.Gets)
}

func TestUnknownStatusIsFatalAndHalts(t *testing.T) {
	conn, proto, clock, fatals := newTestConnection(t, func(o *Options) { o.Depth = 1 })
	conn.Start(clock.Now())
	require.Len(t, proto.calls, 1)

	proto.calls[0].done(response{status: 418})

	require.Len(t, *fatals, 1)
	var fe *FatalError
	require.ErrorAs(t, (*fatals)[0], &fe)
	assert.Equal(t, ErrUnknownStatus, fe.Kind)
	assert.True(t, conn.terminated)

	callsBefore := len(proto.calls)
	conn.driveWrite(clock.Now())
	assert.Len(t, proto.calls, callsBefore, "a terminated connection must not keep issuing")
}

func TestConnectionRefusedIsFatal(t *testing.T) {
	conn, proto, clock, fatals := newTestConnection(t, func(o *Options) { o.Depth = 1 })
	conn.Start(clock.Now())
	require.Len(t, proto.calls, 1)

	proto.calls[0].done(response{refused: true, transportErr: errors.New("dial tcp: connection refused")})

	require.Len(t, *fatals, 1)
	var fe *FatalError
	require.ErrorAs(t, (*fatals)[0], &fe)
	assert.Equal(t, ErrConnectRefused, fe.Kind)
}

func TestTransportErrorIsFatal(t *testing.T) {
	conn, proto, clock, fatals := newTestConnection(t, func(o *Options) { o.Depth = 1 })
	conn.Start(clock.Now())
	require.Len(t, proto.calls, 1)

	proto.calls[0].done(response{transportErr: errors.New("unexpected EOF")})

	require.Len(t, *fatals, 1)
	var fe *FatalError
	require.ErrorAs(t, (*fatals)[0], &fe)
	assert.Equal(t, ErrTransportError, fe.Kind)
}

func TestOutOfOrderResponsesAreResequenced(t *testing.T) {
	conn, proto, clock, fatals := newTestConnection(t, func(o *Options) { o.Depth = 2 })
	conn.Start(clock.Now())
	require.Len(t, proto.calls, 2)

	// Complete the second-issued request before the first.
	proto.calls[1].done(response{status: 200, rxBytes: 1})
	assert.EqualValues(t, 0, conn.stats.Gets, "must not finish out of FIFO order")
	assert.Equal(t, 2, conn.queue.size())

	proto.calls[0].done(response{status: 200, rxBytes: 1})
	assert.EqualValues(t, 2, conn.stats.Gets, "both ops finish once FIFO order is satisfied")
	assert.Empty(t, *fatals)
}

func TestUpdateProbabilityChoosesMethod(t *testing.T) {
	conn, proto, clock, _ := newTestConnection(t, func(o *Options) {
		o.Depth = 1
		o.Update = 1.0
	})
	conn.Start(clock.Now())
	require.Len(t, proto.calls, 1)
	assert.Equal(t, MethodPost, proto.calls[0].method)
	assert.NotEmpty(t, proto.calls[0].body)
}

func TestZeroUpdateAlwaysIssuesGet(t *testing.T) {
	conn, proto, clock, _ := newTestConnection(t, func(o *Options) {
		o.Depth = 1
		o.Update = 0
	})
	conn.Start(clock.Now())
	require.Len(t, proto.calls, 1)
	assert.Equal(t, MethodGet, proto.calls[0].method)
}

func TestCheckExitConditionStopsAfterTime(t *testing.T) {
	conn, proto, clock, _ := newTestConnection(t, func(o *Options) {
		o.Depth = 1
		o.Time = 1
	})
	conn.Start(clock.Now())
	require.Len(t, proto.calls, 1)
	proto.calls[0].done(response{status: 200})
	before := len(proto.calls)

	clock.Set(2)
	conn.driveWrite(clock.Now())
	assert.Len(t, proto.calls, before, "past options.time no further issuance should occur")
}

func TestLoadOnlyExitsWhenQueueDrains(t *testing.T) {
	conn, proto, clock, _ := newTestConnection(t, func(o *Options) {
		o.Depth = 1
		o.LoadOnly = true
		o.Time = 1000
	})
	conn.Start(clock.Now())
	require.Len(t, proto.calls, 1)
	proto.calls[0].done(response{status: 200})

	assert.True(t, conn.checkExitCondition(clock.Now()))
}

func TestModerateDefersFirstIssueFromColdStart(t *testing.T) {
	conn, proto, clock, _ := newTestConnection(t, func(o *Options) {
		o.Depth = 1
		o.Moderate = true
	})
	conn.Start(clock.Now())
	assert.Empty(t, proto.calls, "moderate gate blocks issuance before last_rx+250us has elapsed")
	assert.Equal(t, WriteWaitingForTime, conn.writeState)

	clock.Set(moderateGapSeconds)
	conn.driveWrite(clock.Now())
	assert.Len(t, proto.calls, 1)
}

func TestSkipAheadCatchesUpBacklog(t *testing.T) {
	conn, proto, clock, _ := newTestConnection(t, func(o *Options) {
		o.Depth = 1
		o.Skip = true
		o.Lambda = 1000
		o.IA = "fixed:0.001"
	})
	conn.Start(clock.Now())
	require.Empty(t, proto.calls, "first arrival is still a millisecond out")

	clock.Set(0.05)
	conn.driveWrite(clock.Now())

	require.Len(t, proto.calls, 1)
	assert.Greater(t, conn.stats.Skips, uint64(0))
	lag := clock.Now() - conn.nextTime
	assert.InDelta(t, 0.004, lag, 0.0015, "skip-ahead should land next_time within ~4-5ms of now")
}

func TestResetRequiresEmptyQueue(t *testing.T) {
	conn, proto, clock, _ := newTestConnection(t, func(o *Options) {
		o.Depth = 1
		o.LoadOnly = true
	})
	conn.Start(clock.Now())
	require.Len(t, proto.calls, 1)

	err := conn.Reset()
	assert.Error(t, err)

	proto.calls[0].done(response{status: 200})
	require.NoError(t, conn.Reset())
	assert.Equal(t, WriteInit, conn.writeState)
	assert.Equal(t, ReadIdle, conn.readState)
}
