package engine

import (
	"math/rand"
	"time"
)

// Connection is the orchestrator (C9): it owns the operation queue,
// stats, the write and read state machines, and the protocol adapter
// for one logical connection to one endpoint. Construction mirrors
// Connection::Connection in the source: generators are built from
// Options, DNS/transport setup is delegated to the protocol adapter,
// and both state machines start in their initial states.
type Connection struct {
	clock Clock
	rng   *rand.Rand

	desc    OperationDescriptor
	options Options
	proto   protocol

	queue *opQueue
	stats *Stats

	keygen    *KeyGenerator
	valuesize Generator
	iagen     Generator

	writeState WriteState
	readState  ReadState

	startTime float64
	nextTime  float64
	lastTx    float64
	lastRx    float64

	loaderIssued    int
	loaderCompleted int

	seqNext        uint64
	completedCount uint64
	pendingResp    map[uint64]response

	terminated bool
	onFatal    func(error)

	// pathFunc/headerFunc/bodyFunc are optional per-issue hooks a caller
	// may install with SetHooks (spec.md's C17 templating layer). Nil
	// means "use the descriptor's static path/headers and a random body
	// drawn from valuesize", the engine's default behavior.
	pathFunc   func(key string) string
	headerFunc func(key string) map[string]string
	bodyFunc   func(key string) []byte

	// async selects the production wiring: deliver() hands completions
	// to respCh instead of calling handleIncoming inline, so that
	// concurrent protocol goroutines never touch state directly. Tests
	// leave this false and drive the connection from a single goroutine.
	async  bool
	respCh chan seqResponse

	timerArmed bool
	timer      *time.Timer
	fired      chan struct{}
	stopCh     chan struct{}
	stoppedCh  chan struct{}
	snapshotCh chan chan StatsSnapshot
}

// NewConnection builds a Connection for one operation descriptor.
// Construction does not set start_time; that's set by Start.
func NewConnection(clock Clock, rng *rand.Rand, desc OperationDescriptor, options Options, sampling bool, proto protocol, onFatal func(error)) (*Connection, error) {
	if err := options.Validate(); err != nil {
		return nil, err
	}
	desc = desc.WithDefaults()
	if _, err := ParseMethod(desc.Method); err != nil {
		return nil, err
	}

	valuesize, err := NewGenerator(options.ValueSize, rng)
	if err != nil {
		return nil, fatalf(ErrConfigInvalid, "NewConnection", err)
	}
	keysize, err := NewGenerator(options.KeySize, rng)
	if err != nil {
		return nil, fatalf(ErrConfigInvalid, "NewConnection", err)
	}

	var iagen Generator
	if options.Lambda <= 0 {
		iagen, _ = NewGenerator("0", rng)
	} else {
		iagen, err = NewGenerator(options.IA, rng)
		if err != nil {
			return nil, fatalf(ErrConfigInvalid, "NewConnection", err)
		}
		if withLambda, ok := iagen.(Lambda); ok {
			withLambda.SetLambda(options.Lambda)
		}
	}

	return &Connection{
		clock:      clock,
		rng:        rng,
		desc:       desc,
		options:    options,
		proto:      proto,
		queue:      newOpQueue(options.Depth),
		stats:      NewStats(sampling),
		keygen:     NewKeyGenerator(keysize, options.Records),
		valuesize:  valuesize,
		iagen:      iagen,
		writeState: WriteInit,
		readState:  ReadIdle,
		onFatal:    onFatal,
	}, nil
}

// scheduleTimer arms a one-shot wakeup delaySeconds from now. In async
// mode this is a real time.Timer feeding c.fired; in sync/test mode it
// just records that a timer is pending, so the test can call
// driveWrite again once it decides "time" has passed.
func (c *Connection) scheduleTimer(delaySeconds float64) {
	c.timerArmed = true
	if !c.async {
		return
	}
	if delaySeconds < 0 {
		delaySeconds = 0
	}
	if c.timer == nil {
		c.timer = time.AfterFunc(time.Duration(delaySeconds*float64(time.Second)), func() {
			select {
			case c.fired <- struct{}{}:
			case <-c.stopCh:
			}
		})
		return
	}
	c.timer.Reset(time.Duration(delaySeconds * float64(time.Second)))
}

// Start sets start_time and kicks the write state machine, matching
// Connection::start. Callers that want the production goroutine/timer
// wiring should call Run (or Start followed by Run); tests typically
// call Start alone and drive the machine by hand.
func (c *Connection) Start(now float64) {
	c.startTime = now
	c.driveWrite(now)
}

// Run puts the connection into asynchronous mode and blocks, serving
// timer and response wakeups from a single goroutine until Time
// elapses, loadonly completion, a fatal error, or Stop is called. It is
// the production entry point; connection_test.go exercises the state
// machines directly instead, without ever calling Run.
func (c *Connection) Run() {
	c.async = true
	c.respCh = make(chan seqResponse, 64)
	c.fired = make(chan struct{}, 1)
	c.stopCh = make(chan struct{})
	c.stoppedCh = make(chan struct{})
	c.snapshotCh = make(chan chan StatsSnapshot)
	defer close(c.stoppedCh)

	c.Start(c.clock.Now())

	for {
		if c.terminated || c.checkExitCondition(c.clock.Now()) {
			return
		}
		select {
		case <-c.fired:
			c.timerArmed = false
			c.driveWrite(c.clock.Now())
		case sr := <-c.respCh:
			c.handleIncoming(c.clock.Now(), sr.seq, sr.resp)
		case reply := <-c.snapshotCh:
			reply <- c.stats.Snapshot()
		case <-c.stopCh:
			return
		}
	}
}

// RequestSnapshot safely reads this connection's stats. In async mode
// (under Run) it hands the read off to the connection's own goroutine,
// since Stats is otherwise mutated without locking; in sync/test mode
// there is only ever one goroutine touching the connection, so it reads
// directly.
func (c *Connection) RequestSnapshot() StatsSnapshot {
	if !c.async {
		return c.Stats()
	}
	reply := make(chan StatsSnapshot, 1)
	select {
	case c.snapshotCh <- reply:
		return <-reply
	case <-c.stoppedCh:
		return c.stats.Snapshot()
	}
}

// Stop releases the timer and unblocks a running Run loop, matching the
// source destructor's event_free(timer).
func (c *Connection) Stop() {
	if c.timer != nil {
		c.timer.Stop()
	}
	if c.async {
		close(c.stopCh)
		<-c.stoppedCh
	}
}

// Reset returns the connection to its initial state, requiring an empty
// queue, matching Connection::reset.
func (c *Connection) Reset() error {
	if c.queue.size() != 0 {
		return fatalf(ErrInvariantViolation, "Reset", errNonEmptyQueue)
	}
	c.timerArmed = false
	if c.timer != nil {
		c.timer.Stop()
	}
	c.readState = ReadIdle
	c.writeState = WriteInit
	c.terminated = false
	c.loaderIssued = 0
	c.loaderCompleted = 0
	c.seqNext = 0
	c.completedCount = 0
	c.pendingResp = nil
	c.lastTx = 0
	c.lastRx = 0
	c.stats = NewStats(c.stats.sampling)
	return nil
}

// Stats snapshots the connection's counters and latency histograms.
func (c *Connection) Stats() StatsSnapshot { return c.stats.Snapshot() }

// StartLoading switches the read state machine into the pre-flight
// loading mode described in spec.md §4.3, issuing up to loaderChunk
// POSTs at a time until options.Records keys have been written.
func (c *Connection) StartLoading(now float64) {
	c.readState = ReadLoading
	c.topUpLoader(now)
}

// SetHooks installs the request-templating hooks described in
// spec.md's C17 enrichment. Any nil argument leaves that aspect of
// request construction at its default (static path/headers, random
// body). Must be called before Start.
func (c *Connection) SetHooks(pathFunc func(key string) string, headerFunc func(key string) map[string]string, bodyFunc func(key string) []byte) {
	c.pathFunc = pathFunc
	c.headerFunc = headerFunc
	c.bodyFunc = bodyFunc
}
