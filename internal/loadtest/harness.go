package loadtest

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"ratewright/internal/engine"
)

const defaultPollInterval = 200 * time.Millisecond

// ConnSnapshot tags a live StatsSnapshot with which connection produced
// it, since StatsUpdates interleaves every connection's ticks on one
// channel and a consumer rebuilding a running RunSummary (internal/tui)
// needs to replace, not accumulate, each connection's latest reading.
type ConnSnapshot struct {
	Index    int
	Snapshot engine.StatsSnapshot
}

// Harness owns options.Connections engine.Connection values, round-robin
// assigned across Descriptors, and drives a whole run: start every
// connection, fan in live stats, cancel everything on the first fatal
// error, and merge final snapshots into one RunSummary.
type Harness struct {
	Options     engine.Options
	Descriptors []engine.OperationDescriptor
	Sampling    bool

	// Timeout bounds each individual HTTP round trip; zero means no
	// client-side timeout beyond what the server itself enforces.
	Timeout time.Duration

	// PollInterval governs how often StatsUpdates receives a live
	// snapshot per connection while the run is in flight. Defaults to
	// 200ms if zero, matching the teacher's CLI reporter cadence.
	PollInterval time.Duration

	// Seed anchors each connection's *rand.Rand (connection i gets
	// Seed+i); zero draws a fresh seed from the wall clock on every Run,
	// so unseeded runs are not reproducible.
	Seed int64

	// Hooks, if set, installs per-connection request-templating hooks
	// (spec.md's C17) right after construction and before Start.
	Hooks func(conn *engine.Connection)

	// StatsUpdates, if non-nil, receives a best-effort stream of live
	// per-connection snapshots during the run. Sends never block; a
	// slow consumer simply misses intermediate updates.
	StatsUpdates chan ConnSnapshot
}

// NewHarness validates that there's at least one descriptor to drive
// connections against and fills in the Harness's own defaults.
func NewHarness(options engine.Options, descriptors []engine.OperationDescriptor, sampling bool) (*Harness, error) {
	if len(descriptors) == 0 {
		return nil, fmt.Errorf("loadtest: at least one operation descriptor required")
	}
	return &Harness{
		Options:     options,
		Descriptors: descriptors,
		Sampling:    sampling,
	}, nil
}

func (h *Harness) pollInterval() time.Duration {
	if h.PollInterval > 0 {
		return h.PollInterval
	}
	return defaultPollInterval
}

// Run builds options.Connections connections, starts them concurrently,
// and blocks until every one reaches its own exit condition, ctx is
// cancelled, or a connection reports a fatal error — whichever comes
// first cancels the rest. It returns the first fatal error observed,
// alongside whatever summary was mergeable at that point.
func (h *Harness) Run(ctx context.Context) (*RunSummary, error) {
	n := h.Options.Connections
	if n < 1 {
		n = 1
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	slog.Info("run starting", "connections", n, "depth", h.Options.Depth, "records", h.Options.Records)

	clock := engine.NewSystemClock()
	seed := h.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	var fatalMu sync.Mutex
	var fatalErr error
	onFatal := func(err error) {
		fatalMu.Lock()
		if fatalErr == nil {
			fatalErr = err
		}
		fatalMu.Unlock()
		slog.Error("connection reported fatal error", "err", err)
		cancel()
	}

	conns := make([]*engine.Connection, n)
	for i := 0; i < n; i++ {
		desc := h.Descriptors[i%len(h.Descriptors)]
		rng := rand.New(rand.NewSource(seed + int64(i)))
		conn, err := engine.NewHTTPConnection(clock, rng, desc, h.Options, h.Sampling, h.Timeout, onFatal)
		if err != nil {
			return nil, err
		}
		if h.Hooks != nil {
			h.Hooks(conn)
		}
		conns[i] = conn
	}

	var wg sync.WaitGroup
	wg.Add(n)
	for _, conn := range conns {
		conn := conn
		go func() {
			defer wg.Done()
			conn.Run()
		}()
	}

	allDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(allDone)
	}()

	ticker := time.NewTicker(h.pollInterval())
	defer ticker.Stop()

	start := time.Now()

waitLoop:
	for {
		select {
		case <-allDone:
			break waitLoop
		case <-runCtx.Done():
			for _, conn := range conns {
				conn.Stop()
			}
			<-allDone
			break waitLoop
		case <-ticker.C:
			h.publishSnapshots(conns)
		}
	}

	summary := newRunSummary()
	summary.Connections = n
	summary.Duration = time.Since(start)
	for _, conn := range conns {
		summary.merge(conn.RequestSnapshot())
	}
	if fatalErr != nil {
		summary.FatalErrors = append(summary.FatalErrors, fatalErr)
		slog.Error("run stopped", "ops", summary.Ops, "duration", summary.Duration, "err", fatalErr)
		return summary, fatalErr
	}
	slog.Info("run finished", "ops", summary.Ops, "duration", summary.Duration)
	return summary, nil
}

func (h *Harness) publishSnapshots(conns []*engine.Connection) {
	if h.StatsUpdates == nil {
		return
	}
	for i, conn := range conns {
		snap := conn.RequestSnapshot()
		select {
		case h.StatsUpdates <- ConnSnapshot{Index: i, Snapshot: snap}:
		default:
		}
	}
}
