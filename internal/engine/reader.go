package engine

import "fmt"

// statusClass is the result of classifying an HTTP status against the
// table in spec.md §4.3.
type statusClass int

const (
	statusSuccess statusClass = iota
	statusMiss
	statusUnknown
)

// missStatuses are "known, but not success" codes: recorded as a miss,
// the run continues.
var missStatuses = map[int]bool{
	204: true, 301: true, 302: true, 304: true,
	400: true, 404: true, 405: true, 413: true, 417: true,
	500: true, 501: true, 503: true,
}

func classifyStatus(status int) statusClass {
	switch status {
	case 200, 202:
		return statusSuccess
	}
	if missStatuses[status] {
		return statusMiss
	}
	return statusUnknown
}

// deliver is invoked once per issued request, in whatever order the
// underlying transport(s) actually complete them. It resequences
// completions by the sequence number issueRequest assigned, so the read
// state machine always observes operations in FIFO issuance order even
// when depth > 1 spans concurrent underlying connections (spec.md §4.4:
// "must preserve per-connection request-response ordering").
func (c *Connection) deliver(seq uint64, resp response) {
	if c.async {
		c.respCh <- seqResponse{seq: seq, resp: resp}
		return
	}
	c.handleIncoming(c.clock.Now(), seq, resp)
}

type seqResponse struct {
	seq  uint64
	resp response
}

func (c *Connection) handleIncoming(now float64, seq uint64, resp response) {
	if seq != c.completedCount {
		if c.pendingResp == nil {
			c.pendingResp = make(map[uint64]response)
		}
		c.pendingResp[seq] = resp
		return
	}

	c.consume(now, resp)
	c.completedCount++

	for {
		next, ok := c.pendingResp[c.completedCount]
		if !ok {
			break
		}
		delete(c.pendingResp, c.completedCount)
		c.consume(now, next)
		c.completedCount++
	}
}

// consume dispatches one completed response against the current
// read_state, mirroring Connection::read_callback's switch.
func (c *Connection) consume(now float64, resp response) {
	if c.terminated {
		return
	}

	switch c.readState {
	case ReadInit:
		c.fail(ErrInvariantViolation, "consume", fmt.Errorf("event from uninitialized connection"))

	case ReadIdle:
		// Spurious: we munched all the data we expected. Ignored
		// without logging; the source's read_callback IDLE case logs it.

	case ReadWaitingForGet, ReadWaitingForPost:
		if c.queue.size() == 0 {
			c.fail(ErrInvariantViolation, "consume", fmt.Errorf("spurious callback with empty queue"))
			return
		}
		if !c.classifyAndRecord(resp) {
			return
		}
		c.finishOp(now)

	case ReadLoading:
		if c.queue.size() == 0 {
			c.fail(ErrInvariantViolation, "consume", fmt.Errorf("spurious callback with empty queue"))
			return
		}
		if !c.classifyAndRecord(resp) {
			return
		}
		c.loaderCompleted++
		c.popOp()
		if c.loaderCompleted >= c.options.Records {
			c.readState = ReadIdle
		} else {
			c.topUpLoader(now)
		}

	case ReadConnSetup:
		c.readState = ReadIdle
	}
}

// classifyAndRecord applies spec.md §4.3's response classification and
// body accounting. It returns false if the response was fatal (a fatal
// has already been reported via c.fail).
func (c *Connection) classifyAndRecord(resp response) bool {
	if resp.transportErr != nil {
		if resp.refused {
			c.fail(ErrConnectRefused, "classifyAndRecord", fmt.Errorf("connection refused: %w", resp.transportErr))
		} else {
			c.fail(ErrTransportError, "classifyAndRecord", resp.transportErr)
		}
		return false
	}
	if resp.status == 0 {
		c.fail(ErrConnectRefused, "classifyAndRecord", fmt.Errorf("connection refused"))
		return false
	}

	switch classifyStatus(resp.status) {
	case statusMiss:
		c.stats.GetMisses++
	case statusUnknown:
		c.fail(ErrUnknownStatus, "classifyAndRecord", fmt.Errorf("unknown response code: %d", resp.status))
		return false
	}

	c.stats.RxBytes += uint64(resp.rxBytes)
	return true
}

// finishOp mirrors Connection::finish_op.
func (c *Connection) finishOp(now float64) {
	op := c.queue.front()
	op.EndTime = now

	switch op.Method {
	case MethodGet:
		c.stats.LogGet(*op)
	case MethodPost:
		c.stats.LogPost(*op)
	}

	c.lastRx = now
	c.popOp()
	c.driveWrite(now)
}

// popOp mirrors Connection::pop_op. Unlike the source — which never
// implemented the depth > 1 read path and aborts if another op remains
// queued after a pop — this engine supports real concurrent depth: if
// another op is already in flight after the pop, read_state re-arms to
// wait for it instead of idling.
func (c *Connection) popOp() {
	c.queue.pop()

	if c.readState == ReadLoading {
		return
	}
	if front := c.queue.front(); front != nil {
		c.readState = waitingStateFor(front.Method)
		return
	}
	c.readState = ReadIdle
}

// topUpLoader issues additional loader POSTs to keep loaderIssued ahead
// of loaderCompleted by loaderChunk, matching the source's LOADING
// top-up loop.
func (c *Connection) topUpLoader(now float64) {
	for c.loaderIssued < c.loaderCompleted+loaderChunk {
		if c.loaderIssued >= c.options.Records {
			break
		}
		key := c.keygen.Generate(c.loaderIssued)
		c.issueRequest(key, MethodPost, now)
		c.loaderIssued++
	}
}

// fail reports a fatal condition and halts the connection: no further
// driveWrite/consume work proceeds after this call.
func (c *Connection) fail(kind ErrorKind, op string, err error) {
	if c.terminated {
		return
	}
	c.terminated = true
	if c.onFatal != nil {
		c.onFatal(fatalf(kind, op, err))
	}
}
