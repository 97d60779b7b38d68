package engine

// driveWrite advances the write state machine (C7) until it must wait
// for a future wakeup (a timer or a response that frees a depth slot),
// mirroring Connection::drive_write_machine's trampoline loop: every
// case either transitions and falls through to re-evaluate immediately,
// or returns having armed exactly one wakeup.
func (c *Connection) driveWrite(now float64) {
	if c.terminated || c.checkExitCondition(now) {
		return
	}

	for {
		switch c.writeState {
		case WriteInit:
			delay := c.iagen.Generate()
			c.nextTime = now + delay
			c.scheduleTimer(delay)
			c.writeState = WriteWaitingForTime

		case WriteIssuing:
			if c.queue.size() >= c.options.Depth {
				c.writeState = WriteWaitingForOpQ
				return
			}
			if now < c.nextTime {
				// Loop through once more so WAITING_FOR_TIME can make
				// sure a timer is actually armed before we return.
				c.writeState = WriteWaitingForTime
				break
			}
			if c.options.Moderate && now < c.lastRx+moderateGapSeconds {
				c.writeState = WriteWaitingForTime
				if !c.timerArmed {
					c.scheduleTimer(c.lastRx + moderateGapSeconds - now)
				}
				return
			}

			c.issueSomething(now)
			c.lastTx = now
			c.stats.LogOp(c.queue.size())
			c.nextTime += c.iagen.Generate()

			if c.options.Skip && c.options.Lambda > 0 &&
				now-c.nextTime > skipAheadTriggerSeconds &&
				c.queue.size() >= c.options.Depth {
				for c.nextTime < now-skipAheadTargetSeconds {
					c.stats.Skips++
					c.nextTime += c.iagen.Generate()
				}
			}

		case WriteWaitingForTime:
			if now < c.nextTime {
				if !c.timerArmed {
					c.scheduleTimer(c.nextTime - now)
				}
				return
			}
			c.writeState = WriteIssuing

		case WriteWaitingForOpQ:
			if c.queue.size() >= c.options.Depth {
				return
			}
			c.writeState = WriteIssuing
		}
	}
}

// checkExitCondition mirrors Connection::check_exit_condition. The
// loadonly exit only applies once at least one request has been issued,
// so a fresh connection is idle without being finished.
func (c *Connection) checkExitCondition(now float64) bool {
	if c.readState == ReadInit {
		return false
	}
	if now > c.startTime+c.options.Time {
		return true
	}
	if c.options.LoadOnly && c.readState == ReadIdle && c.seqNext > 0 {
		return true
	}
	return false
}

// issueSomething picks a key and a method and issues the request. The
// source always issues a POST here (issue_something's GET/POST coin
// flip is dead `#if 0` code); this engine restores that coin flip,
// weighted by options.Update, since the Options table documents Update
// as a real knob.
func (c *Connection) issueSomething(now float64) {
	index := c.rng.Intn(c.options.Records)
	key := c.keygen.Generate(index)

	method := MethodGet
	if c.options.Update > 0 && c.rng.Float64() < c.options.Update {
		method = MethodPost
	}
	c.issueRequest(key, method, now)
}

// issueRequest pushes a new Operation, transitions read_state out of
// IDLE if this is the only outstanding op, and hands the request to the
// protocol adapter. The response is delivered back through c.deliver,
// tagged with a sequence number so out-of-order completions (possible
// once depth > 1 spans more than one underlying transport) are
// resequenced into FIFO order before the read state machine sees them.
func (c *Connection) issueRequest(key string, method Method, now float64) {
	op := Operation{Key: key, Method: method, StartTime: now}
	c.queue.push(op)

	if c.readState == ReadIdle {
		c.readState = waitingStateFor(method)
	}

	seq := c.seqNext
	c.seqNext++

	path := c.desc.Path
	if c.pathFunc != nil {
		path = c.pathFunc(key)
	}

	headers := c.desc.Headers
	if c.headerFunc != nil {
		headers = mergeHeaders(c.desc.Headers, c.headerFunc(key))
	}

	var body []byte
	if method == MethodPost {
		if c.bodyFunc != nil {
			body = c.bodyFunc(key)
		} else {
			size := int(c.valuesize.Generate())
			if size > 0 {
				body = make([]byte, size)
				c.rng.Read(body)
			}
		}
	}

	c.stats.TxBytes += uint64(encodedRequestSize(method, path, headers, body))

	c.proto.sendRequest(method, path, headers, body, func(resp response) {
		c.deliver(seq, resp)
	})
}

func mergeHeaders(base, overlay map[string]string) map[string]string {
	if len(overlay) == 0 {
		return base
	}
	merged := make(map[string]string, len(base)+len(overlay))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range overlay {
		merged[k] = v
	}
	return merged
}

// encodedRequestSize approximates the bytes a request puts on the wire:
// request line, headers, and body. It need not be exact, only
// consistent, since tx_bytes is a load-shape signal, not a billing
// figure.
func encodedRequestSize(method Method, path string, headers map[string]string, body []byte) int {
	n := len(method.String()) + len(path) + len(" HTTP/1.1\r\n")
	n += len("Host: \r\nConnection: close\r\n")
	for k, v := range headers {
		n += len(k) + len(v) + len(": \r\n")
	}
	n += len(body)
	return n
}
