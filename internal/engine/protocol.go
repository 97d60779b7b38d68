package engine

import (
	"bytes"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"
)

// response is what a protocol adapter hands back to the read state
// machine: either a status code and drained byte count, or a transport
// failure. refused reports that the connection attempt itself was
// rejected (spec.md §4.3's status-0 "connection refused" case);
// transportErr reports any other network failure.
type response struct {
	status       int
	rxBytes      int64
	refused      bool
	transportErr error
}

func isConnectionRefused(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errors.Is(opErr.Err, syscall.ECONNREFUSED)
	}
	return false
}

// protocol is the contract C9 requires of C6 (spec.md §4.4): send a
// request, get exactly one completion callback per request, preserving
// per-connection request/response ordering. The HTTP core only needs
// sendRequest; the source's setup_connection_w/r handshake hooks belong
// to the vestigial raw-TCP adapter and have no counterpart here.
type protocol interface {
	// sendRequest issues a request and invokes done exactly once when
	// the response (or a transport failure) is available. It must not
	// block the caller's goroutine past submission.
	sendRequest(method Method, path string, headers map[string]string, body []byte, done func(response))
}

// httpProtocol adapts the engine to net/http. One httpProtocol per
// Connection; its Transport has connection reuse disabled, matching
// spec.md §1's "close after each request" non-goal on pooling.
type httpProtocol struct {
	baseURL string
	host    string
	client  *http.Client
}

func newHTTPProtocol(scheme, host, port string, timeout time.Duration) *httpProtocol {
	transport := &http.Transport{
		DisableKeepAlives: true,
		TLSClientConfig:   &tls.Config{MinVersion: tls.VersionTLS12},
	}
	return &httpProtocol{
		baseURL: fmt.Sprintf("%s://%s:%s", scheme, host, port),
		host:    host,
		client:  &http.Client{Transport: transport, Timeout: timeout},
	}
}

func (p *httpProtocol) sendRequest(method Method, path string, headers map[string]string, body []byte, done func(response)) {
	go func() {
		var bodyReader io.Reader
		if len(body) > 0 {
			bodyReader = bytes.NewReader(body)
		}
		req, err := http.NewRequest(method.String(), p.baseURL+path, bodyReader)
		if err != nil {
			done(response{transportErr: err})
			return
		}
		req.Host = p.host
		req.Header.Set("Host", p.host)
		req.Header.Set("Connection", "close")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := p.client.Do(req)
		if err != nil {
			done(response{refused: isConnectionRefused(err), transportErr: err})
			return
		}
		defer resp.Body.Close()

		n, _ := io.Copy(io.Discard, resp.Body)
		done(response{status: resp.StatusCode, rxBytes: n})
	}()
}
