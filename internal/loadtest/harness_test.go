package loadtest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ratewright/internal/engine"
)

func newTestTarget(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func descriptorFor(t *testing.T, srv *httptest.Server) engine.OperationDescriptor {
	t.Helper()
	host, port, ok := strings.Cut(strings.TrimPrefix(srv.URL, "http://"), ":")
	require.True(t, ok)
	return engine.OperationDescriptor{Hostname: host, Port: port, Method: "GET", Path: "/"}
}

func TestHarnessRunCompletesAndAggregatesAcrossConnections(t *testing.T) {
	srv := newTestTarget(t)
	desc := descriptorFor(t, srv)

	opts := engine.DefaultOptions()
	opts.Records = 10
	opts.Depth = 2
	opts.Lambda = 0
	opts.Time = 0.2
	opts.Connections = 2

	h, err := NewHarness(opts, []engine.OperationDescriptor{desc}, false)
	require.NoError(t, err)

	summary, err := h.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, 2, summary.Connections)
	assert.Greater(t, summary.Ops, uint64(0))
	assert.Empty(t, summary.FatalErrors)
}

func TestHarnessRunStopsOnFatalError(t *testing.T) {
	opts := engine.DefaultOptions()
	opts.Records = 10
	opts.Depth = 1
	opts.Lambda = 0
	opts.Time = 5
	opts.Connections = 1

	desc := engine.OperationDescriptor{Hostname: "127.0.0.1", Port: "1", Method: "GET", Path: "/"}
	h, err := NewHarness(opts, []engine.OperationDescriptor{desc}, false)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err = h.Run(ctx)
	require.Error(t, err)
}

func TestHarnessDefaultsToOneConnectionWhenUnset(t *testing.T) {
	srv := newTestTarget(t)
	desc := descriptorFor(t, srv)

	opts := engine.DefaultOptions()
	opts.Records = 5
	opts.Depth = 1
	opts.Time = 0.1
	opts.Connections = 0

	h, err := NewHarness(opts, []engine.OperationDescriptor{desc}, false)
	require.NoError(t, err)

	summary, err := h.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Connections)
}
