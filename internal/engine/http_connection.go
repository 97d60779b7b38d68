package engine

import (
	"math/rand"
	"time"
)

// NewHTTPConnection builds a Connection wired to the real net/http
// protocol adapter for desc, the one construction path loadtest.Harness
// uses outside of tests. Port 443 selects https, everything else http;
// spec.md's descriptor shape carries no explicit scheme.
func NewHTTPConnection(clock Clock, rng *rand.Rand, desc OperationDescriptor, options Options, sampling bool, timeout time.Duration, onFatal func(error)) (*Connection, error) {
	desc = desc.WithDefaults()
	scheme := "http"
	if desc.Port == "443" {
		scheme = "https"
	}
	proto := newHTTPProtocol(scheme, desc.Hostname, desc.Port, timeout)
	return NewConnection(clock, rng, desc, options, sampling, proto, onFatal)
}
