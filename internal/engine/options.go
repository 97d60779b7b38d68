package engine

import "fmt"

// Options is the recognized option set from spec.md §3's Options table.
type Options struct {
	Records   int     // keyspace size (distinct keys)
	Depth     int     // max outstanding ops per connection, >= 1
	Lambda    float64 // mean arrivals/sec; <= 0 means as-fast-as-possible
	IA        string  // inter-arrival distribution spec, e.g. "exponential"
	KeySize   string  // key size distribution spec
	ValueSize string  // value size distribution spec
	Update    float64 // probability of POST vs GET, 0..1
	Time      float64 // total run duration in seconds
	Moderate  bool    // enforce >=250us between last response and next issue
	Skip      bool    // allow catch-up by dropping scheduled arrivals
	NoNodelay bool    // recorded only; httpProtocol does not read it and Nagle stays off
	LoadOnly  bool    // exit when queue drains regardless of Time

	Connections int // number of parallel connections a harness should run
}

// DefaultOptions mirrors the defaults a fresh Options{} plus the CLI's
// own flag defaults would produce; it's the baseline used whenever a
// caller doesn't override a field (internal/config layers CLI flags and
// a config file on top of this).
func DefaultOptions() Options {
	return Options{
		Records:   10000,
		Depth:     4,
		Lambda:    0,
		IA:        "exponential",
		KeySize:   "fixed:16",
		ValueSize: "fixed:64",
		Update:    0.0,
		Time:      10,
		Moderate:  false,
		Skip:      false,
		NoNodelay: false,
		LoadOnly:  false,

		Connections: 1,
	}
}

// Validate enforces the construction-time invariants from spec.md §7's
// ConfigInvalid row: unknown method is checked by ParseMethod at the
// OperationDescriptor level, not here.
func (o Options) Validate() error {
	if o.Depth < 1 {
		return fatalf(ErrConfigInvalid, "Options.Validate", fmt.Errorf("depth must be >= 1, got %d", o.Depth))
	}
	if o.Records < 1 {
		return fatalf(ErrConfigInvalid, "Options.Validate", fmt.Errorf("records must be >= 1, got %d", o.Records))
	}
	if o.Update < 0 || o.Update > 1 {
		return fatalf(ErrConfigInvalid, "Options.Validate", fmt.Errorf("update must be in [0,1], got %f", o.Update))
	}
	if o.Time < 0 {
		return fatalf(ErrConfigInvalid, "Options.Validate", fmt.Errorf("time must be >= 0, got %f", o.Time))
	}
	if o.Connections < 0 {
		return fatalf(ErrConfigInvalid, "Options.Validate", fmt.Errorf("connections must be >= 0, got %d", o.Connections))
	}
	return nil
}

// OperationDescriptor is the Go shape of spec.md §6's JSON operation
// descriptor.
type OperationDescriptor struct {
	Hostname string            `json:"hostname"`
	Port     string            `json:"port"`
	Method   string            `json:"method"`
	Path     string            `json:"path"`
	Headers  map[string]string `json:"headers"`
}

// WithDefaults fills in the source's documented defaults for any unset
// field (spec.md §4.5: "all default as in the source (localhost, 80,
// GET, /)").
func (d OperationDescriptor) WithDefaults() OperationDescriptor {
	if d.Hostname == "" {
		d.Hostname = "localhost"
	}
	if d.Port == "" {
		d.Port = "80"
	}
	if d.Method == "" {
		d.Method = "GET"
	}
	if d.Path == "" {
		d.Path = "/"
	}
	return d
}
