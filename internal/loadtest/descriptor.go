package loadtest

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"

	"ratewright/internal/engine"
)

// LoadDescriptors reads a JSON file holding either one operation
// descriptor object or an array of them, grounded in the teacher's
// single-URL runner.Config generalized to the engine's JSON descriptor
// shape (spec.md §6).
func LoadDescriptors(path string) ([]engine.OperationDescriptor, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loadtest: read descriptors %s: %w", path, err)
	}

	var list []engine.OperationDescriptor
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return finalize(list)
	}

	var single engine.OperationDescriptor
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, fmt.Errorf("loadtest: parse descriptors %s: %w", path, err)
	}
	return finalize([]engine.OperationDescriptor{single})
}

func finalize(list []engine.OperationDescriptor) ([]engine.OperationDescriptor, error) {
	out := make([]engine.OperationDescriptor, len(list))
	for i, d := range list {
		d = d.WithDefaults()
		m, err := engine.ParseMethod(d.Method)
		if err != nil {
			return nil, err
		}
		d.Method = m.String()
		out[i] = d
	}
	return out, nil
}

// SingleDescriptor builds the one-off descriptor list used by the
// --url/--method/--header inline CLI form, bypassing --descriptors.
// rawURL's host component is extracted exactly as spec.md §6 requires
// ("hostname: string, possibly a full URI").
func SingleDescriptor(rawURL, method string, headers map[string]string) ([]engine.OperationDescriptor, error) {
	target := rawURL
	if !strings.Contains(target, "://") {
		target = "http://" + target
	}
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("loadtest: parse --url %q: %w", rawURL, err)
	}

	port := u.Port()
	if port == "" {
		port = "80"
		if u.Scheme == "https" {
			port = "443"
		}
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}

	return finalize([]engine.OperationDescriptor{{
		Hostname: u.Hostname(),
		Port:     port,
		Method:   method,
		Path:     path,
		Headers:  headers,
	}})
}
