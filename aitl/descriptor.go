package aitl

import (
	"net/http"
	"net/url"
	"slices"
)

// Descriptor is the concrete HTTP request produced for one operation invocation
type Descriptor struct {
	// Operation names the logical action, used in logs and errors.
	Operation string
	Method    string
	Path      string
	Query     map[string]string
	// Body is canonical JSON, nil when the request has no body.
	Body []byte
	// Expected lists the status codes treated as success.
	Expected []int
	// Idempotent marks requests that may be retried on transient failures.
	Idempotent bool
}

// RawQuery encodes the query parameters in sorted key order
func (d *Descriptor) RawQuery() string {
	if len(d.Query) == 0 {
		return ""
	}
	values := url.Values{}
	for k, v := range d.Query {
		values.Set(k, v)
	}
	return values.Encode()
}

// expects reports whether status is one of the descriptor's success codes
func (d *Descriptor) expects(status int) bool {
	if len(d.Expected) == 0 {
		return status == http.StatusOK
	}
	return slices.Contains(d.Expected, status)
}
