package domain

import (
	"net/http"
	"net/url"
)

// InboundRequest is the parsed form of a client request handed to the core
// by the transport layer. It is immutable for the duration of a call and
// never persisted.
type InboundRequest struct {
	Method  string
	Path    string
	Query   url.Values
	Headers http.Header
	Body    []byte
}

// AuthorizationHeader returns the credential-bearing header value, if any.
func (r *InboundRequest) AuthorizationHeader() string {
	return r.Headers.Get("Authorization")
}

// OutboundCall describes exactly one upstream request: method, path relative
// to the configured base URL, query, headers, and optional body. Header keys
// are canonicalized by http.Header, so lookups are case-insensitive and
// duplicates collapse.
type OutboundCall struct {
	Method  string
	Path    string
	Query   url.Values
	Headers http.Header
	Body    []byte
}

// UpstreamOutcome is a successful upstream response passed through to the
// client with status and body preserved byte-for-byte.
type UpstreamOutcome struct {
	StatusCode  int
	ContentType string
	Body        []byte
}
