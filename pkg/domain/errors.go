package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Common domain errors. ClassifiedError wraps one of these so callers can
// branch with errors.Is without inspecting kinds.
var (
	ErrMissingCredentials  = errors.New("missing credentials")
	ErrUnsupportedRoute    = errors.New("unsupported route")
	ErrUpstreamUnreachable = errors.New("upstream service unreachable")
	ErrUpstreamRejected    = errors.New("upstream rejected request")
	ErrInvalidRequest      = errors.New("invalid request")
)

// ErrorKind is the closed set of failure classifications surfaced to the
// transport layer. The string values are part of the JSON error contract.
type ErrorKind string

const (
	KindMissingCredentials  ErrorKind = "missing_credentials"
	KindUnsupportedRoute    ErrorKind = "unsupported_route"
	KindUpstreamUnreachable ErrorKind = "upstream_unreachable"
	KindUpstreamRejected    ErrorKind = "upstream_rejected"
	KindInvalidRequest      ErrorKind = "invalid_request"
)

// ClassifiedError is the single error shape crossing the core boundary.
// For KindUpstreamRejected, UpstreamStatus carries the upstream status code
// and Detail the upstream error body when it was structured JSON, so the
// original Jira error detail is not lost.
type ClassifiedError struct {
	Kind           ErrorKind
	Message        string
	UpstreamStatus int
	Detail         json.RawMessage
}

func (e *ClassifiedError) Error() string {
	if e.UpstreamStatus != 0 {
		return fmt.Sprintf("%s: %s (upstream status %d)", e.Kind, e.Message, e.UpstreamStatus)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap maps the kind back to its sentinel so errors.Is works.
func (e *ClassifiedError) Unwrap() error {
	switch e.Kind {
	case KindMissingCredentials:
		return ErrMissingCredentials
	case KindUnsupportedRoute:
		return ErrUnsupportedRoute
	case KindUpstreamUnreachable:
		return ErrUpstreamUnreachable
	case KindUpstreamRejected:
		return ErrUpstreamRejected
	case KindInvalidRequest:
		return ErrInvalidRequest
	default:
		return nil
	}
}

// HTTPStatus returns the response status the transport layer should render
// for this failure. Upstream rejections keep the upstream status.
func (e *ClassifiedError) HTTPStatus() int {
	switch e.Kind {
	case KindMissingCredentials:
		return http.StatusUnauthorized
	case KindUnsupportedRoute:
		return http.StatusNotFound
	case KindUpstreamUnreachable:
		return http.StatusServiceUnavailable
	case KindUpstreamRejected:
		if e.UpstreamStatus >= 400 {
			return e.UpstreamStatus
		}
		return http.StatusBadGateway
	case KindInvalidRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// NewClassifiedError builds a classified failure with a formatted message.
func NewClassifiedError(kind ErrorKind, format string, args ...any) *ClassifiedError {
	return &ClassifiedError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// AsClassified extracts a ClassifiedError from an error chain.
func AsClassified(err error) (*ClassifiedError, bool) {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// ErrorResponse defines the JSON error model rendered to clients. Sensitive
// header values are never placed in Message or Detail.
type ErrorResponse struct {
	Error     ErrorBody `json:"error"`
	RequestID string    `json:"request_id,omitempty"`
}

// ErrorBody carries the stable machine-readable kind plus human detail.
type ErrorBody struct {
	Kind    ErrorKind       `json:"kind"`
	Message string          `json:"message"`
	Detail  json.RawMessage `json:"detail,omitempty"`
}

// NewErrorResponse renders a classified error into the wire error model.
func NewErrorResponse(err *ClassifiedError, requestID string) ErrorResponse {
	return ErrorResponse{
		Error: ErrorBody{
			Kind:    err.Kind,
			Message: err.Message,
			Detail:  err.Detail,
		},
		RequestID: requestID,
	}
}
