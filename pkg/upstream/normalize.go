package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/issuebridge/issuebridge/internal/governance"
	"github.com/issuebridge/issuebridge/pkg/domain"
)

// NormalizeTransport classifies a network-level failure. Timeouts and
// connection errors both mean the upstream is unreachable; the distinction
// survives only in the message.
func NormalizeTransport(err error) *domain.ClassifiedError {
	if isTimeout(err) {
		return domain.NewClassifiedError(domain.KindUpstreamUnreachable,
			"request to upstream timed out")
	}
	return domain.NewClassifiedError(domain.KindUpstreamUnreachable,
		"unable to connect to upstream: %v", err)
}

// NormalizeStatus classifies an upstream error status. The upstream status
// code is preserved, and structured error bodies pass through as detail so
// the original Jira error is not lost.
func NormalizeStatus(status int, body []byte) *domain.ClassifiedError {
	ce := &domain.ClassifiedError{
		Kind:           domain.KindUpstreamRejected,
		Message:        messageForStatus(status),
		UpstreamStatus: status,
	}
	if len(body) > 0 && json.Valid(body) {
		ce.Detail = json.RawMessage(body)
	}
	return ce
}

func messageForStatus(status int) string {
	switch {
	case status == http.StatusBadRequest:
		return "invalid request to upstream API"
	case status == http.StatusUnauthorized:
		return "upstream authentication failed"
	case status == http.StatusForbidden:
		return "permission denied for upstream operation"
	case status == http.StatusNotFound:
		return "upstream resource not found"
	case status == http.StatusTooManyRequests:
		return "upstream rate limit exceeded"
	case status >= 500:
		return "upstream server error"
	default:
		return http.StatusText(status)
	}
}

func isTimeout(err error) bool {
	if governance.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
