package upstream

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/issuebridge/issuebridge/pkg/domain"
)

func TestNormalizeTransportTimeout(t *testing.T) {
	ce := NormalizeTransport(context.DeadlineExceeded)
	if ce.Kind != domain.KindUpstreamUnreachable {
		t.Fatalf("kind = %s, want %s", ce.Kind, domain.KindUpstreamUnreachable)
	}
	if !strings.Contains(ce.Message, "timed out") {
		t.Errorf("expected timeout message, got %q", ce.Message)
	}
}

func TestNormalizeTransportConnectionError(t *testing.T) {
	ce := NormalizeTransport(errors.New("dial tcp 10.0.0.1:443: connect: connection refused"))
	if ce.Kind != domain.KindUpstreamUnreachable {
		t.Fatalf("kind = %s, want %s", ce.Kind, domain.KindUpstreamUnreachable)
	}
}

func TestNormalizeStatusMessages(t *testing.T) {
	cases := []struct {
		status int
		want   string
	}{
		{http.StatusBadRequest, "invalid request to upstream API"},
		{http.StatusUnauthorized, "upstream authentication failed"},
		{http.StatusForbidden, "permission denied for upstream operation"},
		{http.StatusNotFound, "upstream resource not found"},
		{http.StatusTooManyRequests, "upstream rate limit exceeded"},
		{http.StatusInternalServerError, "upstream server error"},
		{http.StatusBadGateway, "upstream server error"},
	}

	for _, tc := range cases {
		ce := NormalizeStatus(tc.status, nil)
		if ce.Kind != domain.KindUpstreamRejected {
			t.Errorf("status %d: kind = %s", tc.status, ce.Kind)
		}
		if ce.UpstreamStatus != tc.status {
			t.Errorf("status %d not preserved, got %d", tc.status, ce.UpstreamStatus)
		}
		if ce.Message != tc.want {
			t.Errorf("status %d: message = %q, want %q", tc.status, ce.Message, tc.want)
		}
	}
}

func TestNormalizeStatusDetailPassthrough(t *testing.T) {
	structured := []byte(`{"errorMessages":["Field 'summary' is required"],"errors":{}}`)
	ce := NormalizeStatus(http.StatusBadRequest, structured)
	if string(ce.Detail) != string(structured) {
		t.Errorf("structured detail not passed through: %s", ce.Detail)
	}

	// Non-JSON bodies are dropped rather than guessed at.
	ce = NormalizeStatus(http.StatusBadGateway, []byte("<html>bad gateway</html>"))
	if ce.Detail != nil {
		t.Errorf("expected no detail for unstructured body, got %s", ce.Detail)
	}
}
