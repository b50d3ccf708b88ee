package upstream

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/issuebridge/issuebridge/pkg/domain"
)

func newTestClient(t *testing.T, baseURL string, timeout time.Duration) *Client {
	t.Helper()
	client, err := NewClient(baseURL, timeout, nil)
	require.NoError(t, err)
	return client
}

func TestForwardPassesThroughSuccess(t *testing.T) {
	var gotAuth, gotImpersonation, gotPath, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotImpersonation = r.Header.Get("X-Atlassian-User")
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"key":"PROJ-123","fields":{"summary":"hello"}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, time.Second)

	headers := make(http.Header)
	headers.Set("Authorization", "Basic abc")
	headers.Set("X-Atlassian-User", "bob")
	query := url.Values{}
	query.Set("fields", "summary,status")

	outcome, err := client.Forward(context.Background(), domain.OutboundCall{
		Method:  http.MethodGet,
		Path:    "/rest/api/2/issue/PROJ-123",
		Query:   query,
		Headers: headers,
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, outcome.StatusCode)
	assert.JSONEq(t, `{"key":"PROJ-123","fields":{"summary":"hello"}}`, string(outcome.Body))
	assert.Equal(t, "application/json", outcome.ContentType)
	assert.Equal(t, "Basic abc", gotAuth)
	assert.Equal(t, "bob", gotImpersonation)
	assert.Equal(t, "/rest/api/2/issue/PROJ-123", gotPath)
	assert.Equal(t, "fields=summary%2Cstatus", gotQuery)
}

func TestForwardSendsBody(t *testing.T) {
	var gotBody []byte
	var gotMethod string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, time.Second)

	body := []byte(`{"transition":{"id":"11"}}`)
	outcome, err := client.Forward(context.Background(), domain.OutboundCall{
		Method: http.MethodPost,
		Path:   "/rest/api/2/issue/PROJ-1/transitions",
		Body:   body,
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusNoContent, outcome.StatusCode)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, string(body), string(gotBody))
}

func TestForwardClassifiesRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"errorMessages":["Issue Does Not Exist"]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, time.Second)

	_, err := client.Forward(context.Background(), domain.OutboundCall{
		Method: http.MethodGet,
		Path:   "/rest/api/2/issue/NOPE-1",
	})
	require.Error(t, err)
	require.ErrorIs(t, err, domain.ErrUpstreamRejected)

	ce, ok := domain.AsClassified(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, ce.UpstreamStatus)
	assert.JSONEq(t, `{"errorMessages":["Issue Does Not Exist"]}`, string(ce.Detail))
}

func TestForwardTimeoutSingleAttempt(t *testing.T) {
	var calls atomic.Int32
	block := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(block)

	client := newTestClient(t, server.URL, 50*time.Millisecond)

	start := time.Now()
	_, err := client.Forward(context.Background(), domain.OutboundCall{
		Method: http.MethodPost,
		Path:   "/rest/api/2/issue",
		Body:   []byte(`{"fields":{}}`),
	})
	elapsed := time.Since(start)

	require.ErrorIs(t, err, domain.ErrUpstreamUnreachable)
	assert.Equal(t, int32(1), calls.Load(), "exactly one attempt, no retry")
	assert.Less(t, elapsed, time.Second, "timeout must abandon the wait promptly")
}

func TestForwardConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // nothing listens anymore

	client := newTestClient(t, server.URL, time.Second)

	_, err := client.Forward(context.Background(), domain.OutboundCall{
		Method: http.MethodGet,
		Path:   "/rest/api/2/serverInfo",
	})
	require.ErrorIs(t, err, domain.ErrUpstreamUnreachable)
}

func TestProbeReachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/api/2/serverInfo", r.URL.Path)
		// Even an auth rejection proves the upstream is reachable.
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, time.Second)
	assert.NoError(t, client.Probe(context.Background()))
}

func TestProbeUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := newTestClient(t, server.URL, 100*time.Millisecond)
	err := client.Probe(context.Background())
	require.ErrorIs(t, err, domain.ErrUpstreamUnreachable)
}

func TestNewClientRejectsBadBaseURL(t *testing.T) {
	for _, bad := range []string{"", "not-a-url", "://missing-scheme"} {
		if _, err := NewClient(bad, time.Second, nil); err == nil {
			t.Errorf("expected error for base URL %q", bad)
		}
	}
}

func TestNewClientJoinsBasePath(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL+"/jira/", time.Second)
	_, err := client.Forward(context.Background(), domain.OutboundCall{
		Method: http.MethodGet,
		Path:   "/rest/api/2/project",
	})
	require.NoError(t, err)
	assert.Equal(t, "/jira/rest/api/2/project", gotPath)
}

func TestForwardCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := client.Forward(ctx, domain.OutboundCall{
		Method: http.MethodGet,
		Path:   "/rest/api/2/serverInfo",
	})
	if !errors.Is(err, domain.ErrUpstreamUnreachable) {
		t.Fatalf("expected unreachable classification on cancellation, got %v", err)
	}
}
