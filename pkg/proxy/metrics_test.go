package proxy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/issuebridge/issuebridge/pkg/auth"
	"github.com/issuebridge/issuebridge/pkg/domain"
	"github.com/issuebridge/issuebridge/pkg/route"
)

func TestMetricsRecordRequest(t *testing.T) {
	m := NewMetrics()

	m.RecordRequest(route.OpIssueGet, "success", 25*time.Millisecond)
	m.RecordRequest(route.OpIssueGet, "success", 40*time.Millisecond)
	m.RecordRequest(route.OpSearch, string(domain.KindUpstreamRejected), 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(
		m.requestsTotal.WithLabelValues(string(route.OpIssueGet), "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(
		m.requestsTotal.WithLabelValues(string(route.OpSearch), string(domain.KindUpstreamRejected))))
}

func TestMetricsRecordError(t *testing.T) {
	m := NewMetrics()

	m.RecordError(domain.KindMissingCredentials)
	m.RecordError(domain.KindMissingCredentials)
	m.RecordError(domain.KindUnsupportedRoute)

	assert.Equal(t, 2.0, testutil.ToFloat64(
		m.errorsTotal.WithLabelValues(string(domain.KindMissingCredentials))))
	assert.Equal(t, 1.0, testutil.ToFloat64(
		m.errorsTotal.WithLabelValues(string(domain.KindUnsupportedRoute))))
}

func TestMetricsHandlerExposesCounters(t *testing.T) {
	m := NewMetrics()
	core := NewCore(Config{
		Forwarder: &fakeForwarder{},
		Metrics:   m,
	})

	_, err := core.Handle(context.Background(),
		inbound(http.MethodGet, "/rest/api/2/serverInfo", auth.EncodeBasic("alice", "t")))
	require.NoError(t, err)

	_, err = core.Handle(context.Background(),
		inbound(http.MethodGet, "/rest/api/2/serverInfo", ""))
	require.Error(t, err)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `issuebridge_requests_total{operation="server_info",outcome="success"} 1`), body)
	assert.True(t, strings.Contains(body, `issuebridge_requests_total{operation="server_info",outcome="missing_credentials"} 1`), body)
	assert.True(t, strings.Contains(body, `issuebridge_errors_total{kind="missing_credentials"} 1`), body)
}
