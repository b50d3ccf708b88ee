// Package upstream executes outbound calls against the configured Jira
// instance and normalizes failures into the proxy's closed error taxonomy.
package upstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/issuebridge/issuebridge/internal/governance"
	"github.com/issuebridge/issuebridge/pkg/domain"
)

// probePath is the lightweight endpoint used for reachability checks.
const probePath = "/rest/api/2/serverInfo"

// Client forwards composed calls to the upstream base URL. Each call is a
// single attempt bounded by the configured timeout; there is no retry, since
// upstream operations (POST in particular) are not guaranteed idempotent.
type Client struct {
	base       *url.URL
	httpClient *http.Client
	timeouts   *governance.TimeoutManager
	logger     *slog.Logger
}

// NewClient creates a forwarding client for the given upstream base URL.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid upstream base URL %q", baseURL)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		base: base,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		timeouts: governance.NewTimeoutManager(governance.TimeoutConfig{RequestTimeout: timeout}),
		logger:   logger,
	}, nil
}

// Forward executes exactly one upstream attempt for the call. Success
// responses pass through with status and body preserved byte-for-byte;
// failures come back as classified errors. The timeout cancels the
// underlying network call cooperatively.
func (c *Client) Forward(ctx context.Context, call domain.OutboundCall) (*domain.UpstreamOutcome, error) {
	ctx, cancel := c.timeouts.WithRequestTimeout(ctx)
	defer cancel()

	req, err := c.buildRequest(ctx, call)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Single-attempt policy: surface immediately, even for methods that
		// would be safe to repeat.
		c.logger.Warn("upstream call failed",
			"method", call.Method,
			"path", call.Path,
			"idempotent", governance.IsIdempotent(call.Method),
			"error", err,
		)
		return nil, NormalizeTransport(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Warn("failed to read upstream response body",
			"method", call.Method,
			"path", call.Path,
			"status", resp.StatusCode,
			"error", err,
		)
		return nil, NormalizeTransport(err)
	}

	if resp.StatusCode >= 400 {
		c.logger.Debug("upstream rejected call",
			"method", call.Method,
			"path", call.Path,
			"status", resp.StatusCode,
		)
		return nil, NormalizeStatus(resp.StatusCode, body)
	}

	return &domain.UpstreamOutcome{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// Probe checks upstream reachability with a lightweight serverInfo request.
// Any HTTP response, including an auth rejection, proves reachability; only
// transport-level failure or timeout reports the upstream as unreachable.
func (c *Client) Probe(ctx context.Context) error {
	ctx, cancel := c.timeouts.WithRequestTimeout(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.targetURL(probePath, nil), nil)
	if err != nil {
		return NormalizeTransport(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return NormalizeTransport(err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return nil
}

func (c *Client) buildRequest(ctx context.Context, call domain.OutboundCall) (*http.Request, error) {
	var body io.Reader
	if len(call.Body) > 0 {
		body = bytes.NewReader(call.Body)
	}

	req, err := http.NewRequestWithContext(ctx, call.Method, c.targetURL(call.Path, call.Query), body)
	if err != nil {
		return nil, domain.NewClassifiedError(domain.KindUpstreamUnreachable,
			"failed to build upstream request: %v", err)
	}
	if call.Headers != nil {
		req.Header = call.Headers.Clone()
	}
	return req, nil
}

func (c *Client) targetURL(path string, query url.Values) string {
	target := *c.base
	target.Path = strings.TrimRight(target.Path, "/") + path
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}
	return target.String()
}
