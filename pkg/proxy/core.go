// Package proxy wires the credential resolver, header composer, endpoint
// mapper, and forwarding client into the per-request pipeline. Each request
// is handled independently; the only shared state is the read-only
// configuration captured at construction.
package proxy

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/issuebridge/issuebridge/pkg/auth"
	"github.com/issuebridge/issuebridge/pkg/domain"
	"github.com/issuebridge/issuebridge/pkg/route"
)

// Forwarder executes upstream calls and reachability probes. It is satisfied
// by *upstream.Client and by test fakes.
type Forwarder interface {
	Forward(ctx context.Context, call domain.OutboundCall) (*domain.UpstreamOutcome, error)
	Probe(ctx context.Context) error
}

// Config holds construction parameters for the core.
type Config struct {
	ServiceCredentials auth.ServiceCredentials
	Forwarder          Forwarder
	Metrics            *Metrics
	Logger             *slog.Logger
}

// Core orchestrates one request: resolve auth mode, compose headers, map the
// route, forward, classify.
type Core struct {
	creds     auth.ServiceCredentials
	forwarder Forwarder
	metrics   *Metrics
	logger    *slog.Logger
}

// NewCore constructs the request pipeline.
func NewCore(cfg Config) *Core {
	if cfg.Forwarder == nil {
		panic("proxy: forwarder is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Core{
		creds:     cfg.ServiceCredentials,
		forwarder: cfg.Forwarder,
		metrics:   metrics,
		logger:    logger,
	}
}

// Handle processes one inbound request and returns either a pass-through
// upstream outcome or a classified error for the transport layer to render.
func (c *Core) Handle(ctx context.Context, req domain.InboundRequest) (*domain.UpstreamOutcome, error) {
	start := time.Now()

	mapping, err := route.Map(req.Method, req.Path, req.Query, req.Body)
	if err != nil {
		c.record(route.Operation("unmapped"), start, err)
		return nil, err
	}

	if mapping.Operation == route.OpHealth {
		outcome := c.health(ctx)
		c.record(mapping.Operation, start, nil)
		return outcome, nil
	}

	decision, err := auth.Resolve(c.creds, req.AuthorizationHeader())
	if err != nil {
		c.logger.Debug("credential resolution failed",
			"method", req.Method,
			"path", req.Path,
		)
		c.record(mapping.Operation, start, err)
		return nil, err
	}

	mapping.Call.Headers = auth.Compose(decision)

	c.logger.Debug("forwarding request",
		"operation", string(mapping.Operation),
		"auth_mode", string(decision.Mode),
		"target", mapping.Call.Path,
	)

	outcome, err := c.forwarder.Forward(ctx, mapping.Call)
	c.record(mapping.Operation, start, err)
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

type healthStatus struct {
	Status   string `json:"status"`
	Upstream bool   `json:"upstream"`
}

// health synthesizes the health payload from a reachability probe. A failed
// probe degrades the payload but never fails the health call itself.
func (c *Core) health(ctx context.Context) *domain.UpstreamOutcome {
	status := healthStatus{Status: "ok", Upstream: true}
	if err := c.forwarder.Probe(ctx); err != nil {
		c.logger.Warn("upstream reachability probe failed", "error", err)
		status = healthStatus{Status: "degraded", Upstream: false}
	}

	body, _ := json.Marshal(status)
	return &domain.UpstreamOutcome{
		StatusCode:  http.StatusOK,
		ContentType: "application/json",
		Body:        body,
	}
}

func (c *Core) record(op route.Operation, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		if ce, ok := domain.AsClassified(err); ok {
			outcome = string(ce.Kind)
			c.metrics.RecordError(ce.Kind)
		} else {
			outcome = "internal_error"
		}
	}
	c.metrics.RecordRequest(op, outcome, time.Since(start))
}
