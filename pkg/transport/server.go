// Package transport exposes the proxy over HTTP: it parses inbound requests,
// hands them to the core pipeline, and renders pass-through outcomes or
// classified errors as JSON.
package transport

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/issuebridge/issuebridge/pkg/domain"
	"github.com/issuebridge/issuebridge/pkg/route"
)

// ServiceName and ServiceVersion identify the proxy on the root endpoint.
const (
	ServiceName    = "issuebridge"
	ServiceVersion = "1.0.0"
)

// maxBodyBytes caps inbound request bodies. Jira payloads are small; this
// protects against accidental large uploads, not hostile traffic.
const maxBodyBytes = 10 << 20

// Pipeline is the core request handler behind the HTTP surface.
type Pipeline interface {
	Handle(ctx context.Context, req domain.InboundRequest) (*domain.UpstreamOutcome, error)
}

// ServerConfig holds construction parameters for the HTTP surface.
type ServerConfig struct {
	Pipeline       Pipeline
	MetricsHandler http.Handler
	AccessLogger   zerolog.Logger
	Logger         *slog.Logger
	AllowOrigins   []string
}

// Server is the inbound HTTP surface: dialect routes, root info, metrics.
type Server struct {
	pipeline       Pipeline
	metricsHandler http.Handler
	accessLogger   zerolog.Logger
	logger         *slog.Logger
	allowOrigins   []string
}

// NewServer builds the HTTP surface over a core pipeline.
func NewServer(cfg ServerConfig) *Server {
	if cfg.Pipeline == nil {
		panic("transport: pipeline is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		pipeline:       cfg.Pipeline,
		metricsHandler: cfg.MetricsHandler,
		accessLogger:   cfg.AccessLogger,
		logger:         logger,
		allowOrigins:   cfg.AllowOrigins,
	}
}

// Handler returns the fully assembled HTTP handler with the middleware chain
// applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(route.DialectV2+"/", s.handleProxy)
	mux.HandleFunc(route.DialectLatest+"/", s.handleProxy)
	mux.HandleFunc("/", s.handleRoot)
	if s.metricsHandler != nil {
		mux.Handle("/metrics", s.metricsHandler)
	}

	return Chain(mux,
		RequestID,
		SecurityHeaders,
		CORS(s.allowOrigins),
		AccessLog(s.accessLogger),
	)
}

func (s *Server) handleProxy(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, r, domain.NewClassifiedError(domain.KindInvalidRequest,
			"failed to read request body"))
		return
	}

	outcome, err := s.pipeline.Handle(r.Context(), domain.InboundRequest{
		Method:  r.Method,
		Path:    r.URL.Path,
		Query:   r.URL.Query(),
		Headers: r.Header,
		Body:    body,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if outcome.ContentType != "" {
		w.Header().Set("Content-Type", outcome.ContentType)
	}
	w.WriteHeader(outcome.StatusCode)
	if _, err := w.Write(outcome.Body); err != nil {
		s.logger.Debug("failed to write response body",
			"path", r.URL.Path,
			"error", err,
		)
	}
}

// handleRoot serves the informational index. The catch-all pattern also
// receives unknown paths, which fail as unsupported routes.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.writeError(w, r, domain.NewClassifiedError(domain.KindUnsupportedRoute,
			"no mapping for %s %s", r.Method, r.URL.Path))
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"service": ServiceName,
		"version": ServiceVersion,
		"status":  "ok",
	})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ce, ok := domain.AsClassified(err)
	if !ok {
		s.logger.Error("unclassified error reached transport",
			"path", r.URL.Path,
			"error", err,
		)
		ce = &domain.ClassifiedError{
			Kind:    domain.ErrorKind("internal"),
			Message: "internal proxy error",
		}
	}

	s.writeJSON(w, ce.HTTPStatus(), domain.NewErrorResponse(ce, RequestIDFromContext(r.Context())))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Debug("failed to encode response", "error", err)
	}
}
