package transport

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/issuebridge/issuebridge/pkg/auth"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// HeaderRequestID carries the per-request correlation ID on both the inbound
// request (when the client supplies one) and the response.
const HeaderRequestID = "X-Request-ID"

// HeaderProcessTime reports wall-clock handling time in seconds.
const HeaderProcessTime = "X-Process-Time"

// RequestIDFromContext returns the correlation ID assigned to the request, or
// "" outside the middleware chain.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// RequestID assigns each request a correlation ID, honoring a client-supplied
// X-Request-ID, and echoes it on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// statusRecorder wraps http.ResponseWriter to capture status code and set the
// timing header before headers flush.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	start      time.Time
	wrote      bool
}

func (rec *statusRecorder) WriteHeader(code int) {
	if rec.wrote {
		return
	}
	rec.wrote = true
	rec.statusCode = code
	elapsed := time.Since(rec.start).Seconds()
	rec.Header().Set(HeaderProcessTime, strconv.FormatFloat(elapsed, 'f', 6, 64))
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	if !rec.wrote {
		rec.WriteHeader(http.StatusOK)
	}
	return rec.ResponseWriter.Write(b)
}

// AccessLog emits one structured access-log line per request. Authorization
// values are redacted to presence only; health probes are logged at debug to
// keep noise down.
func AccessLog(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK, start: time.Now()}
			next.ServeHTTP(rec, r)

			event := logger.Info()
			if isHealthPath(r.URL.Path) {
				event = logger.Debug()
			}
			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rec.statusCode).
				Dur("duration", time.Since(rec.start)).
				Str("request_id", RequestIDFromContext(r.Context())).
				Str("remote", r.RemoteAddr).
				Bool("authenticated", hasCredentials(r)).
				Msg("request")
		})
	}
}

func isHealthPath(path string) bool {
	return strings.HasSuffix(path, "/health")
}

func hasCredentials(r *http.Request) bool {
	for _, name := range auth.SensitiveHeaders() {
		if r.Header.Get(name) != "" {
			return true
		}
	}
	return false
}

// SecurityHeaders sets conservative browser-facing response headers.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-XSS-Protection", "1; mode=block")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// CORS applies the configured allow-list and answers preflight requests.
// An allow-list containing "*" admits any origin.
func CORS(allowOrigins []string) func(http.Handler) http.Handler {
	allowAll := false
	allowed := make(map[string]struct{}, len(allowOrigins))
	for _, origin := range allowOrigins {
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" {
				_, ok := allowed[origin]
				if allowAll || ok {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Vary", "Origin")
				}
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
				w.Header().Set("Access-Control-Max-Age", "600")
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Chain composes middleware outermost-first.
func Chain(handler http.Handler, middleware ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middleware) - 1; i >= 0; i-- {
		handler = middleware[i](handler)
	}
	return handler
}
