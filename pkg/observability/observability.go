package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/ai-agentic-browser/internal/config"
	"github.com/google/uuid"
)

// Provider wires together the logger and the HTTP request-logging
// middleware shared by every HTTP-facing entrypoint.
type Provider struct {
	Logger *Logger
	config config.ObservabilityConfig
}

// NewProvider creates a new observability provider from engine config.
func NewProvider(cfg config.ObservabilityConfig) *Provider {
	return &Provider{
		Logger: NewLogger(cfg),
		config: cfg,
	}
}

// Start logs provider startup.
func (p *Provider) Start(ctx context.Context) {
	p.Logger.Info(ctx, "observability provider started", map[string]interface{}{
		"service": p.config.ServiceName,
	})
}

// HTTPMiddleware tags every request with a correlation id and logs method,
// path, status and duration once the handler returns.
func (p *Provider) HTTPMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.NewString()
			}

			ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
			r = r.WithContext(ctx)

			wrapped := &statusCapturingWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			p.Logger.Info(ctx, "http request", map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status_code": wrapped.statusCode,
				"duration_ms": time.Since(start).Milliseconds(),
				"request_id":  requestID,
			})
		})
	}
}

type requestIDKey struct{}

type statusCapturingWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusCapturingWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
