package observability

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
)

// HealthStatus represents the health status of a component.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnknown   HealthStatus = "unknown"
)

// HealthCheck represents a health check function.
type HealthCheck func(ctx context.Context) HealthCheckResult

// HealthCheckResult represents the result of a health check.
type HealthCheckResult struct {
	Status   HealthStatus           `json:"status"`
	Message  string                 `json:"message,omitempty"`
	Details  map[string]interface{} `json:"details,omitempty"`
	Duration time.Duration          `json:"duration"`
	Error    string                 `json:"error,omitempty"`
}

// HealthChecker manages named health checks for the engine; the
// entrypoint registers one per venue adapter (is it connected and
// recently updated?). No check covers the side workers.
type HealthChecker struct {
	checks  map[string]HealthCheck
	mu      sync.RWMutex
	timeout time.Duration
	logger  *Logger
}

// NewHealthChecker creates a new health checker.
func NewHealthChecker(logger *Logger) *HealthChecker {
	return &HealthChecker{
		checks:  make(map[string]HealthCheck),
		timeout: 5 * time.Second,
		logger:  logger,
	}
}

// RegisterCheck registers a health check.
func (hc *HealthChecker) RegisterCheck(name string, check HealthCheck) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks[name] = check
}

// UnregisterCheck removes a health check.
func (hc *HealthChecker) UnregisterCheck(name string) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	delete(hc.checks, name)
}

// CheckHealth runs all registered health checks concurrently.
func (hc *HealthChecker) CheckHealth(ctx context.Context) map[string]HealthCheckResult {
	hc.mu.RLock()
	checks := make(map[string]HealthCheck, len(hc.checks))
	for name, check := range hc.checks {
		checks[name] = check
	}
	hc.mu.RUnlock()

	results := make(map[string]HealthCheckResult)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for name, check := range checks {
		wg.Add(1)
		go func(name string, check HealthCheck) {
			defer wg.Done()
			checkCtx, cancel := context.WithTimeout(ctx, hc.timeout)
			defer cancel()

			start := time.Now()
			result := hc.executeCheck(checkCtx, check)
			result.Duration = time.Since(start)

			mu.Lock()
			results[name] = result
			mu.Unlock()
		}(name, check)
	}

	wg.Wait()
	return results
}

func (hc *HealthChecker) executeCheck(ctx context.Context, check HealthCheck) (result HealthCheckResult) {
	defer func() {
		if r := recover(); r != nil {
			if hc.logger != nil {
				hc.logger.Error(ctx, "health check panicked", fmt.Errorf("panic: %v", r))
			}
			result = HealthCheckResult{Status: HealthStatusUnhealthy, Message: "health check panicked"}
		}
	}()

	select {
	case <-ctx.Done():
		return HealthCheckResult{Status: HealthStatusUnhealthy, Message: "health check timed out", Error: ctx.Err().Error()}
	default:
		return check(ctx)
	}
}

// OverallStatus reduces a set of check results to one status: unhealthy
// if any check is unhealthy, degraded if any is degraded, else healthy.
func (hc *HealthChecker) OverallStatus(results map[string]HealthCheckResult) HealthStatus {
	if len(results) == 0 {
		return HealthStatusUnknown
	}
	status := HealthStatusHealthy
	for _, result := range results {
		switch result.Status {
		case HealthStatusUnhealthy:
			return HealthStatusUnhealthy
		case HealthStatusDegraded:
			status = HealthStatusDegraded
		}
	}
	return status
}

// HealthServer exposes the checker over HTTP for liveness/readiness probes.
type HealthServer struct {
	checker     *HealthChecker
	serviceName string
	startTime   time.Time
}

// NewHealthServer creates a new health server.
func NewHealthServer(checker *HealthChecker, serviceName string) *HealthServer {
	return &HealthServer{checker: checker, serviceName: serviceName, startTime: time.Now()}
}

// RegisterRoutes registers health check routes.
func (hs *HealthServer) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", hs.HealthHandler).Methods("GET")
	router.HandleFunc("/health/live", hs.LivenessHandler).Methods("GET")
	router.HandleFunc("/health/ready", hs.ReadinessHandler).Methods("GET")
}

// HealthHandler reports every registered check plus the overall status.
func (hs *HealthServer) HealthHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	results := hs.checker.CheckHealth(ctx)
	overall := hs.checker.OverallStatus(results)

	statusCode := http.StatusOK
	switch overall {
	case HealthStatusUnhealthy:
		statusCode = http.StatusServiceUnavailable
	case HealthStatusDegraded:
		statusCode = http.StatusPartialContent
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  overall,
		"service": hs.serviceName,
		"uptime":  time.Since(hs.startTime).String(),
		"checks":  results,
	})
}

// LivenessHandler reports the process is up, without touching dependencies.
func (hs *HealthServer) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{"status": "alive", "service": hs.serviceName})
}

// ReadinessHandler reports whether the engine is ready to serve queries.
func (hs *HealthServer) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	results := hs.checker.CheckHealth(ctx)
	overall := hs.checker.OverallStatus(results)

	statusCode := http.StatusOK
	if overall != HealthStatusHealthy {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  overall,
		"service": hs.serviceName,
		"ready":   overall == HealthStatusHealthy,
	})
}

// VenueConnectedHealthCheck reports a venue adapter as healthy while its
// connection flag is set and its last update is within the staleness budget.
func VenueConnectedHealthCheck(connected func() bool, lastUpdate func() time.Time, staleAfter time.Duration) HealthCheck {
	return func(ctx context.Context) HealthCheckResult {
		if !connected() {
			return HealthCheckResult{Status: HealthStatusUnhealthy, Message: "adapter disconnected"}
		}
		age := time.Since(lastUpdate())
		if age > staleAfter {
			return HealthCheckResult{
				Status:  HealthStatusDegraded,
				Message: "no updates received recently",
				Details: map[string]interface{}{"age_seconds": age.Seconds()},
			}
		}
		return HealthCheckResult{Status: HealthStatusHealthy}
	}
}
