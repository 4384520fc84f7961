package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/dartlens/backend/internal/api/handlers"
	"github.com/wonny/dartlens/backend/pkg/database"
	"github.com/wonny/dartlens/backend/pkg/logger"
)

// HealthChecker reports database health (satisfied by *database.DB)
type HealthChecker interface {
	HealthCheck(ctx context.Context) (*database.HealthStatus, error)
}

// RouterDeps bundles what the router wires together
type RouterDeps struct {
	Insights  *handlers.InsightsHandler
	Mappings  *handlers.MappingsHandler
	Corps     *handlers.CorpsHandler
	Health    HealthChecker // optional
	Limiter   Limiter
	RateLimit int // requests per client per minute
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(deps RouterDeps, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler(deps.Health)).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	if deps.Limiter != nil {
		api.Use(rateLimitMiddleware(deps.Limiter, deps.RateLimit, log))
	}

	// Insights endpoints
	api.HandleFunc("/insights/sync", deps.Insights.Sync).Methods("POST")
	api.HandleFunc("/insights/{corpCode}", deps.Insights.GetInsights).Methods("GET")

	// Corp registry
	if deps.Corps != nil {
		api.HandleFunc("/corps/search", deps.Corps.Search).Methods("GET")
	}

	// Admin endpoints
	api.HandleFunc("/admin/mappings/reload", deps.Mappings.Reload).Methods("POST")

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(db HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]interface{}{
			"status":  "ok",
			"service": "dartlens-api",
		}
		code := http.StatusOK

		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			status, err := db.HealthCheck(ctx)
			body["database"] = status
			if err != nil {
				body["status"] = "degraded"
				code = http.StatusServiceUnavailable
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(body)
	}
}
