// Package admin implements the stream router's administrative HTTP
// surface (spec.md §6.2): liveness, Prometheus metrics, and the
// testMatch diagnostic. Grounded on the teacher's
// internal/infrastructure/publishing/handlers.go for the gorilla/mux
// RegisterRoutes(router *mux.Router) convention and
// cmd/server/handlers/health.go for the health response shape.
package admin

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vitaliisemenov/streamrouter/internal/business/routing"
	"github.com/vitaliisemenov/streamrouter/internal/core/domain"
)

// Version is set at build time via -ldflags; "dev" otherwise.
var Version = "dev"

// Router is the subset of *routing.Router the admin surface needs: the
// diagnostic testMatch call only. A narrow interface so this package never depends on
// routing internals it doesn't use.
type Router interface {
	TestMatch(msg *domain.Message) []routing.StreamOutcome
}

// Handlers wires the three admin routes to a Router. It carries no other
// state: metrics are served straight off the default Prometheus
// registry that routing.RouterMetrics registers into via promauto.
type Handlers struct {
	router Router
	logger *slog.Logger
}

// NewHandlers creates a Handlers. logger may be nil, in which case
// slog.Default() is used.
func NewHandlers(router Router, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{router: router, logger: logger}
}

// RegisterRoutes attaches /healthz, /metrics, and /testmatch to router.
// Grounded on the teacher's PublishingHandlers.RegisterRoutes: a plain
// HandleFunc-per-route registration with explicit Methods().
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/healthz", h.Healthz).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/testmatch", h.TestMatch).Methods(http.MethodPost)
}

// HealthResponse is the /healthz payload. Grounded on the teacher's
// HealthResponse (cmd/server/handlers/health.go), generalized from a
// fixed service name to this project's.
type HealthResponse struct {
	Status    string    `json:"status"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// Healthz always reports healthy once the process can serve HTTP at
// all: the router holds its own engine and never blocks on an external
// dependency to answer a request (spec.md §4.4 is a pure in-memory
// match). Readiness of the catalogue feed is a liveness concern for the
// Updater's logs, not this endpoint.
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "ok",
		Service:   "streamrouter",
		Version:   Version,
		Timestamp: time.Now().UTC(),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode health response", "error", err)
	}
}
