package handlers

import (
	"context"
	"net/http"
	"os"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-biotools/pkg/config"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingResponse contains service status and version information.
type PingResponse struct {
	Status           string `json:"status"`
	Version          string `json:"version"`
	Service          string `json:"service"`
	GoVersion        string `json:"go_version"`
	Hostname         string `json:"hostname"`
	Environment      string `json:"environment"`
	Database         string `json:"database"`
	DatasetWarnings  int    `json:"dataset_warnings"`
	RegisteredTRBeds int    `json:"registered_tr_beds"`
}

// DatasetStatus is the part of the dataset registry reported by /ping.
type DatasetStatus interface {
	Warnings() []string
	TRCount() int
}

// HealthHandler handles health check and ping endpoints.
type HealthHandler struct {
	cfg      *config.Config
	datasets DatasetStatus
	db       Pinger
	logger   *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. db may be nil when the
// conversation store is disabled.
func NewHealthHandler(cfg *config.Config, datasets DatasetStatus, db Pinger, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{cfg: cfg, datasets: datasets, db: db, logger: logger}
}

// RegisterRoutes registers the health handler's routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ping", h.Ping)
}

// Health handles GET /health requests with a plain "ok" for liveness checks.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ping handles GET /ping requests.
// Returns service information plus the state of the datasets and database.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	hostname, err := os.Hostname()
	if err != nil {
		http.Error(w, "failed to get hostname", http.StatusInternalServerError)
		return
	}

	response := PingResponse{
		Status:      "ok",
		Version:     h.cfg.Version,
		Service:     "ekaya-biotools",
		GoVersion:   runtime.Version(),
		Hostname:    hostname,
		Environment: h.cfg.Env,
		Database:    "disabled",
	}

	if h.datasets != nil {
		response.DatasetWarnings = len(h.datasets.Warnings())
		response.RegisteredTRBeds = h.datasets.TRCount()
		if response.DatasetWarnings > 0 {
			response.Status = "degraded"
		}
	}

	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			h.logger.Warn("Database ping failed", zap.Error(err))
			response.Database = "unavailable"
			response.Status = "degraded"
		} else {
			response.Database = "ok"
		}
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode ping response", zap.Error(err))
	}
}
