package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-biotools/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-biotools/pkg/audit"
	"github.com/ekaya-inc/ekaya-biotools/pkg/config"
	"github.com/ekaya-inc/ekaya-biotools/pkg/logging"
	"github.com/ekaya-inc/ekaya-biotools/pkg/middleware"
	sqlpkg "github.com/ekaya-inc/ekaya-biotools/pkg/sql"
)

// QueryHandler runs read-only SQL against the configured datasource.
type QueryHandler struct {
	executor datasource.QueryExecutor
	cfg      config.QueryConfig
	auditor  *audit.SecurityAuditor
	logger   *zap.Logger
}

// NewQueryHandler creates a QueryHandler. A nil executor leaves the route
// mounted but answering that no datasource is configured.
func NewQueryHandler(executor datasource.QueryExecutor, cfg config.QueryConfig, auditor *audit.SecurityAuditor, logger *zap.Logger) *QueryHandler {
	return &QueryHandler{executor: executor, cfg: cfg, auditor: auditor, logger: logger.Named("query")}
}

// RegisterRoutes mounts GET /query/mysql, wrapped by mw.
func (h *QueryHandler) RegisterRoutes(mux *http.ServeMux, mw func(http.Handler) http.Handler) {
	mux.Handle("/query/mysql", mw(http.HandlerFunc(h.Query)))
}

// Query answers {status:"success", result:{columns, data, count}}.
func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	raw := r.URL.Query().Get("sql")
	query, err := sqlpkg.ValidateSelect(raw, h.cfg.RejectMultipleStatements)
	if err != nil {
		h.auditor.LogQueryRejected(r.Context(), err.Error(), raw, r.RemoteAddr)
		h.fail(w, err.Error())
		return
	}

	if h.executor == nil {
		h.fail(w, "query datasource is not configured")
		return
	}

	for _, hit := range sqlpkg.CheckQuery(query) {
		h.auditor.LogInjectionAttempt(r.Context(), audit.SQLInjectionDetails{
			Source:      hit.Source,
			Fingerprint: hit.Fingerprint,
			Query:       query,
		}, r.RemoteAddr)
	}

	ctx := r.Context()
	if h.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := h.executor.Query(ctx, query)
	if err != nil {
		h.logger.Info("Query failed",
			zap.String("request_id", middleware.RequestID(ctx)),
			zap.String("query", logging.SanitizeQuery(query)),
			zap.Duration("duration", time.Since(start)),
			zap.String("error", logging.SanitizeError(err)))
		h.fail(w, logging.SanitizeError(err))
		return
	}

	h.logger.Debug("Query executed",
		zap.String("query", logging.SanitizeQuery(query)),
		zap.Int("rows", result.Count),
		zap.Duration("duration", time.Since(start)))

	if err := WriteJSON(w, http.StatusOK, StatusResponse{Status: statusSuccess, Result: result}); err != nil {
		h.logger.Error("Failed to encode query response", zap.Error(err))
	}
}

func (h *QueryHandler) fail(w http.ResponseWriter, message string) {
	if err := WriteStatusError(w, http.StatusBadRequest, logging.TruncateError(message)); err != nil {
		h.logger.Error("Failed to encode query error", zap.Error(err))
	}
}
