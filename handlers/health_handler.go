package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/regit-contracts/regit/services/audit"
	"github.com/regit-contracts/regit/utils"
	"go.uber.org/zap"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// AuditStatsProvider reports the state of the audit pipeline
type AuditStatsProvider interface {
	GetStats() audit.Stats
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	db     *sql.DB
	audit  AuditStatsProvider
	clock  clockwork.Clock
	logger *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. A nil db or audit skips that check.
func NewHealthHandler(db *sql.DB, auditStats AuditStatsProvider, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		audit:  auditStats,
		clock:  clockwork.NewRealClock(),
		logger: logger,
	}
}

// HandleHealth handles GET /healthz. It only reports that the process is serving.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteOK(w, HealthResponse{
		Status:    "healthy",
		Timestamp: h.now(),
	})
}

// HandleReadiness handles GET /readyz
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]string{"database": "healthy"}
	ready := true

	if err := h.checkDatabase(ctx); err != nil {
		h.logger.Warn("database health check failed", zap.Error(err))
		checks["database"] = "unhealthy"
		ready = false
	}

	if h.audit != nil {
		state, ok := auditState(h.audit.GetStats())
		checks["audit"] = state
		ready = ready && ok
	}

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: h.now(),
		Checks:    checks,
	}
	httpStatus := http.StatusOK
	if !ready {
		response.Status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	if err := utils.WriteJSON(w, httpStatus, utils.SuccessResponse{Data: response}); err != nil {
		h.logger.Error("failed to write readiness response", zap.Error(err))
	}
}

func (h *HealthHandler) now() string {
	return h.clock.Now().UTC().Format(time.RFC3339)
}

// checkDatabase pings and runs a trivial query
func (h *HealthHandler) checkDatabase(ctx context.Context) error {
	if h.db == nil {
		return nil
	}
	if err := h.db.PingContext(ctx); err != nil {
		return err
	}
	var result int
	if err := h.db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("probe query failed: %w", err)
	}
	return nil
}

// auditState reports a stopped pipeline as not ready. A nearly full buffer is
// only flagged, since events are still accepted.
func auditState(stats audit.Stats) (string, bool) {
	switch {
	case !stats.Started:
		return "stopped", false
	case stats.BufferSize > 0 && stats.PendingEvents*10 >= stats.BufferSize*9:
		return "saturated", true
	default:
		return "healthy", true
	}
}
