package storage

import (
	"context"
	"database/sql"

	"github.com/hrcore/attendance-engine/internal/infrastructure/observability"
	"go.uber.org/zap"
)

// HealthChecker probes the connection pool for the job health guard. The
// database/sql pool re-dials dropped connections on demand, so "reconnect"
// is a second bounded ping that forces that re-dial.
type HealthChecker struct {
	db     *sql.DB
	logger *observability.Logger
}

func NewHealthChecker(db *sql.DB, logger *observability.Logger) *HealthChecker {
	return &HealthChecker{db: db, logger: logger}
}

func (h *HealthChecker) Healthy(ctx context.Context) bool {
	if err := h.db.PingContext(ctx); err != nil {
		h.logger.Warn(ctx, "Database ping failed", zap.Error(err))
		return false
	}
	return true
}

func (h *HealthChecker) Reconnect(ctx context.Context) bool {
	if err := h.db.PingContext(ctx); err != nil {
		h.logger.Warn(ctx, "Database reconnect ping failed", zap.Error(err))
		return false
	}
	return true
}
