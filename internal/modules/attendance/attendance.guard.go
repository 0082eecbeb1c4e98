package attendance

import (
	"context"
	"time"

	"github.com/hrcore/attendance-engine/internal/infrastructure/observability"
	"go.uber.org/zap"
)

// StorageHealth is the probe surface the guard runs against.
type StorageHealth interface {
	Healthy(ctx context.Context) bool
	Reconnect(ctx context.Context) bool
}

// HealthGuard gates every scheduled job. It never returns an error and never
// panics: a false result means the run is skipped and the next tick retries,
// which is always safe because every job is idempotent.
type HealthGuard struct {
	storage StorageHealth
	logger  *observability.Logger
	timeout time.Duration
}

func NewHealthGuard(storage StorageHealth, logger *observability.Logger, timeout time.Duration) *HealthGuard {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HealthGuard{storage: storage, logger: logger, timeout: timeout}
}

// EnsureHealthy probes the storage connection and, on failure, attempts one
// bounded reconnect before giving up.
func (g *HealthGuard) EnsureHealthy(ctx context.Context) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error(ctx, "Panic during storage health check", zap.Any("error", r))
			ok = false
		}
	}()

	probeCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	if g.storage.Healthy(probeCtx) {
		return true
	}

	g.logger.Warn(ctx, "Storage unhealthy, attempting one bounded reconnect",
		zap.Duration("timeout", g.timeout),
	)

	reconnectCtx, cancelReconnect := context.WithTimeout(ctx, g.timeout)
	defer cancelReconnect()
	if g.storage.Reconnect(reconnectCtx) {
		g.logger.Info(ctx, "Storage reconnected")
		return true
	}

	g.logger.Warn(ctx, "Storage reconnect failed, skipping this run")
	return false
}
