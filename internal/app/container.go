package app

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hrcore/attendance-engine/internal/config"
	"github.com/hrcore/attendance-engine/internal/infrastructure/database"
	"github.com/hrcore/attendance-engine/internal/infrastructure/joblock"
	"github.com/hrcore/attendance-engine/internal/infrastructure/observability"
	"github.com/hrcore/attendance-engine/internal/infrastructure/storage"
	"github.com/hrcore/attendance-engine/internal/modules/attendance"
	"github.com/hrcore/attendance-engine/internal/modules/health"
	"github.com/hrcore/attendance-engine/internal/shared/validator"
	"go.uber.org/zap"
)

type Container struct {
	Config            *config.Config
	DB                *sql.DB
	Logger            *observability.Logger
	Validator         *validator.Validator
	Metrics           *observability.Metrics
	AuditLogger       *observability.AuditLogger
	Location          *time.Location
	AttendanceService *attendance.Service
	AttendanceHandler *attendance.Handler
	Scheduler         *attendance.Scheduler
	HealthHandler     *health.Handler
	redisMu           sync.RWMutex
	redisClient       *redis.Client
}

func NewContainer(cfg *config.Config, db *sql.DB, logger *observability.Logger) (*Container, error) {
	metrics := observability.NewMetrics()
	validatorInstance := validator.New()

	var auditLogger *observability.AuditLogger
	if cfg.AuditLog.Enabled && cfg.AuditLog.Path != "" {
		dedicatedAuditLogger, err := observability.NewDedicatedAuditLogger(
			cfg.AuditLog.Path,
			cfg.AuditLog.Format,
		)
		if err != nil {
			logger.Error(context.Background(), "Failed to initialize dedicated audit logger, falling back to main logger",
				zap.Error(err),
				zap.String("path", cfg.AuditLog.Path),
			)
			auditLogger = observability.NewAuditLogger(logger)
		} else {
			logger.Info(context.Background(), "Audit logging enabled with dedicated file",
				zap.String("path", cfg.AuditLog.Path),
				zap.String("format", cfg.AuditLog.Format),
			)
			auditLogger = dedicatedAuditLogger
		}
	} else {
		auditLogger = observability.NewAuditLogger(logger)
	}

	loc, err := time.LoadLocation(cfg.Attendance.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load attendance timezone %q: %w", cfg.Attendance.Timezone, err)
	}

	var queryDB database.DBTX = db
	if cfg.Database.CircuitBreaker.Enabled {
		logger.Info(context.Background(), "Initializing database circuit breaker",
			zap.Bool("enabled", cfg.Database.CircuitBreaker.Enabled),
			zap.Uint32("max_failures", cfg.Database.CircuitBreaker.MaxFailures),
			zap.Float64("failure_threshold", cfg.Database.CircuitBreaker.FailureThreshold),
			zap.Duration("reset_timeout", cfg.Database.CircuitBreaker.ResetTimeout),
		)
		queryDB = database.NewBreakerDB(db, cfg.Database.CircuitBreaker, metrics, logger)
	}

	repos := storage.NewRepositories(queryDB, db)
	guard := attendance.NewHealthGuard(storage.NewHealthChecker(db, logger), logger, cfg.Attendance.GuardTimeout)

	service := attendance.NewService(repos, guard, auditLogger, validatorInstance, logger, metrics, cfg, loc)

	c := &Container{
		Config:            cfg,
		DB:                db,
		Logger:            logger,
		Validator:         validatorInstance,
		Metrics:           metrics,
		AuditLogger:       auditLogger,
		Location:          loc,
		AttendanceService: service,
		HealthHandler:     health.NewHandler(db),
	}

	var locker attendance.JobLocker
	if cfg.Redis.Enabled {
		client, err := c.GetRedisClient()
		if err != nil {
			logger.Warn(context.Background(), "Redis unavailable, scheduler runs without a job lock",
				zap.Error(err))
		} else {
			locker = joblock.NewRedisLocker(client, logger)
		}
	}

	c.Scheduler = attendance.NewScheduler(service, logger, locker)
	c.AttendanceHandler = attendance.NewHandler(service, c.Scheduler)
	return c, nil
}

// GetRedisClient provides a thread-safe singleton that allows retries on failure
func (c *Container) GetRedisClient() (*redis.Client, error) {
	c.redisMu.RLock()
	if c.redisClient != nil {
		client := c.redisClient
		c.redisMu.RUnlock()
		return client, nil
	}
	c.redisMu.RUnlock()

	c.redisMu.Lock()
	defer c.redisMu.Unlock()

	// Double-check after acquiring lock
	if c.redisClient != nil {
		return c.redisClient, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", c.Config.Redis.Host, c.Config.Redis.Port),
		Password:     c.Config.Redis.Password,
		DB:           c.Config.Redis.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     c.Config.Redis.PoolSize,
		MinIdleConns: c.Config.Redis.MinIdleConns,
		MaxRetries:   c.Config.Redis.MaxRetries,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		c.redisClient = nil // Explicitly nullify on failure
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	c.redisClient = client
	return c.redisClient, nil
}

// Close gracefully closes all infrastructure connections
func (c *Container) Close() {
	if c.AuditLogger != nil {
		if err := c.AuditLogger.Close(); err != nil {
			c.Logger.Error(context.Background(), "Error closing audit logger", zap.Error(err))
		}
	}

	c.redisMu.Lock()
	defer c.redisMu.Unlock()

	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			c.Logger.Error(context.Background(), "Error closing DB", zap.Error(err))
		}
	}

	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil {
			c.Logger.Error(context.Background(), "Error closing Redis", zap.Error(err))
		}
		c.redisClient = nil
	}
}
