package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	router       *gin.Engine
	container    *Container
	httpServer   *http.Server
	workerCtx    context.Context
	workerCancel context.CancelFunc
	workerWG     sync.WaitGroup
}

func NewServer(container *Container) *Server {
	router := SetupRouter(container)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	return &Server{
		router:       router,
		container:    container,
		workerCtx:    workerCtx,
		workerCancel: workerCancel,
	}
}

func (s *Server) Start() error {
	if err := s.startScheduler(); err != nil {
		return err
	}
	s.startMetricsCollector()
	addr := fmt.Sprintf("%s:%s", s.container.Config.Server.Host, s.container.Config.Server.Port)
	s.httpServer = &http.Server{
		Addr:           addr,
		Handler:        s.router,
		ReadTimeout:    s.container.Config.Server.ReadTimeout,
		WriteTimeout:   s.container.Config.Server.WriteTimeout,
		IdleTimeout:    s.container.Config.Server.IdleTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	s.container.Logger.Info(s.workerCtx,
		fmt.Sprintf("Starting server on %s", addr),
		zap.String("env", s.container.Config.Server.Env),
		zap.String("timezone", s.container.Location.String()),
	)

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server failed: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		s.container.Logger.Info(s.workerCtx, "Shutdown signal received", zap.String("signal", sig.String()))
		return s.gracefulShutdown()
	}
}

// startScheduler brings up the cron registry unless disabled. Manual triggers
// over HTTP keep working either way.
func (s *Server) startScheduler() error {
	if !s.container.Config.Attendance.SchedulerEnabled {
		s.container.Logger.Info(s.workerCtx, "Attendance scheduler disabled, jobs run on manual triggers only")
		return nil
	}
	if err := s.container.Scheduler.Start(); err != nil {
		return fmt.Errorf("start attendance scheduler: %w", err)
	}
	s.container.Logger.Info(s.workerCtx, "Attendance scheduler started",
		zap.String("timezone", s.container.Location.String()))
	return nil
}

func (s *Server) startMetricsCollector() {
	if !s.container.Config.Metrics.Enabled {
		return
	}
	s.workerWG.Add(1)
	go func() {
		defer s.workerWG.Done()
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			// Prioritize shutdown signal in the select logic
			case <-s.workerCtx.Done():
				return
			case <-ticker.C:
				// Double-check context to prevent starting work during race conditions
				if s.workerCtx.Err() != nil {
					return
				}
				s.collectDatabaseMetrics()
			}
		}
	}()
}

func (s *Server) collectDatabaseMetrics() {
	stats := s.container.DB.Stats()
	s.container.Metrics.RecordDatabaseStats(
		stats.OpenConnections,
		stats.InUse,
		stats.Idle,
	)
}

func (s *Server) gracefulShutdown() error {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), s.container.Config.Server.ShutdownTimeout)
	defer shutdownCancel()

	s.container.Logger.Info(s.workerCtx, "Shutting down HTTP server...")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.container.Logger.Error(s.workerCtx, "HTTP server shutdown failed", zap.Error(err))
	}

	if s.container.Config.Attendance.SchedulerEnabled {
		s.container.Logger.Info(s.workerCtx, "Stopping attendance scheduler...")
		s.container.Scheduler.Stop(shutdownCtx)
	}

	s.container.Logger.Info(s.workerCtx, "Stopping background workers...")
	s.workerCancel()

	shutdownDone := make(chan struct{})
	go func() {
		s.workerWG.Wait()
		close(shutdownDone)
	}()

	select {
	case <-shutdownDone:
		s.container.Logger.Info(s.workerCtx, "Background workers finished")
	case <-time.After(10 * time.Second):
		s.container.Logger.Warn(s.workerCtx, "Background workers did not finish in time, proceeding with shutdown")
	}

	s.container.Logger.Info(s.workerCtx, "Closing infrastructure connections...")
	s.container.Close()
	s.container.Logger.Info(s.workerCtx, "Server exited gracefully")
	return nil
}
