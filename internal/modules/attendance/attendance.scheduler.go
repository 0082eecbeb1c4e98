package attendance

import (
	"context"
	"time"

	"github.com/hrcore/attendance-engine/internal/infrastructure/observability"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// JobLocker serializes a job across instances. Optional: without one every
// instance runs every job, which is safe (all jobs are idempotent) but noisy.
type JobLocker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, name string)
}

// jobEntry binds a job name to its cron spec and handler. Keeping the
// registry as one explicit table centralizes the timezone and failure
// isolation policy instead of scattering it per job.
type jobEntry struct {
	name string
	spec string
	run  func(ctx context.Context) RunSummary
}

// Scheduler dispatches the attendance jobs on their cron specs in the fixed
// operating timezone. A panic or failure in one job never affects another:
// each handler is wrapped with its own recovery and absorbs its own errors
// into the run summary.
type Scheduler struct {
	cron    *cron.Cron
	service *Service
	logger  *observability.Logger
	locker  JobLocker
	ids     map[string]cron.EntryID
}

func NewScheduler(service *Service, logger *observability.Logger, locker JobLocker) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(service.Location())),
		service: service,
		logger:  logger,
		locker:  locker,
		ids:     make(map[string]cron.EntryID),
	}
}

// registry is the full job table. Times are in the operating timezone.
func (s *Scheduler) registry() []jobEntry {
	return []jobEntry{
		{JobAutoCheckout, "0 5 * * *", s.service.RunAutoCheckout},
		{JobAutoMarkAbsent, "0 23,1,3 * * *", s.service.RunAutoMarkAbsent},
		{JobHolidayScan, "*/30 * * * *", s.service.RunHolidayScan},
		{JobWeekendPresence, "0 21 * * 6,0", s.service.RunWeekendPresence},
		{JobAnnualLeaveReset, "0 18 1 1 *", s.service.RunAnnualLeaveReset},
		{JobQuarterlyLeaveAccrual, "0 18 1 4,7,10 *", s.service.RunQuarterlyLeaveAccrual},
		{JobMonthlyLeaveAccrual, "0 6 1 * *", s.service.RunMonthlyLeaveAccrual},
		{JobMonthlyLatesReset, "0 18 1 * *", s.service.RunMonthlyLatesReset},
	}
}

// Start registers every job and starts the cron loop.
func (s *Scheduler) Start() error {
	for _, entry := range s.registry() {
		entry := entry
		id, err := s.cron.AddFunc(entry.spec, func() { s.runJob(entry) })
		if err != nil {
			return err
		}
		s.ids[entry.name] = id
		s.logger.Info(context.Background(), "Registered scheduled job",
			zap.String("job", entry.name),
			zap.String("spec", entry.spec),
			zap.String("timezone", s.service.Location().String()),
		)
	}
	s.cron.Start()
	return nil
}

// Stop halts scheduling and waits for any in-flight job to finish.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn(ctx, "Timed out waiting for running jobs to finish")
	}
}

// NextRuns reports the next fire time per registered job.
func (s *Scheduler) NextRuns() map[string]time.Time {
	next := make(map[string]time.Time, len(s.ids))
	for name, id := range s.ids {
		next[name] = s.cron.Entry(id).Next
	}
	return next
}

func (s *Scheduler) runJob(entry jobEntry) {
	ctx := context.Background()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(ctx, "Panic in scheduled job",
				zap.String("job", entry.name), zap.Any("error", r))
		}
	}()

	if s.locker != nil {
		acquired, err := s.locker.Acquire(ctx, entry.name, time.Hour)
		if err != nil {
			// Lock trouble never blocks the run; idempotence makes a
			// duplicate run harmless.
			s.logger.Warn(ctx, "Job lock unavailable, running anyway",
				zap.String("job", entry.name), zap.Error(err))
		} else if !acquired {
			s.logger.Info(ctx, "Job held by another instance, skipping",
				zap.String("job", entry.name))
			return
		} else {
			defer s.locker.Release(ctx, entry.name)
		}
	}

	entry.run(ctx)
}
