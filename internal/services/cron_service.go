package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/seat-reservation-backend/internal/config"
)

// TripMaintainer runs the periodic trip jobs
type TripMaintainer interface {
	MarkDeparted(ctx context.Context) (int, error)
	Reconcile(ctx context.Context, aheadDays int) ([]InventoryMismatch, error)
}

const cronJobTimeout = 2 * time.Minute

// CronService manages scheduled background jobs
type CronService struct {
	cron    *cron.Cron
	trips   TripMaintainer
	config  config.CronConfig
	logger  *logrus.Logger
	baseCtx context.Context
}

// NewCronService creates a new CronService
func NewCronService(trips TripMaintainer, cfg config.CronConfig, logger *logrus.Logger) *CronService {
	// Seconds precision: "0 */5 * * * *"
	c := cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(cronLogger{logger})))

	return &CronService{
		cron:    c,
		trips:   trips,
		config:  cfg,
		logger:  logger,
		baseCtx: context.Background(),
	}
}

// Start schedules all jobs and starts the scheduler. Jobs stop receiving a
// live context once ctx is done.
func (s *CronService) Start(ctx context.Context) error {
	s.baseCtx = ctx

	if _, err := s.cron.AddFunc(s.config.DepartureSchedule, s.markDepartedJob); err != nil {
		return fmt.Errorf("failed to schedule departure job: %w", err)
	}
	s.logger.WithField("schedule", s.config.DepartureSchedule).Info("Scheduled: mark departed trips")

	if _, err := s.cron.AddFunc(s.config.ReconcileSchedule, s.reconcileJob); err != nil {
		return fmt.Errorf("failed to schedule reconcile job: %w", err)
	}
	s.logger.WithField("schedule", s.config.ReconcileSchedule).Info("Scheduled: inventory reconciliation")

	s.cron.Start()
	s.logger.Info("Cron service started")
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *CronService) Stop() {
	s.logger.Info("Stopping cron service...")
	<-s.cron.Stop().Done()
	s.logger.Info("Cron service stopped")
}

func (s *CronService) markDepartedJob() {
	ctx, cancel := context.WithTimeout(s.baseCtx, cronJobTimeout)
	defer cancel()

	start := time.Now()
	n, err := s.trips.MarkDeparted(ctx)
	if err != nil {
		s.logger.WithError(err).Error("[CRON] Failed to mark departed trips")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"marked":   n,
		"duration": time.Since(start).String(),
	}).Info("[CRON] Departed trips marked")
}

func (s *CronService) reconcileJob() {
	ctx, cancel := context.WithTimeout(s.baseCtx, cronJobTimeout)
	defer cancel()

	start := time.Now()
	mismatches, err := s.trips.Reconcile(ctx, s.config.ReconcileAheadDays)
	if err != nil {
		s.logger.WithError(err).Error("[CRON] Inventory reconciliation failed")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"mismatches": len(mismatches),
		"ahead_days": s.config.ReconcileAheadDays,
		"duration":   time.Since(start).String(),
	}).Info("[CRON] Inventory reconciliation finished")
}

// RunNow runs both jobs once, in order
func (s *CronService) RunNow() {
	s.markDepartedJob()
	s.reconcileJob()
}

// GetJobStatus returns the status of scheduled jobs
func (s *CronService) GetJobStatus() map[string]interface{} {
	entries := s.cron.Entries()

	jobs := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		jobs = append(jobs, map[string]interface{}{
			"id":       entry.ID,
			"next_run": entry.Next,
			"prev_run": entry.Prev,
		})
	}

	return map[string]interface{}{
		"running":   len(entries) > 0,
		"job_count": len(entries),
		"jobs":      jobs,
	}
}

// cronLogger adapts logrus to cron.Logger
type cronLogger struct {
	logger *logrus.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(kvFields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.WithError(err).WithFields(kvFields(keysAndValues)).Error(msg)
}

func kvFields(keysAndValues []interface{}) logrus.Fields {
	fields := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return fields
}
