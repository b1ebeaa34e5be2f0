package services

import (
	"context"
	"fmt"
	"time"

	"shelfsight/server/internal/config"
	"shelfsight/server/internal/repository"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler periodically removes stored analyses older than the retention window.
type Scheduler struct {
	log  *zap.Logger
	conf config.RetentionConfig
	cron *cron.Cron
	now  func() time.Time
}

func NewScheduler(log *zap.Logger, conf config.RetentionConfig) *Scheduler {
	return &Scheduler{
		log:  log,
		conf: conf,
		cron: cron.New(),
		now:  time.Now,
	}
}

// Start registers the retention sweep on the configured schedule. A
// non-positive retention disables the sweep.
func (s *Scheduler) Start() error {
	if s.conf.Days <= 0 {
		s.log.Info("Retention sweep disabled")
		return nil
	}
	if _, err := s.cron.AddFunc(s.conf.Schedule, s.runRetentionSweep); err != nil {
		return fmt.Errorf("invalid retention schedule %q: %w", s.conf.Schedule, err)
	}
	s.cron.Start()
	s.log.Info("Starting retention scheduler...", zap.String("schedule", s.conf.Schedule), zap.Int("days", s.conf.Days))
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Sweep deletes every analysis older than the retention window.
func (s *Scheduler) Sweep(ctx context.Context) (int64, error) {
	cutoff := s.now().UTC().AddDate(0, 0, -s.conf.Days)
	return repository.DeleteAnalysesBefore(ctx, cutoff)
}

func (s *Scheduler) runRetentionSweep() {
	deleted, err := s.Sweep(context.Background())
	if err != nil {
		s.log.Error("Retention sweep failed", zap.Error(err))
		return
	}
	s.log.Debug("Retention sweep finished", zap.Int64("deleted", deleted))
}
