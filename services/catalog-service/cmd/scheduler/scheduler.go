package main

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// repairTimeout bounds one catalog-wide order repair
const repairTimeout = 10 * time.Minute

// OrderRepairer compacts order indices across the catalog
type OrderRepairer interface {
	// RepairAll repairs every course whose chapter or lesson order has gaps
	//
	// Returns the number of repaired courses and an error if any.
	RepairAll(ctx context.Context) (int, error)
}

// Scheduler runs the periodic catalog maintenance jobs
type Scheduler struct {
	cron     *cron.Cron
	repairer OrderRepairer
	logger   *zap.Logger
}

// NewScheduler creates a scheduler running the order repair on spec
//
// spec is a standard five field cron expression.
func NewScheduler(spec string, repairer OrderRepairer, logger *zap.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		repairer: repairer,
		logger:   logger,
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, err
	}
	if _, err := s.cron.AddFunc(spec, s.repairOrder); err != nil {
		return nil, err
	}
	return s, nil
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started")
}

// Stop stops the scheduler and waits for a running job to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

// repairOrder runs one catalog-wide order repair
func (s *Scheduler) repairOrder() {
	ctx, cancel := context.WithTimeout(context.Background(), repairTimeout)
	defer cancel()

	start := time.Now()
	repaired, err := s.repairer.RepairAll(ctx)
	if err != nil {
		s.logger.Error("Order repair failed", zap.Error(err))
		return
	}
	s.logger.Info("Order repair finished",
		zap.Int("repaired_courses", repaired),
		zap.Duration("took", time.Since(start)),
	)
}
