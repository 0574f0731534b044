package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler runs the sync on a recurring schedule. The spec is either
// a cron expression ("*/10 * * * *") or a plain duration ("10m").
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

func New(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:   cron.New(),
		logger: logger,
	}
}

// Add registers the run function under the given spec.
func (s *Scheduler) Add(spec string, run func(context.Context)) error {
	if _, err := time.ParseDuration(spec); err == nil {
		spec = fmt.Sprintf("@every %s", spec)
	}

	_, err := s.cron.AddFunc(spec, func() {
		run(context.Background())
	})
	if err != nil {
		return fmt.Errorf("invalid sync interval %q: %w", spec, err)
	}
	return nil
}

// Start begins scheduling in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", zap.Int("entries", len(s.cron.Entries())))
}

// Stop halts scheduling and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}
