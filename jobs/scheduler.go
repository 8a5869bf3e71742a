package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is a unit of periodic work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler runs jobs on six-field (seconds) cron specs.
type Scheduler struct {
	cron    *cron.Cron
	timeout time.Duration
	logger  *zap.Logger
}

func NewScheduler(timeout time.Duration, logger *zap.Logger) *Scheduler {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		timeout: timeout,
		logger:  logger,
	}
}

// Add registers job under a six-field cron expression. Each run gets its own timeout context.
func (s *Scheduler) Add(spec string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		start := time.Now()
		if err := job.Run(ctx); err != nil {
			s.logger.Error("[CRON] job failed", zap.String("job", job.Name()), zap.Error(err))
			return
		}
		s.logger.Debug("[CRON] job finished", zap.String("job", job.Name()), zap.Duration("took", time.Since(start)))
	})
	if err != nil {
		return err
	}
	s.logger.Info("[CRON] job scheduled", zap.String("job", job.Name()), zap.String("spec", spec))
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("[CRON] jobs stopped gracefully")
	case <-ctx.Done():
		s.logger.Warn("[CRON] jobs forced to stop after timeout")
	}
}
