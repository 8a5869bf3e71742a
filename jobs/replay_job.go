package jobs

import (
	"context"
	"time"

	"topup-service/metrics"
	"topup-service/services"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const replayLockName = "topup:replay-lock"

// Locker hands out a cluster-wide lock. Acquire fails fast when the lock is held.
type Locker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (release func(), err error)
}

type redsyncLocker struct {
	rs     *redsync.Redsync
	logger *zap.Logger
}

func NewRedsyncLocker(client *redis.Client, logger *zap.Logger) Locker {
	return &redsyncLocker{rs: redsync.New(goredis.NewPool(client)), logger: logger}
}

func (l *redsyncLocker) Acquire(ctx context.Context, name string, ttl time.Duration) (func(), error) {
	mutex := l.rs.NewMutex(name, redsync.WithExpiry(ttl), redsync.WithTries(1))
	if err := mutex.TryLockContext(ctx); err != nil {
		return nil, err
	}
	return func() {
		if ok, err := mutex.Unlock(); !ok || err != nil {
			l.logger.Warn("Failed to release lock", zap.String("lock", name), zap.Error(err))
		}
	}, nil
}

// ReplayJob re-sends notifications for lifecycle events that were persisted
// but never marked as notified.
type ReplayJob struct {
	replayer services.Replayer
	locker   Locker
	lockTTL  time.Duration
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewReplayJob accepts a nil locker for single-instance deployments.
func NewReplayJob(replayer services.Replayer, locker Locker, lockTTL time.Duration, m *metrics.Metrics, logger *zap.Logger) *ReplayJob {
	if lockTTL <= 0 {
		lockTTL = 2 * time.Minute
	}
	return &ReplayJob{replayer: replayer, locker: locker, lockTTL: lockTTL, metrics: m, logger: logger}
}

func (j *ReplayJob) Name() string { return "notification-replay" }

func (j *ReplayJob) Run(ctx context.Context) error {
	if j.locker != nil {
		release, err := j.locker.Acquire(ctx, replayLockName, j.lockTTL)
		if err != nil {
			j.logger.Debug("Replay skipped, lock held elsewhere", zap.Error(err))
			j.metrics.ReplayRun("skipped", 0)
			return nil
		}
		defer release()
	}

	n, err := j.replayer.ReplayPending(ctx)
	if err != nil {
		j.metrics.ReplayRun("error", n)
		return err
	}
	j.metrics.ReplayRun("ok", n)
	if n > 0 {
		j.logger.Info("Replayed pending notifications", zap.Int("orders", n))
	}
	return nil
}
