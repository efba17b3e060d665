package auth

import (
	"context"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ExpiredSessionPurger is implemented by stores that do not expire entries themselves.
type ExpiredSessionPurger interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// SweepScheduleFromEnv reads SESSION_SWEEP_SCHEDULE (cron syntax, default every 15 minutes).
func SweepScheduleFromEnv() string {
	if s := os.Getenv("SESSION_SWEEP_SCHEDULE"); s != "" {
		return s
	}
	return "*/15 * * * *"
}

// ScheduleSweep registers a job on c that purges expired sessions.
func ScheduleSweep(c *cron.Cron, spec string, p ExpiredSessionPurger, logger *zap.SugaredLogger) (cron.EntryID, error) {
	return c.AddFunc(spec, func() { SweepOnce(p, logger) })
}

// SweepOnce purges expired sessions and logs the outcome.
func SweepOnce(p ExpiredSessionPurger, logger *zap.SugaredLogger) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	n, err := p.DeleteExpired(ctx, time.Now())
	if err != nil {
		logger.Errorw("session sweep failed", "err", err)
		return
	}
	if n > 0 {
		logger.Infow("expired sessions purged", "count", n)
	}
}
