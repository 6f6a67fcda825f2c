package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/xerrors"
)

func ParseSchedule(spec string) (cron.Schedule, error) {
	schedule, err := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow).Parse(spec)
	if err != nil {
		return nil, xerrors.Errorf("failed to parse schedule %q: %w", spec, err)
	}
	return schedule, nil
}

// Repeat calls fn at every activation of schedule until ctx is done. Failed
// runs are logged and the next activation still happens.
func Repeat(ctx context.Context, schedule cron.Schedule, logger *slog.Logger, fn func(ctx context.Context) error) error {
	for {
		now := time.Now()
		nextRun := schedule.Next(now)
		if nextRun.IsZero() {
			return xerrors.New("schedule has no next activation")
		}

		timer := time.NewTimer(nextRun.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		if err := fn(ctx); err != nil {
			logger.Error("scheduled run failed", "error", err)
			continue
		}
		logger.Info("scheduled run finished", "next", schedule.Next(time.Now()))
	}
}
