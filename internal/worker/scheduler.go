package worker

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ekaramel/rentdesk/internal/config"
)

// Sweep schedules. The reminder sweep granularity bounds how late a
// reminder can fire; the subscription sweep only needs to run daily.
const (
	reminderSweepSchedule     = "*/5 * * * *"
	subscriptionSweepSchedule = "17 3 * * *"
)

// StartScheduler creates and starts an Asynq Scheduler for the periodic
// sweeps. Returns a stop function for graceful shutdown.
func StartScheduler(cfg *config.Config) (stop func(), err error) {
	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	location, err := time.LoadLocation(cfg.SweepTimezone)
	if err != nil {
		slog.Warn("Invalid timezone, using UTC", "timezone", cfg.SweepTimezone, "error", err)
		location = time.UTC
	}

	logger := NewLogger(cfg.LogLevel, cfg.LogFormat)

	scheduler := asynq.NewScheduler(
		redisOpt,
		&asynq.SchedulerOpts{
			Location: location,
			LogLevel: asynq.InfoLevel,
			Logger:   &asynqLoggerAdapter{logger: logger},
		},
	)

	entries := []struct {
		schedule string
		task     *asynq.Task
	}{
		{
			schedule: reminderSweepSchedule,
			task: asynq.NewTask(
				TaskReminderSweep,
				nil, // empty payload, the handler scans all due rows
				asynq.MaxRetry(2),
				asynq.Timeout(4*time.Minute),
				asynq.Unique(4*time.Minute), // overlapping sweeps would double-send
			),
		},
		{
			schedule: subscriptionSweepSchedule,
			task: asynq.NewTask(
				TaskSubscriptionSweep,
				nil,
				asynq.MaxRetry(3),
				asynq.Timeout(10*time.Minute),
				asynq.Unique(12*time.Hour),
			),
		},
	}

	for _, e := range entries {
		entryID, err := scheduler.Register(e.schedule, e.task)
		if err != nil {
			return nil, fmt.Errorf("failed to register %s schedule: %w", e.task.Type(), err)
		}
		slog.Info("Registered periodic task", "task_type", e.task.Type(), "schedule", e.schedule, "entry_id", entryID)
	}

	if err := scheduler.Start(); err != nil {
		return nil, fmt.Errorf("failed to start scheduler: %w", err)
	}

	slog.Info("Scheduler started", "timezone", cfg.SweepTimezone)

	return func() { scheduler.Shutdown() }, nil
}
