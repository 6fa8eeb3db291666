// Package scheduler registers the periodic wallet-limit jobs.
package scheduler

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"

	"gitlab.com/yelinaung/dsw-limit-bot/internal/logger"
)

// Job names and schedules.
const (
	MonthlyJobName = "monthly-limit-reset"
	DailyJobName   = "daily-limit-reset"

	MonthlySchedule = "0 0 1 * *"
	DailySchedule   = "0 0 * * *"
)

// LimitReset runs the monthly and daily limit-reset jobs. The jobs only log
// for now: no baseline for resetting limits has been defined.
type LimitReset struct {
	sched gocron.Scheduler
	loc   *time.Location
}

// New creates a LimitReset with both jobs registered in the given timezone.
// Call Start to begin running them.
func New(timezone string) (*LimitReset, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", timezone, err)
	}

	sched, err := gocron.NewScheduler(gocron.WithLocation(loc))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	jobs := []struct {
		name     string
		schedule string
		task     func()
	}{
		{MonthlyJobName, MonthlySchedule, monthlyReset},
		{DailyJobName, DailySchedule, dailyReset},
	}
	for _, j := range jobs {
		if _, err := sched.NewJob(
			gocron.CronJob(j.schedule, false),
			gocron.NewTask(j.task),
			gocron.WithName(j.name),
		); err != nil {
			_ = sched.Shutdown()
			return nil, fmt.Errorf("failed to register %s: %w", j.name, err)
		}
	}

	return &LimitReset{sched: sched, loc: loc}, nil
}

// Start begins running the jobs in the background.
func (l *LimitReset) Start() {
	l.sched.Start()
	logger.Log.Info().
		Str("timezone", l.loc.String()).
		Int("jobs", len(l.sched.Jobs())).
		Msg("Limit reset scheduler started")
}

// Shutdown stops the scheduler and waits for running jobs to finish.
func (l *LimitReset) Shutdown() error {
	if err := l.sched.Shutdown(); err != nil {
		return fmt.Errorf("failed to stop scheduler: %w", err)
	}
	return nil
}

// JobNames returns the names of the registered jobs.
func (l *LimitReset) JobNames() []string {
	jobs := l.sched.Jobs()
	names := make([]string, 0, len(jobs))
	for _, j := range jobs {
		names = append(names, j.Name())
	}
	return names
}

func monthlyReset() {
	logger.Log.Info().Str("job", MonthlyJobName).Msg("Monthly limit reset tick")
}

func dailyReset() {
	logger.Log.Info().Str("job", DailyJobName).Msg("Daily limit reset tick")
}
