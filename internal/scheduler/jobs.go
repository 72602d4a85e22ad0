package scheduler

import (
	"context"
	"time"

	"sponte/internal/agents"
	"sponte/internal/reports"
	"sponte/internal/store"
)

// Job names, also accepted by the internal run endpoint.
const (
	JobAgentTick      = "gbp_task_creation"
	JobWeeklyReports  = "weekly_reports"
	JobMonthlyReports = "monthly_reports"
	JobStaleReaper    = "stale_task_reaper"
)

// DefaultStaleAfter is how long a task may stay in_progress before the reaper fails it.
const DefaultStaleAfter = 30 * time.Minute

type Ticker interface {
	TickAll(ctx context.Context) (agents.TickSummary, error)
}

type ReportRunner interface {
	RunScheduled(ctx context.Context, t store.ReportType) (reports.RunSummary, error)
}

type Reaper interface {
	FailStaleTasks(ctx context.Context, olderThan time.Duration) (int, error)
}

// Deps are the services the default jobs drive.
type Deps struct {
	Agents     Ticker
	Reports    ReportRunner
	Tasks      Reaper
	StaleAfter time.Duration
}

// RegisterDefaults installs the standard job set.
func (s *Scheduler) RegisterDefaults(d Deps) error {
	staleAfter := d.StaleAfter
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}

	if err := s.Register(JobAgentTick, "0 6 * * *", func(ctx context.Context) error {
		sum, err := d.Agents.TickAll(ctx)
		s.logger.Info("agent tick summary", "job", JobAgentTick,
			"locations", sum.Locations, "created", sum.Created, "posted", sum.Posted,
			"skipped", sum.Skipped, "errors", sum.Errors)
		return err
	}); err != nil {
		return err
	}

	if err := s.Register(JobWeeklyReports, "0 8 * * 1", reportJob(d.Reports, store.ReportWeekly)); err != nil {
		return err
	}

	if err := s.RegisterGuarded(JobMonthlyReports, "0 9 * * 1", reports.IsFirstMondayOfMonth,
		reportJob(d.Reports, store.ReportMonthly)); err != nil {
		return err
	}

	return s.Register(JobStaleReaper, "*/15 * * * *", func(ctx context.Context) error {
		n, err := d.Tasks.FailStaleTasks(ctx, staleAfter)
		if n > 0 {
			s.logger.Warn("failed stale tasks", "job", JobStaleReaper, "count", n)
		}
		return err
	})
}

func reportJob(r ReportRunner, t store.ReportType) JobFunc {
	return func(ctx context.Context) error {
		_, err := r.RunScheduled(ctx, t)
		return err
	}
}
