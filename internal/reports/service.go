package reports

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"sponte/internal/logger"
	"sponte/internal/notifier"
	"sponte/internal/store"

	"github.com/google/uuid"
)

// ErrInvalidPeriod is returned when a period does not end after it starts.
var ErrInvalidPeriod = errors.New("period end must be after start")

// Service persists reports and emails them.
type Service struct {
	store       store.Store
	builder     *Builder
	notifier    notifier.Notifier
	frontendURL string
	logger      *slog.Logger
	now         func() time.Time
}

// NewService wires the report service.
func NewService(s store.Store, b *Builder, n notifier.Notifier, frontendURL string, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: s, builder: b, notifier: n, frontendURL: frontendURL, logger: log, now: time.Now}
}

// SetClock replaces the time source used for scheduled periods.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Generate builds and stores a report for [start, end). When sendEmail is set
// and the location has recipients the report is emailed; a delivery failure
// is logged and leaves the report without email_sent_at.
func (s *Service) Generate(ctx context.Context, loc *store.Location, t store.ReportType, start, end time.Time, sendEmail bool) (*store.Report, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("unknown report type %q", t)
	}
	if !end.After(start) {
		return nil, ErrInvalidPeriod
	}
	log := logger.FromContext(ctx, s.logger).With("location_id", loc.ID, "report_type", t)

	data, err := s.builder.Build(ctx, loc, start, end)
	if err != nil {
		return nil, err
	}
	m, err := data.Map()
	if err != nil {
		return nil, fmt.Errorf("encode report data: %w", err)
	}

	r := &store.Report{
		ID:              uuid.New(),
		LocationID:      loc.ID,
		ReportType:      t,
		PeriodStart:     start.UTC(),
		PeriodEnd:       end.UTC(),
		Data:            m,
		EmailRecipients: loc.ReportEmails,
		CreatedAt:       s.now().UTC(),
	}
	if err := s.store.CreateReport(ctx, r); err != nil {
		return nil, err
	}
	log.Info("report generated", "report_id", r.ID)

	if !sendEmail || len(r.EmailRecipients) == 0 {
		return r, nil
	}

	if err := notifier.SendReport(ctx, s.notifier, s.email(loc, r, data)); err != nil {
		log.Error("failed to send report email", "report_id", r.ID, "error", err)
		return r, nil
	}
	sentAt := s.now().UTC()
	if err := s.store.MarkReportEmailed(ctx, r.ID, sentAt); err != nil {
		log.Error("failed to stamp report email", "report_id", r.ID, "error", err)
		return r, nil
	}
	r.EmailSentAt = &sentAt
	return r, nil
}

func (s *Service) email(loc *store.Location, r *store.Report, d *Data) notifier.ReportEmail {
	e := notifier.ReportEmail{
		To:           r.EmailRecipients,
		BusinessName: loc.BusinessName,
		ReportType:   string(r.ReportType),
		PeriodStart:  r.PeriodStart,
		PeriodEnd:    r.PeriodEnd,
		Highlights: []string{
			fmt.Sprintf("%d tasks completed", d.Totals.TasksCompleted),
			fmt.Sprintf("%d pieces of content created", d.Totals.OutputsCreated),
			fmt.Sprintf("%d published", d.Totals.OutputsPublished),
			fmt.Sprintf("%d calls (%+.1f%%)", d.Metrics.Calls.Current, d.Metrics.Calls.Change),
		},
		Insights: d.Insights,
	}
	if s.frontendURL != "" {
		e.Link = fmt.Sprintf("%s/dashboard/reports/%s", s.frontendURL, r.ID)
	}
	return e
}

// RunSummary counts what a scheduled report run did.
type RunSummary struct {
	Generated int
	Skipped   int
	Errors    int
}

// Period returns the scheduled window for t at now.
func Period(t store.ReportType, now time.Time) (time.Time, time.Time, error) {
	switch t {
	case store.ReportWeekly:
		start, end := WeeklyPeriod(now)
		return start, end, nil
	case store.ReportMonthly:
		start, end := MonthlyPeriod(now)
		return start, end, nil
	}
	return time.Time{}, time.Time{}, fmt.Errorf("report type %q is not scheduled", t)
}

// RunScheduled generates and emails the period's report for every eligible location.
// A location already holding a report of this type for the period is skipped.
func (s *Service) RunScheduled(ctx context.Context, t store.ReportType) (RunSummary, error) {
	var sum RunSummary
	start, end, err := Period(t, s.now())
	if err != nil {
		return sum, err
	}

	locations, err := s.store.ListLocations(ctx)
	if err != nil {
		return sum, fmt.Errorf("list locations: %w", err)
	}

	log := logger.FromContext(ctx, s.logger).With("report_type", t)
	for i := range locations {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		loc := &locations[i]

		ok, err := s.eligible(ctx, loc, t, start)
		if err != nil {
			sum.Errors++
			log.Error("eligibility check failed", "location_id", loc.ID, "error", err)
			continue
		}
		if !ok {
			sum.Skipped++
			continue
		}

		if _, err := s.Generate(ctx, loc, t, start, end, true); err != nil {
			sum.Errors++
			log.Error("scheduled report failed", "location_id", loc.ID, "error", err)
			continue
		}
		sum.Generated++
	}

	log.Info("scheduled reports finished", "generated", sum.Generated, "skipped", sum.Skipped, "errors", sum.Errors)
	return sum, nil
}

func (s *Service) eligible(ctx context.Context, loc *store.Location, t store.ReportType, start time.Time) (bool, error) {
	if len(loc.ReportEmails) == 0 {
		return false, nil
	}
	freq := store.ReportType(loc.ReportFrequency)
	if freq == "" {
		freq = store.ReportWeekly
	}
	if freq != t {
		return false, nil
	}

	cfg, err := s.store.GetAgentConfig(ctx, loc.ID, store.AgentReporting)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !cfg.IsActive {
		return false, nil
	}

	latest, err := s.store.LatestReport(ctx, loc.ID, t)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return true, nil
	case err != nil:
		return false, err
	}
	return !latest.PeriodStart.Equal(start.UTC()), nil
}
