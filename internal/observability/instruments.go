package observability

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "sponte"

var (
	initInstrumentsOnce sync.Once
	initInstrumentsErr  error

	taskTransitions    metric.Int64Counter
	outputTransitions  metric.Int64Counter
	publishFailures    metric.Int64Counter
	schedulerRuns      metric.Int64Counter
	generationDuration metric.Float64Histogram
)

// InitInstruments creates the domain instruments on the global meter provider.
// Safe to call multiple times; only runs once. Record* calls before init are dropped.
func InitInstruments() error {
	initInstrumentsOnce.Do(func() {
		m := otel.Meter(meterName)
		var err error
		defer func() { initInstrumentsErr = err }()

		taskTransitions, err = m.Int64Counter("sponte_tasks_total",
			metric.WithDescription("Task status transitions by agent and resulting status"))
		if err != nil {
			return
		}
		outputTransitions, err = m.Int64Counter("sponte_outputs_total",
			metric.WithDescription("Output status transitions by agent and resulting status"))
		if err != nil {
			return
		}
		publishFailures, err = m.Int64Counter("sponte_publish_failures_total",
			metric.WithDescription("Publisher calls that failed while marking an output posted"))
		if err != nil {
			return
		}
		schedulerRuns, err = m.Int64Counter("sponte_scheduler_runs_total",
			metric.WithDescription("Scheduler job runs by job and result"))
		if err != nil {
			return
		}
		generationDuration, err = m.Float64Histogram("sponte_generation_duration_seconds",
			metric.WithDescription("Content generation latency"),
			metric.WithUnit("s"))
	})
	return initInstrumentsErr
}

// RecordTaskTransition counts a task entering status.
func RecordTaskTransition(ctx context.Context, agentType, status string) {
	if taskTransitions == nil {
		return
	}
	taskTransitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("agent_type", agentType),
		attribute.String("status", status),
	))
}

// RecordOutputTransition counts an output entering status.
func RecordOutputTransition(ctx context.Context, agentType, status string) {
	if outputTransitions == nil {
		return
	}
	outputTransitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("agent_type", agentType),
		attribute.String("status", status),
	))
}

func RecordPublishFailure(ctx context.Context, agentType string) {
	if publishFailures == nil {
		return
	}
	publishFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("agent_type", agentType)))
}

// RecordGeneration records how long a generator call took and whether it failed.
func RecordGeneration(ctx context.Context, agentType string, d time.Duration, err error) {
	if generationDuration == nil {
		return
	}
	generationDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("agent_type", agentType),
		attribute.String("result", result(err)),
	))
}

func RecordSchedulerRun(ctx context.Context, job string, err error) {
	if schedulerRuns == nil {
		return
	}
	schedulerRuns.Add(ctx, 1, metric.WithAttributes(
		attribute.String("job", job),
		attribute.String("result", result(err)),
	))
}

// RegisterDraftsGauge exposes the number of outputs waiting for review.
// The callback queries only when the endpoint is scraped.
func RegisterDraftsGauge(count func(context.Context) (int64, error), onErr func(error)) error {
	_, err := otel.Meter(meterName).Int64ObservableGauge("sponte_drafts_pending",
		metric.WithDescription("Outputs currently in draft status"),
		metric.WithInt64Callback(func(ctx context.Context, obs metric.Int64Observer) error {
			n, err := count(ctx)
			if err != nil {
				if onErr != nil {
					onErr(err)
				}
				return nil
			}
			obs.Observe(n)
			return nil
		}),
	)
	return err
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
