package agents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"sponte/internal/logger"
	"sponte/internal/store"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TickSummary counts what one scheduled pass did.
type TickSummary struct {
	AgentType store.AgentType
	Locations int
	Created   int
	Posted    int
	Skipped   int
	Errors    int
}

func (t *TickSummary) add(o TickSummary) {
	t.Locations += o.Locations
	t.Created += o.Created
	t.Posted += o.Posted
	t.Skipped += o.Skipped
	t.Errors += o.Errors
}

// Orchestrator runs the scheduled pass that creates and processes due tasks
// across every location.
type Orchestrator struct {
	svc    *Service
	store  store.Store
	logger *slog.Logger
}

// NewOrchestrator returns an orchestrator driving svc.
func NewOrchestrator(svc *Service, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{svc: svc, store: svc.store, logger: log}
}

// TickAll runs Tick for every content agent. Per-location failures are
// counted, not returned.
func (o *Orchestrator) TickAll(ctx context.Context) (TickSummary, error) {
	total := TickSummary{}
	for _, agent := range store.ContentAgentTypes {
		sum, err := o.Tick(ctx, agent)
		total.add(sum)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Tick creates and processes one task per location whose agent is active and due.
// In autopilot mode the generated output is approved and posted in the same pass.
func (o *Orchestrator) Tick(ctx context.Context, agentType store.AgentType) (TickSummary, error) {
	ctx, span := o.svc.tracer.Start(ctx, "agents.Tick", trace.WithAttributes(attribute.String("agent_type", string(agentType))))
	defer span.End()

	sum := TickSummary{AgentType: agentType}
	if _, ok := agentType.DefaultTask(); !ok {
		return sum, invalidInput("agent %s is not scheduled", agentType)
	}

	locations, err := o.store.ListLocations(ctx)
	if err != nil {
		return sum, fmt.Errorf("list locations: %w", err)
	}

	log := logger.FromContext(ctx, o.logger).With("agent_type", agentType)
	for i := range locations {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		loc := &locations[i]
		sum.Locations++

		res, err := o.tickLocation(ctx, agentType, loc)
		switch {
		case err != nil:
			sum.Errors++
			log.Error("scheduled task failed", "location_id", loc.ID, "error", err)
		case res == tickSkipped:
			sum.Skipped++
		case res == tickPosted:
			sum.Created++
			sum.Posted++
		default:
			sum.Created++
		}
	}

	span.SetAttributes(
		attribute.Int("locations", sum.Locations),
		attribute.Int("created", sum.Created),
		attribute.Int("errors", sum.Errors),
	)
	log.Info("tick finished",
		"locations", sum.Locations, "created", sum.Created, "posted", sum.Posted,
		"skipped", sum.Skipped, "errors", sum.Errors)
	return sum, nil
}

type tickResult int

const (
	tickSkipped tickResult = iota
	tickDrafted
	tickPosted
)

func (o *Orchestrator) tickLocation(ctx context.Context, agentType store.AgentType, loc *store.Location) (tickResult, error) {
	cfg, err := o.store.GetAgentConfig(ctx, loc.ID, agentType)
	if errors.Is(err, store.ErrNotFound) {
		return tickSkipped, nil
	}
	if err != nil {
		return tickSkipped, err
	}
	if !cfg.IsActive {
		return tickSkipped, nil
	}

	due, err := o.svc.IsDue(ctx, loc.ID, agentType)
	if err != nil {
		return tickSkipped, err
	}
	if !due {
		return tickSkipped, nil
	}

	now := o.svc.clock()
	task, err := o.svc.CreateTask(ctx, CreateTaskRequest{
		LocationID: loc.ID,
		AgentType:  agentType,
		Context:    fmt.Sprintf("Scheduled %s post", cadenceFor(agentType, loc, cfg)),
		DedupeKey:  DedupeKey(agentType, now),
	})
	if errors.Is(err, store.ErrDuplicateTask) {
		return tickSkipped, nil
	}
	if err != nil {
		return tickSkipped, err
	}

	out, err := o.svc.ProcessTask(ctx, task.ID)
	if err != nil {
		return tickSkipped, err
	}

	if cfg.AutonomyMode != store.AutonomyAutopilot {
		return tickDrafted, nil
	}

	if _, err := o.svc.ApproveOutput(ctx, out.ID); err != nil {
		return tickDrafted, fmt.Errorf("auto-approve: %w", err)
	}
	if _, err := o.svc.MarkPosted(ctx, out.ID, PostOptions{}); err != nil {
		return tickDrafted, fmt.Errorf("auto-post: %w", err)
	}
	return tickPosted, nil
}
