// Package agents drives the agent task and output lifecycles.
//
// Every status change is a compare-and-set against the stored status, so
// concurrent callers (the daily tick, API requests, retries) cannot both win
// the same transition. Generation and publishing run outside of any database
// transaction.
package agents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"sponte/internal/logger"
	"sponte/internal/observability"
	"sponte/internal/store"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// recentSampleLimit is how many previous outputs are shown to the generator.
const recentSampleLimit = 5

// Service implements the task and output operations.
type Service struct {
	store     store.Store
	generator Generator
	publisher Publisher
	logger    *slog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewService wires the lifecycle service. publisher may be nil, in which case
// marking an output posted never calls out.
func NewService(s store.Store, gen Generator, pub Publisher, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:     s,
		generator: gen,
		publisher: pub,
		logger:    log,
		tracer:    otel.Tracer("sponte/agents"),
		now:       time.Now,
	}
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

// CreateTaskRequest describes a new pending task.
type CreateTaskRequest struct {
	LocationID uuid.UUID
	AgentType  store.AgentType
	// TaskType defaults to the agent's scheduled task type.
	TaskType     store.TaskType
	ScheduledFor *time.Time
	Context      string
	// DedupeKey makes creation idempotent per location. Empty for ad-hoc tasks.
	DedupeKey string
}

// CreateTask records a new pending task for the location.
func (s *Service) CreateTask(ctx context.Context, req CreateTaskRequest) (*store.Task, error) {
	if !req.AgentType.Valid() {
		return nil, invalidInput("unknown agent type %q", req.AgentType)
	}
	if req.TaskType == "" {
		t, ok := req.AgentType.DefaultTask()
		if !ok {
			return nil, invalidInput("agent %s has no default task type", req.AgentType)
		}
		req.TaskType = t
	}
	if owner, ok := req.TaskType.Agent(); !ok || owner != req.AgentType {
		return nil, invalidInput("task type %q does not belong to agent %s", req.TaskType, req.AgentType)
	}

	if _, err := s.store.GetLocation(ctx, req.LocationID); err != nil {
		return nil, fmt.Errorf("location %s: %w", req.LocationID, err)
	}

	now := s.clock()
	scheduled := now
	if req.ScheduledFor != nil {
		scheduled = req.ScheduledFor.UTC()
	}

	task := &store.Task{
		ID:           uuid.New(),
		LocationID:   req.LocationID,
		AgentType:    req.AgentType,
		TaskType:     req.TaskType,
		Status:       store.TaskPending,
		ScheduledFor: scheduled,
		Metadata:     map[string]any{"context": req.Context},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if req.DedupeKey != "" {
		key := req.DedupeKey
		task.DedupeKey = &key
	}

	if err := s.store.CreateTask(ctx, nil, task); err != nil {
		return nil, err
	}

	observability.RecordTaskTransition(ctx, string(task.AgentType), string(task.Status))
	logger.FromContext(ctx, s.logger).Info("task created",
		"task_id", task.ID, "location_id", task.LocationID, "agent_type", task.AgentType, "task_type", task.TaskType)

	return task, nil
}

// ProcessTask claims a pending task, generates its content and stores a draft output.
// Generator failures move the task to failed and return a *GenerationError.
func (s *Service) ProcessTask(ctx context.Context, taskID uuid.UUID) (*store.Output, error) {
	ctx, span := s.tracer.Start(ctx, "agents.ProcessTask", trace.WithAttributes(attribute.String("task_id", taskID.String())))
	defer span.End()

	out, err := s.processTask(ctx, taskID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return out, err
}

func (s *Service) processTask(ctx context.Context, taskID uuid.UUID) (*store.Output, error) {
	log := logger.FromContext(ctx, s.logger).With("task_id", taskID)

	task, err := s.store.TransitionTask(ctx, nil, taskID,
		[]store.TaskStatus{store.TaskPending}, store.TaskUpdate{Status: store.TaskInProgress})
	if err != nil {
		return nil, err
	}
	observability.RecordTaskTransition(ctx, string(task.AgentType), string(task.Status))
	log = log.With("agent_type", task.AgentType, "location_id", task.LocationID)

	outputType, ok := task.TaskType.OutputType()
	if !ok {
		s.failTask(ctx, task, ErrUnsupportedTask.Error())
		return nil, fmt.Errorf("%s: %w", task.TaskType, ErrUnsupportedTask)
	}

	loc, err := s.store.GetLocation(ctx, task.LocationID)
	if err != nil {
		s.failTask(ctx, task, "location lookup failed: "+err.Error())
		return nil, err
	}

	recent, err := s.store.RecentContents(ctx, task.LocationID, outputType, recentSampleLimit)
	if err != nil {
		// Samples only steer tone; generation proceeds without them.
		log.Warn("failed to load recent outputs", "error", err)
		recent = nil
	}

	started := time.Now()
	content, err := s.generator.Generate(ctx, GenerationRequest{
		Location:      *loc,
		AgentType:     task.AgentType,
		TaskType:      task.TaskType,
		OutputType:    outputType,
		Context:       task.Context(),
		RecentSamples: recent,
	})
	if err == nil && strings.TrimSpace(content.Content) == "" {
		err = errors.New("generator returned empty content")
	}
	observability.RecordGeneration(ctx, string(task.AgentType), time.Since(started), err)
	if err != nil {
		s.failTask(ctx, task, err.Error())
		log.Error("generation failed", "error", err)
		return nil, &GenerationError{TaskID: task.ID, Err: err}
	}

	out, err := s.persistGenerated(ctx, task, outputType, content)
	if err != nil {
		s.failTask(ctx, task, "failed to store output: "+err.Error())
		return nil, err
	}

	log.Info("task completed", "output_id", out.ID)
	return out, nil
}

// persistGenerated writes the draft output and completes the task in one transaction.
func (s *Service) persistGenerated(ctx context.Context, task *store.Task, outputType store.OutputType, content *GeneratedContent) (*store.Output, error) {
	now := s.clock()
	out := &store.Output{
		ID:           uuid.New(),
		TaskID:       task.ID,
		LocationID:   task.LocationID,
		OutputType:   outputType,
		Status:       store.OutputDraft,
		Title:        content.Title,
		Content:      content.Content,
		CallToAction: content.CallToAction,
		Metadata: map[string]any{
			"reasoning": content.Reasoning,
			"ai_model":  content.Model,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	generated := map[string]any{
		"content":   content.Content,
		"reasoning": content.Reasoning,
	}
	if content.Title != "" {
		generated["title"] = content.Title
	}
	if content.CallToAction != nil {
		generated["cta"] = string(*content.CallToAction)
	}

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.store.CreateOutput(ctx, tx, out); err != nil {
		return nil, fmt.Errorf("create output: %w", err)
	}
	if _, err := s.store.TransitionTask(ctx, tx, task.ID,
		[]store.TaskStatus{store.TaskInProgress},
		store.TaskUpdate{Status: store.TaskCompleted, GeneratedContent: generated, CompletedAt: &now},
	); err != nil {
		return nil, fmt.Errorf("complete task: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	observability.RecordTaskTransition(ctx, string(task.AgentType), string(store.TaskCompleted))
	observability.RecordOutputTransition(ctx, string(task.AgentType), string(store.OutputDraft))
	return out, nil
}

func (s *Service) failTask(ctx context.Context, task *store.Task, msg string) {
	_, err := s.store.TransitionTask(ctx, nil, task.ID,
		[]store.TaskStatus{store.TaskInProgress},
		store.TaskUpdate{Status: store.TaskFailed, ErrorMessage: &msg})
	if err != nil {
		logger.FromContext(ctx, s.logger).Error("failed to mark task failed", "task_id", task.ID, "error", err)
		return
	}
	observability.RecordTaskTransition(ctx, string(task.AgentType), string(store.TaskFailed))
}

// Generate creates a task and processes it immediately.
// The task is returned even when processing fails so callers can report it.
func (s *Service) Generate(ctx context.Context, req CreateTaskRequest) (*store.Task, *store.Output, error) {
	task, err := s.CreateTask(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	out, err := s.ProcessTask(ctx, task.ID)
	if err != nil {
		return task, nil, err
	}
	return task, out, nil
}

// ApproveOutput moves a draft output and its task to approved together.
func (s *Service) ApproveOutput(ctx context.Context, outputID uuid.UUID) (*store.Output, error) {
	approved := store.OutputApproved

	out, task, err := s.withOutputAndTask(ctx, outputID,
		[]store.OutputStatus{store.OutputDraft},
		store.OutputUpdate{Status: &approved},
		[]store.TaskStatus{store.TaskCompleted},
		store.TaskUpdate{Status: store.TaskApproved},
	)
	if err != nil {
		return nil, err
	}

	observability.RecordOutputTransition(ctx, string(task.AgentType), string(out.Status))
	observability.RecordTaskTransition(ctx, string(task.AgentType), string(task.Status))
	logger.FromContext(ctx, s.logger).Info("output approved", "output_id", out.ID, "task_id", task.ID)
	return out, nil
}

// RejectOutput marks the output failed and the task rejected, recording the reason.
func (s *Service) RejectOutput(ctx context.Context, outputID uuid.UUID, reason string) (*store.Output, error) {
	failed := store.OutputFailed
	msg := "Rejected: " + reason

	out, task, err := s.withOutputAndTask(ctx, outputID,
		[]store.OutputStatus{store.OutputDraft, store.OutputApproved},
		store.OutputUpdate{Status: &failed, MetadataPatch: map[string]any{"rejection_reason": reason}},
		[]store.TaskStatus{store.TaskCompleted, store.TaskApproved},
		store.TaskUpdate{Status: store.TaskRejected, ErrorMessage: &msg},
	)
	if err != nil {
		return nil, err
	}

	observability.RecordOutputTransition(ctx, string(task.AgentType), string(out.Status))
	observability.RecordTaskTransition(ctx, string(task.AgentType), string(task.Status))
	logger.FromContext(ctx, s.logger).Info("output rejected", "output_id", out.ID, "task_id", task.ID, "reason", reason)
	return out, nil
}

// withOutputAndTask applies an output update and the mirrored task transition
// atomically. Either both rows change or neither does.
func (s *Service) withOutputAndTask(ctx context.Context, outputID uuid.UUID,
	outFrom []store.OutputStatus, outUpd store.OutputUpdate,
	taskFrom []store.TaskStatus, taskUpd store.TaskUpdate,
) (*store.Output, *store.Task, error) {
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	out, err := s.store.UpdateOutput(ctx, tx, outputID, outFrom, outUpd)
	if err != nil {
		return nil, nil, err
	}
	task, err := s.store.TransitionTask(ctx, tx, out.TaskID, taskFrom, taskUpd)
	if err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	return out, task, nil
}

// EditOutput replaces the content and, optionally, the call to action.
// Allowed until the output is handed to the publisher. The status is not changed.
func (s *Service) EditOutput(ctx context.Context, outputID uuid.UUID, content string, cta *store.CallToAction) (*store.Output, error) {
	if strings.TrimSpace(content) == "" {
		return nil, invalidInput("content is required")
	}

	out, err := s.store.UpdateOutput(ctx, nil, outputID, store.EditableStatuses,
		store.OutputUpdate{
			Content:      &content,
			CallToAction: cta,
			MetadataPatch: map[string]any{
				"edited":    true,
				"edited_at": s.clock().Format(time.RFC3339),
			},
		})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx, s.logger).Info("output edited", "output_id", out.ID)
	return out, nil
}

// PostOptions controls MarkPosted.
type PostOptions struct {
	// PlatformPostID and PlatformURL are recorded when no publish call produced them.
	PlatformPostID string
	PlatformURL    string
	// SkipPublish records a post made outside the system. Otherwise the publisher
	// is called whenever the location is bound to a platform.
	SkipPublish bool
}

// MarkPosted publishes an approved output when possible and records it as posted.
// A publisher failure is stored on the output as publish_error and does not
// prevent the status change.
//
// Before the external call the output is claimed approved -> scheduled, so of
// several concurrent callers only one ever reaches the publisher. The others
// get ErrInvalidTransition.
func (s *Service) MarkPosted(ctx context.Context, outputID uuid.UUID, opts PostOptions) (*store.Output, error) {
	ctx, span := s.tracer.Start(ctx, "agents.MarkPosted", trace.WithAttributes(attribute.String("output_id", outputID.String())))
	defer span.End()

	log := logger.FromContext(ctx, s.logger).With("output_id", outputID)

	out, err := s.store.GetOutput(ctx, outputID)
	if err != nil {
		return nil, err
	}
	if out.Status != store.OutputApproved {
		return nil, fmt.Errorf("output %s is %s: %w", out.ID, out.Status, store.ErrInvalidTransition)
	}
	task, err := s.store.GetTask(ctx, out.TaskID)
	if err != nil {
		return nil, err
	}
	loc, err := s.store.GetLocation(ctx, out.LocationID)
	if err != nil {
		return nil, err
	}

	upd := store.OutputUpdate{MetadataPatch: map[string]any{}}
	if opts.PlatformPostID != "" {
		upd.PlatformPostID = &opts.PlatformPostID
	}
	if opts.PlatformURL != "" {
		upd.PlatformURL = &opts.PlatformURL
	}

	from := []store.OutputStatus{store.OutputApproved}
	if resource, bound := platformBinding(task.AgentType, loc); !opts.SkipPublish && bound && s.publisher != nil {
		scheduled := store.OutputScheduled
		claimed, err := s.store.UpdateOutput(ctx, nil, outputID, from, store.OutputUpdate{
			Status:        &scheduled,
			MetadataPatch: map[string]any{"publish_started_at": s.clock().Format(time.RFC3339)},
		})
		if err != nil {
			return nil, err
		}
		from = []store.OutputStatus{store.OutputScheduled}

		res, err := s.publisher.Publish(ctx, PublishRequest{
			LocationID:   loc.ID,
			Resource:     resource,
			OutputType:   claimed.OutputType,
			Content:      claimed.Content,
			CallToAction: claimed.CallToAction,
			WebsiteURL:   loc.WebsiteURL,
		})
		if err != nil {
			span.RecordError(err)
			observability.RecordPublishFailure(ctx, string(task.AgentType))
			log.Warn("publish failed, marking posted without external id", "error", err)
			upd.MetadataPatch["publish_error"] = err.Error()
		} else {
			if res.ExternalID != "" {
				upd.PlatformPostID = &res.ExternalID
			}
			if res.URL != "" {
				upd.PlatformURL = &res.URL
			}
			upd.MetadataPatch["published_via"] = "api"
		}
	}

	posted := store.OutputPosted
	now := s.clock()
	upd.Status = &posted
	upd.PostedAt = &now

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	out, err = s.store.UpdateOutput(ctx, tx, outputID, from, upd)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.TransitionTask(ctx, tx, out.TaskID,
		[]store.TaskStatus{store.TaskApproved}, store.TaskUpdate{Status: store.TaskPosted}); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		// A claimed output stays scheduled; it was already sent to the platform.
		return nil, err
	}

	observability.RecordOutputTransition(ctx, string(task.AgentType), string(store.OutputPosted))
	observability.RecordTaskTransition(ctx, string(task.AgentType), string(store.TaskPosted))
	log.Info("output posted", "task_id", out.TaskID, "platform_post_id", deref(out.PlatformPostID))
	return out, nil
}

// IsDue reports whether the agent should produce a new artifact for the location.
func (s *Service) IsDue(ctx context.Context, locationID uuid.UUID, agentType store.AgentType) (bool, error) {
	outputType, ok := agentType.PrimaryOutput()
	if !ok {
		return false, nil
	}

	loc, err := s.store.GetLocation(ctx, locationID)
	if err != nil {
		return false, err
	}

	var cfg *store.AgentConfig
	switch agentType {
	case store.AgentNAP, store.AgentKeyword, store.AgentSocial:
		cfg, err = s.store.GetAgentConfig(ctx, locationID, agentType)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return false, err
		}
	}

	cadence := cadenceFor(agentType, loc, cfg)
	if cadence == "" || cadence == CadenceOff {
		return false, nil
	}

	var last *time.Time
	latest, err := s.store.LatestOutput(ctx, locationID, outputType, store.CadenceStatuses)
	switch {
	case err == nil:
		last = &latest.CreatedAt
	case errors.Is(err, store.ErrNotFound):
	default:
		return false, err
	}

	return Due(cadence, last, s.clock()), nil
}

// cadenceFor picks the cadence setting that governs the agent.
func cadenceFor(agent store.AgentType, loc *store.Location, cfg *store.AgentConfig) string {
	switch agent {
	case store.AgentGBP:
		return loc.GBPCadence
	case store.AgentBlog:
		return loc.BlogCadence
	case store.AgentNAP, store.AgentKeyword, store.AgentSocial:
		return cfg.PostFrequency()
	}
	return ""
}

// FailStaleTasks fails in_progress tasks untouched for longer than olderThan.
// It returns how many tasks were moved.
func (s *Service) FailStaleTasks(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := s.clock().Add(-olderThan)
	stale, err := s.store.ListTasksUpdatedBefore(ctx, store.TaskInProgress, cutoff)
	if err != nil {
		return 0, err
	}

	msg := "abandoned: generation did not finish"
	n := 0
	for _, t := range stale {
		_, err := s.store.TransitionTask(ctx, nil, t.ID,
			[]store.TaskStatus{store.TaskInProgress},
			store.TaskUpdate{Status: store.TaskFailed, ErrorMessage: &msg})
		if errors.Is(err, store.ErrInvalidTransition) {
			// Finished between the listing and the update.
			continue
		}
		if err != nil {
			return n, err
		}
		observability.RecordTaskTransition(ctx, string(t.AgentType), string(store.TaskFailed))
		n++
	}

	if n > 0 {
		logger.FromContext(ctx, s.logger).Warn("failed stale tasks", "count", n, "cutoff", cutoff)
	}
	return n, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
