package agents

import (
	"context"
	"errors"
	"testing"
	"time"

	"sponte/internal/store"
)

func TestTick_DraftMode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addConfig(t, store.AgentGBP, store.AutonomyDraft, true, nil)

	sum, err := NewOrchestrator(f.svc, nil).Tick(ctx, store.AgentGBP)
	if err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if sum.Created != 1 || sum.Posted != 0 || sum.Errors != 0 {
		t.Errorf("unexpected summary: %+v", sum)
	}

	tasks, _ := f.store.ListTasks(ctx, store.TaskFilter{LocationID: f.loc.ID})
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	task := tasks[0]
	if task.Status != store.TaskCompleted {
		t.Errorf("task status = %s, want completed", task.Status)
	}
	if task.Context() != "Scheduled weekly post" {
		t.Errorf("context = %q", task.Context())
	}
	if task.DedupeKey == nil || *task.DedupeKey != "gbp:2026-03-10" {
		t.Errorf("dedupe key = %v", task.DedupeKey)
	}

	out, err := f.store.GetOutputByTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetOutputByTask failed: %v", err)
	}
	if out.Status != store.OutputDraft {
		t.Errorf("output status = %s, want draft", out.Status)
	}
	if len(f.pub.calls) != 0 {
		t.Errorf("publisher called in draft mode")
	}
}

func TestTick_Autopilot(t *testing.T) {
	tests := []struct {
		name       string
		pubErr     error
		wantPostID string
	}{
		{"publish succeeds", nil, "localPosts/123"},
		{"publish fails", errors.New("503"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			f.pub.err = tt.pubErr
			f.addConfig(t, store.AgentGBP, store.AutonomyAutopilot, true, nil)

			sum, err := NewOrchestrator(f.svc, nil).Tick(ctx, store.AgentGBP)
			if err != nil {
				t.Fatalf("Tick failed: %v", err)
			}
			if sum.Posted != 1 || sum.Errors != 0 {
				t.Errorf("unexpected summary: %+v", sum)
			}

			tasks, _ := f.store.ListTasks(ctx, store.TaskFilter{LocationID: f.loc.ID})
			if len(tasks) != 1 || tasks[0].Status != store.TaskPosted {
				t.Fatalf("expected one posted task, got %+v", tasks)
			}
			out, _ := f.store.GetOutputByTask(ctx, tasks[0].ID)
			if out.Status != store.OutputPosted || out.PostedAt == nil {
				t.Errorf("output = %s posted_at=%v", out.Status, out.PostedAt)
			}
			if got := deref(out.PlatformPostID); got != tt.wantPostID {
				t.Errorf("platform_post_id = %q, want %q", got, tt.wantPostID)
			}
			if tt.pubErr != nil && out.Metadata["publish_error"] == nil {
				t.Error("expected publish_error in metadata")
			}
		})
	}
}

func TestTick_CadenceGating(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addConfig(t, store.AgentGBP, store.AutonomyDraft, true, nil)

	start := f.now
	f.draft(t)
	f.now = start.Add(3 * 24 * time.Hour)

	sum, err := NewOrchestrator(f.svc, nil).Tick(ctx, store.AgentGBP)
	if err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if sum.Created != 0 || sum.Skipped != 1 {
		t.Errorf("unexpected summary: %+v", sum)
	}
	tasks, _ := f.store.ListTasks(ctx, store.TaskFilter{LocationID: f.loc.ID})
	if len(tasks) != 1 {
		t.Errorf("expected no new task, got %d tasks", len(tasks))
	}
}

func TestTick_SkipsInactiveAndUnconfigured(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addConfig(t, store.AgentGBP, store.AutonomyDraft, false, nil)

	o := NewOrchestrator(f.svc, nil)
	for _, agent := range []store.AgentType{store.AgentGBP, store.AgentBlog} {
		sum, err := o.Tick(ctx, agent)
		if err != nil {
			t.Fatalf("Tick(%s) failed: %v", agent, err)
		}
		if sum.Created != 0 || sum.Skipped != 1 {
			t.Errorf("Tick(%s) summary: %+v", agent, sum)
		}
	}
	if len(f.gen.calls) != 0 {
		t.Error("generator should not be called")
	}
}

func TestTick_SameDayDedupe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addConfig(t, store.AgentGBP, store.AutonomyDraft, true, nil)

	// The first run's output is rejected so the cadence stays due.
	o := NewOrchestrator(f.svc, nil)
	if _, err := o.Tick(ctx, store.AgentGBP); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	outs, _ := f.store.ListOutputs(ctx, store.OutputFilter{LocationID: f.loc.ID})
	if _, err := f.svc.RejectOutput(ctx, outs[0].ID, "retry"); err != nil {
		t.Fatalf("RejectOutput failed: %v", err)
	}

	f.now = f.now.Add(2 * time.Hour)
	sum, err := o.Tick(ctx, store.AgentGBP)
	if err != nil {
		t.Fatalf("second Tick failed: %v", err)
	}
	if sum.Created != 0 || sum.Skipped != 1 {
		t.Errorf("second tick summary: %+v", sum)
	}

	f.now = f.now.Add(24 * time.Hour)
	if sum, _ := o.Tick(ctx, store.AgentGBP); sum.Created != 1 {
		t.Errorf("next day tick summary: %+v", sum)
	}
}

func TestTick_GenerationFailureCounted(t *testing.T) {
	f := newFixture(t)
	f.gen.err = errors.New("boom")
	f.addConfig(t, store.AgentGBP, store.AutonomyAutopilot, true, nil)

	sum, err := NewOrchestrator(f.svc, nil).Tick(context.Background(), store.AgentGBP)
	if err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if sum.Errors != 1 || sum.Created != 0 {
		t.Errorf("unexpected summary: %+v", sum)
	}
}

func TestTick_RejectsUnscheduledAgent(t *testing.T) {
	f := newFixture(t)
	if _, err := NewOrchestrator(f.svc, nil).Tick(context.Background(), store.AgentReporting); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestTickAll_StopsOnCancelledContext(t *testing.T) {
	f := newFixture(t)
	f.addConfig(t, store.AgentGBP, store.AutonomyDraft, true, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewOrchestrator(f.svc, nil).TickAll(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(f.gen.calls) != 0 {
		t.Error("no work expected after cancellation")
	}
}
