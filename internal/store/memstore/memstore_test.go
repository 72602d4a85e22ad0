package memstore

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"sponte/internal/store"

	"github.com/google/uuid"
)

func seedTask(t *testing.T, s *Store, status store.TaskStatus) *store.Task {
	t.Helper()
	now := time.Now()
	task := &store.Task{
		ID:         uuid.New(),
		LocationID: uuid.New(),
		AgentType:  store.AgentGBP,
		TaskType:   store.TaskCreateGBPPost,
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.CreateTask(context.Background(), nil, task); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	return task
}

func TestTransitionTask_ConcurrentClaimHasOneWinner(t *testing.T) {
	s := New()
	task := seedTask(t, s, store.TaskPending)

	var wins, conflicts atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.TransitionTask(context.Background(), nil, task.ID,
				[]store.TaskStatus{store.TaskPending}, store.TaskUpdate{Status: store.TaskInProgress})
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, store.ErrInvalidTransition):
				conflicts.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Errorf("expected exactly one winner, got %d", wins.Load())
	}
	if conflicts.Load() != 15 {
		t.Errorf("expected 15 conflicts, got %d", conflicts.Load())
	}
}

func TestTransitionTask_RejectsEdgeOutsideTable(t *testing.T) {
	s := New()
	task := seedTask(t, s, store.TaskCompleted)

	_, err := s.TransitionTask(context.Background(), nil, task.ID,
		[]store.TaskStatus{store.TaskCompleted}, store.TaskUpdate{Status: store.TaskPosted})
	if !errors.Is(err, store.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	got, _ := s.GetTask(context.Background(), task.ID)
	if got.Status != store.TaskCompleted {
		t.Errorf("status changed to %s", got.Status)
	}
}

func TestRollback_RestoresSnapshot(t *testing.T) {
	s := New()
	task := seedTask(t, s, store.TaskCompleted)
	ctx := context.Background()

	tx, err := s.BeginTx(ctx)
	if err != nil {
		t.Fatalf("BeginTx failed: %v", err)
	}
	if _, err := s.TransitionTask(ctx, tx, task.ID,
		[]store.TaskStatus{store.TaskCompleted}, store.TaskUpdate{Status: store.TaskApproved}); err != nil {
		t.Fatalf("TransitionTask failed: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}

	got, _ := s.GetTask(ctx, task.ID)
	if got.Status != store.TaskCompleted {
		t.Errorf("expected rollback to restore completed, got %s", got.Status)
	}

	if err := tx.Commit(); err == nil {
		t.Error("expected commit after rollback to fail")
	}
}

func TestCreateTask_DedupeKey(t *testing.T) {
	s := New()
	key := "gbp:2026-01-05"
	loc := uuid.New()

	first := &store.Task{ID: uuid.New(), LocationID: loc, DedupeKey: &key}
	if err := s.CreateTask(context.Background(), nil, first); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	second := &store.Task{ID: uuid.New(), LocationID: loc, DedupeKey: &key}
	if err := s.CreateTask(context.Background(), nil, second); !errors.Is(err, store.ErrDuplicateTask) {
		t.Errorf("expected ErrDuplicateTask, got %v", err)
	}

	other := &store.Task{ID: uuid.New(), LocationID: uuid.New(), DedupeKey: &key}
	if err := s.CreateTask(context.Background(), nil, other); err != nil {
		t.Errorf("same key on another location should succeed, got %v", err)
	}
}

func TestUpdateOutput_MergesMetadata(t *testing.T) {
	s := New()
	task := seedTask(t, s, store.TaskCompleted)
	out := &store.Output{
		ID:         uuid.New(),
		TaskID:     task.ID,
		LocationID: task.LocationID,
		OutputType: store.OutputGBPPost,
		Status:     store.OutputDraft,
		Content:    "v1",
		Metadata:   map[string]any{"reasoning": "r"},
		CreatedAt:  time.Now(),
	}
	if err := s.CreateOutput(context.Background(), nil, out); err != nil {
		t.Fatalf("CreateOutput failed: %v", err)
	}

	content := "v2"
	got, err := s.UpdateOutput(context.Background(), nil, out.ID,
		[]store.OutputStatus{store.OutputDraft},
		store.OutputUpdate{Content: &content, MetadataPatch: map[string]any{"edited": true}})
	if err != nil {
		t.Fatalf("UpdateOutput failed: %v", err)
	}
	if got.Content != "v2" || got.Status != store.OutputDraft {
		t.Errorf("unexpected output: %+v", got)
	}
	if got.Metadata["reasoning"] != "r" || got.Metadata["edited"] != true {
		t.Errorf("metadata not merged: %v", got.Metadata)
	}
}
