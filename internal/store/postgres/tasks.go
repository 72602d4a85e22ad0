package postgres

import (
	"context"
	"fmt"
	"slices"
	"time"

	"sponte/internal/store"

	"github.com/google/uuid"
)

const taskColumns = `id, location_id, agent_type, task_type, status, scheduled_for, generated_content,
	metadata, error_message, dedupe_key, created_at, updated_at, completed_at`

// CreateTask inserts a new task row.
// A taken dedupe key surfaces as store.ErrDuplicateTask.
func (s *Store) CreateTask(ctx context.Context, tx store.DBTransaction, task *store.Task) error {
	generated, err := encodeNullableJSON(task.GeneratedContent)
	if err != nil {
		return err
	}
	meta, err := encodeJSON(task.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO agent_tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err = s.getExecutor(tx).ExecContext(ctx, query,
		task.ID, task.LocationID, task.AgentType, task.TaskType, task.Status, task.ScheduledFor, generated,
		meta, nullString(task.ErrorMessage), nullString(task.DedupeKey), task.CreatedAt, task.UpdatedAt, task.CompletedAt,
	)
	if isUniqueViolation(err, "uq_agent_tasks_dedupe") {
		return store.ErrDuplicateTask
	}
	return err
}

func (s *Store) GetTask(ctx context.Context, id uuid.UUID) (*store.Task, error) {
	query := "SELECT " + taskColumns + " FROM agent_tasks WHERE id = $1"
	return scanTask(s.db.QueryRowContext(ctx, query, id))
}

// ListTasks returns tasks newest first.
func (s *Store) ListTasks(ctx context.Context, f store.TaskFilter) ([]store.Task, error) {
	var w where
	if f.LocationID != uuid.Nil {
		w.add("location_id = $%d", f.LocationID)
	}
	if f.AgentType != "" {
		w.add("agent_type = $%d", f.AgentType)
	}
	if f.Status != "" {
		w.add("status = $%d", f.Status)
	}

	query := fmt.Sprintf("SELECT %s FROM agent_tasks %s ORDER BY created_at DESC %s",
		taskColumns, w.clause(), w.page(f.Limit, f.Offset))

	return s.queryTasks(ctx, query, w.args...)
}

func (s *Store) ListTasksUpdatedBefore(ctx context.Context, status store.TaskStatus, before time.Time) ([]store.Task, error) {
	query := "SELECT " + taskColumns + " FROM agent_tasks WHERE status = $1 AND updated_at < $2 ORDER BY updated_at ASC"
	return s.queryTasks(ctx, query, status, before)
}

// TransitionTask is a compare-and-set on the task status.
// The row is locked with FOR UPDATE so concurrent transitions on the same
// task serialize and exactly one of them observes the expected state.
func (s *Store) TransitionTask(ctx context.Context, tx store.DBTransaction, id uuid.UUID, from []store.TaskStatus, upd store.TaskUpdate) (*store.Task, error) {
	generated, err := encodeNullableJSON(upd.GeneratedContent)
	if err != nil {
		return nil, err
	}

	return inTx(ctx, s, tx, func(exec store.DBTransaction) (*store.Task, error) {
		var current store.TaskStatus
		err := exec.QueryRowContext(ctx, "SELECT status FROM agent_tasks WHERE id = $1 FOR UPDATE", id).Scan(&current)
		if err != nil {
			return nil, notFound(err)
		}

		if !slices.Contains(from, current) || !current.CanTransition(upd.Status) {
			return nil, fmt.Errorf("task %s is %s, cannot move to %s: %w", id, current, upd.Status, store.ErrInvalidTransition)
		}

		query := `
			UPDATE agent_tasks SET
				status = $2,
				generated_content = COALESCE($3, generated_content),
				error_message = COALESCE($4, error_message),
				completed_at = COALESCE($5, completed_at),
				updated_at = NOW()
			WHERE id = $1
			RETURNING ` + taskColumns

		return scanTask(exec.QueryRowContext(ctx, query, id, upd.Status, generated, nullString(upd.ErrorMessage), upd.CompletedAt))
	})
}

func (s *Store) queryTasks(ctx context.Context, query string, args ...any) ([]store.Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func scanTask(row scanner) (*store.Task, error) {
	var t store.Task
	var generated, meta []byte
	err := row.Scan(
		&t.ID, &t.LocationID, &t.AgentType, &t.TaskType, &t.Status, &t.ScheduledFor, &generated,
		&meta, &t.ErrorMessage, &t.DedupeKey, &t.CreatedAt, &t.UpdatedAt, &t.CompletedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	if t.GeneratedContent, err = decodeJSON(generated); err != nil {
		return nil, err
	}
	if t.Metadata, err = decodeJSON(meta); err != nil {
		return nil, err
	}
	return &t, nil
}
