package postgres

import (
	"context"
	"fmt"
	"slices"

	"sponte/internal/store"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const outputColumns = `id, task_id, location_id, output_type, status, title, content, call_to_action,
	platform_post_id, platform_url, performance_data, metadata, created_at, updated_at, posted_at, scheduled_for`

func (s *Store) CreateOutput(ctx context.Context, tx store.DBTransaction, out *store.Output) error {
	perf, err := encodeNullableJSON(out.PerformanceData)
	if err != nil {
		return err
	}
	meta, err := encodeJSON(out.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO agent_outputs (` + outputColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err = s.getExecutor(tx).ExecContext(ctx, query,
		out.ID, out.TaskID, out.LocationID, out.OutputType, out.Status, out.Title, out.Content, ctaValue(out.CallToAction),
		nullString(out.PlatformPostID), nullString(out.PlatformURL), perf, meta, out.CreatedAt, out.UpdatedAt,
		out.PostedAt, out.ScheduledFor,
	)
	return err
}

func (s *Store) GetOutput(ctx context.Context, id uuid.UUID) (*store.Output, error) {
	query := "SELECT " + outputColumns + " FROM agent_outputs WHERE id = $1"
	return scanOutput(s.db.QueryRowContext(ctx, query, id))
}

func (s *Store) GetOutputByTask(ctx context.Context, taskID uuid.UUID) (*store.Output, error) {
	query := "SELECT " + outputColumns + " FROM agent_outputs WHERE task_id = $1 ORDER BY created_at DESC LIMIT 1"
	return scanOutput(s.db.QueryRowContext(ctx, query, taskID))
}

// ListOutputs returns outputs newest first.
func (s *Store) ListOutputs(ctx context.Context, f store.OutputFilter) ([]store.Output, error) {
	var w where
	if f.LocationID != uuid.Nil {
		w.add("location_id = $%d", f.LocationID)
	}
	if f.OutputType != "" {
		w.add("output_type = $%d", f.OutputType)
	}
	if len(f.Statuses) > 0 {
		w.add("status = ANY($%d)", pq.Array(statusStrings(f.Statuses)))
	}

	query := fmt.Sprintf("SELECT %s FROM agent_outputs %s ORDER BY created_at DESC %s",
		outputColumns, w.clause(), w.page(f.Limit, f.Offset))

	rows, err := s.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Output
	for rows.Next() {
		o, err := scanOutput(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func (s *Store) LatestOutput(ctx context.Context, locationID uuid.UUID, outputType store.OutputType, statuses []store.OutputStatus) (*store.Output, error) {
	query := `
		SELECT ` + outputColumns + `
		FROM agent_outputs
		WHERE location_id = $1 AND output_type = $2 AND status = ANY($3)
		ORDER BY created_at DESC
		LIMIT 1
	`
	return scanOutput(s.db.QueryRowContext(ctx, query, locationID, outputType, pq.Array(statusStrings(statuses))))
}

func (s *Store) RecentContents(ctx context.Context, locationID uuid.UUID, outputType store.OutputType, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT content FROM agent_outputs
		WHERE location_id = $1 AND output_type = $2
		ORDER BY created_at DESC
		LIMIT $3
	`, locationID, outputType, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateOutput is a compare-and-set on the output status. Content edits pass
// a nil status and are still guarded by the allowed source states.
func (s *Store) UpdateOutput(ctx context.Context, tx store.DBTransaction, id uuid.UUID, from []store.OutputStatus, upd store.OutputUpdate) (*store.Output, error) {
	patch, err := encodeJSON(upd.MetadataPatch)
	if err != nil {
		return nil, err
	}

	return inTx(ctx, s, tx, func(exec store.DBTransaction) (*store.Output, error) {
		var current store.OutputStatus
		err := exec.QueryRowContext(ctx, "SELECT status FROM agent_outputs WHERE id = $1 FOR UPDATE", id).Scan(&current)
		if err != nil {
			return nil, notFound(err)
		}

		if !slices.Contains(from, current) {
			return nil, fmt.Errorf("output %s is %s: %w", id, current, store.ErrInvalidTransition)
		}
		var status any
		if upd.Status != nil {
			if !current.CanTransition(*upd.Status) {
				return nil, fmt.Errorf("output %s is %s, cannot move to %s: %w", id, current, *upd.Status, store.ErrInvalidTransition)
			}
			status = string(*upd.Status)
		}

		query := `
			UPDATE agent_outputs SET
				status = COALESCE($2, status),
				content = COALESCE($3, content),
				call_to_action = COALESCE($4, call_to_action),
				platform_post_id = COALESCE($5, platform_post_id),
				platform_url = COALESCE($6, platform_url),
				posted_at = COALESCE($7, posted_at),
				metadata = metadata || $8::jsonb,
				updated_at = NOW()
			WHERE id = $1
			RETURNING ` + outputColumns

		return scanOutput(exec.QueryRowContext(ctx, query,
			id, status, nullString(upd.Content), ctaValue(upd.CallToAction),
			nullString(upd.PlatformPostID), nullString(upd.PlatformURL), upd.PostedAt, patch,
		))
	})
}

func (s *Store) CountOutputs(ctx context.Context, status store.OutputStatus) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM agent_outputs WHERE status = $1", status).Scan(&n)
	return n, err
}

func scanOutput(row scanner) (*store.Output, error) {
	var o store.Output
	var cta *string
	var perf, meta []byte
	err := row.Scan(
		&o.ID, &o.TaskID, &o.LocationID, &o.OutputType, &o.Status, &o.Title, &o.Content, &cta,
		&o.PlatformPostID, &o.PlatformURL, &perf, &meta, &o.CreatedAt, &o.UpdatedAt, &o.PostedAt, &o.ScheduledFor,
	)
	if err != nil {
		return nil, notFound(err)
	}
	if cta != nil {
		c := store.CallToAction(*cta)
		o.CallToAction = &c
	}
	if o.PerformanceData, err = decodeJSON(perf); err != nil {
		return nil, err
	}
	if o.Metadata, err = decodeJSON(meta); err != nil {
		return nil, err
	}
	return &o, nil
}

func ctaValue(c *store.CallToAction) any {
	if c == nil {
		return nil
	}
	return string(*c)
}

func statusStrings(statuses []store.OutputStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
