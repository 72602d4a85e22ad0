package postgres

import (
	"context"
	"fmt"
	"time"

	"sponte/internal/store"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const reportColumns = "id, location_id, report_type, period_start, period_end, data, email_recipients, email_sent_at, created_at"

func (s *Store) CreateReport(ctx context.Context, r *store.Report) error {
	data, err := encodeJSON(r.Data)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reports (`+reportColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, r.ID, r.LocationID, r.ReportType, r.PeriodStart, r.PeriodEnd, data, pq.Array(r.EmailRecipients), r.EmailSentAt, r.CreatedAt)
	return err
}

func (s *Store) GetReport(ctx context.Context, id uuid.UUID) (*store.Report, error) {
	return scanReport(s.db.QueryRowContext(ctx, "SELECT "+reportColumns+" FROM reports WHERE id = $1", id))
}

// ListReports returns one page of reports, newest first, plus the total match count.
func (s *Store) ListReports(ctx context.Context, f store.ReportFilter) ([]store.Report, int64, error) {
	var w where
	w.add("location_id = $%d", f.LocationID)
	if f.ReportType != "" {
		w.add("report_type = $%d", f.ReportType)
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM reports "+w.clause(), w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf("SELECT %s FROM reports %s ORDER BY created_at DESC %s",
		reportColumns, w.clause(), w.page(f.Limit, f.Offset))

	rows, err := s.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []store.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *r)
	}
	return out, total, rows.Err()
}

func (s *Store) LatestReport(ctx context.Context, locationID uuid.UUID, t store.ReportType) (*store.Report, error) {
	query := "SELECT " + reportColumns + " FROM reports WHERE location_id = $1 AND report_type = $2 ORDER BY created_at DESC LIMIT 1"
	return scanReport(s.db.QueryRowContext(ctx, query, locationID, t))
}

func (s *Store) MarkReportEmailed(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := s.db.ExecContext(ctx, "UPDATE reports SET email_sent_at = $2 WHERE id = $1 AND email_sent_at IS NULL", id, at)
	return err
}

// CountActivity aggregates task completions and output creation/publishing per agent.
func (s *Store) CountActivity(ctx context.Context, locationID uuid.UUID, start, end time.Time) ([]store.ActivityCount, error) {
	counts := map[store.AgentType]*store.ActivityCount{}
	get := func(a store.AgentType) *store.ActivityCount {
		if c, ok := counts[a]; ok {
			return c
		}
		c := &store.ActivityCount{AgentType: a}
		counts[a] = c
		return c
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT agent_type, COUNT(*)
		FROM agent_tasks
		WHERE location_id = $1
		  AND status IN ('completed', 'approved', 'posted')
		  AND completed_at >= $2 AND completed_at < $3
		GROUP BY agent_type
	`, locationID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}
	for rows.Next() {
		var a store.AgentType
		var n int64
		if err := rows.Scan(&a, &n); err != nil {
			rows.Close()
			return nil, err
		}
		get(a).TasksCompleted = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT t.agent_type,
			COUNT(*) FILTER (WHERE o.created_at >= $2 AND o.created_at < $3),
			COUNT(*) FILTER (WHERE o.status = 'draft' AND o.created_at >= $2 AND o.created_at < $3),
			COUNT(*) FILTER (WHERE o.status = 'posted' AND o.posted_at >= $2 AND o.posted_at < $3)
		FROM agent_outputs o
		JOIN agent_tasks t ON t.id = o.task_id
		WHERE o.location_id = $1
		GROUP BY t.agent_type
	`, locationID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to count outputs: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var a store.AgentType
		var created, drafts, posted int64
		if err := rows.Scan(&a, &created, &drafts, &posted); err != nil {
			return nil, err
		}
		c := get(a)
		c.OutputsCreated, c.DraftsCreated, c.OutputsPosted = created, drafts, posted
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]store.ActivityCount, 0, len(store.AllAgentTypes))
	for _, a := range store.AllAgentTypes {
		out = append(out, *get(a))
	}
	return out, nil
}

func scanReport(row scanner) (*store.Report, error) {
	var r store.Report
	var data []byte
	err := row.Scan(&r.ID, &r.LocationID, &r.ReportType, &r.PeriodStart, &r.PeriodEnd, &data,
		pq.Array(&r.EmailRecipients), &r.EmailSentAt, &r.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	if r.Data, err = decodeJSON(data); err != nil {
		return nil, err
	}
	return &r, nil
}
