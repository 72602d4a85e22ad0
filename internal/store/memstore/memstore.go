// Package memstore is an in-memory implementation of store.Store.
// Status changes follow the same compare-and-set rules as the PostgreSQL store.
// Transactions are serialized and roll back by restoring a snapshot taken at BeginTx.
package memstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"sponte/internal/store"

	"github.com/google/uuid"
)

var errRawSQL = errors.New("memstore: raw SQL is not supported")

type userRow struct {
	user store.User
	hash string
}

type tables struct {
	users     map[uuid.UUID]userRow
	locations map[uuid.UUID]store.Location
	configs   map[uuid.UUID]store.AgentConfig
	tasks     map[uuid.UUID]store.Task
	outputs   map[uuid.UUID]store.Output
	reports   map[uuid.UUID]store.Report
	tokens    map[string]store.OAuthToken
}

// Store keeps every table in maps guarded by a single mutex.
type Store struct {
	mu   sync.Mutex
	txMu sync.Mutex
	t    tables

	// Now is the clock used for updated_at stamps.
	Now func() time.Time

	// PingErr is returned by Ping.
	PingErr error
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		t: tables{
			users:     map[uuid.UUID]userRow{},
			locations: map[uuid.UUID]store.Location{},
			configs:   map[uuid.UUID]store.AgentConfig{},
			tasks:     map[uuid.UUID]store.Task{},
			outputs:   map[uuid.UUID]store.Output{},
			reports:   map[uuid.UUID]store.Report{},
			tokens:    map[string]store.OAuthToken{},
		},
		Now: time.Now,
	}
}

func (s *Store) now() time.Time {
	return s.Now().UTC()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.PingErr
}

type memTx struct {
	s    *Store
	snap tables
	done bool
}

func (s *Store) BeginTx(ctx context.Context) (store.Tx, error) {
	s.txMu.Lock()
	s.mu.Lock()
	snap := s.t.clone()
	s.mu.Unlock()
	return &memTx{s: s, snap: snap}, nil
}

func (tx *memTx) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return nil, errRawSQL
}

func (tx *memTx) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return nil, errRawSQL
}

func (tx *memTx) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return nil
}

func (tx *memTx) Commit() error {
	if tx.done {
		return sql.ErrTxDone
	}
	tx.done = true
	tx.s.txMu.Unlock()
	return nil
}

func (tx *memTx) Rollback() error {
	if tx.done {
		return sql.ErrTxDone
	}
	tx.s.mu.Lock()
	tx.s.t = tx.snap
	tx.s.mu.Unlock()
	tx.done = true
	tx.s.txMu.Unlock()
	return nil
}

func (t tables) clone() tables {
	c := tables{
		users:     maps.Clone(t.users),
		locations: make(map[uuid.UUID]store.Location, len(t.locations)),
		configs:   make(map[uuid.UUID]store.AgentConfig, len(t.configs)),
		tasks:     make(map[uuid.UUID]store.Task, len(t.tasks)),
		outputs:   make(map[uuid.UUID]store.Output, len(t.outputs)),
		reports:   make(map[uuid.UUID]store.Report, len(t.reports)),
		tokens:    maps.Clone(t.tokens),
	}
	for k, v := range t.locations {
		c.locations[k] = copyLocation(v)
	}
	for k, v := range t.configs {
		v.ConfigData = maps.Clone(v.ConfigData)
		c.configs[k] = v
	}
	for k, v := range t.tasks {
		c.tasks[k] = copyTask(v)
	}
	for k, v := range t.outputs {
		c.outputs[k] = copyOutput(v)
	}
	for k, v := range t.reports {
		v.Data = maps.Clone(v.Data)
		v.EmailRecipients = slices.Clone(v.EmailRecipients)
		c.reports[k] = v
	}
	return c
}

func copyLocation(l store.Location) store.Location {
	l.Services = slices.Clone(l.Services)
	l.ForbiddenWords = slices.Clone(l.ForbiddenWords)
	l.ForbiddenTopics = slices.Clone(l.ForbiddenTopics)
	l.ReportEmails = slices.Clone(l.ReportEmails)
	return l
}

func copyTask(t store.Task) store.Task {
	t.GeneratedContent = maps.Clone(t.GeneratedContent)
	t.Metadata = maps.Clone(t.Metadata)
	return t
}

func copyOutput(o store.Output) store.Output {
	o.Metadata = maps.Clone(o.Metadata)
	o.PerformanceData = maps.Clone(o.PerformanceData)
	return o
}

// Users

func (s *Store) CreateUser(ctx context.Context, user *store.User, hashedKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.t.users {
		if r.hash == hashedKey || strings.EqualFold(r.user.Email, user.Email) {
			return store.ErrDuplicateUser
		}
	}
	s.t.users[user.ID] = userRow{user: *user, hash: hashedKey}
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (*store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.t.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	u := r.user
	return &u, nil
}

func (s *Store) GetUserByAPIKeyHash(ctx context.Context, hash string) (*store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.t.users {
		if r.hash == hash {
			u := r.user
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) SetOnboardingCompleted(ctx context.Context, tx store.DBTransaction, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.t.users[id]
	if !ok {
		return store.ErrNotFound
	}
	r.user.OnboardingCompleted = true
	s.t.users[id] = r
	return nil
}

// Locations

func (s *Store) CreateLocation(ctx context.Context, tx store.DBTransaction, loc *store.Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.t.locations[loc.ID]; ok {
		return fmt.Errorf("location %s already exists", loc.ID)
	}
	s.t.locations[loc.ID] = copyLocation(*loc)
	return nil
}

func (s *Store) UpdateLocation(ctx context.Context, tx store.DBTransaction, loc *store.Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.t.locations[loc.ID]
	if !ok {
		return store.ErrNotFound
	}
	l := copyLocation(*loc)
	l.UserID, l.CreatedAt, l.UpdatedAt = old.UserID, old.CreatedAt, s.now()
	s.t.locations[loc.ID] = l
	return nil
}

func (s *Store) GetLocation(ctx context.Context, id uuid.UUID) (*store.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.t.locations[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	l = copyLocation(l)
	return &l, nil
}

func (s *Store) GetLocationByUser(ctx context.Context, userID uuid.UUID) (*store.Location, error) {
	locs, _ := s.ListLocations(ctx)
	for _, l := range locs {
		if l.UserID == userID {
			return &l, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListLocations(ctx context.Context) ([]store.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.Location, 0, len(s.t.locations))
	for _, l := range s.t.locations {
		out = append(out, copyLocation(l))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Agent configs

func (s *Store) CreateAgentConfig(ctx context.Context, tx store.DBTransaction, cfg *store.AgentConfig) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.t.configs {
		if c.LocationID == cfg.LocationID && c.AgentType == cfg.AgentType {
			return false, nil
		}
	}
	c := *cfg
	c.ConfigData = maps.Clone(cfg.ConfigData)
	s.t.configs[cfg.ID] = c
	return true, nil
}

func (s *Store) UpdateAgentConfig(ctx context.Context, cfg *store.AgentConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.t.configs[cfg.ID]
	if !ok {
		return store.ErrNotFound
	}
	old.AutonomyMode = cfg.AutonomyMode
	old.IsActive = cfg.IsActive
	old.ConfigData = maps.Clone(cfg.ConfigData)
	old.UpdatedAt = s.now()
	s.t.configs[cfg.ID] = old
	return nil
}

func (s *Store) GetAgentConfig(ctx context.Context, locationID uuid.UUID, agentType store.AgentType) (*store.AgentConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.t.configs {
		if c.LocationID == locationID && c.AgentType == agentType {
			c.ConfigData = maps.Clone(c.ConfigData)
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListAgentConfigs(ctx context.Context, locationID uuid.UUID) ([]store.AgentConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.AgentConfig
	for _, c := range s.t.configs {
		if c.LocationID == locationID {
			c.ConfigData = maps.Clone(c.ConfigData)
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return slices.Index(store.AllAgentTypes, out[i].AgentType) < slices.Index(store.AllAgentTypes, out[j].AgentType)
	})
	return out, nil
}

// Tasks

func (s *Store) CreateTask(ctx context.Context, tx store.DBTransaction, task *store.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if task.DedupeKey != nil {
		for _, t := range s.t.tasks {
			if t.LocationID == task.LocationID && t.DedupeKey != nil && *t.DedupeKey == *task.DedupeKey {
				return store.ErrDuplicateTask
			}
		}
	}
	s.t.tasks[task.ID] = copyTask(*task)
	return nil
}

func (s *Store) GetTask(ctx context.Context, id uuid.UUID) (*store.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.t.tasks[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	t = copyTask(t)
	return &t, nil
}

func (s *Store) ListTasks(ctx context.Context, f store.TaskFilter) ([]store.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.Task
	for _, t := range s.t.tasks {
		if f.LocationID != uuid.Nil && t.LocationID != f.LocationID {
			continue
		}
		if f.AgentType != "" && t.AgentType != f.AgentType {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		out = append(out, copyTask(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, f.Limit, f.Offset), nil
}

func (s *Store) ListTasksUpdatedBefore(ctx context.Context, status store.TaskStatus, before time.Time) ([]store.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.Task
	for _, t := range s.t.tasks {
		if t.Status == status && t.UpdatedAt.Before(before) {
			out = append(out, copyTask(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out, nil
}

func (s *Store) TransitionTask(ctx context.Context, tx store.DBTransaction, id uuid.UUID, from []store.TaskStatus, upd store.TaskUpdate) (*store.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.t.tasks[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if !slices.Contains(from, t.Status) || !t.Status.CanTransition(upd.Status) {
		return nil, fmt.Errorf("task %s is %s, cannot move to %s: %w", id, t.Status, upd.Status, store.ErrInvalidTransition)
	}

	t = copyTask(t)
	t.Status = upd.Status
	if upd.GeneratedContent != nil {
		t.GeneratedContent = maps.Clone(upd.GeneratedContent)
	}
	if upd.ErrorMessage != nil {
		msg := *upd.ErrorMessage
		t.ErrorMessage = &msg
	}
	if upd.CompletedAt != nil {
		at := *upd.CompletedAt
		t.CompletedAt = &at
	}
	t.UpdatedAt = s.now()
	s.t.tasks[id] = t

	t = copyTask(t)
	return &t, nil
}

// Outputs

func (s *Store) CreateOutput(ctx context.Context, tx store.DBTransaction, out *store.Output) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.t.tasks[out.TaskID]; !ok {
		return fmt.Errorf("task %s does not exist", out.TaskID)
	}
	s.t.outputs[out.ID] = copyOutput(*out)
	return nil
}

func (s *Store) GetOutput(ctx context.Context, id uuid.UUID) (*store.Output, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.t.outputs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	o = copyOutput(o)
	return &o, nil
}

func (s *Store) GetOutputByTask(ctx context.Context, taskID uuid.UUID) (*store.Output, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var found *store.Output
	for _, o := range s.t.outputs {
		if o.TaskID == taskID && (found == nil || o.CreatedAt.After(found.CreatedAt)) {
			c := copyOutput(o)
			found = &c
		}
	}
	if found == nil {
		return nil, store.ErrNotFound
	}
	return found, nil
}

func (s *Store) ListOutputs(ctx context.Context, f store.OutputFilter) ([]store.Output, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return paginate(s.filterOutputs(f), f.Limit, f.Offset), nil
}

func (s *Store) filterOutputs(f store.OutputFilter) []store.Output {
	var out []store.Output
	for _, o := range s.t.outputs {
		if f.LocationID != uuid.Nil && o.LocationID != f.LocationID {
			continue
		}
		if f.OutputType != "" && o.OutputType != f.OutputType {
			continue
		}
		if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, o.Status) {
			continue
		}
		out = append(out, copyOutput(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *Store) LatestOutput(ctx context.Context, locationID uuid.UUID, outputType store.OutputType, statuses []store.OutputStatus) (*store.Output, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	outs := s.filterOutputs(store.OutputFilter{LocationID: locationID, OutputType: outputType, Statuses: statuses})
	if len(outs) == 0 {
		return nil, store.ErrNotFound
	}
	return &outs[0], nil
}

func (s *Store) RecentContents(ctx context.Context, locationID uuid.UUID, outputType store.OutputType, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	outs := s.filterOutputs(store.OutputFilter{LocationID: locationID, OutputType: outputType})
	var contents []string
	for i := 0; i < len(outs) && i < limit; i++ {
		contents = append(contents, outs[i].Content)
	}
	return contents, nil
}

func (s *Store) UpdateOutput(ctx context.Context, tx store.DBTransaction, id uuid.UUID, from []store.OutputStatus, upd store.OutputUpdate) (*store.Output, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.t.outputs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if !slices.Contains(from, o.Status) {
		return nil, fmt.Errorf("output %s is %s: %w", id, o.Status, store.ErrInvalidTransition)
	}
	if upd.Status != nil && !o.Status.CanTransition(*upd.Status) {
		return nil, fmt.Errorf("output %s is %s, cannot move to %s: %w", id, o.Status, *upd.Status, store.ErrInvalidTransition)
	}

	o = copyOutput(o)
	if upd.Status != nil {
		o.Status = *upd.Status
	}
	if upd.Content != nil {
		o.Content = *upd.Content
	}
	if upd.CallToAction != nil {
		c := *upd.CallToAction
		o.CallToAction = &c
	}
	if upd.PlatformPostID != nil {
		v := *upd.PlatformPostID
		o.PlatformPostID = &v
	}
	if upd.PlatformURL != nil {
		v := *upd.PlatformURL
		o.PlatformURL = &v
	}
	if upd.PostedAt != nil {
		at := *upd.PostedAt
		o.PostedAt = &at
	}
	if len(upd.MetadataPatch) > 0 {
		if o.Metadata == nil {
			o.Metadata = map[string]any{}
		}
		maps.Copy(o.Metadata, upd.MetadataPatch)
	}
	o.UpdatedAt = s.now()
	s.t.outputs[id] = o

	o = copyOutput(o)
	return &o, nil
}

func (s *Store) CountOutputs(ctx context.Context, status store.OutputStatus) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, o := range s.t.outputs {
		if o.Status == status {
			n++
		}
	}
	return n, nil
}

// Reports

func (s *Store) CreateReport(ctx context.Context, r *store.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *r
	c.Data = maps.Clone(r.Data)
	c.EmailRecipients = slices.Clone(r.EmailRecipients)
	s.t.reports[r.ID] = c
	return nil
}

func (s *Store) GetReport(ctx context.Context, id uuid.UUID) (*store.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.t.reports[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	r.Data = maps.Clone(r.Data)
	return &r, nil
}

func (s *Store) ListReports(ctx context.Context, f store.ReportFilter) ([]store.Report, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.Report
	for _, r := range s.t.reports {
		if r.LocationID != f.LocationID {
			continue
		}
		if f.ReportType != "" && r.ReportType != f.ReportType {
			continue
		}
		r.Data = maps.Clone(r.Data)
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, f.Limit, f.Offset), int64(len(out)), nil
}

func (s *Store) LatestReport(ctx context.Context, locationID uuid.UUID, t store.ReportType) (*store.Report, error) {
	reports, _, _ := s.ListReports(ctx, store.ReportFilter{LocationID: locationID, ReportType: t, Limit: 1})
	if len(reports) == 0 {
		return nil, store.ErrNotFound
	}
	return &reports[0], nil
}

func (s *Store) MarkReportEmailed(ctx context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.t.reports[id]
	if !ok || r.EmailSentAt != nil {
		return nil
	}
	r.EmailSentAt = &at
	s.t.reports[id] = r
	return nil
}

func (s *Store) CountActivity(ctx context.Context, locationID uuid.UUID, start, end time.Time) ([]store.ActivityCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	in := func(t *time.Time) bool {
		return t != nil && !t.Before(start) && t.Before(end)
	}
	counts := map[store.AgentType]*store.ActivityCount{}
	for _, a := range store.AllAgentTypes {
		counts[a] = &store.ActivityCount{AgentType: a}
	}

	for _, t := range s.t.tasks {
		if t.LocationID != locationID {
			continue
		}
		switch t.Status {
		case store.TaskCompleted, store.TaskApproved, store.TaskPosted:
			if in(t.CompletedAt) {
				counts[t.AgentType].TasksCompleted++
			}
		}
	}
	for _, o := range s.t.outputs {
		if o.LocationID != locationID {
			continue
		}
		task, ok := s.t.tasks[o.TaskID]
		if !ok {
			continue
		}
		c := counts[task.AgentType]
		created := o.CreatedAt
		if in(&created) {
			c.OutputsCreated++
			if o.Status == store.OutputDraft {
				c.DraftsCreated++
			}
		}
		if o.Status == store.OutputPosted && in(o.PostedAt) {
			c.OutputsPosted++
		}
	}

	out := make([]store.ActivityCount, 0, len(counts))
	for _, a := range store.AllAgentTypes {
		out = append(out, *counts[a])
	}
	return out, nil
}

// OAuth tokens

func tokenKey(locationID uuid.UUID, p store.Provider) string {
	return locationID.String() + "/" + string(p)
}

func (s *Store) UpsertOAuthToken(ctx context.Context, tok *store.OAuthToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := tokenKey(tok.LocationID, tok.Provider)
	t := *tok
	if old, ok := s.t.tokens[key]; ok {
		t.ID, t.CreatedAt = old.ID, old.CreatedAt
		if len(t.RefreshTokenSealed) == 0 {
			t.RefreshTokenSealed = old.RefreshTokenSealed
		}
	}
	s.t.tokens[key] = t
	return nil
}

func (s *Store) GetOAuthToken(ctx context.Context, locationID uuid.UUID, provider store.Provider) (*store.OAuthToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.t.tokens[tokenKey(locationID, provider)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &t, nil
}

func (s *Store) DeleteOAuthToken(ctx context.Context, locationID uuid.UUID, provider store.Provider) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := tokenKey(locationID, provider)
	if _, ok := s.t.tokens[key]; !ok {
		return store.ErrNotFound
	}
	delete(s.t.tokens, key)
	return nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
