package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// DBTransaction defines the methods shared by *sql.DB and *sql.Tx
// This allows us to pass either a connection pool or an active transaction to the repository methods.
type DBTransaction interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type Tx interface {
	DBTransaction
	Commit() error
	Rollback() error
}

// TaskUpdate lists the columns a task transition writes besides status.
// Nil fields are left unchanged.
type TaskUpdate struct {
	Status           TaskStatus
	GeneratedContent map[string]any
	ErrorMessage     *string
	CompletedAt      *time.Time
}

// OutputUpdate lists the columns an output update writes.
// A nil Status keeps the current status (content edits).
// MetadataPatch is merged into the stored metadata key by key.
type OutputUpdate struct {
	Status         *OutputStatus
	Content        *string
	CallToAction   *CallToAction
	PlatformPostID *string
	PlatformURL    *string
	PostedAt       *time.Time
	MetadataPatch  map[string]any
}

// TaskFilter narrows task listings. Zero values match everything.
type TaskFilter struct {
	LocationID uuid.UUID
	AgentType  AgentType
	Status     TaskStatus
	Limit      int
	Offset     int
}

// OutputFilter narrows output listings. Zero values match everything.
type OutputFilter struct {
	LocationID uuid.UUID
	OutputType OutputType
	Statuses   []OutputStatus
	Limit      int
	Offset     int
}

// ReportFilter narrows report listings.
type ReportFilter struct {
	LocationID uuid.UUID
	ReportType ReportType
	Limit      int
	Offset     int
}

// UserStore handles retrieving users for authentication.
type UserStore interface {
	// CreateUser inserts a new user with the hash of its API key.
	CreateUser(ctx context.Context, user *User, hashedKey string) error

	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)

	// GetUserByAPIKeyHash returns the user owning the key hash.
	GetUserByAPIKeyHash(ctx context.Context, hash string) (*User, error)

	SetOnboardingCompleted(ctx context.Context, tx DBTransaction, id uuid.UUID) error
}

// LocationStore persists business locations.
type LocationStore interface {
	CreateLocation(ctx context.Context, tx DBTransaction, loc *Location) error
	UpdateLocation(ctx context.Context, tx DBTransaction, loc *Location) error
	GetLocation(ctx context.Context, id uuid.UUID) (*Location, error)

	// GetLocationByUser returns the location owned by the user.
	GetLocationByUser(ctx context.Context, userID uuid.UUID) (*Location, error)

	// ListLocations returns every location ordered by creation time.
	ListLocations(ctx context.Context) ([]Location, error)
}

// AgentConfigStore persists the per-location agent switches.
type AgentConfigStore interface {
	// CreateAgentConfig inserts the config unless one already exists for the
	// (location, agent) pair. It reports whether a row was inserted.
	CreateAgentConfig(ctx context.Context, tx DBTransaction, cfg *AgentConfig) (bool, error)
	UpdateAgentConfig(ctx context.Context, cfg *AgentConfig) error
	GetAgentConfig(ctx context.Context, locationID uuid.UUID, agentType AgentType) (*AgentConfig, error)
	ListAgentConfigs(ctx context.Context, locationID uuid.UUID) ([]AgentConfig, error)
}

// TaskStore persists tasks. Status changes go through TransitionTask only.
type TaskStore interface {
	// CreateTask inserts a task. Returns ErrDuplicateTask if the dedupe key is taken.
	CreateTask(ctx context.Context, tx DBTransaction, task *Task) error
	GetTask(ctx context.Context, id uuid.UUID) (*Task, error)
	ListTasks(ctx context.Context, f TaskFilter) ([]Task, error)

	// TransitionTask moves the task to upd.Status if its current status is one of from.
	// It returns ErrInvalidTransition, leaving the row unchanged, otherwise.
	TransitionTask(ctx context.Context, tx DBTransaction, id uuid.UUID, from []TaskStatus, upd TaskUpdate) (*Task, error)

	// ListTasksUpdatedBefore returns tasks in the status untouched since before.
	ListTasksUpdatedBefore(ctx context.Context, status TaskStatus, before time.Time) ([]Task, error)
}

// OutputStore persists outputs. Status changes go through UpdateOutput only.
type OutputStore interface {
	CreateOutput(ctx context.Context, tx DBTransaction, out *Output) error
	GetOutput(ctx context.Context, id uuid.UUID) (*Output, error)
	GetOutputByTask(ctx context.Context, taskID uuid.UUID) (*Output, error)
	ListOutputs(ctx context.Context, f OutputFilter) ([]Output, error)

	// LatestOutput returns the most recently created output of the type whose status is in statuses.
	LatestOutput(ctx context.Context, locationID uuid.UUID, outputType OutputType, statuses []OutputStatus) (*Output, error)

	// RecentContents returns the content of the newest outputs of the type, newest first.
	RecentContents(ctx context.Context, locationID uuid.UUID, outputType OutputType, limit int) ([]string, error)

	// UpdateOutput applies upd if the output's current status is one of from.
	// It returns ErrInvalidTransition, leaving the row unchanged, otherwise.
	UpdateOutput(ctx context.Context, tx DBTransaction, id uuid.UUID, from []OutputStatus, upd OutputUpdate) (*Output, error)

	// CountOutputs counts outputs in the given status across all locations.
	CountOutputs(ctx context.Context, status OutputStatus) (int64, error)
}

// ReportStore persists report snapshots.
type ReportStore interface {
	CreateReport(ctx context.Context, r *Report) error
	GetReport(ctx context.Context, id uuid.UUID) (*Report, error)
	ListReports(ctx context.Context, f ReportFilter) ([]Report, int64, error)
	LatestReport(ctx context.Context, locationID uuid.UUID, t ReportType) (*Report, error)

	// MarkReportEmailed stamps the send time once. A second call is a no-op.
	MarkReportEmailed(ctx context.Context, id uuid.UUID, at time.Time) error

	// CountActivity aggregates task and output activity per agent in [start, end).
	CountActivity(ctx context.Context, locationID uuid.UUID, start, end time.Time) ([]ActivityCount, error)
}

// TokenStore persists sealed OAuth credentials.
type TokenStore interface {
	UpsertOAuthToken(ctx context.Context, tok *OAuthToken) error
	GetOAuthToken(ctx context.Context, locationID uuid.UUID, provider Provider) (*OAuthToken, error)
	DeleteOAuthToken(ctx context.Context, locationID uuid.UUID, provider Provider) error
}

// Store combines every repository with transaction control.
type Store interface {
	BeginTx(ctx context.Context) (Tx, error)
	Ping(ctx context.Context) error
	UserStore
	LocationStore
	AgentConfigStore
	TaskStore
	OutputStore
	ReportStore
	TokenStore
}
