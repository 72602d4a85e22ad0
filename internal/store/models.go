// Package store contains the domain entities and the database layer for sponte.
package store

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionTier is the billing tier of a user.
type SubscriptionTier string

const (
	TierStarter SubscriptionTier = "starter"
	TierPro     SubscriptionTier = "pro"
	TierAgency  SubscriptionTier = "agency"
)

// User is the verified principal that owns locations.
type User struct {
	ID                  uuid.UUID
	Email               string
	OnboardingCompleted bool
	SubscriptionTier    SubscriptionTier
	CreatedAt           time.Time
}

// Location is a single business a user manages.
// Every agent, task, output and report is scoped to exactly one location.
type Location struct {
	ID     uuid.UUID
	UserID uuid.UUID

	// NAP data
	BusinessName   string
	DBAName        string
	StreetAddress  string
	City           string
	State          string
	ZipCode        string
	PhonePrimary   string
	PhoneSecondary string
	WebsiteURL     string

	CMSPlatform     string
	PrimaryCategory string
	Services        []string

	BrandTone       string
	BlogCadence     string
	GBPCadence      string
	ForbiddenWords  []string
	ForbiddenTopics []string
	PrimaryGoal     string

	ReportFrequency string
	ReportEmails    []string

	// GBPLocationName is the Business Profile resource ("accounts/x/locations/y").
	// Empty means the location is not bound to a profile, so GBP posts are never published.
	GBPLocationName string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AgentConfig is the per-location switch for one agent.
type AgentConfig struct {
	ID           uuid.UUID
	LocationID   uuid.UUID
	AgentType    AgentType
	AutonomyMode AutonomyMode
	IsActive     bool
	ConfigData   map[string]any
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PostFrequency returns the cadence stored in the agent's config data, if any.
func (c *AgentConfig) PostFrequency() string {
	if c == nil || c.ConfigData == nil {
		return ""
	}
	v, _ := c.ConfigData["post_frequency"].(string)
	return v
}

// Task is one unit of agent work.
type Task struct {
	ID               uuid.UUID
	LocationID       uuid.UUID
	AgentType        AgentType
	TaskType         TaskType
	Status           TaskStatus
	ScheduledFor     time.Time
	GeneratedContent map[string]any
	Metadata         map[string]any
	ErrorMessage     *string
	// DedupeKey is set for scheduler-created tasks only. At most one task
	// per (location, key) can exist.
	DedupeKey   *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

// Context returns the free-form context string the task was created with.
func (t *Task) Context() string {
	if t.Metadata == nil {
		return ""
	}
	v, _ := t.Metadata["context"].(string)
	return v
}

// Output is a content artifact produced by a task.
type Output struct {
	ID              uuid.UUID
	TaskID          uuid.UUID
	LocationID      uuid.UUID
	OutputType      OutputType
	Status          OutputStatus
	Title           string
	Content         string
	CallToAction    *CallToAction
	PlatformPostID  *string
	PlatformURL     *string
	PerformanceData map[string]any
	Metadata        map[string]any
	CreatedAt       time.Time
	UpdatedAt       time.Time
	PostedAt        *time.Time
	ScheduledFor    *time.Time
}

// ReportType is the kind of performance report.
type ReportType string

const (
	ReportWeekly  ReportType = "weekly"
	ReportMonthly ReportType = "monthly"
	ReportCustom  ReportType = "custom"
)

// Valid reports whether r is a known report type.
func (r ReportType) Valid() bool {
	switch r {
	case ReportWeekly, ReportMonthly, ReportCustom:
		return true
	}
	return false
}

// Report is an immutable snapshot of a location's activity over [PeriodStart, PeriodEnd).
// EmailSentAt is the only field written after creation.
type Report struct {
	ID              uuid.UUID
	LocationID      uuid.UUID
	ReportType      ReportType
	PeriodStart     time.Time
	PeriodEnd       time.Time
	Data            map[string]any
	EmailRecipients []string
	EmailSentAt     *time.Time
	CreatedAt       time.Time
}

// Provider identifies a third-party account that can be connected to a location.
type Provider string

const (
	ProviderGoogle    Provider = "google"
	ProviderMeta      Provider = "meta"
	ProviderLinkedIn  Provider = "linkedin"
	ProviderWordPress Provider = "wordpress"
	ProviderTikTok    Provider = "tiktok"
)

// OAuthToken holds sealed credentials for a connected provider.
// The plaintext tokens never touch the database.
type OAuthToken struct {
	ID                 uuid.UUID
	UserID             uuid.UUID
	LocationID         uuid.UUID
	Provider           Provider
	AccessTokenSealed  []byte
	RefreshTokenSealed []byte
	ExpiresAt          *time.Time
	Scope              string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ActivityCount is the per-agent activity inside a report period.
type ActivityCount struct {
	AgentType      AgentType
	TasksCompleted int64
	OutputsCreated int64
	DraftsCreated  int64
	OutputsPosted  int64
}
