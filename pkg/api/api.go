// Package api contains shared JSON request/response structs.
// This package is shared between the CLI and Controller.
package api

import (
	"encoding/json"
	"strings"
	"time"
)

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// StringList accepts either a JSON array or a single newline-separated string.
type StringList []string

func (l *StringList) UnmarshalJSON(b []byte) error {
	return unmarshalList(b, "\n", (*[]string)(l))
}

// CommaList accepts either a JSON array or a single comma-separated string.
type CommaList []string

func (l *CommaList) UnmarshalJSON(b []byte) error {
	return unmarshalList(b, ",", (*[]string)(l))
}

func unmarshalList(b []byte, sep string, out *[]string) error {
	var raw []string
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		raw = strings.Split(s, sep)
	} else if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	list := make([]string, 0, len(raw))
	for _, v := range raw {
		if v = strings.TrimSpace(v); v != "" {
			list = append(list, v)
		}
	}
	*out = list
	return nil
}

// CreateUserRequest is the internal request for provisioning a user.
type CreateUserRequest struct {
	Email            string `json:"email"`
	SubscriptionTier string `json:"subscription_tier,omitempty"`
}

// CreateUserResponse carries the raw API key. It is only ever returned once.
type CreateUserResponse struct {
	ID     string `json:"user_id"`
	Email  string `json:"email"`
	ApiKey string `json:"api_key"`
}

// BusinessProfileRequest is the NAP step of onboarding.
type BusinessProfileRequest struct {
	BusinessName    string     `json:"business_name"`
	DBAName         string     `json:"dba_name,omitempty"`
	StreetAddress   string     `json:"street_address"`
	City            string     `json:"city"`
	State           string     `json:"state"`
	ZipCode         string     `json:"zip_code"`
	Phone           string     `json:"phone"`
	PhoneSecondary  string     `json:"phone_secondary,omitempty"`
	WebsiteURL      string     `json:"website_url,omitempty"`
	CMSPlatform     string     `json:"cms_platform,omitempty"`
	PrimaryCategory string     `json:"primary_category"`
	Services        StringList `json:"services,omitempty"`
}

// OnboardingSubmitRequest is the complete onboarding form.
type OnboardingSubmitRequest struct {
	BusinessProfileRequest

	BrandTone       string    `json:"brand_tone,omitempty"`
	BlogCadence     string    `json:"blog_cadence,omitempty"`
	GBPCadence      string    `json:"gbp_cadence,omitempty"`
	ForbiddenWords  CommaList `json:"forbidden_words,omitempty"`
	ForbiddenTopics CommaList `json:"forbidden_topics,omitempty"`
	GlobalAutonomy  string    `json:"global_autonomy,omitempty"`
	PrimaryGoal     string    `json:"primary_goal,omitempty"`
	ReportFrequency string    `json:"report_frequency,omitempty"`
	ReportEmails    CommaList `json:"report_emails,omitempty"`
}

// OnboardingResponse is returned after a successful submit.
type OnboardingResponse struct {
	Location       LocationResponse `json:"location"`
	ConfigsCreated int              `json:"configs_created"`
}

// LocationResponse represents a location in API responses.
type LocationResponse struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	BusinessName    string    `json:"business_name"`
	DBAName         string    `json:"dba_name,omitempty"`
	StreetAddress   string    `json:"street_address"`
	City            string    `json:"city"`
	State           string    `json:"state"`
	ZipCode         string    `json:"zip_code"`
	PhonePrimary    string    `json:"phone_primary"`
	PhoneSecondary  string    `json:"phone_secondary,omitempty"`
	WebsiteURL      string    `json:"website_url,omitempty"`
	CMSPlatform     string    `json:"cms_platform,omitempty"`
	PrimaryCategory string    `json:"primary_category"`
	Services        []string  `json:"services"`
	BrandTone       string    `json:"brand_tone,omitempty"`
	BlogCadence     string    `json:"blog_cadence,omitempty"`
	GBPCadence      string    `json:"gbp_cadence,omitempty"`
	ForbiddenWords  []string  `json:"forbidden_words"`
	ForbiddenTopics []string  `json:"forbidden_topics"`
	PrimaryGoal     string    `json:"primary_goal,omitempty"`
	ReportFrequency string    `json:"report_frequency,omitempty"`
	ReportEmails    []string  `json:"report_emails"`
	GBPLocationName string    `json:"gbp_location_name,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// UpdateGBPLocationRequest binds a location to a Business Profile resource.
// An empty name unbinds it.
type UpdateGBPLocationRequest struct {
	GBPLocationName string `json:"gbp_location_name"`
}

// UpdateSettingsRequest patches brand and reporting settings. Nil fields are kept.
type UpdateSettingsRequest struct {
	BrandTone       *string    `json:"brand_tone,omitempty"`
	BlogCadence     *string    `json:"blog_cadence,omitempty"`
	GBPCadence      *string    `json:"gbp_cadence,omitempty"`
	ForbiddenWords  *CommaList `json:"forbidden_words,omitempty"`
	ForbiddenTopics *CommaList `json:"forbidden_topics,omitempty"`
	PrimaryGoal     *string    `json:"primary_goal,omitempty"`
	ReportFrequency *string    `json:"report_frequency,omitempty"`
	ReportEmails    *CommaList `json:"report_emails,omitempty"`
}

// AgentConfigResponse represents an agent config in API responses.
type AgentConfigResponse struct {
	ID           string         `json:"id"`
	LocationID   string         `json:"location_id"`
	AgentType    string         `json:"agent_type"`
	AutonomyMode string         `json:"autonomy_mode"`
	IsActive     bool           `json:"is_active"`
	ConfigData   map[string]any `json:"config_data"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// UpdateAgentConfigRequest patches one agent config. Nil fields are kept;
// config_data keys are merged.
type UpdateAgentConfigRequest struct {
	AutonomyMode *string        `json:"autonomy_mode,omitempty"`
	IsActive     *bool          `json:"is_active,omitempty"`
	ConfigData   map[string]any `json:"config_data,omitempty"`
}

// DueResponse is the cadence decision for one agent.
type DueResponse struct {
	LocationID string `json:"location_id"`
	AgentType  string `json:"agent_type"`
	Due        bool   `json:"due"`
}

// CreateTaskRequest is the request body for creating a task.
type CreateTaskRequest struct {
	LocationID   string     `json:"location_id"`
	AgentType    string     `json:"agent_type"`
	TaskType     string     `json:"task_type,omitempty"`
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
	Context      string     `json:"context,omitempty"`
}

// TaskResponse represents a task in API responses.
type TaskResponse struct {
	ID               string         `json:"id"`
	LocationID       string         `json:"location_id"`
	AgentType        string         `json:"agent_type"`
	TaskType         string         `json:"task_type"`
	Status           string         `json:"status"`
	ScheduledFor     time.Time      `json:"scheduled_for"`
	GeneratedContent map[string]any `json:"generated_content,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	ErrorMessage     *string        `json:"error_message,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	CompletedAt      *time.Time     `json:"completed_at,omitempty"`
}

// GenerateRequest creates and processes a task in one call.
type GenerateRequest struct {
	LocationID string `json:"location_id"`
	TaskType   string `json:"task_type,omitempty"`
	Context    string `json:"context,omitempty"`
}

// GenerateResponse returns the task and, on success, its draft.
type GenerateResponse struct {
	Task   TaskResponse    `json:"task"`
	Output *OutputResponse `json:"output,omitempty"`
}

// OutputResponse represents an output in API responses.
type OutputResponse struct {
	ID             string         `json:"id"`
	TaskID         string         `json:"task_id"`
	LocationID     string         `json:"location_id"`
	OutputType     string         `json:"output_type"`
	Status         string         `json:"status"`
	Title          string         `json:"title,omitempty"`
	Content        string         `json:"content"`
	CallToAction   *string        `json:"call_to_action,omitempty"`
	PlatformPostID *string        `json:"platform_post_id,omitempty"`
	PlatformURL    *string        `json:"platform_url,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	PostedAt       *time.Time     `json:"posted_at,omitempty"`
}

// OutputListResponse wraps a page of outputs.
type OutputListResponse struct {
	Outputs []OutputResponse `json:"outputs"`
}

// TaskListResponse wraps a page of tasks.
type TaskListResponse struct {
	Tasks []TaskResponse `json:"tasks"`
}

// EditOutputRequest replaces an output's content.
type EditOutputRequest struct {
	Content      string  `json:"content"`
	CallToAction *string `json:"call_to_action,omitempty"`
}

// RejectOutputRequest carries the reviewer's reason.
type RejectOutputRequest struct {
	Reason string `json:"reason"`
}

// PostOutputRequest marks an approved output posted. Unless auto_post is
// false the controller publishes through the connected platform when the
// location is bound.
type PostOutputRequest struct {
	PlatformPostID *string `json:"platform_post_id,omitempty"`
	PlatformURL    *string `json:"platform_url,omitempty"`
	AutoPost       *bool   `json:"auto_post,omitempty"`
}

// Publish reports whether the platform should be called. It defaults to true.
func (r PostOutputRequest) Publish() bool {
	return r.AutoPost == nil || *r.AutoPost
}

// CreateReportRequest generates a report on demand.
type CreateReportRequest struct {
	LocationID  string    `json:"location_id"`
	ReportType  string    `json:"report_type"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	SendEmail   bool      `json:"send_email,omitempty"`
}

// ReportResponse represents a report in API responses.
type ReportResponse struct {
	ID              string         `json:"id"`
	LocationID      string         `json:"location_id"`
	ReportType      string         `json:"report_type"`
	PeriodStart     time.Time      `json:"period_start"`
	PeriodEnd       time.Time      `json:"period_end"`
	Data            map[string]any `json:"data"`
	EmailRecipients []string       `json:"email_recipients"`
	EmailSentAt     *time.Time     `json:"email_sent_at,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

// ReportListResponse wraps a page of reports with the unpaged total.
type ReportListResponse struct {
	Reports []ReportResponse `json:"reports"`
	Total   int64            `json:"total"`
}

// OAuthConnectResponse holds the consent URL to redirect the user to.
type OAuthConnectResponse struct {
	AuthURL string `json:"auth_url"`
}

// OAuthStatusResponse describes a location's Google connection.
type OAuthStatusResponse struct {
	Connected   bool       `json:"connected"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	Expired     bool       `json:"expired"`
	Refreshable bool       `json:"refreshable"`
	Scope       string     `json:"scope,omitempty"`
	ConnectedAt *time.Time `json:"connected_at,omitempty"`
}

// HealthResponse is returned by /healthz and /readyz.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// JobResponse describes a scheduler job.
type JobResponse struct {
	Name    string     `json:"name"`
	Spec    string     `json:"spec"`
	NextRun *time.Time `json:"next_run,omitempty"`
	Running bool       `json:"running"`
}

// RunJobResponse acknowledges a manual job trigger.
type RunJobResponse struct {
	Job    string `json:"job"`
	Status string `json:"status"`
}
