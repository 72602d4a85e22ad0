package store

import "strings"

// AgentType identifies one of the automation agents.
type AgentType string

const (
	AgentGBP       AgentType = "gbp"
	AgentNAP       AgentType = "nap"
	AgentKeyword   AgentType = "keyword"
	AgentBlog      AgentType = "blog"
	AgentSocial    AgentType = "social"
	AgentReporting AgentType = "reporting"
)

// AllAgentTypes lists every agent in the order they are provisioned.
var AllAgentTypes = []AgentType{AgentGBP, AgentNAP, AgentKeyword, AgentBlog, AgentSocial, AgentReporting}

// ContentAgentTypes are the agents driven by the daily tick.
var ContentAgentTypes = []AgentType{AgentGBP, AgentNAP, AgentKeyword, AgentBlog, AgentSocial}

// Valid reports whether a is a known agent type.
func (a AgentType) Valid() bool {
	for _, t := range AllAgentTypes {
		if t == a {
			return true
		}
	}
	return false
}

// AutonomyMode controls whether generated content is published without review.
type AutonomyMode string

const (
	AutonomyDraft     AutonomyMode = "draft"
	AutonomyAutopilot AutonomyMode = "autopilot"
)

// ParseAutonomyMode maps both current and legacy values.
// "approve" is the legacy name for draft, "auto" for autopilot.
// The second return value is false when the input was not recognized
// and the result fell back to draft.
func ParseAutonomyMode(s string) (AutonomyMode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "draft", "approve":
		return AutonomyDraft, true
	case "autopilot", "auto":
		return AutonomyAutopilot, true
	}
	return AutonomyDraft, false
}

// TaskType is the kind of work a task performs.
type TaskType string

const (
	TaskCreateGBPPost       TaskType = "create_gbp_post"
	TaskRespondToReview     TaskType = "respond_to_review"
	TaskUpdateBusinessHours TaskType = "update_business_hours"
	TaskCreateBlogPost      TaskType = "create_blog_post"
	TaskUpdateBlogPost      TaskType = "update_blog_post"
	TaskCreateSocialPost    TaskType = "create_social_post"
	TaskCreateCitation      TaskType = "create_citation"
	TaskUpdateCitation      TaskType = "update_citation"
	TaskResearchKeywords    TaskType = "research_keywords"
	TaskTrackRankings       TaskType = "track_rankings"
)

var taskAgents = map[TaskType]AgentType{
	TaskCreateGBPPost:       AgentGBP,
	TaskRespondToReview:     AgentGBP,
	TaskUpdateBusinessHours: AgentGBP,
	TaskCreateBlogPost:      AgentBlog,
	TaskUpdateBlogPost:      AgentBlog,
	TaskCreateSocialPost:    AgentSocial,
	TaskCreateCitation:      AgentNAP,
	TaskUpdateCitation:      AgentNAP,
	TaskResearchKeywords:    AgentKeyword,
	TaskTrackRankings:       AgentKeyword,
}

// taskOutputs maps task types to the artifact they produce.
// Task types without an entry produce no content artifact.
var taskOutputs = map[TaskType]OutputType{
	TaskCreateGBPPost:    OutputGBPPost,
	TaskRespondToReview:  OutputReviewResponse,
	TaskCreateBlogPost:   OutputBlogPost,
	TaskUpdateBlogPost:   OutputBlogPost,
	TaskCreateSocialPost: OutputSocialPost,
	TaskCreateCitation:   OutputCitation,
	TaskUpdateCitation:   OutputCitation,
	TaskResearchKeywords: OutputKeywordReport,
	TaskTrackRankings:    OutputKeywordReport,
}

// Agent returns the agent that owns the task type.
func (t TaskType) Agent() (AgentType, bool) {
	a, ok := taskAgents[t]
	return a, ok
}

// OutputType returns the artifact type the task produces.
func (t TaskType) OutputType() (OutputType, bool) {
	o, ok := taskOutputs[t]
	return o, ok
}

// defaultTasks is what the scheduler creates for each content agent.
var defaultTasks = map[AgentType]TaskType{
	AgentGBP:     TaskCreateGBPPost,
	AgentBlog:    TaskCreateBlogPost,
	AgentSocial:  TaskCreateSocialPost,
	AgentNAP:     TaskCreateCitation,
	AgentKeyword: TaskResearchKeywords,
}

// DefaultTask returns the task type scheduled for the agent.
func (a AgentType) DefaultTask() (TaskType, bool) {
	t, ok := defaultTasks[a]
	return t, ok
}

// PrimaryOutput returns the artifact type used for the agent's cadence check.
func (a AgentType) PrimaryOutput() (OutputType, bool) {
	t, ok := defaultTasks[a]
	if !ok {
		return "", false
	}
	return t.OutputType()
}

// TaskStatus is the state of a task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
	TaskApproved   TaskStatus = "approved"
	TaskRejected   TaskStatus = "rejected"
	TaskPosted     TaskStatus = "posted"
)

var taskTransitions = map[TaskStatus][]TaskStatus{
	TaskPending:    {TaskInProgress},
	TaskInProgress: {TaskCompleted, TaskFailed},
	TaskCompleted:  {TaskApproved, TaskRejected},
	TaskApproved:   {TaskPosted, TaskRejected},
}

// Valid reports whether s is a known task status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskPending, TaskInProgress, TaskCompleted, TaskFailed, TaskApproved, TaskRejected, TaskPosted:
		return true
	}
	return false
}

// CanTransition reports whether the task state machine has an edge from s to next.
func (s TaskStatus) CanTransition(next TaskStatus) bool {
	for _, n := range taskTransitions[s] {
		if n == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s TaskStatus) Terminal() bool {
	return len(taskTransitions[s]) == 0
}

// OutputType is the kind of content artifact.
type OutputType string

const (
	OutputGBPPost        OutputType = "gbp_post"
	OutputBlogPost       OutputType = "blog_post"
	OutputSocialPost     OutputType = "social_post"
	OutputCitation       OutputType = "citation"
	OutputReviewResponse OutputType = "review_response"
	OutputKeywordReport  OutputType = "keyword_report"
)

// Valid reports whether t is a known output type.
func (t OutputType) Valid() bool {
	switch t {
	case OutputGBPPost, OutputBlogPost, OutputSocialPost, OutputCitation, OutputReviewResponse, OutputKeywordReport:
		return true
	}
	return false
}

// OutputStatus is the state of an output.
type OutputStatus string

const (
	OutputDraft     OutputStatus = "draft"
	OutputApproved  OutputStatus = "approved"
	OutputScheduled OutputStatus = "scheduled"
	OutputPosted    OutputStatus = "posted"
	OutputFailed    OutputStatus = "failed"
)

// OutputScheduled marks an output claimed for publishing. It only ever
// moves on to posted.
var outputTransitions = map[OutputStatus][]OutputStatus{
	OutputDraft:     {OutputApproved, OutputFailed},
	OutputApproved:  {OutputScheduled, OutputPosted, OutputFailed},
	OutputScheduled: {OutputPosted},
}

// Valid reports whether s is a known output status.
func (s OutputStatus) Valid() bool {
	switch s {
	case OutputDraft, OutputApproved, OutputScheduled, OutputPosted, OutputFailed:
		return true
	}
	return false
}

// CanTransition reports whether the output lifecycle has an edge from s to next.
func (s OutputStatus) CanTransition(next OutputStatus) bool {
	for _, n := range outputTransitions[s] {
		if n == next {
			return true
		}
	}
	return false
}

// EditableStatuses are the output statuses whose content may still change.
// Once an output is claimed for publishing it is locked.
var EditableStatuses = []OutputStatus{OutputDraft, OutputApproved, OutputFailed}

// CadenceStatuses are the output statuses that count as the last artifact
// for due-ness. Rejected (failed) outputs do not suppress the next run.
var CadenceStatuses = []OutputStatus{OutputDraft, OutputApproved, OutputScheduled, OutputPosted}

// CallToAction is the button attached to a GBP post.
type CallToAction string

const (
	CTABook      CallToAction = "BOOK"
	CTAOrder     CallToAction = "ORDER"
	CTAShop      CallToAction = "SHOP"
	CTALearnMore CallToAction = "LEARN_MORE"
	CTASignUp    CallToAction = "SIGN_UP"
	CTACall      CallToAction = "CALL"
)

// ParseCallToAction validates a CTA value, case-insensitively.
func ParseCallToAction(s string) (CallToAction, bool) {
	c := CallToAction(strings.ToUpper(strings.TrimSpace(s)))
	switch c {
	case CTABook, CTAOrder, CTAShop, CTALearnMore, CTASignUp, CTACall:
		return c, true
	}
	return "", false
}
