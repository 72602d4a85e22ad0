package agents

import (
	"context"

	"sponte/internal/store"

	"github.com/google/uuid"
)

// GenerationRequest is everything a content generator needs to draft one artifact.
type GenerationRequest struct {
	Location      store.Location
	AgentType     store.AgentType
	TaskType      store.TaskType
	OutputType    store.OutputType
	Context       string
	RecentSamples []string
}

// GeneratedContent is the generator's answer.
type GeneratedContent struct {
	Title        string
	Content      string
	CallToAction *store.CallToAction
	Reasoning    string
	Model        string
}

// Generator drafts content. It must not touch task or output state.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (*GeneratedContent, error)
}

// PublishRequest names the external resource an output is pushed to.
type PublishRequest struct {
	LocationID   uuid.UUID
	Resource     string
	OutputType   store.OutputType
	Content      string
	CallToAction *store.CallToAction
	WebsiteURL   string
}

// PublishResult identifies the created external post.
type PublishResult struct {
	ExternalID string
	URL        string
}

// Publisher pushes approved content to an external platform.
type Publisher interface {
	Publish(ctx context.Context, req PublishRequest) (*PublishResult, error)
}

// platformBinding returns the external resource the agent publishes to, if the
// location is bound to one.
func platformBinding(agent store.AgentType, loc *store.Location) (string, bool) {
	switch agent {
	case store.AgentGBP:
		if loc.GBPLocationName != "" {
			return loc.GBPLocationName, true
		}
	}
	return "", false
}
