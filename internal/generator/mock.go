package generator

import (
	"context"
	"fmt"

	"sponte/internal/agents"
	"sponte/internal/store"
)

// MockModel is recorded as ai_model for mock output.
const MockModel = "mock"

// Mock produces deterministic content without calling out.
type Mock struct{}

// NewMock returns the fallback generator.
func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) Generate(ctx context.Context, req agents.GenerationRequest) (*agents.GeneratedContent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	loc := req.Location
	out := &agents.GeneratedContent{Model: MockModel}

	switch req.OutputType {
	case store.OutputGBPPost:
		cta := store.CTACall
		out.Content = fmt.Sprintf("Quality %s services in %s! We're dedicated to excellence and customer satisfaction. Visit us today!",
			orDefault(loc.PrimaryCategory, "local"), loc.City)
		out.CallToAction = &cta
		out.Reasoning = "Mock post highlighting local presence with a clear call-to-action."
	case store.OutputBlogPost:
		topic := orDefault(req.Context, "Tips from "+loc.BusinessName)
		out.Title = fmt.Sprintf("%s - %s", topic, loc.BusinessName)
		out.Content = fmt.Sprintf("# %s\n\nAt %s, we're committed to providing you with valuable information.\n\n## Why This Matters\n\nThis topic is important for our community in %s.\n\n## Conclusion\n\nContact us to learn more.",
			topic, loc.BusinessName, loc.City)
		out.Reasoning = "Mock blog post structure with basic SEO elements."
	case store.OutputReviewResponse:
		out.Content = fmt.Sprintf("Thank you for your feedback! We're grateful you chose %s and look forward to serving you again.", loc.BusinessName)
		out.Reasoning = "Mock review response."
	case store.OutputCitation:
		out.Title = loc.BusinessName
		out.Content = fmt.Sprintf("%s\n%s, %s, %s %s\n%s", loc.BusinessName, loc.StreetAddress, loc.City, loc.State, loc.ZipCode, loc.PhonePrimary)
		out.Reasoning = "Mock citation using stored NAP data."
	case store.OutputKeywordReport:
		out.Title = "Keyword research"
		out.Content = fmt.Sprintf("%s %s\nbest %s near me", orDefault(loc.PrimaryCategory, "services"), loc.City, orDefault(loc.PrimaryCategory, "services"))
		out.Reasoning = "Mock keyword list."
	default:
		out.Content = fmt.Sprintf("News from %s in %s.", loc.BusinessName, loc.City)
		out.Reasoning = "Mock social post."
	}
	return out, nil
}
