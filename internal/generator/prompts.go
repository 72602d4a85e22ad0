package generator

import (
	"fmt"
	"strings"

	"sponte/internal/agents"
	"sponte/internal/store"
)

// maxSamples is how many recent outputs are quoted to avoid repetition.
const maxSamples = 3

// tuning is the per-output-type request shape.
type tuning struct {
	maxTokens   int
	temperature float64
}

var tunings = map[store.OutputType]tuning{
	store.OutputGBPPost:        {maxTokens: 1024, temperature: 0.7},
	store.OutputBlogPost:       {maxTokens: 4096, temperature: 0.7},
	store.OutputSocialPost:     {maxTokens: 1024, temperature: 0.8},
	store.OutputReviewResponse: {maxTokens: 512, temperature: 0.8},
	store.OutputCitation:       {maxTokens: 1024, temperature: 0.3},
	store.OutputKeywordReport:  {maxTokens: 2048, temperature: 0.4},
}

func tuningFor(t store.OutputType) tuning {
	if v, ok := tunings[t]; ok {
		return v
	}
	return tuning{maxTokens: 1024, temperature: 0.7}
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// buildPrompt renders the user message for req.
func buildPrompt(req agents.GenerationRequest) string {
	loc := req.Location
	var b strings.Builder

	switch req.OutputType {
	case store.OutputBlogPost:
		b.WriteString("You are a professional content writer specializing in local SEO.\n\n")
	case store.OutputReviewResponse:
		fmt.Fprintf(&b, "You are responding to a customer review for %s.\n\n", loc.BusinessName)
	default:
		b.WriteString("You are a local SEO expert creating content for local businesses.\n\n")
	}

	b.WriteString("Business Context:\n")
	fmt.Fprintf(&b, "- Business Name: %s\n", loc.BusinessName)
	fmt.Fprintf(&b, "- Category: %s\n", loc.PrimaryCategory)
	fmt.Fprintf(&b, "- Services: %s\n", strings.Join(loc.Services, ", "))
	fmt.Fprintf(&b, "- Brand Tone: %s\n", orDefault(loc.BrandTone, "professional and friendly"))
	fmt.Fprintf(&b, "- Location: %s, %s\n", loc.City, loc.State)
	fmt.Fprintf(&b, "- Primary Goal: %s\n", orDefault(loc.PrimaryGoal, "increase engagement"))
	if loc.WebsiteURL != "" {
		fmt.Fprintf(&b, "- Website: %s\n", loc.WebsiteURL)
	}
	if len(loc.ForbiddenWords) > 0 {
		fmt.Fprintf(&b, "- Never use these words: %s\n", strings.Join(loc.ForbiddenWords, ", "))
	}
	if len(loc.ForbiddenTopics) > 0 {
		fmt.Fprintf(&b, "- Never mention these topics: %s\n", strings.Join(loc.ForbiddenTopics, ", "))
	}

	if req.Context != "" {
		fmt.Fprintf(&b, "\nAdditional Context: %s\n", req.Context)
	}

	if recent := samples(req.RecentSamples, maxSamples); len(recent) > 0 {
		b.WriteString("\nRecent Posts (avoid repetition):\n")
		for i, s := range recent {
			fmt.Fprintf(&b, "%d. %s\n", i+1, s)
		}
	}

	b.WriteString("\n")
	b.WriteString(instructions(req.OutputType, loc))
	return b.String()
}

func instructions(t store.OutputType, loc store.Location) string {
	switch t {
	case store.OutputGBPPost:
		return `Create a compelling Google Business Profile post that:
1. Highlights one of their services or a current offering
2. Uses their brand tone
3. Includes a clear call-to-action
4. Is between 100-300 characters
5. Is optimized for local search visibility
6. Avoids being overly promotional

Return ONLY a JSON object in this exact format (no markdown, no extra text):
{"content": "post text", "cta": "CALL" | "BOOK" | "ORDER" | "LEARN_MORE" | "SIGN_UP" | "SHOP", "reasoning": "why this post will work"}`
	case store.OutputBlogPost:
		return fmt.Sprintf(`Create a high-quality blog post of about 800 words that:
1. Provides genuine value to readers
2. Incorporates local keywords naturally
3. Maintains the brand's tone
4. Includes local context relevant to %s
5. Has a compelling title and meta description

Return ONLY a JSON object in this exact format (no markdown):
{"title": "SEO title", "content": "full post in markdown", "meta_description": "155 characters", "reasoning": "SEO strategy"}`, loc.City)
	case store.OutputSocialPost:
		return `Create a short social media post (under 280 characters) with at most two relevant hashtags.

Return ONLY a JSON object in this exact format (no markdown):
{"content": "post text", "reasoning": "why this post will work"}`
	case store.OutputReviewResponse:
		return `Generate a personalized, authentic review response between 50-150 words that thanks the customer and keeps the brand tone.

Return ONLY a JSON object:
{"response": "the review response text", "reasoning": "the approach"}`
	case store.OutputCitation:
		return `Write the canonical business listing description (name, address, phone, and a 2-3 sentence summary) to submit to local directories. Keep NAP details exactly as given.

Return ONLY a JSON object:
{"title": "listing title", "content": "listing text", "reasoning": "notes on consistency"}`
	case store.OutputKeywordReport:
		return `List 10 local search keywords this business should target, one per line with a short rationale each.

Return ONLY a JSON object:
{"title": "Keyword research", "content": "keywords and rationale", "reasoning": "overall strategy"}`
	}
	return `Return ONLY a JSON object: {"content": "text", "reasoning": "notes"}`
}
