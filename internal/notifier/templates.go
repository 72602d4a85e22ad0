package notifier

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Welcome is the onboarding confirmation.
type Welcome struct {
	To           string
	BusinessName string
	DashboardURL string
}

// SendWelcome tells a new user their agents are provisioned.
func SendWelcome(ctx context.Context, n Notifier, w Welcome) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Welcome to Sponte AI, %s!\n\n", w.BusinessName)
	b.WriteString("Your local SEO agents are set up and will start drafting content on their schedule.\n")
	b.WriteString("Drafts wait for your approval unless you switch an agent to autopilot.\n")
	if w.DashboardURL != "" {
		fmt.Fprintf(&b, "\nOpen your dashboard: %s\n", w.DashboardURL)
	}

	return n.Send(ctx, Message{
		To:      []string{w.To},
		Subject: "Welcome to Sponte AI - Your Agents Are Ready!",
		Text:    b.String(),
	})
}

// ReportEmail is the plain-text summary of one report.
type ReportEmail struct {
	To           []string
	BusinessName string
	ReportType   string
	PeriodStart  time.Time
	PeriodEnd    time.Time
	Highlights   []string
	Insights     []string
	Link         string
}

// SendReport emails a report summary to its recipients.
func SendReport(ctx context.Context, n Notifier, r ReportEmail) error {
	kind := "Weekly"
	if r.ReportType == "monthly" {
		kind = "Monthly"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s report for %s\n", kind, r.BusinessName)
	// PeriodEnd is exclusive.
	fmt.Fprintf(&b, "%s - %s\n\n", r.PeriodStart.Format("Jan 2, 2006"), r.PeriodEnd.AddDate(0, 0, -1).Format("Jan 2, 2006"))
	for _, h := range r.Highlights {
		fmt.Fprintf(&b, "- %s\n", h)
	}
	if len(r.Insights) > 0 {
		b.WriteString("\nInsights\n")
		for _, in := range r.Insights {
			fmt.Fprintf(&b, "- %s\n", in)
		}
	}
	if r.Link != "" {
		fmt.Fprintf(&b, "\nFull report: %s\n", r.Link)
	}

	return n.Send(ctx, Message{
		To:      r.To,
		Subject: fmt.Sprintf("%s Report: %s", kind, r.BusinessName),
		Text:    b.String(),
	})
}
