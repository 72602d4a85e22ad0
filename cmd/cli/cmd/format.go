package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Styles degrade to plain text when output is not a terminal.
var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50"))
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	busyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F1C40F"))
	waitStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF"))
)

const rule = "──────────────────────────────"

// statusStyle covers both task and output statuses.
func statusStyle(status string) (string, *lipgloss.Style) {
	switch status {
	case "completed", "approved", "posted":
		return "✓", &okStyle
	case "failed", "rejected":
		return "✗", &failStyle
	case "in_progress", "scheduled":
		return "⏳", &busyStyle
	case "pending", "draft":
		return "◯", &waitStyle
	default:
		return "•", nil
	}
}

func statusIcon(status string) string {
	icon, style := statusStyle(status)
	if style == nil {
		return icon
	}
	return style.Render(icon)
}

func colorizeStatus(status string) string {
	_, style := statusStyle(status)
	if style == nil {
		return status
	}
	return statusIcon(status) + " " + style.Render(status)
}

// heading renders a detail view title followed by a rule.
func heading(icon, title string) string {
	if icon != "" {
		title = icon + " " + titleStyle.Render(title)
	} else {
		title = titleStyle.Render(title)
	}
	return title + "\n" + rule
}

// field renders one aligned "Label: value" line.
func field(label string, value any) string {
	label += ":"
	pad := strings.Repeat(" ", max(1, 13-len(label)))
	return labelStyle.Render(label) + pad + fmt.Sprint(value)
}

func formatTimeWithRelative(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Format("Mon, 02 Jan 2006 15:04:05 MST") + " " + labelStyle.Render("("+relativeTime(*t)+")")
}

// relativeTime renders t against now, in the past or the future.
func relativeTime(t time.Time) string {
	duration := time.Since(t)
	suffix := "ago"
	if duration < 0 {
		duration, suffix = -duration, "from now"
	}

	var amount string
	switch {
	case duration < time.Minute:
		amount = fmt.Sprintf("%ds", int(duration.Seconds()))
	case duration < time.Hour:
		amount = fmt.Sprintf("%dm", int(duration.Minutes()))
	case duration < 24*time.Hour:
		amount = fmt.Sprintf("%dh", int(duration.Hours()))
	default:
		days := int(duration.Hours() / 24)
		if days == 1 {
			amount = "1 day"
		} else {
			amount = fmt.Sprintf("%d days", days)
		}
	}
	return amount + " " + suffix
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	} else if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	} else if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}

// truncate shortens s to n runes for table views, flattening newlines.
func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
