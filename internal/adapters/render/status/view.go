package status

import (
	"fmt"
	"strings"
	"time"

	"github.com/bnema/lonewatch/internal/application"
	"github.com/bnema/lonewatch/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

const escalationBarWidth = 12

type RenderOptions struct {
	Now            time.Time
	AlertThreshold uint
}

func renderView(report application.StatusReport, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Lone Working Sessions"),
		s.header.Render(fmt.Sprintf("sessions: %d  supervisors: %d  users: %d",
			len(report.Sessions), len(report.Supervisors), len(report.Users))),
	}

	if len(report.Sessions) == 0 {
		lines = append(lines, s.empty.Render("No active monitoring sessions."))
	}
	for _, session := range report.Sessions {
		lines = append(lines, s.section.Render(renderSession(session, opts, s)))
	}

	lines = append(lines, s.section.Render(renderSupervisors(report.Supervisors, s)))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderSession(session application.SessionStatus, opts RenderOptions, s styles) string {
	parts := []string{
		s.owner.Render(userTitle(session.Owner)),
		s.detail.Render(fmt.Sprintf("silent for %s (last ack %s)", formatDuration(session.Silence), formatClock(session.LastAck, opts.Now))),
		escalationLine(session, opts, s),
		levelStyle(session.NextLevel, s).Render(fmt.Sprintf("next: %s %s", session.NextLevel, formatNext(session.NextPrompt, opts.Now))),
	}

	if len(session.Supervisors) == 0 {
		parts = append(parts, s.warning.Render("no one supervising"))
	} else {
		parts = append(parts, s.detail.Render("supervisors: "+strings.Join(names(session.Supervisors), ", ")))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func renderSupervisors(supervisors []application.UserStatus, s styles) string {
	if len(supervisors) == 0 {
		return s.empty.Render("No supervisors registered.")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		s.key.Render("Registered supervisors:"),
		s.detail.Render(strings.Join(names(supervisors), ", ")),
	)
}

func escalationLine(session application.SessionStatus, opts RenderOptions, s styles) string {
	label := s.key.Render("missed:")
	count := fmt.Sprintf("%d", session.Missed)
	if opts.AlertThreshold > 0 {
		count = fmt.Sprintf("%d/%d", session.Missed, opts.AlertThreshold)
	}

	line := lipgloss.JoinHorizontal(
		lipgloss.Top,
		label,
		" ",
		renderEscalationBar(session.Missed, opts.AlertThreshold, escalationBarWidth, s),
		" ",
		count,
	)

	if opts.AlertThreshold > 0 && session.Missed > opts.AlertThreshold {
		line += " " + s.alert.Render("[alerting]")
	}

	return line
}

func renderEscalationBar(missed, threshold uint, width int, s styles) string {
	if width <= 0 || threshold == 0 {
		return ""
	}

	filled := int(min(missed, threshold)) * width / int(threshold)
	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", width-filled)),
		s.barBracket.Render("]"),
	)
}

func levelStyle(level string, s styles) lipgloss.Style {
	switch level {
	case domain.LevelAlert.String():
		return s.alert
	case domain.LevelUnsupervised.String(), domain.LevelReminder.String():
		return s.warning
	default:
		return s.detail
	}
}

func userTitle(user application.UserStatus) string {
	return fmt.Sprintf("%s (%s)", strings.TrimSpace(user.Name), user.ID)
}

func names(users []application.UserStatus) []string {
	out := make([]string, 0, len(users))
	for _, user := range users {
		out = append(out, user.Name)
	}

	return out
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	if d < time.Minute {
		return "under a minute"
	}

	hours := int(d / time.Hour)
	minutes := int((d % time.Hour) / time.Minute)
	if hours == 0 {
		return fmt.Sprintf("%dm", minutes)
	}

	return fmt.Sprintf("%dh%02dm", hours, minutes)
}

func formatClock(at, now time.Time) string {
	if at.IsZero() {
		return "unknown"
	}
	if now.IsZero() {
		return at.Format(time.RFC3339)
	}

	yearA, monthA, dayA := now.Date()
	yearB, monthB, dayB := at.Date()
	if yearA == yearB && monthA == monthB && dayA == dayB {
		return at.Format("15:04")
	}

	return at.Format("15:04 on 02 Jan")
}

func formatNext(at, now time.Time) string {
	if now.IsZero() {
		return "at " + formatClock(at, now)
	}
	if !at.After(now) {
		return "due now"
	}

	return fmt.Sprintf("in %s (%s)", formatDuration(at.Sub(now)), formatClock(at, now))
}
