package cmd

import (
	"fmt"
	"time"

	"github.com/marcus/proj/internal/db"
	"github.com/marcus/proj/internal/models"
	"github.com/marcus/proj/internal/output"
)

const lineWidth = 100

func sessionLine(s *models.Session, now time.Time) string {
	if s.IsActive() {
		return fmt.Sprintf("Session #%d, started %s, last activity %s",
			s.ID, output.FormatTimeAgoFrom(s.StartedAt, now), output.FormatTimeAgoFrom(s.LastActivityAt, now))
	}
	line := fmt.Sprintf("Session #%d, ended %s after %s", s.ID,
		output.FormatTimeAgoFrom(*s.EndedAt, now), output.FormatDuration(s.EndedAt.Sub(s.StartedAt)))
	if s.ClosedReason == models.ClosedAutoStale {
		line += " (auto-closed)"
	}
	return line
}

func taskLine(t models.Task) string {
	return fmt.Sprintf("  T%-4d %s %-8s %s", t.ID, output.FormatStatus(t.Status),
		output.FormatPriority(t.Priority), output.Truncate(t.Description, lineWidth))
}

func decisionLine(d models.Decision) string {
	line := fmt.Sprintf("  D%-4d %s: %s", d.ID, d.Topic, output.Truncate(d.Decision, lineWidth))
	if d.Status == models.DecisionSuperseded {
		line += output.Dim(" (superseded)")
	}
	return line
}

func commitLine(c models.GitCommit, now time.Time) string {
	return fmt.Sprintf("  %s %s %s", c.ShortHash, output.Truncate(c.Message, lineWidth),
		output.Dim(output.FormatTimeAgoFrom(c.CommittedAt, now)))
}

// renderSnapshot prints status or resume output
func renderSnapshot(snap *db.StatusSnapshot, resume bool) {
	now := snap.GeneratedAt
	p := snap.Project
	output.Header(fmt.Sprintf("%s (%s)", p.Name, p.ProjectType))
	if p.Description != "" {
		output.Line("%s", p.Description)
	}

	if snap.AutoClosedSession != nil {
		output.Warning("session #%d was idle and has been auto-closed", snap.AutoClosedSession.ID)
	}
	if snap.CurrentSession != nil {
		output.Info("%s", sessionLine(snap.CurrentSession, now))
	}
	if snap.LastSession != nil {
		output.Line("Last: %s", sessionLine(snap.LastSession, now))
		if snap.LastSession.Summary != "" {
			output.Line("  %s", output.Truncate(snap.LastSession.Summary, lineWidth))
		}
	}

	if len(snap.ActiveBlockers) > 0 {
		output.Header("Blockers")
		for _, b := range snap.ActiveBlockers {
			output.Line("  B%-4d %s %s", b.ID, output.Truncate(b.Description, lineWidth), output.Dim(output.FormatTimeAgoFrom(b.CreatedAt, now)))
		}
	}

	output.Header(fmt.Sprintf("Tasks (%d active)", len(snap.ActiveTasks)))
	for _, t := range snap.ActiveTasks {
		output.Line("%s", taskLine(t))
	}

	if len(snap.RecentDecisions) > 0 {
		output.Header("Recent decisions")
		for _, d := range snap.RecentDecisions {
			output.Line("%s", decisionLine(d))
		}
	}

	if len(snap.RecentCommits) > 0 {
		output.Header("Recent commits")
		for _, c := range snap.RecentCommits {
			output.Line("%s", commitLine(c, now))
		}
	}

	if !resume {
		return
	}
	if len(snap.OpenQuestions) > 0 {
		output.Header("Open questions")
		for _, q := range snap.OpenQuestions {
			output.Line("  Q%-4d %s", q.ID, output.Truncate(q.Question, lineWidth))
		}
	}
	if len(snap.ContextNotes) > 0 {
		output.Header("Context")
		for _, n := range snap.ContextNotes {
			output.Line("  N%-4d [%s] %s: %s", n.ID, n.Category, n.Title, output.Truncate(n.Content, lineWidth))
		}
	}
}

// renderSummary prints the structured summary of an ended session
func renderSummary(sum *models.StructuredSummary) {
	c := sum.Counts
	output.Line("  %s, %s completed, %s added, %s, %s",
		output.FormatCount(c.Decisions, "decision"),
		output.FormatCount(c.TasksCompleted, "task"),
		output.FormatCount(c.TasksAdded, "task"),
		output.FormatCount(c.BlockersAdded, "blocker"),
		output.FormatCount(c.Commits, "commit"))
	for _, d := range sum.Decisions {
		output.Line("%s", decisionLine(d))
	}
	for _, t := range sum.TasksCompleted {
		output.Line("%s", taskLine(t))
	}
}
