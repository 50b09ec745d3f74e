package db

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/marcus/proj/internal/models"
)

// buildSummary collects everything timestamped in [s.StartedAt, end).
// The three task lists are disjoint: completed wins over in progress, which
// wins over added.
func buildSummary(q querier, s *models.Session, end time.Time) (*models.StructuredSummary, error) {
	from, to := formatTime(s.StartedAt), formatTime(end)
	sum := &models.StructuredSummary{SessionID: s.ID, StartedAt: s.StartedAt, EndedAt: end}

	var err error
	if sum.Decisions, err = queryAll(q, scanDecision, `SELECT `+decisionCols+` FROM decisions
		WHERE created_at >= ? AND created_at < ? ORDER BY created_at, id`, from, to); err != nil {
		return nil, fmt.Errorf("summary decisions: %w", err)
	}
	if sum.TasksCompleted, err = queryAll(q, scanTask, `SELECT `+taskCols+` FROM tasks
		WHERE status = 'completed' AND completed_at >= ? AND completed_at < ? ORDER BY completed_at, id`, from, to); err != nil {
		return nil, fmt.Errorf("summary tasks: %w", err)
	}
	if sum.TasksInProgress, err = queryAll(q, scanTask, `SELECT `+taskCols+` FROM tasks
		WHERE status = 'in_progress' AND updated_at >= ? AND updated_at < ? ORDER BY updated_at, id`, from, to); err != nil {
		return nil, fmt.Errorf("summary tasks: %w", err)
	}
	if sum.TasksAdded, err = queryAll(q, scanTask, `SELECT `+taskCols+` FROM tasks
		WHERE status NOT IN ('completed', 'in_progress') AND created_at >= ? AND created_at < ? ORDER BY created_at, id`, from, to); err != nil {
		return nil, fmt.Errorf("summary tasks: %w", err)
	}
	if sum.BlockersAdded, err = queryAll(q, scanBlocker, `SELECT `+blockerCols+` FROM blockers
		WHERE created_at >= ? AND created_at < ? ORDER BY created_at, id`, from, to); err != nil {
		return nil, fmt.Errorf("summary blockers: %w", err)
	}
	if sum.BlockersResolved, err = queryAll(q, scanBlocker, `SELECT `+blockerCols+` FROM blockers
		WHERE status = 'resolved' AND resolved_at >= ? AND resolved_at < ? ORDER BY resolved_at, id`, from, to); err != nil {
		return nil, fmt.Errorf("summary blockers: %w", err)
	}
	if sum.Notes, err = queryAll(q, scanNote, `SELECT `+noteCols+` FROM context_notes
		WHERE created_at >= ? AND created_at < ? ORDER BY created_at, id`, from, to); err != nil {
		return nil, fmt.Errorf("summary notes: %w", err)
	}
	if sum.Questions, err = queryAll(q, scanQuestion, `SELECT `+questionCols+` FROM questions
		WHERE created_at >= ? AND created_at < ? ORDER BY created_at, id`, from, to); err != nil {
		return nil, fmt.Errorf("summary questions: %w", err)
	}
	if sum.Commits, err = commitsBetween(q, s.StartedAt, end); err != nil {
		return nil, fmt.Errorf("summary commits: %w", err)
	}

	sum.Counts = models.SummaryCounts{
		Decisions:        len(sum.Decisions),
		TasksCompleted:   len(sum.TasksCompleted),
		TasksInProgress:  len(sum.TasksInProgress),
		TasksAdded:       len(sum.TasksAdded),
		BlockersAdded:    len(sum.BlockersAdded),
		BlockersResolved: len(sum.BlockersResolved),
		Notes:            len(sum.Notes),
		Questions:        len(sum.Questions),
		Commits:          len(sum.Commits),
	}
	return sum, nil
}

// SessionSummary returns the stored structured summary of an ended session,
// or a live one for the active session.
func (db *DB) SessionSummary(id int64) (*models.StructuredSummary, error) {
	s, err := db.GetSession(id)
	if err != nil {
		return nil, err
	}
	if s.IsActive() {
		return buildSummary(db.conn, s, db.clock())
	}
	if len(s.StructuredSummary) == 0 {
		return buildSummary(db.conn, s, *s.EndedAt)
	}
	var sum models.StructuredSummary
	if err := json.Unmarshal(s.StructuredSummary, &sum); err != nil {
		return nil, fmt.Errorf("decode summary of session #%d: %w", id, err)
	}
	return &sum, nil
}
