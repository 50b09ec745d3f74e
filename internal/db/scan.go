package db

import (
	"database/sql"
	"encoding/json"

	"github.com/marcus/proj/internal/models"
)

type rowScanner interface {
	Scan(dest ...any) error
}

const sessionCols = `id, started_at, ended_at, summary, structured_summary, closed_reason, last_activity_at`

func scanSession(r rowScanner) (*models.Session, error) {
	var s models.Session
	var started string
	var ended, summary, structured, reason, lastActivity sql.NullString
	if err := r.Scan(&s.ID, &started, &ended, &summary, &structured, &reason, &lastActivity); err != nil {
		return nil, err
	}
	s.StartedAt = parseTime(started)
	s.EndedAt = parseNullTime(ended)
	s.Summary = summary.String
	if structured.Valid && structured.String != "" {
		s.StructuredSummary = json.RawMessage(structured.String)
	}
	s.ClosedReason = models.ClosedReason(reason.String)
	s.LastActivityAt = s.StartedAt
	if t := parseNullTime(lastActivity); t != nil && t.After(s.StartedAt) {
		s.LastActivityAt = *t
	}
	return &s, nil
}

const decisionCols = `id, session_id, topic, decision, rationale, status, supersedes, created_at`

func scanDecision(r rowScanner) (*models.Decision, error) {
	var d models.Decision
	var session, supersedes sql.NullInt64
	var rationale sql.NullString
	var created string
	if err := r.Scan(&d.ID, &session, &d.Topic, &d.Decision, &rationale, &d.Status, &supersedes, &created); err != nil {
		return nil, err
	}
	d.SessionID = session.Int64
	d.Rationale = rationale.String
	d.Supersedes = supersedes.Int64
	d.CreatedAt = parseTime(created)
	return &d, nil
}

const taskCols = `id, session_id, description, priority, status, notes, created_at, updated_at, completed_at`

func scanTask(r rowScanner) (*models.Task, error) {
	var t models.Task
	var session sql.NullInt64
	var notes, completed sql.NullString
	var created, updated string
	if err := r.Scan(&t.ID, &session, &t.Description, &t.Priority, &t.Status, &notes, &created, &updated, &completed); err != nil {
		return nil, err
	}
	t.SessionID = session.Int64
	t.Notes = notes.String
	t.CreatedAt = parseTime(created)
	t.UpdatedAt = parseTime(updated)
	t.CompletedAt = parseNullTime(completed)
	return &t, nil
}

const blockerCols = `id, session_id, description, status, resolution, created_at, resolved_at`

func scanBlocker(r rowScanner) (*models.Blocker, error) {
	var b models.Blocker
	var session sql.NullInt64
	var resolution, resolved sql.NullString
	var created string
	if err := r.Scan(&b.ID, &session, &b.Description, &b.Status, &resolution, &created, &resolved); err != nil {
		return nil, err
	}
	b.SessionID = session.Int64
	b.Resolution = resolution.String
	b.CreatedAt = parseTime(created)
	b.ResolvedAt = parseNullTime(resolved)
	return &b, nil
}

const noteCols = `id, session_id, category, title, content, created_at`

func scanNote(r rowScanner) (*models.Note, error) {
	var n models.Note
	var session sql.NullInt64
	var created string
	if err := r.Scan(&n.ID, &session, &n.Category, &n.Title, &n.Content, &created); err != nil {
		return nil, err
	}
	n.SessionID = session.Int64
	n.CreatedAt = parseTime(created)
	return &n, nil
}

const questionCols = `id, session_id, question, context, answer, answered, created_at, answered_at`

func scanQuestion(r rowScanner) (*models.Question, error) {
	var q models.Question
	var session sql.NullInt64
	var context, answer, answeredAt sql.NullString
	var answered int
	var created string
	if err := r.Scan(&q.ID, &session, &q.Question, &context, &answer, &answered, &created, &answeredAt); err != nil {
		return nil, err
	}
	q.SessionID = session.Int64
	q.Context = context.String
	q.Answer = answer.String
	q.Answered = answered != 0
	q.CreatedAt = parseTime(created)
	q.AnsweredAt = parseNullTime(answeredAt)
	return &q, nil
}

const commitCols = `hash, short_hash, author, message, committed_at, files_changed, insertions, deletions`

func scanCommit(r rowScanner) (*models.GitCommit, error) {
	var c models.GitCommit
	var committed string
	if err := r.Scan(&c.Hash, &c.ShortHash, &c.Author, &c.Message, &committed, &c.FilesChanged, &c.Insertions, &c.Deletions); err != nil {
		return nil, err
	}
	c.CommittedAt = parseTime(committed)
	return &c, nil
}

const activityCols = `id, session_id, action_type, action_id, summary, timestamp`

func scanActivity(r rowScanner) (*models.ActivityEntry, error) {
	var a models.ActivityEntry
	var ts string
	if err := r.Scan(&a.ID, &a.SessionID, &a.ActionType, &a.ActionID, &a.Summary, &ts); err != nil {
		return nil, err
	}
	a.Timestamp = parseTime(ts)
	return &a, nil
}

// collect drains rows through scan into a non-nil slice
func collect[T any](rows *sql.Rows, err error, scan func(rowScanner) (*T, error)) ([]T, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

func queryAll[T any](q querier, scan func(rowScanner) (*T, error), query string, args ...any) ([]T, error) {
	rows, err := q.QueryContext(bg, query, args...)
	return collect(rows, err, scan)
}
