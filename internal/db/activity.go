package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/marcus/proj/internal/models"
	"github.com/marcus/proj/internal/workflow"
)

// DecisionInput is a new decision to record
type DecisionInput struct {
	Topic     string
	Decision  string
	Rationale string
}

// logWrite runs fn inside the active session (opening one if needed) and
// records an activity entry for the row fn creates or changes.
func (db *DB) logWrite(action models.ActionType, summary string, fn func(q querier, sessionID int64, now string) (int64, error)) (int64, error) {
	var id int64
	err := db.withWriteTx(func(q querier) error {
		res, err := db.beginOrResume(q)
		if err != nil {
			return err
		}
		now := db.clock()
		id, err = fn(q, res.Session.ID, formatTime(now))
		if err != nil {
			return err
		}
		if err := insertActivity(q, res.Session.ID, action, id, summary, now); err != nil {
			return err
		}
		return touchSession(q, res.Session.ID, now)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func insertActivity(q querier, sessionID int64, action models.ActionType, actionID int64, summary string, now time.Time) error {
	_, err := q.ExecContext(bg, `INSERT INTO activity_log (session_id, action_type, action_id, summary, timestamp) VALUES (?, ?, ?, ?, ?)`,
		sessionID, string(action), actionID, truncate(summary, 200), formatTime(now))
	if err != nil {
		return fmt.Errorf("log activity: %w", err)
	}
	return nil
}

func activityCount(q querier, sessionID int64) (int, error) {
	var n int
	err := q.QueryRowContext(bg, `SELECT COUNT(*) FROM activity_log WHERE session_id = ?`, sessionID).Scan(&n)
	return n, err
}

// ListActivity returns a session's activity log in order
func (db *DB) ListActivity(sessionID int64) ([]models.ActivityEntry, error) {
	rows, err := db.conn.Query(`SELECT `+activityCols+` FROM activity_log WHERE session_id = ? ORDER BY id`, sessionID)
	return collect(rows, err, scanActivity)
}

func insertID(result sql.Result, err error) (int64, error) {
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return invalidInput("%s is required", field)
	}
	return nil
}

// truncate shortens s to at most n runes
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// LogDecision records a new active decision
func (db *DB) LogDecision(in DecisionInput) (int64, error) {
	if err := required("topic", in.Topic); err != nil {
		return 0, err
	}
	if err := required("decision", in.Decision); err != nil {
		return 0, err
	}
	return db.logWrite(models.ActionDecision, in.Topic+": "+in.Decision, func(q querier, sessionID int64, now string) (int64, error) {
		return insertID(q.ExecContext(bg, `INSERT INTO decisions (session_id, topic, decision, rationale, status, created_at) VALUES (?, ?, ?, ?, 'active', ?)`,
			sessionID, in.Topic, in.Decision, nullString(in.Rationale), now))
	})
}

// SupersedeDecision marks oldID superseded and records its replacement in
// one transaction. An empty topic inherits the old decision's topic.
func (db *DB) SupersedeDecision(oldID int64, in DecisionInput) (int64, error) {
	if err := required("decision", in.Decision); err != nil {
		return 0, err
	}
	summary := fmt.Sprintf("supersede #%d: %s", oldID, in.Decision)
	return db.logWrite(models.ActionDecision, summary, func(q querier, sessionID int64, now string) (int64, error) {
		old, err := getDecision(q, oldID)
		if err != nil {
			return 0, err
		}
		if old.Status == models.DecisionSuperseded {
			return 0, fmt.Errorf("%w: decision #%d is already superseded", ErrInvalidTransition, oldID)
		}
		topic := in.Topic
		if strings.TrimSpace(topic) == "" {
			topic = old.Topic
		}

		if _, err := q.ExecContext(bg, `UPDATE decisions SET status = 'superseded' WHERE id = ? AND status = 'active'`, oldID); err != nil {
			return 0, err
		}
		return insertID(q.ExecContext(bg, `INSERT INTO decisions (session_id, topic, decision, rationale, status, supersedes, created_at) VALUES (?, ?, ?, ?, 'active', ?, ?)`,
			sessionID, topic, in.Decision, nullString(in.Rationale), oldID, now))
	})
}

// GetDecision returns a decision by id
func (db *DB) GetDecision(id int64) (*models.Decision, error) {
	return getDecision(db.conn, id)
}

func getDecision(q querier, id int64) (*models.Decision, error) {
	d, err := scanDecision(q.QueryRowContext(bg, `SELECT `+decisionCols+` FROM decisions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("decision", id)
	}
	return d, err
}

// ListDecisions returns decisions newest first
func (db *DB) ListDecisions(includeSuperseded bool, limit int) ([]models.Decision, error) {
	return listDecisions(db.conn, includeSuperseded, limit)
}

func listDecisions(q querier, includeSuperseded bool, limit int) ([]models.Decision, error) {
	query := `SELECT ` + decisionCols + ` FROM decisions`
	if !includeSuperseded {
		query += ` WHERE status = 'active'`
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := q.QueryContext(bg, query)
	return collect(rows, err, scanDecision)
}

// DecisionHistory follows the supersede chain back from id, newest first
func (db *DB) DecisionHistory(id int64) ([]models.Decision, error) {
	var chain []models.Decision
	seen := map[int64]bool{}
	for id != 0 && !seen[id] {
		seen[id] = true
		d, err := db.GetDecision(id)
		if err != nil {
			return nil, err
		}
		chain = append(chain, *d)
		id = d.Supersedes
	}
	return chain, nil
}

// AddTask records a pending task
func (db *DB) AddTask(description string, priority models.Priority) (int64, error) {
	if err := required("description", description); err != nil {
		return 0, err
	}
	if priority == "" {
		priority = models.PriorityNormal
	}
	if !models.IsValidPriority(priority) {
		return 0, invalidInput("unknown priority %q", priority)
	}
	return db.logWrite(models.ActionTaskAdd, description, func(q querier, sessionID int64, now string) (int64, error) {
		return insertID(q.ExecContext(bg, `INSERT INTO tasks (session_id, description, priority, status, created_at, updated_at) VALUES (?, ?, ?, 'pending', ?, ?)`,
			sessionID, description, string(priority), now, now))
	})
}

// UpdateTaskStatus moves a task along the lifecycle. Notes, when given,
// replace the task's notes.
func (db *DB) UpdateTaskStatus(id int64, status models.TaskStatus, notes string) (*models.Task, error) {
	var updated *models.Task
	summary := fmt.Sprintf("task #%d -> %s", id, status)
	_, err := db.logWrite(models.ActionTaskUpdate, summary, func(q querier, _ int64, now string) (int64, error) {
		task, err := getTask(q, id)
		if err != nil {
			return 0, err
		}
		if err := workflow.DefaultMachine().Validate(id, task.Status, status); err != nil {
			return 0, err
		}

		var completed any
		if status == models.TaskCompleted {
			completed = now
		}
		newNotes := nullString(task.Notes)
		if notes != "" {
			newNotes = notes
		}
		if _, err := q.ExecContext(bg, `UPDATE tasks SET status = ?, notes = ?, updated_at = ?, completed_at = ? WHERE id = ?`,
			string(status), newNotes, now, completed, id); err != nil {
			return 0, err
		}
		updated, err = getTask(q, id)
		return id, err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// UpdateTaskDetails changes priority and/or notes without touching status.
// Empty arguments leave the field unchanged.
func (db *DB) UpdateTaskDetails(id int64, priority models.Priority, notes string) (*models.Task, error) {
	if priority == "" && notes == "" {
		return nil, invalidInput("nothing to update")
	}
	if priority != "" && !models.IsValidPriority(priority) {
		return nil, invalidInput("unknown priority %q", priority)
	}
	var updated *models.Task
	_, err := db.logWrite(models.ActionTaskUpdate, fmt.Sprintf("task #%d details", id), func(q querier, _ int64, now string) (int64, error) {
		task, err := getTask(q, id)
		if err != nil {
			return 0, err
		}
		if priority == "" {
			priority = task.Priority
		}
		if notes == "" {
			notes = task.Notes
		}
		if _, err := q.ExecContext(bg, `UPDATE tasks SET priority = ?, notes = ?, updated_at = ? WHERE id = ?`,
			string(priority), nullString(notes), now, id); err != nil {
			return 0, err
		}
		updated, err = getTask(q, id)
		return id, err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// GetTask returns a task by id
func (db *DB) GetTask(id int64) (*models.Task, error) {
	return getTask(db.conn, id)
}

func getTask(q querier, id int64) (*models.Task, error) {
	t, err := scanTask(q.QueryRowContext(bg, `SELECT `+taskCols+` FROM tasks WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("task", id)
	}
	return t, err
}

// ListTasks returns tasks in the given statuses (all when empty), most
// urgent first then oldest first
func (db *DB) ListTasks(statuses ...models.TaskStatus) ([]models.Task, error) {
	return listTasks(db.conn, statuses...)
}

const priorityOrder = `CASE priority WHEN 'urgent' THEN 0 WHEN 'high' THEN 1 WHEN 'normal' THEN 2 WHEN 'low' THEN 3 ELSE 4 END`

func listTasks(q querier, statuses ...models.TaskStatus) ([]models.Task, error) {
	query := `SELECT ` + taskCols + ` FROM tasks`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, s := range statuses {
			placeholders[i] = "?"
			args = append(args, string(s))
		}
		query += ` WHERE status IN (` + strings.Join(placeholders, ", ") + `)`
	}
	query += ` ORDER BY ` + priorityOrder + `, created_at, id`
	rows, err := q.QueryContext(bg, query, args...)
	return collect(rows, err, scanTask)
}

// ActiveTasks returns tasks that are not completed or cancelled
func (db *DB) ActiveTasks() ([]models.Task, error) {
	return listTasks(db.conn, models.TaskInProgress, models.TaskPending, models.TaskBlocked)
}

// LogBlocker records an active blocker
func (db *DB) LogBlocker(description string) (int64, error) {
	if err := required("description", description); err != nil {
		return 0, err
	}
	return db.logWrite(models.ActionBlocker, description, func(q querier, sessionID int64, now string) (int64, error) {
		return insertID(q.ExecContext(bg, `INSERT INTO blockers (session_id, description, status, created_at) VALUES (?, ?, 'active', ?)`,
			sessionID, description, now))
	})
}

// ResolveBlocker marks a blocker resolved. Resolving twice is rejected.
func (db *DB) ResolveBlocker(id int64, resolution string) error {
	_, err := db.logWrite(models.ActionBlockerResolve, fmt.Sprintf("blocker #%d resolved", id), func(q querier, _ int64, now string) (int64, error) {
		b, err := scanBlocker(q.QueryRowContext(bg, `SELECT `+blockerCols+` FROM blockers WHERE id = ?`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return 0, notFound("blocker", id)
		}
		if err != nil {
			return 0, err
		}
		if b.Status == models.BlockerResolved {
			return 0, fmt.Errorf("%w: blocker #%d is already resolved", ErrInvalidTransition, id)
		}
		_, err = q.ExecContext(bg, `UPDATE blockers SET status = 'resolved', resolution = ?, resolved_at = ? WHERE id = ?`,
			nullString(resolution), now, id)
		return id, err
	})
	return err
}

// ListBlockers returns blockers newest first, only active ones unless all
func (db *DB) ListBlockers(all bool) ([]models.Blocker, error) {
	return listBlockers(db.conn, all)
}

func listBlockers(q querier, all bool) ([]models.Blocker, error) {
	query := `SELECT ` + blockerCols + ` FROM blockers`
	if !all {
		query += ` WHERE status = 'active'`
	}
	query += ` ORDER BY created_at DESC, id DESC`
	rows, err := q.QueryContext(bg, query)
	return collect(rows, err, scanBlocker)
}

// LogNote records a context note
func (db *DB) LogNote(category models.NoteCategory, title, content string) (int64, error) {
	if category == "" {
		category = models.NoteGeneral
	}
	if !models.IsValidNoteCategory(category) {
		return 0, invalidInput("unknown note category %q", category)
	}
	if err := required("title", title); err != nil {
		return 0, err
	}
	if err := required("content", content); err != nil {
		return 0, err
	}
	return db.logWrite(models.ActionNote, title, func(q querier, sessionID int64, now string) (int64, error) {
		return insertID(q.ExecContext(bg, `INSERT INTO context_notes (session_id, category, title, content, created_at) VALUES (?, ?, ?, ?, ?)`,
			sessionID, string(category), title, content, now))
	})
}

// ListNotes returns context notes newest first
func (db *DB) ListNotes(limit int) ([]models.Note, error) {
	return listNotes(db.conn, limit)
}

func listNotes(q querier, limit int) ([]models.Note, error) {
	query := `SELECT ` + noteCols + ` FROM context_notes ORDER BY created_at DESC, id DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := q.QueryContext(bg, query)
	return collect(rows, err, scanNote)
}

// LogQuestion records an open question
func (db *DB) LogQuestion(question, context string) (int64, error) {
	if err := required("question", question); err != nil {
		return 0, err
	}
	return db.logWrite(models.ActionQuestion, question, func(q querier, sessionID int64, now string) (int64, error) {
		return insertID(q.ExecContext(bg, `INSERT INTO questions (session_id, question, context, answered, created_at) VALUES (?, ?, ?, 0, ?)`,
			sessionID, question, nullString(context), now))
	})
}

// AnswerQuestion marks a question answered. Answering twice is rejected.
func (db *DB) AnswerQuestion(id int64, answer string) error {
	if err := required("answer", answer); err != nil {
		return err
	}
	_, err := db.logWrite(models.ActionQuestionAnswer, fmt.Sprintf("question #%d answered", id), func(q querier, _ int64, now string) (int64, error) {
		qu, err := scanQuestion(q.QueryRowContext(bg, `SELECT `+questionCols+` FROM questions WHERE id = ?`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return 0, notFound("question", id)
		}
		if err != nil {
			return 0, err
		}
		if qu.Answered {
			return 0, fmt.Errorf("%w: question #%d is already answered", ErrInvalidTransition, id)
		}
		_, err = q.ExecContext(bg, `UPDATE questions SET answered = 1, answer = ?, answered_at = ? WHERE id = ?`, answer, now, id)
		return id, err
	})
	return err
}

// ListQuestions returns questions newest first, only open ones unless all
func (db *DB) ListQuestions(all bool) ([]models.Question, error) {
	return listQuestions(db.conn, all)
}

func listQuestions(q querier, all bool) ([]models.Question, error) {
	query := `SELECT ` + questionCols + ` FROM questions`
	if !all {
		query += ` WHERE answered = 0`
	}
	query += ` ORDER BY created_at DESC, id DESC`
	rows, err := q.QueryContext(bg, query)
	return collect(rows, err, scanQuestion)
}
