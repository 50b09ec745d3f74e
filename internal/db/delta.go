package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/marcus/proj/internal/models"
)

// Counts are the current totals of the tracked record kinds
type Counts struct {
	ActiveTasks     int `json:"active_tasks"`
	CompletedTasks  int `json:"completed_tasks"`
	ActiveBlockers  int `json:"active_blockers"`
	ActiveDecisions int `json:"active_decisions"`
	OpenQuestions   int `json:"open_questions"`
	Notes           int `json:"notes"`
}

// Delta is what changed since the current session last checked the project
// context, through status, resume or an earlier delta.
type Delta struct {
	Session *models.Session `json:"session"`
	// FirstCheck is set when this session has not seen the context yet;
	// Since is then the session start.
	FirstCheck  bool               `json:"first_check"`
	Since       time.Time          `json:"since"`
	Counts      Counts             `json:"counts"`
	Decisions   []models.Decision  `json:"decisions"`
	Tasks       []models.Task      `json:"tasks"`
	Blockers    []models.Blocker   `json:"blockers"`
	Questions   []models.Question  `json:"questions"`
	Notes       []models.Note      `json:"notes"`
	Commits     []models.GitCommit `json:"commits"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// Empty reports whether nothing changed
func (d *Delta) Empty() bool {
	return len(d.Decisions)+len(d.Tasks)+len(d.Blockers)+len(d.Questions)+len(d.Notes)+len(d.Commits) == 0
}

// Delta returns the records created or changed since the session's last
// context check and moves the check marker to now.
func (db *DB) Delta() (*Delta, error) {
	var d *Delta
	err := db.withWriteTx(func(q querier) error {
		res, err := db.beginOrResume(q)
		if err != nil {
			return err
		}
		d = &Delta{Session: res.Session, GeneratedAt: db.clock()}

		shown, err := contextShownAt(q, res.Session.ID)
		if err != nil {
			return err
		}
		d.Since = res.Session.StartedAt
		if shown == nil {
			d.FirstCheck = true
		} else {
			d.Since = *shown
		}
		since := formatTime(d.Since)

		if d.Counts, err = currentCounts(q); err != nil {
			return err
		}
		if d.Decisions, err = queryAll(q, scanDecision,
			`SELECT `+decisionCols+` FROM decisions WHERE created_at > ? ORDER BY created_at, id`, since); err != nil {
			return err
		}
		if d.Tasks, err = queryAll(q, scanTask,
			`SELECT `+taskCols+` FROM tasks WHERE updated_at > ? ORDER BY updated_at, id`, since); err != nil {
			return err
		}
		if d.Blockers, err = queryAll(q, scanBlocker,
			`SELECT `+blockerCols+` FROM blockers WHERE created_at > ? OR resolved_at > ? ORDER BY created_at, id`, since, since); err != nil {
			return err
		}
		if d.Questions, err = queryAll(q, scanQuestion,
			`SELECT `+questionCols+` FROM questions WHERE created_at > ? OR answered_at > ? ORDER BY created_at, id`, since, since); err != nil {
			return err
		}
		if d.Notes, err = queryAll(q, scanNote,
			`SELECT `+noteCols+` FROM context_notes WHERE created_at > ? ORDER BY created_at, id`, since); err != nil {
			return err
		}
		if d.Commits, err = queryAll(q, scanCommit,
			`SELECT `+commitCols+` FROM git_commits WHERE committed_at > ? ORDER BY committed_at, id`, since); err != nil {
			return err
		}
		return markContextShown(q, res.Session.ID, d.GeneratedAt)
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

func currentCounts(q querier) (Counts, error) {
	var c Counts
	err := q.QueryRowContext(bg, `SELECT
		(SELECT COUNT(*) FROM tasks WHERE status NOT IN ('completed', 'cancelled')),
		(SELECT COUNT(*) FROM tasks WHERE status = 'completed'),
		(SELECT COUNT(*) FROM blockers WHERE status = 'active'),
		(SELECT COUNT(*) FROM decisions WHERE status = 'active'),
		(SELECT COUNT(*) FROM questions WHERE answered = 0),
		(SELECT COUNT(*) FROM context_notes)`).
		Scan(&c.ActiveTasks, &c.CompletedTasks, &c.ActiveBlockers, &c.ActiveDecisions, &c.OpenQuestions, &c.Notes)
	if err != nil {
		return c, fmt.Errorf("count records: %w", err)
	}
	return c, nil
}

func contextShownAt(q querier, sessionID int64) (*time.Time, error) {
	var shown sql.NullString
	if err := q.QueryRowContext(bg, `SELECT context_shown_at FROM sessions WHERE id = ?`, sessionID).Scan(&shown); err != nil {
		return nil, fmt.Errorf("read context marker: %w", err)
	}
	return parseNullTime(shown), nil
}

// markContextShown records that the session saw the context at now.
// It is not activity, so last_activity_at stays put.
func markContextShown(q querier, sessionID int64, now time.Time) error {
	_, err := q.ExecContext(bg, `UPDATE sessions SET context_shown_at = ? WHERE id = ?`, formatTime(now), sessionID)
	return err
}

// StaleItems are open records nobody has touched for a while
type StaleItems struct {
	Days      int               `json:"stale_days"`
	Cutoff    time.Time         `json:"cutoff"`
	Blockers  []models.Blocker  `json:"blockers"`
	Questions []models.Question `json:"questions"`
	Tasks     []models.Task     `json:"tasks"`
}

// Total is the number of stale records
func (s *StaleItems) Total() int {
	return len(s.Blockers) + len(s.Questions) + len(s.Tasks)
}

// StaleItems lists active blockers and unanswered questions created more
// than days ago, and pending or blocked tasks not updated in that time.
func (db *DB) StaleItems(days int) (*StaleItems, error) {
	if days <= 0 {
		return nil, invalidInput("stale days must be positive, got %d", days)
	}
	s := &StaleItems{Days: days, Cutoff: db.clock().Add(-time.Duration(days) * 24 * time.Hour)}
	cutoff := formatTime(s.Cutoff)

	err := db.withReadTx(func(q querier) error {
		var err error
		if s.Blockers, err = queryAll(q, scanBlocker,
			`SELECT `+blockerCols+` FROM blockers WHERE status = 'active' AND created_at < ? ORDER BY created_at, id`, cutoff); err != nil {
			return err
		}
		if s.Questions, err = queryAll(q, scanQuestion,
			`SELECT `+questionCols+` FROM questions WHERE answered = 0 AND created_at < ? ORDER BY created_at, id`, cutoff); err != nil {
			return err
		}
		s.Tasks, err = queryAll(q, scanTask,
			`SELECT `+taskCols+` FROM tasks WHERE status IN ('pending', 'blocked') AND updated_at < ? ORDER BY updated_at, id`, cutoff)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}
