package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/marcus/proj/internal/models"
)

// SessionResult is the outcome of BeginOrResumeSession
type SessionResult struct {
	Session *models.Session `json:"session"`
	// AutoClosed is the stale session closed on the way, if any
	AutoClosed *models.Session `json:"auto_closed,omitempty"`
	Created    bool            `json:"created"`
}

// EndResult is the outcome of EndSession
type EndResult struct {
	Session       *models.Session           `json:"session"`
	Summary       *models.StructuredSummary `json:"summary"`
	ActivityCount int                       `json:"activity_count"`
	// Advisory is set when a forced end captured nothing
	Advisory string `json:"advisory,omitempty"`
}

// BeginOrResumeSession returns the active session, first closing it as
// auto-stale when idle past the configured threshold. A new session is
// opened when none is active.
func (db *DB) BeginOrResumeSession() (*SessionResult, error) {
	var res *SessionResult
	err := db.withWriteTx(func(q querier) error {
		var err error
		res, err = db.beginOrResume(q)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// StartSession is BeginOrResumeSession under the name the CLI uses
func (db *DB) StartSession() (*SessionResult, error) {
	return db.BeginOrResumeSession()
}

func (db *DB) beginOrResume(q querier) (*SessionResult, error) {
	now := db.clock()

	active, err := activeSession(q)
	if err != nil {
		return nil, err
	}

	res := &SessionResult{}
	if active != nil {
		stale := db.cfg.StaleAfter()
		if stale <= 0 || now.Sub(active.LastActivityAt) <= stale {
			res.Session = active
			return res, nil
		}

		closed, err := db.closeSession(q, active, now, "", models.ClosedAutoStale)
		if err != nil {
			return nil, err
		}
		slog.Info("auto-closed stale session", "session", closed.ID, "idle", now.Sub(active.LastActivityAt).Round(time.Minute))
		res.AutoClosed = closed
	}

	created, err := createSession(q, now)
	if err != nil {
		return nil, err
	}
	res.Session = created
	res.Created = true
	return res, nil
}

func createSession(q querier, now time.Time) (*models.Session, error) {
	ts := formatTime(now)
	result, err := q.ExecContext(bg, `INSERT INTO sessions (started_at, last_activity_at, status) VALUES (?, ?, 'active')`, ts, ts)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &models.Session{ID: id, StartedAt: now, LastActivityAt: now}, nil
}

// closeSession ends s at now, storing its structured summary
func (db *DB) closeSession(q querier, s *models.Session, now time.Time, summary string, reason models.ClosedReason) (*models.Session, error) {
	structured, err := buildSummary(q, s, now)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(structured)
	if err != nil {
		return nil, fmt.Errorf("encode summary: %w", err)
	}

	result, err := q.ExecContext(bg, `UPDATE sessions
		SET ended_at = ?, status = 'ended', summary = ?, structured_summary = ?, closed_reason = ?
		WHERE id = ? AND ended_at IS NULL`,
		formatTime(now), nullString(summary), string(data), string(reason), s.ID)
	if err != nil {
		return nil, fmt.Errorf("close session: %w", err)
	}
	if n, _ := result.RowsAffected(); n != 1 {
		return nil, ErrNoActiveSession
	}

	closed := *s
	closed.EndedAt = &now
	closed.Summary = summary
	closed.StructuredSummary = data
	closed.ClosedReason = reason
	return &closed, nil
}

// EndSession closes the active session with a summary. A session with no
// logged activity is refused unless force is set, and so is an empty summary.
func (db *DB) EndSession(summary string, force bool) (*EndResult, error) {
	summary = strings.TrimSpace(summary)
	var res *EndResult

	err := db.withWriteTx(func(q querier) error {
		active, err := activeSession(q)
		if err != nil {
			return err
		}
		if active == nil {
			return ErrNoActiveSession
		}

		count, err := activityCount(q, active.ID)
		if err != nil {
			return err
		}
		if count == 0 && !force {
			return fmt.Errorf("%w: session #%d has no logged activity (use --force to end it anyway)", ErrEmptySessionSummary, active.ID)
		}
		if summary == "" && !force {
			return invalidInput("a session summary is required")
		}

		closed, err := db.closeSession(q, active, db.clock(), summary, models.ClosedManual)
		if err != nil {
			return err
		}

		var structured models.StructuredSummary
		if err := json.Unmarshal(closed.StructuredSummary, &structured); err != nil {
			return err
		}
		res = &EndResult{Session: closed, Summary: &structured, ActivityCount: count}
		if count == 0 {
			res.Advisory = "nothing was captured during this session"
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// GetActiveSession returns the active session, or nil when none is open
func (db *DB) GetActiveSession() (*models.Session, error) {
	return activeSession(db.conn)
}

func activeSession(q querier) (*models.Session, error) {
	row := q.QueryRowContext(bg, `SELECT `+sessionCols+` FROM sessions WHERE ended_at IS NULL ORDER BY id DESC LIMIT 1`)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active session: %w", err)
	}
	return s, nil
}

// GetSession returns a session by id
func (db *DB) GetSession(id int64) (*models.Session, error) {
	row := db.conn.QueryRow(`SELECT `+sessionCols+` FROM sessions WHERE id = ?`, id)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("session", id)
	}
	return s, err
}

// LastEndedSession returns the most recently ended session, or nil
func (db *DB) LastEndedSession() (*models.Session, error) {
	return lastEndedSession(db.conn)
}

func lastEndedSession(q querier) (*models.Session, error) {
	row := q.QueryRowContext(bg, `SELECT `+sessionCols+` FROM sessions WHERE ended_at IS NOT NULL ORDER BY ended_at DESC, id DESC LIMIT 1`)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

// ListSessions returns sessions newest first
func (db *DB) ListSessions(limit int) ([]models.Session, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`SELECT `+sessionCols+` FROM sessions ORDER BY id DESC LIMIT ?`, limit)
	return collect(rows, err, scanSession)
}

// touchSession records activity on the session, pushing back staleness
func touchSession(q querier, sessionID int64, now time.Time) error {
	_, err := q.ExecContext(bg, `UPDATE sessions SET last_activity_at = ? WHERE id = ?`, formatTime(now), sessionID)
	return err
}
