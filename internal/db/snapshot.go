package db

import (
	"time"

	"github.com/marcus/proj/internal/models"
)

const (
	recentDecisionLimit = 10
	recentCommitLimit   = 5
	resumeNoteLimit     = 10
)

// StatusSnapshot is the project state shown by status and resume
type StatusSnapshot struct {
	Project           models.ProjectInfo `json:"project"`
	CurrentSession    *models.Session    `json:"current_session"`
	AutoClosedSession *models.Session    `json:"auto_closed_session,omitempty"`
	LastSession       *models.Session    `json:"last_session"`
	ActiveBlockers    []models.Blocker   `json:"active_blockers"`
	ActiveTasks       []models.Task      `json:"active_tasks"`
	RecentDecisions   []models.Decision  `json:"recent_decisions"`
	RecentCommits     []models.GitCommit `json:"recent_commits"`
	OpenQuestions     []models.Question  `json:"open_questions,omitempty"`
	ContextNotes      []models.Note      `json:"context_notes,omitempty"`
	GeneratedAt       time.Time          `json:"generated_at"`
}

// ProjectInfo returns the project metadata from config and schema
func (db *DB) ProjectInfo() models.ProjectInfo {
	info := models.ProjectInfo{
		Name:          db.cfg.Name,
		ProjectType:   db.cfg.ProjectType,
		Description:   db.cfg.Description,
		Root:          db.baseDir,
		SchemaVersion: db.cfg.SchemaVersion,
	}
	if v, err := db.GetSchemaVersion(); err == nil {
		info.SchemaVersion = v
	}
	return info
}

// Status begins or resumes the session, then reads the project state and
// marks the context as shown for Delta. The current session is never one
// that was stale when called.
func (db *DB) Status() (*StatusSnapshot, error) {
	return db.snapshot(false)
}

// ResumeContext is Status plus open questions and recent context notes,
// the fuller picture for picking work back up.
func (db *DB) ResumeContext() (*StatusSnapshot, error) {
	return db.snapshot(true)
}

func (db *DB) snapshot(resume bool) (*StatusSnapshot, error) {
	snap := &StatusSnapshot{Project: db.ProjectInfo()}

	err := db.withWriteTx(func(q querier) error {
		res, err := db.beginOrResume(q)
		if err != nil {
			return err
		}
		snap.CurrentSession = res.Session
		snap.AutoClosedSession = res.AutoClosed
		snap.GeneratedAt = db.clock()

		if snap.LastSession, err = lastEndedSession(q); err != nil {
			return err
		}
		if snap.ActiveBlockers, err = listBlockers(q, false); err != nil {
			return err
		}
		if snap.ActiveTasks, err = listTasks(q, models.TaskInProgress, models.TaskPending, models.TaskBlocked); err != nil {
			return err
		}
		if snap.RecentDecisions, err = listDecisions(q, false, recentDecisionLimit); err != nil {
			return err
		}
		if snap.RecentCommits, err = recentCommits(q, recentCommitLimit); err != nil {
			return err
		}
		if resume {
			if snap.OpenQuestions, err = listQuestions(q, false); err != nil {
				return err
			}
			if snap.ContextNotes, err = listNotes(q, resumeNoteLimit); err != nil {
				return err
			}
		}
		return markContextShown(q, res.Session.ID, snap.GeneratedAt)
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}
