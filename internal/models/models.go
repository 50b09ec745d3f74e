package models

import (
	"encoding/json"
	"time"
)

// TaskStatus represents a task's lifecycle state
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskCancelled  TaskStatus = "cancelled"
	TaskBlocked    TaskStatus = "blocked"
)

// Priority represents a task priority
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

// DecisionStatus represents whether a decision still holds
type DecisionStatus string

const (
	DecisionActive     DecisionStatus = "active"
	DecisionSuperseded DecisionStatus = "superseded"
)

// BlockerStatus represents a blocker's state
type BlockerStatus string

const (
	BlockerActive   BlockerStatus = "active"
	BlockerResolved BlockerStatus = "resolved"
)

// NoteCategory classifies a context note
type NoteCategory string

const (
	NoteGoal        NoteCategory = "goal"
	NoteConstraint  NoteCategory = "constraint"
	NoteAssumption  NoteCategory = "assumption"
	NoteRequirement NoteCategory = "requirement"
	NoteGeneral     NoteCategory = "note"
)

// ClosedReason records how a session ended
type ClosedReason string

const (
	ClosedManual    ClosedReason = "manual"
	ClosedAutoStale ClosedReason = "auto-stale"
)

// ActionType is the kind of row an activity log entry points at
type ActionType string

const (
	ActionDecision       ActionType = "decision"
	ActionTaskAdd        ActionType = "task_add"
	ActionTaskUpdate     ActionType = "task_update"
	ActionBlocker        ActionType = "blocker"
	ActionBlockerResolve ActionType = "blocker_resolve"
	ActionNote           ActionType = "note"
	ActionQuestion       ActionType = "question"
	ActionQuestionAnswer ActionType = "question_answer"
)

// Session is one unit of work. At most one session has a nil EndedAt.
type Session struct {
	ID                int64           `json:"session_id"`
	StartedAt         time.Time       `json:"started_at"`
	EndedAt           *time.Time      `json:"ended_at,omitempty"`
	LastActivityAt    time.Time       `json:"last_activity_at"`
	Summary           string          `json:"summary,omitempty"`
	StructuredSummary json.RawMessage `json:"structured_summary,omitempty"`
	ClosedReason      ClosedReason    `json:"closed_reason,omitempty"`
}

// IsActive reports whether the session has not ended
func (s *Session) IsActive() bool {
	return s.EndedAt == nil
}

// Decision is an append-only record of a choice made
type Decision struct {
	ID         int64          `json:"decision_id"`
	SessionID  int64          `json:"session_id"`
	Topic      string         `json:"topic"`
	Decision   string         `json:"decision"`
	Rationale  string         `json:"rationale,omitempty"`
	Status     DecisionStatus `json:"status"`
	Supersedes int64          `json:"supersedes,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Task is a unit of pending work
type Task struct {
	ID          int64      `json:"task_id"`
	SessionID   int64      `json:"session_id"`
	Description string     `json:"description"`
	Priority    Priority   `json:"priority"`
	Status      TaskStatus `json:"status"`
	Notes       string     `json:"notes,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Blocker is something preventing progress
type Blocker struct {
	ID          int64         `json:"blocker_id"`
	SessionID   int64         `json:"session_id"`
	Description string        `json:"description"`
	Status      BlockerStatus `json:"status"`
	Resolution  string        `json:"resolution,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	ResolvedAt  *time.Time    `json:"resolved_at,omitempty"`
}

// Note is an immutable piece of project context
type Note struct {
	ID        int64        `json:"note_id"`
	SessionID int64        `json:"session_id"`
	Category  NoteCategory `json:"category"`
	Title     string       `json:"title"`
	Content   string       `json:"content"`
	CreatedAt time.Time    `json:"created_at"`
}

// Question is an open question; only the answered state changes
type Question struct {
	ID         int64      `json:"question_id"`
	SessionID  int64      `json:"session_id"`
	Question   string     `json:"question"`
	Context    string     `json:"context,omitempty"`
	Answer     string     `json:"answer,omitempty"`
	Answered   bool       `json:"answered"`
	CreatedAt  time.Time  `json:"created_at"`
	AnsweredAt *time.Time `json:"answered_at,omitempty"`
}

// GitCommit is a mirrored version-control commit, keyed by Hash
type GitCommit struct {
	Hash         string    `json:"hash"`
	ShortHash    string    `json:"short_hash"`
	Author       string    `json:"author"`
	Message      string    `json:"message"`
	CommittedAt  time.Time `json:"committed_at"`
	FilesChanged int       `json:"files_changed"`
	Insertions   int       `json:"insertions"`
	Deletions    int       `json:"deletions"`
}

// ActivityEntry is one row of the per-session activity log
type ActivityEntry struct {
	ID         int64      `json:"log_id"`
	SessionID  int64      `json:"session_id"`
	ActionType ActionType `json:"action_type"`
	ActionID   int64      `json:"action_id"`
	Summary    string     `json:"summary"`
	Timestamp  time.Time  `json:"timestamp"`
}

// IsValidTaskStatus checks if a task status is known
func IsValidTaskStatus(s TaskStatus) bool {
	switch s {
	case TaskPending, TaskInProgress, TaskCompleted, TaskCancelled, TaskBlocked:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed
func (s TaskStatus) IsTerminal() bool {
	return s == TaskCompleted || s == TaskCancelled
}

// IsValidPriority checks if a priority is known
func IsValidPriority(p Priority) bool {
	switch p {
	case PriorityUrgent, PriorityHigh, PriorityNormal, PriorityLow:
		return true
	}
	return false
}

// PriorityRank orders priorities, lower is more urgent
func PriorityRank(p Priority) int {
	switch p {
	case PriorityUrgent:
		return 0
	case PriorityHigh:
		return 1
	case PriorityNormal:
		return 2
	case PriorityLow:
		return 3
	}
	return 4
}

// IsValidNoteCategory checks if a note category is known
func IsValidNoteCategory(c NoteCategory) bool {
	switch c {
	case NoteGoal, NoteConstraint, NoteAssumption, NoteRequirement, NoteGeneral:
		return true
	}
	return false
}

// TaskStatuses returns all task statuses in lifecycle order
func TaskStatuses() []TaskStatus {
	return []TaskStatus{TaskPending, TaskInProgress, TaskBlocked, TaskCompleted, TaskCancelled}
}

// Priorities returns all priorities, most urgent first
func Priorities() []Priority {
	return []Priority{PriorityUrgent, PriorityHigh, PriorityNormal, PriorityLow}
}

// NoteCategories returns all note categories
func NoteCategories() []NoteCategory {
	return []NoteCategory{NoteGoal, NoteConstraint, NoteAssumption, NoteRequirement, NoteGeneral}
}
