package models

import "time"

// StructuredSummary is the machine-readable record of what a session
// touched. Every list is present, possibly empty.
type StructuredSummary struct {
	SessionID        int64         `json:"session_id"`
	StartedAt        time.Time     `json:"started_at"`
	EndedAt          time.Time     `json:"ended_at"`
	Decisions        []Decision    `json:"decisions"`
	TasksCompleted   []Task        `json:"tasks_completed"`
	TasksInProgress  []Task        `json:"tasks_in_progress"`
	TasksAdded       []Task        `json:"tasks_added"`
	BlockersAdded    []Blocker     `json:"blockers_added"`
	BlockersResolved []Blocker     `json:"blockers_resolved"`
	Notes            []Note        `json:"notes"`
	Questions        []Question    `json:"questions"`
	Commits          []GitCommit   `json:"commits"`
	Counts           SummaryCounts `json:"counts"`
}

// SummaryCounts totals a StructuredSummary
type SummaryCounts struct {
	Decisions        int `json:"decisions"`
	TasksCompleted   int `json:"tasks_completed"`
	TasksInProgress  int `json:"tasks_in_progress"`
	TasksAdded       int `json:"tasks_added"`
	BlockersAdded    int `json:"blockers_added"`
	BlockersResolved int `json:"blockers_resolved"`
	Notes            int `json:"notes"`
	Questions        int `json:"questions"`
	Commits          int `json:"commits"`
}

// IsEmpty reports whether nothing happened in the session
func (c SummaryCounts) IsEmpty() bool {
	return c == SummaryCounts{}
}

// ProjectInfo is the project metadata shown in snapshots and exports
type ProjectInfo struct {
	Name          string `json:"name"`
	ProjectType   string `json:"project_type,omitempty"`
	Description   string `json:"description,omitempty"`
	Root          string `json:"root"`
	SchemaVersion int    `json:"schema_version"`
}

// ExportData is a full dump of the store
type ExportData struct {
	Project    ProjectInfo `json:"project"`
	ExportedAt time.Time   `json:"exported_at"`
	Sessions   []Session   `json:"sessions"`
	Decisions  []Decision  `json:"decisions"`
	Tasks      []Task      `json:"tasks"`
	Blockers   []Blocker   `json:"blockers"`
	Notes      []Note      `json:"notes"`
	Questions  []Question  `json:"questions"`
	Commits    []GitCommit `json:"commits"`
}
