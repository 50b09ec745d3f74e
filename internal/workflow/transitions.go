package workflow

import (
	"github.com/marcus/proj/internal/models"
)

// Transition is one allowed edge of the task state machine
type Transition struct {
	From models.TaskStatus
	To   models.TaskStatus
}

// AllTransitions returns all valid task status transitions.
// completed and cancelled are terminal and have no outgoing edges.
func AllTransitions() []Transition {
	return []Transition{
		// From pending
		{From: models.TaskPending, To: models.TaskInProgress},
		{From: models.TaskPending, To: models.TaskBlocked},
		{From: models.TaskPending, To: models.TaskCancelled},

		// From in_progress
		{From: models.TaskInProgress, To: models.TaskCompleted},
		{From: models.TaskInProgress, To: models.TaskBlocked},
		{From: models.TaskInProgress, To: models.TaskCancelled},

		// From blocked
		{From: models.TaskBlocked, To: models.TaskPending},
		{From: models.TaskBlocked, To: models.TaskInProgress},
		{From: models.TaskBlocked, To: models.TaskCancelled},
	}
}

// TransitionName returns a human-readable name for the transition
func TransitionName(from, to models.TaskStatus) string {
	switch {
	case from == models.TaskPending && to == models.TaskInProgress:
		return "start"
	case to == models.TaskCompleted:
		return "complete"
	case to == models.TaskCancelled:
		return "cancel"
	case to == models.TaskBlocked:
		return "block"
	case from == models.TaskBlocked:
		return "unblock"
	default:
		return string(from) + " → " + string(to)
	}
}

// GetTransitionsFrom returns all possible transitions from a given status
func GetTransitionsFrom(status models.TaskStatus) []models.TaskStatus {
	var targets []models.TaskStatus
	for _, t := range AllTransitions() {
		if t.From == status {
			targets = append(targets, t.To)
		}
	}
	return targets
}

// GetTransitionsTo returns all statuses that can transition to the given status
func GetTransitionsTo(status models.TaskStatus) []models.TaskStatus {
	var sources []models.TaskStatus
	for _, t := range AllTransitions() {
		if t.To == status {
			sources = append(sources, t.From)
		}
	}
	return sources
}
