package workflow

import (
	"fmt"

	"github.com/marcus/proj/internal/models"
)

// StateMachine validates task status changes against a transition table
type StateMachine struct {
	allowed map[models.TaskStatus]map[models.TaskStatus]bool
}

// New builds a state machine from the given transitions
func New(transitions []Transition) *StateMachine {
	sm := &StateMachine{allowed: make(map[models.TaskStatus]map[models.TaskStatus]bool)}
	for _, t := range transitions {
		if sm.allowed[t.From] == nil {
			sm.allowed[t.From] = make(map[models.TaskStatus]bool)
		}
		sm.allowed[t.From][t.To] = true
	}
	return sm
}

var defaultMachine = New(AllTransitions())

// DefaultMachine returns the task lifecycle state machine
func DefaultMachine() *StateMachine {
	return defaultMachine
}

// IsValidTransition checks whether from -> to is an allowed edge
func (sm *StateMachine) IsValidTransition(from, to models.TaskStatus) bool {
	return sm.allowed[from][to]
}

// Validate returns a *TransitionError when from -> to is not allowed
func (sm *StateMachine) Validate(taskID int64, from, to models.TaskStatus) error {
	if !models.IsValidTaskStatus(to) {
		return &TransitionError{
			From:   from,
			To:     to,
			TaskID: taskID,
			Reason: fmt.Sprintf("unknown status %q", to),
		}
	}
	if sm.IsValidTransition(from, to) {
		return nil
	}
	return &TransitionError{
		From:   from,
		To:     to,
		TaskID: taskID,
		Reason: reasonFor(from, to),
	}
}
