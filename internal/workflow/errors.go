package workflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/marcus/proj/internal/models"
)

// ErrInvalidTransition is matched by every TransitionError
var ErrInvalidTransition = errors.New("invalid transition")

// TransitionError represents an error when a transition is not allowed
type TransitionError struct {
	From   models.TaskStatus
	To     models.TaskStatus
	Reason string
	TaskID int64
}

func (e *TransitionError) Error() string {
	if e.TaskID != 0 {
		return fmt.Sprintf("cannot transition task #%d from %s to %s: %s", e.TaskID, e.From, e.To, e.Reason)
	}
	return fmt.Sprintf("cannot transition from %s to %s: %s", e.From, e.To, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidTransition) true
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// reasonFor explains why from -> to is rejected, naming the allowed targets
// and the statuses that do lead to the requested one
func reasonFor(from, to models.TaskStatus) string {
	if from == to {
		return "task is already " + string(from)
	}
	if from.IsTerminal() {
		return string(from) + " is terminal"
	}
	reason := "allowed from " + string(from) + ": " + joinStatuses(GetTransitionsFrom(from))
	if sources := GetTransitionsTo(to); len(sources) > 0 {
		reason += "; " + string(to) + " is reached from " + joinStatuses(sources)
	}
	return reason
}

func joinStatuses(statuses []models.TaskStatus) string {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}
