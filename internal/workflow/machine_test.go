package workflow

import (
	"errors"
	"strings"
	"testing"

	"github.com/marcus/proj/internal/models"
)

func TestTaskLifecycleScenarios(t *testing.T) {
	t.Run("typical task lifecycle", func(t *testing.T) {
		sm := DefaultMachine()

		if !sm.IsValidTransition(models.TaskPending, models.TaskInProgress) {
			t.Error("Should allow pending → in_progress")
		}
		if !sm.IsValidTransition(models.TaskInProgress, models.TaskCompleted) {
			t.Error("Should allow in_progress → completed")
		}
	})

	t.Run("blocked workflow", func(t *testing.T) {
		sm := DefaultMachine()

		for _, from := range []models.TaskStatus{models.TaskPending, models.TaskInProgress} {
			if !sm.IsValidTransition(from, models.TaskBlocked) {
				t.Errorf("Should allow %s → blocked", from)
			}
		}
		if !sm.IsValidTransition(models.TaskBlocked, models.TaskPending) {
			t.Error("Should allow blocked → pending")
		}
		if !sm.IsValidTransition(models.TaskBlocked, models.TaskInProgress) {
			t.Error("Should allow blocked → in_progress")
		}
	})

	t.Run("any non-terminal state can be cancelled", func(t *testing.T) {
		sm := DefaultMachine()
		for _, from := range []models.TaskStatus{models.TaskPending, models.TaskInProgress, models.TaskBlocked} {
			if !sm.IsValidTransition(from, models.TaskCancelled) {
				t.Errorf("Should allow %s → cancelled", from)
			}
		}
	})
}

// TestTransitionClosure checks every pair: only enumerated edges pass
func TestTransitionClosure(t *testing.T) {
	sm := DefaultMachine()
	allowed := make(map[Transition]bool)
	for _, tr := range AllTransitions() {
		allowed[tr] = true
	}

	for _, from := range models.TaskStatuses() {
		for _, to := range models.TaskStatuses() {
			err := sm.Validate(7, from, to)
			if allowed[Transition{From: from, To: to}] {
				if err != nil {
					t.Errorf("%s → %s should be allowed, got %v", from, to, err)
				}
				continue
			}
			if err == nil {
				t.Errorf("%s → %s should be rejected", from, to)
				continue
			}
			if !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("%s → %s: error should match ErrInvalidTransition, got %v", from, to, err)
			}
		}
	}
}

func TestTerminalStatesHaveNoExits(t *testing.T) {
	for _, s := range []models.TaskStatus{models.TaskCompleted, models.TaskCancelled} {
		if targets := GetTransitionsFrom(s); len(targets) != 0 {
			t.Errorf("%s should be terminal, has exits %v", s, targets)
		}
	}
}

func TestTransitionErrorMessage(t *testing.T) {
	err := DefaultMachine().Validate(3, models.TaskCompleted, models.TaskInProgress)
	if err == nil {
		t.Fatal("expected error")
	}
	var te *TransitionError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TransitionError, got %T", err)
	}
	if te.From != models.TaskCompleted || te.To != models.TaskInProgress {
		t.Errorf("unexpected from/to: %s → %s", te.From, te.To)
	}
	msg := err.Error()
	for _, want := range []string{"#3", "completed", "in_progress", "terminal"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q should contain %q", msg, want)
		}
	}
}

func TestValidateUnknownStatus(t *testing.T) {
	err := DefaultMachine().Validate(1, models.TaskPending, "done")
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if !strings.Contains(err.Error(), `unknown status "done"`) {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestTransitionName(t *testing.T) {
	tests := []struct {
		from, to models.TaskStatus
		want     string
	}{
		{models.TaskPending, models.TaskInProgress, "start"},
		{models.TaskInProgress, models.TaskCompleted, "complete"},
		{models.TaskBlocked, models.TaskCancelled, "cancel"},
		{models.TaskPending, models.TaskBlocked, "block"},
		{models.TaskBlocked, models.TaskPending, "unblock"},
	}
	for _, tt := range tests {
		if got := TransitionName(tt.from, tt.to); got != tt.want {
			t.Errorf("TransitionName(%s, %s) = %q, want %q", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestGetTransitionsTo(t *testing.T) {
	sources := GetTransitionsTo(models.TaskCompleted)
	if len(sources) != 1 || sources[0] != models.TaskInProgress {
		t.Errorf("completed should only be reachable from in_progress, got %v", sources)
	}
}

func TestTransitionErrorNamesRoute(t *testing.T) {
	err := DefaultMachine().Validate(7, models.TaskPending, models.TaskCompleted)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	msg := err.Error()
	for _, want := range []string{"allowed from pending: in_progress, blocked, cancelled", "completed is reached from in_progress"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q should contain %q", msg, want)
		}
	}
}
