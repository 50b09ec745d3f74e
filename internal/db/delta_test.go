package db

import (
	"errors"
	"testing"
	"time"

	"github.com/marcus/proj/internal/models"
)

func TestDeltaSinceLastCheck(t *testing.T) {
	db, _ := newTestDB(t)

	first, err := db.Delta()
	if err != nil {
		t.Fatalf("Delta: %v", err)
	}
	if !first.FirstCheck || !first.Empty() {
		t.Fatalf("fresh session should be a first, empty check: %+v", first)
	}

	blocker, _ := db.LogBlocker("waiting on review")
	if _, err := db.LogDecision(DecisionInput{Topic: "db", Decision: "use sqlite"}); err != nil {
		t.Fatal(err)
	}
	if _, err := db.AddTask("write the migration", models.PriorityHigh); err != nil {
		t.Fatal(err)
	}

	d, err := db.Delta()
	if err != nil {
		t.Fatal(err)
	}
	if d.FirstCheck {
		t.Error("second check should not be a first check")
	}
	if len(d.Decisions) != 1 || len(d.Tasks) != 1 || len(d.Blockers) != 1 {
		t.Errorf("expected one decision, task and blocker, got %+v", d)
	}
	if d.Counts.ActiveTasks != 1 || d.Counts.ActiveBlockers != 1 || d.Counts.ActiveDecisions != 1 {
		t.Errorf("unexpected counts: %+v", d.Counts)
	}

	again, err := db.Delta()
	if err != nil {
		t.Fatal(err)
	}
	if !again.Empty() {
		t.Errorf("nothing changed since the last check: %+v", again)
	}

	if err := db.ResolveBlocker(blocker, "approved"); err != nil {
		t.Fatal(err)
	}
	d, err = db.Delta()
	if err != nil {
		t.Fatal(err)
	}
	if len(d.Blockers) != 1 || d.Blockers[0].Status != models.BlockerResolved {
		t.Errorf("resolution should show up as a change: %+v", d.Blockers)
	}
	if d.Counts.ActiveBlockers != 0 {
		t.Errorf("active blockers = %d, want 0", d.Counts.ActiveBlockers)
	}
}

func TestStatusMarksContextShown(t *testing.T) {
	db, _ := newTestDB(t)

	if _, err := db.LogNote(models.NoteGoal, "ship", "ship the store"); err != nil {
		t.Fatal(err)
	}
	before, err := db.GetActiveSession()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Status(); err != nil {
		t.Fatal(err)
	}

	d, err := db.Delta()
	if err != nil {
		t.Fatal(err)
	}
	if d.FirstCheck || !d.Empty() {
		t.Errorf("status already showed the note, delta should be empty: %+v", d)
	}

	after, err := db.GetActiveSession()
	if err != nil {
		t.Fatal(err)
	}
	if !after.LastActivityAt.Equal(before.LastActivityAt) {
		t.Errorf("checking context should not count as activity: %v -> %v", before.LastActivityAt, after.LastActivityAt)
	}
}

func TestStaleItems(t *testing.T) {
	db, clock := newTestDB(t)

	oldBlocker, _ := db.LogBlocker("vendor contract")
	oldQuestion, _ := db.LogQuestion("which region?", "")
	oldTask, _ := db.AddTask("tidy docs", models.PriorityLow)
	started, _ := db.AddTask("in flight", models.PriorityNormal)
	if _, err := db.UpdateTaskStatus(started, models.TaskInProgress, ""); err != nil {
		t.Fatal(err)
	}

	clock.Advance(40 * 24 * time.Hour)
	db.LogBlocker("fresh blocker")
	db.AddTask("fresh task", models.PriorityNormal)

	stale, err := db.StaleItems(30)
	if err != nil {
		t.Fatalf("StaleItems: %v", err)
	}
	if len(stale.Blockers) != 1 || stale.Blockers[0].ID != oldBlocker {
		t.Errorf("stale blockers = %+v, want B%d", stale.Blockers, oldBlocker)
	}
	if len(stale.Questions) != 1 || stale.Questions[0].ID != oldQuestion {
		t.Errorf("stale questions = %+v, want Q%d", stale.Questions, oldQuestion)
	}
	if len(stale.Tasks) != 1 || stale.Tasks[0].ID != oldTask {
		t.Errorf("stale tasks = %+v, want only T%d", stale.Tasks, oldTask)
	}
	if stale.Total() != 3 {
		t.Errorf("Total = %d, want 3", stale.Total())
	}

	if fresh, _ := db.StaleItems(60); fresh.Total() != 0 {
		t.Errorf("nothing is older than 60 days, got %d", fresh.Total())
	}
	if _, err := db.StaleItems(0); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("zero days should be ErrInvalidInput, got %v", err)
	}
}
