package db

import (
	"errors"
	"testing"
	"time"

	"github.com/marcus/proj/internal/models"
)

func TestRankedSearchReturnsSupersededDecisions(t *testing.T) {
	db, _ := newTestDB(t)

	oldID, err := db.LogDecision(DecisionInput{Topic: "db", Decision: "use X", Rationale: "simple"})
	if err != nil {
		t.Fatal(err)
	}
	newID, err := db.SupersedeDecision(oldID, DecisionInput{Topic: "db", Decision: "use Y", Rationale: "faster"})
	if err != nil {
		t.Fatal(err)
	}

	results, err := db.Search("db", SearchOptions{Ranked: true})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected both decisions, got %+v", results)
	}
	if results[0].ID != newID || results[0].Body != "use Y" {
		t.Errorf("newer decision should rank first, got %+v", results[0])
	}
	if results[1].ID != oldID || results[1].Status != string(models.DecisionSuperseded) {
		t.Errorf("superseded decision should follow, got %+v", results[1])
	}
	if results[0].MatchField != "topic" {
		t.Errorf("match field = %q, want topic", results[0].MatchField)
	}
}

func TestRankedSearchPrefersStrongOldMatch(t *testing.T) {
	db, clock := newTestDB(t)

	strong, _ := db.LogDecision(DecisionInput{Topic: "auth", Decision: "use sessions"})
	clock.Advance(20 * 24 * time.Hour)
	weak, _ := db.LogNote(models.NoteGeneral, "misc", "we looked at auth providers")

	results, err := db.Search("auth", SearchOptions{Ranked: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %+v", results)
	}
	if results[0].Kind != KindDecision || results[0].ID != strong {
		t.Errorf("exact topic match should beat a fresher substring match: %+v", results)
	}
	if results[1].Kind != KindNote || results[1].ID != weak {
		t.Errorf("note should come second: %+v", results[1])
	}
	if results[0].Score <= results[1].Score {
		t.Errorf("scores not descending: %v, %v", results[0].Score, results[1].Score)
	}
}

func TestPlainSearchNewestFirst(t *testing.T) {
	db, _ := newTestDB(t)

	first, _ := db.LogNote(models.NoteConstraint, "cache limits", "cache must stay under 1GB")
	second, _ := db.LogDecision(DecisionInput{Topic: "caching", Decision: "use an LRU cache"})
	db.LogNote(models.NoteGeneral, "unrelated", "nothing here")
	if _, err := db.SyncCommits([]models.GitCommit{{Hash: "c1", Message: "add cache layer", CommittedAt: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)}}); err != nil {
		t.Fatal(err)
	}

	results, err := db.Search("cache", SearchOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %+v", results)
	}
	if results[0].Kind != KindDecision || results[0].ID != second {
		t.Errorf("newest hit should be first: %+v", results[0])
	}
	if results[1].Kind != KindNote || results[1].ID != first {
		t.Errorf("older note second: %+v", results[1])
	}
	if results[2].Kind != KindCommit || results[2].Ref != "c1" {
		t.Errorf("old commit last: %+v", results[2])
	}

	notesOnly, err := db.Search("cache", SearchOptions{Kinds: []string{KindNote}})
	if err != nil {
		t.Fatal(err)
	}
	if len(notesOnly) != 1 {
		t.Errorf("kind filter should leave 1 result, got %d", len(notesOnly))
	}
}

func TestRankedSearchFindsMatchBehindManyNewerRows(t *testing.T) {
	db, clock := newTestDB(t)

	id, err := db.LogDecision(DecisionInput{Topic: "zebra", Decision: "stripe the dashboard"})
	if err != nil {
		t.Fatal(err)
	}
	clock.Advance(24 * time.Hour)
	rawExec(t, db.baseDir, `WITH RECURSIVE n(i) AS (SELECT 1 UNION ALL SELECT i + 1 FROM n WHERE i < ?)
		INSERT INTO decisions (topic, decision, rationale, status, created_at)
		SELECT 'filler ' || i, 'nothing to see', 'none', 'active', ? FROM n`,
		candidateCap+100, formatTime(clock.Now()))

	for _, ranked := range []bool{true, false} {
		results, err := db.Search("zebra", SearchOptions{Ranked: ranked})
		if err != nil {
			t.Fatalf("Search(ranked=%v): %v", ranked, err)
		}
		if len(results) != 1 || results[0].ID != id {
			t.Errorf("ranked=%v: expected only D%d, got %+v", ranked, id, results)
		}
	}
}

func TestRankedSearchIgnoresHashNoise(t *testing.T) {
	db, _ := newTestDB(t)

	commits := []models.GitCommit{
		{Hash: "a1d2d3c4e5f60718293a4b5c6d7e8f9012345678", Message: "Fix typo in readme", CommittedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)},
		{Hash: "ffeeddccbbaa00112233445566778899aabbccdd", Message: "Add cache layer", CommittedAt: time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)},
	}
	if _, err := db.SyncCommits(commits); err != nil {
		t.Fatal(err)
	}

	results, err := db.Search("add", SearchOptions{Ranked: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Title != "Add cache layer" {
		t.Fatalf("only the message match should be returned, got %+v", results)
	}

	byHash, err := db.Search("a1d2d3c", SearchOptions{Ranked: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(byHash) != 1 || byHash[0].MatchField != "hash" {
		t.Fatalf("hash prefix should find the commit, got %+v", byHash)
	}

	infix, err := db.Search("d2d3c4", SearchOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(infix) != 0 {
		t.Errorf("plain search should match hashes by prefix only, got %+v", infix)
	}
}

func TestSearchLimitAndLiteralPattern(t *testing.T) {
	db, _ := newTestDB(t)
	for i := 0; i < 5; i++ {
		db.LogNote(models.NoteGeneral, "coverage", "raise to 80% soon")
	}
	db.LogNote(models.NoteGeneral, "other", "raise to 80 later")

	results, err := db.Search("80%", SearchOptions{Limit: 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Errorf("limit not applied: %d results", len(results))
	}
	for _, r := range results {
		if r.Body != "raise to 80% soon" {
			t.Errorf("%% must match literally, got %q", r.Body)
		}
	}

	if _, err := db.Search("  ", SearchOptions{}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("blank query should be ErrInvalidInput, got %v", err)
	}
}

func TestStatusAndResumeSnapshots(t *testing.T) {
	db, _ := newTestDB(t)
	db.AddTask("task a", models.PriorityLow)
	db.LogBlocker("need creds")
	db.LogDecision(DecisionInput{Topic: "lang", Decision: "go"})
	db.LogQuestion("who owns deploys?", "")
	db.LogNote(models.NoteGoal, "v1", "ship v1")

	snap, err := db.Status()
	if err != nil {
		t.Fatal(err)
	}
	if snap.Project.Name != "demo" || snap.Project.SchemaVersion != SchemaVersion {
		t.Errorf("project = %+v", snap.Project)
	}
	if snap.CurrentSession == nil || len(snap.ActiveTasks) != 1 || len(snap.ActiveBlockers) != 1 || len(snap.RecentDecisions) != 1 {
		t.Errorf("unexpected status snapshot: %+v", snap)
	}
	if snap.OpenQuestions != nil || snap.ContextNotes != nil {
		t.Error("status should not include resume-only sections")
	}
	if snap.LastSession != nil {
		t.Errorf("no session has ended yet, got %+v", snap.LastSession)
	}

	resume, err := db.ResumeContext()
	if err != nil {
		t.Fatal(err)
	}
	if len(resume.OpenQuestions) != 1 || len(resume.ContextNotes) != 1 {
		t.Errorf("resume should include questions and notes: %+v", resume)
	}
	if resume.CurrentSession.ID != snap.CurrentSession.ID {
		t.Error("resume should reuse the active session")
	}
}

func TestExport(t *testing.T) {
	db, _ := newTestDB(t)
	old, _ := db.LogDecision(DecisionInput{Topic: "db", Decision: "x"})
	db.SupersedeDecision(old, DecisionInput{Decision: "y"})
	db.AddTask("t", "")

	data, err := db.Export()
	if err != nil {
		t.Fatal(err)
	}
	if len(data.Decisions) != 2 || len(data.Tasks) != 1 || len(data.Sessions) != 1 {
		t.Errorf("export = %+v", data)
	}
	if data.Commits == nil || data.Questions == nil {
		t.Error("empty collections should export as empty lists")
	}
}
