package cmd

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/marcus/proj/internal/db"
	"github.com/marcus/proj/internal/output"
	"github.com/marcus/proj/internal/workflow"
)

// resetFlags puts every flag in the command tree back to its default so
// tests can run commands one after another in one process.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		switch v := f.Value.(type) {
		case *enumValue:
			v.value = f.DefValue
		case pflag.SliceValue:
			v.Replace(nil)
		default:
			f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// run executes the CLI in dir and returns stdout, stderr and the error
func run(t *testing.T, dir string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	output.Stdout, output.Stderr = &stdout, &stderr
	output.SetColor(false)
	t.Cleanup(func() {
		output.Stdout, output.Stderr = os.Stdout, os.Stderr
	})

	resetFlags(rootCmd)
	rootCmd.SetArgs(append(args, "--dir", dir))
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	_, err := rootCmd.ExecuteC()
	return stdout.String(), stderr.String(), err
}

func newProject(t *testing.T) string {
	t.Helper()
	t.Setenv("PROJ_HOME", t.TempDir())
	dir := t.TempDir()
	if _, stderr, err := run(t, dir, "init", "--name", "demo", "--type", "go"); err != nil {
		t.Fatalf("init: %v\n%s", err, stderr)
	}
	return dir
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitOK},
		{"not initialized", fmt.Errorf("open: %w", db.ErrNotInitialized), exitNotInit},
		{"schema ahead", &db.SchemaVersionError{Stored: 9, Supported: 7}, exitSchema},
		{"locked", db.ErrStoreLocked, exitLocked},
		{"integrity", &db.IntegrityError{Problems: []string{"x"}}, exitIntegrity},
		{"no active session", db.ErrNoActiveSession, exitUsage},
		{"transition", &workflow.TransitionError{}, exitUsage},
		{"not found", db.ErrNotFound, exitError},
		{"reported wrapper", &reportedError{err: db.ErrStoreLocked}, exitLocked},
		{"other", errors.New("boom"), exitError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
	if got := errorCode(db.ErrNoActiveSession); got != "no_active_session" {
		t.Errorf("errorCode = %q, want no_active_session", got)
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		arg     string
		want    int64
		wantErr bool
	}{
		{"12", 12, false},
		{"#7", 7, false},
		{"D3", 3, false},
		{"d3", 3, false},
		{"T3", 0, true},
		{"0", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		got, err := parseID(tt.arg, "D")
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("parseID(%q) = %d, %v", tt.arg, got, err)
		}
		if err != nil && !errors.Is(err, db.ErrInvalidInput) {
			t.Errorf("parseID(%q) error should be ErrInvalidInput", tt.arg)
		}
	}
}

func TestEnumValue(t *testing.T) {
	v := newEnum("normal", "low", "normal", "high")
	if err := v.Set(" HIGH "); err != nil || v.String() != "high" {
		t.Errorf("Set(HIGH) = %v, value %q", err, v.String())
	}
	if err := v.Set("critical"); err == nil {
		t.Error("unknown choice should be rejected")
	}
	if v.String() != "high" {
		t.Errorf("rejected value changed state to %q", v.String())
	}
}

func TestCommandsNotInitialized(t *testing.T) {
	t.Setenv("PROJ_HOME", t.TempDir())
	_, stderr, err := run(t, t.TempDir(), "status")
	if exitCode(err) != exitNotInit {
		t.Fatalf("exit code = %d (%v), want %d", exitCode(err), err, exitNotInit)
	}
	if !reported(err) || !strings.Contains(stderr, "proj init") {
		t.Errorf("error should be printed once with a hint, stderr: %q", stderr)
	}
}

func TestInitTwiceRefused(t *testing.T) {
	dir := newProject(t)
	_, _, err := run(t, dir, "init")
	if !errors.Is(err, db.ErrInvalidInput) {
		t.Errorf("second init should fail with ErrInvalidInput, got %v", err)
	}
}

func TestSessionWorkflow(t *testing.T) {
	dir := newProject(t)

	if _, stderr, err := run(t, dir, "log", "decision", "db", "use sqlite", "-r", "no server"); err != nil {
		t.Fatalf("log decision: %v\n%s", err, stderr)
	}
	if _, _, err := run(t, dir, "log", "decision", "--supersedes", "D1", "use postgres"); err != nil {
		t.Fatalf("supersede: %v", err)
	}
	if _, _, err := run(t, dir, "task", "add", "write schema", "-p", "high"); err != nil {
		t.Fatalf("task add: %v", err)
	}
	if _, _, err := run(t, dir, "task", "update", "T1", "--status", "in_progress"); err != nil {
		t.Fatalf("task update: %v", err)
	}
	if _, _, err := run(t, dir, "task", "update", "1", "--status", "pending"); !errors.Is(err, db.ErrInvalidTransition) {
		t.Errorf("in_progress -> pending should be rejected, got %v", err)
	}
	if _, _, err := run(t, dir, "log", "note", "goal", "v1", "ship it"); err != nil {
		t.Fatalf("log note: %v", err)
	}

	stdout, _, err := run(t, dir, "status", "--json")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var snap db.StatusSnapshot
	if err := json.Unmarshal([]byte(stdout), &snap); err != nil {
		t.Fatalf("status --json is not JSON: %v\n%s", err, stdout)
	}
	if snap.Project.Name != "demo" || len(snap.ActiveTasks) != 1 || len(snap.RecentDecisions) != 1 {
		t.Errorf("unexpected snapshot: %+v", snap)
	}

	stdout, _, err = run(t, dir, "context", "postgres", "--json")
	if err != nil {
		t.Fatalf("context: %v", err)
	}
	var results []db.SearchResult
	if err := json.Unmarshal([]byte(stdout), &results); err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Ref != "D2" {
		t.Errorf("search results = %+v", results)
	}

	stdout, _, err = run(t, dir, "decision", "history", "D2")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(stdout, "D2: db: use postgres [active]") || !strings.Contains(stdout, "└── D1: db: use sqlite [superseded]") {
		t.Errorf("history output:\n%s", stdout)
	}

	stdout, _, err = run(t, dir, "session", "end", "picked a database")
	if err != nil {
		t.Fatalf("session end: %v", err)
	}
	if !strings.Contains(stdout, "Ended session #1") {
		t.Errorf("session end output:\n%s", stdout)
	}
	backups, _ := filepath.Glob(filepath.Join(os.Getenv("PROJ_HOME"), "backups", "*.db"))
	if len(backups) != 1 {
		t.Errorf("auto backup should leave one file, found %v", backups)
	}

	_, _, err = run(t, dir, "session", "end", "again")
	if !errors.Is(err, db.ErrNoActiveSession) || exitCode(err) != exitUsage {
		t.Errorf("ending twice = %v (exit %d)", err, exitCode(err))
	}
}

func TestSessionEndEmptyNeedsForce(t *testing.T) {
	dir := newProject(t)
	if _, _, err := run(t, dir, "session", "start"); err != nil {
		t.Fatal(err)
	}
	_, _, err := run(t, dir, "session", "end", "nothing")
	if !errors.Is(err, db.ErrEmptySessionSummary) {
		t.Fatalf("expected ErrEmptySessionSummary, got %v", err)
	}
	stdout, stderr, err := run(t, dir, "session", "end", "--force")
	if err != nil {
		t.Fatalf("forced end: %v", err)
	}
	if !strings.Contains(stdout, "Ended session") || !strings.Contains(stderr, "nothing was captured") {
		t.Errorf("forced end output:\nstdout: %s\nstderr: %s", stdout, stderr)
	}
}

func TestJSONErrors(t *testing.T) {
	dir := newProject(t)
	stdout, _, err := run(t, dir, "blocker", "resolve", "B9", "--json")
	if !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	var payload map[string]string
	if err := json.Unmarshal([]byte(stdout), &payload); err != nil {
		t.Fatalf("error output is not JSON: %v\n%s", err, stdout)
	}
	if payload["code"] != "not_found" {
		t.Errorf("code = %q, want not_found", payload["code"])
	}
}

func TestMigrateDryRunAndCheck(t *testing.T) {
	dir := newProject(t)

	stdout, _, err := run(t, dir, "migrate", "--dry-run", "--json")
	if err != nil {
		t.Fatalf("migrate --dry-run: %v", err)
	}
	var plan db.MigrationPlan
	if err := json.Unmarshal([]byte(stdout), &plan); err != nil {
		t.Fatal(err)
	}
	if plan.Current != db.SchemaVersion || len(plan.Pending) != 0 {
		t.Errorf("fresh project should need no migrations: %+v", plan)
	}

	stdout, _, err = run(t, dir, "check")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !strings.Contains(stdout, "No problems found") {
		t.Errorf("check output:\n%s", stdout)
	}
}

func TestExportFormats(t *testing.T) {
	dir := newProject(t)
	if _, _, err := run(t, dir, "log", "blocker", "waiting on review"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		format string
		want   string
	}{
		{"yaml", "description: waiting on review"},
		{"json", `"description": "waiting on review"`},
		{"md", "waiting on review"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			stdout, _, err := run(t, dir, "export", "--format", tt.format)
			if err != nil {
				t.Fatalf("export: %v", err)
			}
			if !strings.Contains(stdout, tt.want) {
				t.Errorf("%s export missing %q:\n%s", tt.format, tt.want, stdout)
			}
		})
	}

	if _, _, err := run(t, dir, "export", "--format", "csv"); err == nil {
		t.Error("unknown format should be rejected by the flag")
	}
}

func TestDeltaAfterStatus(t *testing.T) {
	dir := newProject(t)
	if _, _, err := run(t, dir, "status"); err != nil {
		t.Fatalf("status: %v", err)
	}

	stdout, _, err := run(t, dir, "delta")
	if err != nil {
		t.Fatalf("delta: %v", err)
	}
	if !strings.Contains(stdout, "No changes since") {
		t.Errorf("expected no changes right after status, got %q", stdout)
	}

	if _, _, err := run(t, dir, "task", "add", "wire the exporter"); err != nil {
		t.Fatalf("task add: %v", err)
	}
	stdout, _, err = run(t, dir, "delta", "--json")
	if err != nil {
		t.Fatalf("delta --json: %v", err)
	}
	var d db.Delta
	if err := json.Unmarshal([]byte(stdout), &d); err != nil {
		t.Fatalf("delta --json is not JSON: %v\n%s", err, stdout)
	}
	if len(d.Tasks) != 1 || d.Tasks[0].Description != "wire the exporter" || d.Counts.ActiveTasks != 1 {
		t.Errorf("unexpected delta: %+v", d)
	}
}

func TestCleanupStaleItems(t *testing.T) {
	dir := newProject(t)
	if _, _, err := run(t, dir, "log", "blocker", "waiting on vendor"); err != nil {
		t.Fatalf("log blocker: %v", err)
	}
	if _, _, err := run(t, dir, "task", "add", "old chore"); err != nil {
		t.Fatalf("task add: %v", err)
	}

	conn, err := sql.Open("sqlite", db.Path(dir))
	if err != nil {
		t.Fatal(err)
	}
	const long = "2020-01-01T00:00:00.000000000Z"
	for _, q := range []string{
		`UPDATE blockers SET created_at = '` + long + `'`,
		`UPDATE tasks SET created_at = '` + long + `', updated_at = '` + long + `'`,
	} {
		if _, err := conn.Exec(q); err != nil {
			t.Fatalf("backdate: %v", err)
		}
	}
	conn.Close()

	type cleanupResult struct {
		Stale            db.StaleItems `json:"stale"`
		ResolvedBlockers []int64       `json:"resolved_blockers"`
		CancelledTasks   []int64       `json:"cancelled_tasks"`
	}
	cleanup := func(args ...string) cleanupResult {
		t.Helper()
		stdout, stderr, err := run(t, dir, append([]string{"cleanup", "--json"}, args...)...)
		if err != nil {
			t.Fatalf("cleanup %v: %v\n%s", args, err, stderr)
		}
		var res cleanupResult
		if err := json.Unmarshal([]byte(stdout), &res); err != nil {
			t.Fatalf("cleanup --json is not JSON: %v\n%s", err, stdout)
		}
		return res
	}

	listed := cleanup()
	if listed.Stale.Total() != 2 || len(listed.ResolvedBlockers)+len(listed.CancelledTasks) != 0 {
		t.Errorf("without --auto cleanup should only list, got %+v", listed)
	}

	closed := cleanup("--auto")
	if len(closed.ResolvedBlockers) != 1 || len(closed.CancelledTasks) != 1 {
		t.Errorf("--auto should close both, got %+v", closed)
	}

	if after := cleanup(); after.Stale.Total() != 0 {
		t.Errorf("nothing should be stale after --auto, got %+v", after.Stale)
	}

	_, _, err = run(t, dir, "cleanup", "--stale-days", "0")
	if !errors.Is(err, db.ErrInvalidInput) || exitCode(err) != exitUsage {
		t.Errorf("zero stale days should be a usage error, got %v", err)
	}
}
