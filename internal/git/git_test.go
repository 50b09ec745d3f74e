package git

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseShortstat(t *testing.T) {
	tests := []struct {
		line          string
		files, ins, d int
	}{
		{" 3 files changed, 10 insertions(+), 2 deletions(-)", 3, 10, 2},
		{" 1 file changed, 1 insertion(+)", 1, 1, 0},
		{" 2 files changed, 7 deletions(-)", 2, 0, 7},
		{"", 0, 0, 0},
	}
	for _, tt := range tests {
		f, i, d := ParseShortstat(tt.line)
		if f != tt.files || i != tt.ins || d != tt.d {
			t.Errorf("ParseShortstat(%q) = %d,%d,%d want %d,%d,%d", tt.line, f, i, d, tt.files, tt.ins, tt.d)
		}
	}
}

func TestParseLog(t *testing.T) {
	out := recordSep + "abc123full" + fieldSep + "abc123" + fieldSep + "Ada" + fieldSep + "add parser" + fieldSep + "2026-03-01T10:00:00+01:00\n\n" +
		" 2 files changed, 5 insertions(+)\n" +
		recordSep + "def456full" + fieldSep + "def456" + fieldSep + "Bob" + fieldSep + "empty commit" + fieldSep + "2026-02-28T09:00:00Z\n"

	commits, err := ParseLog(out)
	if err != nil {
		t.Fatalf("ParseLog: %v", err)
	}
	if len(commits) != 2 {
		t.Fatalf("got %d commits, want 2", len(commits))
	}
	c := commits[0]
	if c.Hash != "abc123full" || c.ShortHash != "abc123" || c.Author != "Ada" || c.Message != "add parser" {
		t.Errorf("unexpected commit: %+v", c)
	}
	if !c.CommittedAt.Equal(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("date = %v", c.CommittedAt)
	}
	if c.FilesChanged != 2 || c.Insertions != 5 || c.Deletions != 0 {
		t.Errorf("stats = %d/%d/%d", c.FilesChanged, c.Insertions, c.Deletions)
	}
	if commits[1].FilesChanged != 0 {
		t.Errorf("commit without stats should have zero files, got %d", commits[1].FilesChanged)
	}

	if _, err := ParseLog(recordSep + "only" + fieldSep + "two"); err == nil {
		t.Error("malformed record should fail")
	}
}

// initTestRepo creates a git repo with the given commits, oldest first
func initTestRepo(t *testing.T, messages ...string) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()

	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("%v: %s\n%s", args, err, out)
		}
	}
	run("init", "-b", "main")
	run("config", "user.name", "Test")
	run("config", "user.email", "test@test.com")
	run("config", "commit.gpgsign", "false")

	for i, msg := range messages {
		name := filepath.Join(dir, "file.txt")
		content := strings.Repeat("line\n", i+1)
		if err := os.WriteFile(name, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		run("add", ".")
		run("commit", "-m", msg)
	}
	return dir
}

func TestReaderLog(t *testing.T) {
	dir := initTestRepo(t, "first", "second", "third")
	r := NewReader(dir)
	ctx := context.Background()

	commits, err := r.Log(ctx, "", 0)
	if err != nil {
		t.Fatalf("Log: %v", err)
	}
	if len(commits) != 3 {
		t.Fatalf("got %d commits, want 3", len(commits))
	}
	if commits[0].Message != "third" || commits[2].Message != "first" {
		t.Errorf("log should be newest first: %q .. %q", commits[0].Message, commits[2].Message)
	}
	if commits[0].Insertions != 1 || commits[0].FilesChanged != 1 {
		t.Errorf("third commit stats = %+v", commits[0])
	}

	since, err := r.Log(ctx, commits[1].Hash, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(since) != 1 || since[0].Hash != commits[0].Hash {
		t.Errorf("since second should return only third, got %+v", since)
	}

	limited, err := r.Log(ctx, "0000000000000000000000000000000000000000", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 {
		t.Errorf("unknown since should fall back to limit, got %d", len(limited))
	}
}

func TestReaderEmptyRepoAndNonRepo(t *testing.T) {
	dir := initTestRepo(t)
	commits, err := NewReader(dir).Log(context.Background(), "", 10)
	if err != nil || len(commits) != 0 {
		t.Errorf("empty repo should yield nothing, got %v, %v", commits, err)
	}

	_, err = NewReader(t.TempDir()).Log(context.Background(), "", 10)
	if !errors.Is(err, ErrNotRepository) {
		t.Errorf("expected ErrNotRepository, got %v", err)
	}
}

func TestCommitAll(t *testing.T) {
	dir := initTestRepo(t, "first")
	r := NewReader(dir)
	ctx := context.Background()

	committed, err := r.CommitAll(ctx, "nothing")
	if err != nil || committed {
		t.Fatalf("clean tree should not commit, got %v, %v", committed, err)
	}

	if err := os.WriteFile(filepath.Join(dir, "notes.md"), []byte("x\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if changed, _ := r.HasChanges(ctx); !changed {
		t.Fatal("untracked file should count as a change")
	}
	committed, err = r.CommitAll(ctx, "session end")
	if err != nil || !committed {
		t.Fatalf("CommitAll = %v, %v", committed, err)
	}
	commits, err := r.Log(ctx, "", 1)
	if err != nil || len(commits) != 1 || commits[0].Message != "session end" {
		t.Errorf("latest commit = %+v, %v", commits, err)
	}

	if _, err := NewReader(t.TempDir()).HasChanges(ctx); !errors.Is(err, ErrNotRepository) {
		t.Errorf("expected ErrNotRepository, got %v", err)
	}
}
