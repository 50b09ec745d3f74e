package workdir

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveBaseDir_TrackingInCurrentDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, TrackingDir), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	if got := ResolveBaseDir(dir); got != filepath.Clean(dir) {
		t.Errorf("ResolveBaseDir = %q, want %q", got, dir)
	}
}

func TestResolveBaseDir_TrackingInAncestor(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, TrackingDir), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	nested := filepath.Join(root, "src", "pkg")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("mkdir nested: %v", err)
	}

	if got := ResolveBaseDir(nested); got != filepath.Clean(root) {
		t.Errorf("ResolveBaseDir = %q, want %q", got, root)
	}
}

func TestResolveBaseDir_RootFileRedirect(t *testing.T) {
	main := t.TempDir()
	worktree := t.TempDir()
	if err := os.WriteFile(filepath.Join(worktree, rootFile), []byte(main+"\n"), 0644); err != nil {
		t.Fatalf("write root file: %v", err)
	}

	if got := ResolveBaseDir(worktree); got != filepath.Clean(main) {
		t.Errorf("ResolveBaseDir = %q, want %q", got, main)
	}
}

func TestResolveBaseDir_RelativeRootFile(t *testing.T) {
	parent := t.TempDir()
	worktree := filepath.Join(parent, "wt")
	if err := os.MkdirAll(worktree, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(worktree, rootFile), []byte("../main"), 0644); err != nil {
		t.Fatalf("write root file: %v", err)
	}

	want := filepath.Join(parent, "main")
	if got := ResolveBaseDir(worktree); got != want {
		t.Errorf("ResolveBaseDir = %q, want %q", got, want)
	}
}

func TestResolveBaseDir_Empty(t *testing.T) {
	if got := ResolveBaseDir(""); got != "" {
		t.Errorf("ResolveBaseDir(\"\") = %q, want empty", got)
	}
}

func TestGlobalDirHonorsEnv(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("PROJ_HOME", tmp)

	dir, err := GlobalDir()
	if err != nil {
		t.Fatalf("GlobalDir: %v", err)
	}
	if dir != filepath.Clean(tmp) {
		t.Errorf("GlobalDir = %q, want %q", dir, tmp)
	}

	backups, err := BackupsDir()
	if err != nil {
		t.Fatalf("BackupsDir: %v", err)
	}
	if backups != filepath.Join(tmp, "backups") {
		t.Errorf("BackupsDir = %q", backups)
	}
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "nested", "out.json")

	if err := WriteFileAtomic(target, []byte("one"), 0644); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteFileAtomic(target, []byte("two"), 0644); err != nil {
		t.Fatalf("second write: %v", err)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "two" {
		t.Errorf("content = %q, want %q", data, "two")
	}

	entries, err := os.ReadDir(filepath.Dir(target))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only target file, found %d entries", len(entries))
	}
}
