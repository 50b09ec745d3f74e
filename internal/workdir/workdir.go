// Package workdir resolves the proj tracking root directory, supporting git
// worktree redirection via .proj-root files, and the per-user global directory.
package workdir

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const (
	rootFile = ".proj-root"
	// TrackingDir is the per-project directory holding the database and config
	TrackingDir = ".tracking"
)

// ResolveBaseDir resolves the project root with conservative heuristics:
//  1. Honor .proj-root in the current directory.
//  2. Use the nearest directory (current or ancestor) with a .tracking directory.
//  3. If inside git, check git root for .proj-root or .tracking.
//
// If no markers are found, it returns the original baseDir unchanged.
func ResolveBaseDir(baseDir string) string {
	if baseDir == "" {
		return baseDir
	}
	baseDir = filepath.Clean(baseDir)

	if resolved, ok := readRootFile(baseDir); ok {
		return resolved
	}
	if dir, ok := findTrackingAncestor(baseDir); ok {
		return dir
	}

	gitRoot, err := gitTopLevel(baseDir)
	if err != nil || gitRoot == "" {
		return baseDir
	}
	gitRoot = filepath.Clean(gitRoot)

	if resolved, ok := readRootFile(gitRoot); ok {
		return resolved
	}
	if hasTrackingDir(gitRoot) {
		return gitRoot
	}

	return baseDir
}

// IsInitialized reports whether dir contains a .tracking directory
func IsInitialized(dir string) bool {
	return hasTrackingDir(dir)
}

func readRootFile(dir string) (string, bool) {
	content, err := os.ReadFile(filepath.Join(dir, rootFile))
	if err != nil {
		return "", false
	}

	resolved := strings.TrimSpace(string(content))
	if resolved == "" {
		return "", false
	}
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(dir, resolved)
	}

	return filepath.Clean(resolved), true
}

func findTrackingAncestor(dir string) (string, bool) {
	for {
		if hasTrackingDir(dir) {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

func hasTrackingDir(dir string) bool {
	fi, err := os.Stat(filepath.Join(dir, TrackingDir))
	return err == nil && fi.IsDir()
}

func gitTopLevel(dir string) (string, error) {
	out, err := exec.Command("git", "-C", dir, "rev-parse", "--show-toplevel").Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
