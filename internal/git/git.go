// Package git reads commit history from the git CLI for mirroring and
// commits tracking changes when auto-commit is enabled.
package git

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/marcus/proj/internal/models"
)

const (
	recordSep = "\x1e"
	fieldSep  = "\x1f"
	logFormat = "--format=" + recordSep + "%H" + fieldSep + "%h" + fieldSep + "%an" + fieldSep + "%s" + fieldSep + "%aI"
)

// ErrNotRepository is returned when the directory is not inside a work tree
var ErrNotRepository = errors.New("git: not a git repository")

// Reader runs git in a fixed directory
type Reader struct {
	Dir string
}

// NewReader returns a Reader for dir
func NewReader(dir string) *Reader {
	return &Reader{Dir: dir}
}

func (r *Reader) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.Dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("git %s: %s", args[0], strings.TrimSpace(string(out)))
	}
	return string(out), nil
}

// IsRepo reports whether Dir is inside a git work tree
func (r *Reader) IsRepo(ctx context.Context) bool {
	out, err := r.run(ctx, "rev-parse", "--is-inside-work-tree")
	return err == nil && strings.TrimSpace(out) == "true"
}

func (r *Reader) hasCommit(ctx context.Context, rev string) bool {
	_, err := r.run(ctx, "rev-parse", "--verify", "--quiet", rev+"^{commit}")
	return err == nil
}

// Log returns up to limit commits reachable from HEAD, newest first. When
// since names a known commit only commits after it are returned; an unknown
// since (rewritten history) falls back to the plain limit.
func (r *Reader) Log(ctx context.Context, since string, limit int) ([]models.GitCommit, error) {
	if !r.IsRepo(ctx) {
		return nil, ErrNotRepository
	}
	// A repository without commits has nothing to mirror
	if !r.hasCommit(ctx, "HEAD") {
		return nil, nil
	}

	args := []string{"log", logFormat, "--shortstat", "--no-color"}
	if limit > 0 {
		args = append(args, "-n", strconv.Itoa(limit))
	}
	if since != "" && r.hasCommit(ctx, since) {
		args = append(args, since+"..HEAD")
	} else {
		args = append(args, "HEAD")
	}

	out, err := r.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	return ParseLog(out)
}

// ParseLog parses output produced with logFormat and --shortstat
func ParseLog(out string) ([]models.GitCommit, error) {
	var commits []models.GitCommit
	for _, rec := range strings.Split(out, recordSep) {
		rec = strings.TrimSpace(rec)
		if rec == "" {
			continue
		}
		header, rest, _ := strings.Cut(rec, "\n")
		fields := strings.Split(header, fieldSep)
		if len(fields) != 5 {
			return nil, fmt.Errorf("git: malformed log record %q", header)
		}
		at, err := time.Parse(time.RFC3339, fields[4])
		if err != nil {
			return nil, fmt.Errorf("git: bad commit date %q: %w", fields[4], err)
		}
		c := models.GitCommit{
			Hash:        fields[0],
			ShortHash:   fields[1],
			Author:      fields[2],
			Message:     fields[3],
			CommittedAt: at.UTC(),
		}
		c.FilesChanged, c.Insertions, c.Deletions = ParseShortstat(rest)
		commits = append(commits, c)
	}
	return commits, nil
}

var shortstatRe = regexp.MustCompile(`(\d+) (files? changed|insertions?\(\+\)|deletions?\(-\))`)

// ParseShortstat reads " 3 files changed, 10 insertions(+), 2 deletions(-)".
// Missing parts count as zero.
func ParseShortstat(line string) (files, insertions, deletions int) {
	for _, m := range shortstatRe.FindAllStringSubmatch(line, -1) {
		n, _ := strconv.Atoi(m[1])
		switch {
		case strings.HasPrefix(m[2], "file"):
			files = n
		case strings.HasPrefix(m[2], "insertion"):
			insertions = n
		case strings.HasPrefix(m[2], "deletion"):
			deletions = n
		}
	}
	return files, insertions, deletions
}

// HasChanges reports whether the work tree has uncommitted changes
func (r *Reader) HasChanges(ctx context.Context) (bool, error) {
	if !r.IsRepo(ctx) {
		return false, ErrNotRepository
	}
	out, err := r.run(ctx, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

// CommitAll stages every change and commits it with message. It returns
// false without error when there was nothing to commit.
func (r *Reader) CommitAll(ctx context.Context, message string) (bool, error) {
	changed, err := r.HasChanges(ctx)
	if err != nil || !changed {
		return false, err
	}
	if _, err := r.run(ctx, "add", "-A"); err != nil {
		return false, err
	}
	if out, err := r.run(ctx, "commit", "-m", message); err != nil {
		if strings.Contains(out, "nothing to commit") {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
