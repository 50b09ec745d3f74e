package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/marcus/proj/internal/models"
)

// SyncResult reports a commit ingest
type SyncResult struct {
	Received int `json:"received"`
	Inserted int `json:"inserted"`
}

// SyncCommits mirrors commits into the store. Hashes already present are
// skipped, so re-running with overlapping input is harmless.
func (db *DB) SyncCommits(commits []models.GitCommit) (*SyncResult, error) {
	res := &SyncResult{Received: len(commits)}
	if len(commits) == 0 {
		return res, nil
	}
	for _, c := range commits {
		if c.Hash == "" {
			return nil, invalidInput("commit without hash")
		}
	}

	err := db.withWriteTx(func(q querier) error {
		res.Inserted = 0
		for _, c := range commits {
			short := c.ShortHash
			if short == "" {
				short = truncate(c.Hash, 7)
			}
			result, err := q.ExecContext(bg, `INSERT INTO git_commits (hash, short_hash, author, message, committed_at, files_changed, insertions, deletions)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(hash) DO NOTHING`,
				c.Hash, short, c.Author, c.Message, formatTime(c.CommittedAt), c.FilesChanged, c.Insertions, c.Deletions)
			if err != nil {
				return fmt.Errorf("insert commit %s: %w", short, err)
			}
			n, err := result.RowsAffected()
			if err != nil {
				return err
			}
			res.Inserted += int(n)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// LatestCommit returns the newest mirrored commit, or nil
func (db *DB) LatestCommit() (*models.GitCommit, error) {
	c, err := scanCommit(db.conn.QueryRow(`SELECT ` + commitCols + ` FROM git_commits ORDER BY committed_at DESC, id DESC LIMIT 1`))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

// RecentCommits returns mirrored commits newest first
func (db *DB) RecentCommits(limit int) ([]models.GitCommit, error) {
	return recentCommits(db.conn, limit)
}

func recentCommits(q querier, limit int) ([]models.GitCommit, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := q.QueryContext(bg, `SELECT `+commitCols+` FROM git_commits ORDER BY committed_at DESC, id DESC LIMIT ?`, limit)
	return collect(rows, err, scanCommit)
}

// CommitCount returns the number of mirrored commits
func (db *DB) CommitCount() (int, error) {
	var n int
	err := db.conn.QueryRow(`SELECT COUNT(*) FROM git_commits`).Scan(&n)
	return n, err
}

func commitsBetween(q querier, start, end time.Time) ([]models.GitCommit, error) {
	rows, err := q.QueryContext(bg, `SELECT `+commitCols+` FROM git_commits WHERE committed_at >= ? AND committed_at < ? ORDER BY committed_at, id`,
		formatTime(start), formatTime(end))
	return collect(rows, err, scanCommit)
}
