package db

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/marcus/proj/internal/workdir"
)

// BackupPath returns where this project's single backup lives:
// ~/.proj/backups/<name>-<uuid>.db, the uuid derived from the absolute root.
func (db *DB) BackupPath() (string, error) {
	dir, id, err := db.backupID()
	if err != nil {
		return "", err
	}
	name := db.cfg.Name
	if name == "" {
		name = filepath.Base(db.baseDir)
	}
	return filepath.Join(dir, fmt.Sprintf("%s-%s.db", slugify(name), id)), nil
}

// backupID returns the backups directory and the uuid that identifies this
// project's backup whatever the project is named
func (db *DB) backupID() (string, uuid.UUID, error) {
	dir, err := workdir.BackupsDir()
	if err != nil {
		return "", uuid.Nil, err
	}
	abs, err := filepath.Abs(db.baseDir)
	if err != nil {
		return "", uuid.Nil, err
	}
	return dir, uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+filepath.ToSlash(abs))), nil
}

// backupFiles lists every backup of this project, including ones written
// under an earlier project name
func (db *DB) backupFiles() ([]string, error) {
	dir, id, err := db.backupID()
	if err != nil {
		return nil, err
	}
	return filepath.Glob(filepath.Join(dir, "*-"+id.String()+".db"))
}

// Backup writes a consistent copy of the database to BackupPath, replacing
// the previous backup.
func (db *DB) Backup() (string, error) {
	path, err := db.BackupPath()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}

	tmp := path + ".tmp"
	os.Remove(tmp)

	err = db.withWriteLock(func() error {
		if _, err := db.conn.Exec(`VACUUM INTO ?`, tmp); err != nil {
			return fmt.Errorf("snapshot database: %w", err)
		}
		return nil
	})
	if err != nil {
		os.Remove(tmp)
		return "", classify(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("install backup: %w", err)
	}

	stale, err := db.backupFiles()
	if err != nil {
		return path, nil
	}
	for _, old := range stale {
		if old == path {
			continue
		}
		if err := os.Remove(old); err != nil {
			slog.Warn("remove stale backup", "path", old, "err", err)
		}
	}
	return path, nil
}

// existingBackup returns the newest backup of this project, or "" when none exists
func (db *DB) existingBackup() string {
	files, err := db.backupFiles()
	if err != nil {
		return ""
	}
	var newest string
	var newestMod time.Time
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestMod) {
			newest, newestMod = f, info.ModTime()
		}
	}
	return newest
}

func slugify(name string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteRune('-')
			lastDash = true
		}
	}
	s := strings.Trim(b.String(), "-")
	if s == "" {
		return "project"
	}
	return s
}
