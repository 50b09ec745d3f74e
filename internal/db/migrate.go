package db

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/marcus/proj/internal/config"
)

// PlannedMigration is one step of a migration plan
type PlannedMigration struct {
	Version     int    `json:"version"`
	Description string `json:"description"`
	Risk        Risk   `json:"risk"`
}

// MigrationPlan describes what RunMigrations would do, without doing it
type MigrationPlan struct {
	Current     int                `json:"current_version"`
	Target      int                `json:"target_version"`
	Pending     []PlannedMigration `json:"pending"`
	NeedsBackup bool               `json:"needs_backup"`
	BackupPath  string             `json:"backup_path,omitempty"`
}

// GetSchemaVersion returns the stored schema version, 0 for an empty file
func (db *DB) GetSchemaVersion() (int, error) {
	return schemaVersion(db.conn)
}

func schemaVersion(q querier) (int, error) {
	var tables int
	if err := q.QueryRowContext(bg, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'project_meta'`).Scan(&tables); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	if tables == 0 {
		return 0, nil
	}

	var value string
	err := q.QueryRowContext(bg, `SELECT value FROM project_meta WHERE key = 'schema_version'`).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("read schema version: bad value %q", value)
	}
	return v, nil
}

func setSchemaVersion(q querier, m Migration, appliedAt string) error {
	if _, err := q.ExecContext(bg, `INSERT OR REPLACE INTO project_meta (key, value) VALUES ('schema_version', ?)`, strconv.Itoa(m.Version)); err != nil {
		return err
	}
	_, err := q.ExecContext(bg, `INSERT OR REPLACE INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)`,
		m.Version, m.Description, appliedAt)
	return err
}

func pendingMigrations(current int) []Migration {
	var pending []Migration
	for _, m := range Migrations {
		if m.Version > current {
			pending = append(pending, m)
		}
	}
	return pending
}

func needsBackup(pending []Migration) bool {
	for _, m := range pending {
		if m.Risk == RiskDestructive {
			return true
		}
	}
	return false
}

// checkVersion rejects empty files and schemas newer than this build
func checkVersion(current int) error {
	if current == 0 {
		return fmt.Errorf("%w: database has no schema", ErrNotInitialized)
	}
	if current > SchemaVersion {
		return &SchemaVersionError{Stored: current, Supported: SchemaVersion}
	}
	return nil
}

// isApplied runs the migration's verification probe
func (m Migration) isApplied(q querier) (bool, error) {
	if m.Verify == "" {
		return false, nil
	}
	var n int
	if err := q.QueryRowContext(bg, m.Verify).Scan(&n); err != nil {
		return false, fmt.Errorf("verify: %w", err)
	}
	return n > 0, nil
}

// PlanMigrations reports pending migrations without applying them
func (db *DB) PlanMigrations() (*MigrationPlan, error) {
	current, err := db.GetSchemaVersion()
	if err != nil {
		return nil, err
	}
	if err := checkVersion(current); err != nil {
		return nil, err
	}

	pending := pendingMigrations(current)
	plan := &MigrationPlan{
		Current:     current,
		Target:      SchemaVersion,
		Pending:     make([]PlannedMigration, 0, len(pending)),
		NeedsBackup: needsBackup(pending),
	}
	for _, m := range pending {
		plan.Pending = append(plan.Pending, PlannedMigration{Version: m.Version, Description: m.Description, Risk: m.Risk})
	}
	if plan.NeedsBackup {
		if path, err := db.BackupPath(); err == nil {
			plan.BackupPath = path
		}
	}
	return plan, nil
}

// RunMigrations applies pending migrations in order, each in its own
// transaction. A destructive step is preceded by a full backup. Returns the
// number of migrations applied.
func (db *DB) RunMigrations() (int, error) {
	current, err := db.GetSchemaVersion()
	if err != nil {
		return 0, err
	}
	if err := checkVersion(current); err != nil {
		return 0, err
	}

	pending := pendingMigrations(current)
	if len(pending) == 0 {
		return 0, nil
	}

	if needsBackup(pending) && !db.initializing {
		path, err := db.Backup()
		if err != nil {
			return 0, fmt.Errorf("backup before migration: %w", err)
		}
		slog.Info("backed up database before migration", "path", path)
	}

	applied := 0
	for _, m := range pending {
		if err := db.applyMigration(m); err != nil {
			return applied, &MigrationError{Version: m.Version, Description: m.Description, Err: err}
		}
		slog.Debug("applied migration", "version", m.Version, "description", m.Description)
		applied++
	}

	if !db.initializing {
		db.syncConfigVersion()
	}
	return applied, nil
}

func (db *DB) applyMigration(m Migration) error {
	return db.withWriteTx(func(q querier) error {
		// Another process may have migrated while we waited for the lock
		current, err := schemaVersion(q)
		if err != nil {
			return err
		}
		if current >= m.Version {
			return nil
		}

		done, err := m.isApplied(q)
		if err != nil {
			return err
		}
		if done {
			slog.Debug("migration already present, recording version only", "version", m.Version)
		} else if _, err := q.ExecContext(bg, m.SQL); err != nil {
			return err
		}
		return setSchemaVersion(q, m, formatTime(db.clock()))
	})
}

func (db *DB) createBaseSchema() error {
	return db.withWriteTx(func(q querier) error {
		if _, err := q.ExecContext(bg, baseSchema); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		now := formatTime(db.clock())
		meta := map[string]string{
			"name":         db.cfg.Name,
			"project_type": db.cfg.ProjectType,
			"description":  db.cfg.Description,
			"created_at":   now,
		}
		for k, v := range meta {
			if _, err := q.ExecContext(bg, `INSERT OR REPLACE INTO project_meta (key, value) VALUES (?, ?)`, k, v); err != nil {
				return fmt.Errorf("write project meta: %w", err)
			}
		}
		return setSchemaVersion(q, Migration{Version: 1, Description: "Base schema"}, now)
	})
}

// syncConfigVersion mirrors the schema version into config.json
func (db *DB) syncConfigVersion() {
	if db.cfg.SchemaVersion == SchemaVersion {
		return
	}
	db.cfg.SchemaVersion = SchemaVersion
	if err := config.Save(db.baseDir, db.cfg); err != nil {
		slog.Warn("could not record schema version in config", "err", err)
	}
}
