package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/marcus/proj/internal/workflow"
)

var (
	ErrNotInitialized      = errors.New("project not initialized")
	ErrSchemaBehind        = errors.New("schema behind")
	ErrSchemaAhead         = errors.New("schema ahead of this build")
	ErrInvalidTransition   = workflow.ErrInvalidTransition
	ErrEmptySessionSummary = errors.New("empty session")
	ErrStoreLocked         = errors.New("store locked")
	ErrIntegrityViolation  = errors.New("integrity violation")
	ErrMigrationFailed     = errors.New("migration failed")
	ErrNotFound            = errors.New("not found")
	ErrInvalidInput        = errors.New("invalid input")

	// ErrNoActiveSession is returned when ending a session while none is active
	ErrNoActiveSession = fmt.Errorf("%w: no active session", ErrInvalidTransition)
)

// SchemaVersionError reports a stored schema version this build cannot use as-is
type SchemaVersionError struct {
	Stored    int
	Supported int
}

func (e *SchemaVersionError) Error() string {
	if e.Stored > e.Supported {
		return fmt.Sprintf("database schema v%d is newer than this build supports (v%d); upgrade proj", e.Stored, e.Supported)
	}
	return fmt.Sprintf("database schema v%d is behind v%d; run 'proj migrate'", e.Stored, e.Supported)
}

func (e *SchemaVersionError) Is(target error) bool {
	if e.Stored > e.Supported {
		return target == ErrSchemaAhead
	}
	return target == ErrSchemaBehind
}

// MigrationError wraps the failure of a single migration step
type MigrationError struct {
	Version     int
	Description string
	Err         error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("migration v%d (%s) failed: %v", e.Version, e.Description, e.Err)
}

func (e *MigrationError) Unwrap() error { return e.Err }

func (e *MigrationError) Is(target error) bool {
	return target == ErrMigrationFailed
}

// IntegrityError lists what the integrity check found wrong
type IntegrityError struct {
	Problems   []string
	BackupPath string
}

func (e *IntegrityError) Error() string {
	msg := fmt.Sprintf("integrity check found %d problem(s): %s", len(e.Problems), strings.Join(e.Problems, "; "))
	if e.BackupPath != "" {
		msg += fmt.Sprintf(" (restore candidate: %s)", e.BackupPath)
	}
	return msg
}

func (e *IntegrityError) Is(target error) bool {
	return target == ErrIntegrityViolation
}

func notFound(kind string, id int64) error {
	return fmt.Errorf("%w: %s #%d", ErrNotFound, kind, id)
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// isBusy reports whether err is SQLite refusing the write because another
// connection holds the database
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database table is locked")
}

func classify(err error) error {
	if err == nil || errors.Is(err, ErrStoreLocked) || !isBusy(err) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStoreLocked, err)
}
