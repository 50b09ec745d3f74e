package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/marcus/proj/internal/db"
	"github.com/marcus/proj/internal/output"
)

// Process exit codes
const (
	exitOK        = 0
	exitError     = 1
	exitUsage     = 2
	exitNotInit   = 3
	exitSchema    = 4
	exitLocked    = 5
	exitIntegrity = 6
)

// errorKinds maps store errors to an exit code and a stable JSON code.
// Order matters: the first match wins.
var errorKinds = []struct {
	err  error
	exit int
	code string
}{
	{db.ErrNotInitialized, exitNotInit, "not_initialized"},
	{db.ErrSchemaAhead, exitSchema, "schema_ahead"},
	{db.ErrSchemaBehind, exitSchema, "schema_behind"},
	{db.ErrStoreLocked, exitLocked, "store_locked"},
	{db.ErrIntegrityViolation, exitIntegrity, "integrity_violation"},
	{db.ErrMigrationFailed, exitIntegrity, "migration_failed"},
	{db.ErrEmptySessionSummary, exitUsage, "empty_session"},
	{db.ErrNoActiveSession, exitUsage, "no_active_session"},
	{db.ErrInvalidTransition, exitUsage, "invalid_transition"},
	{db.ErrInvalidInput, exitUsage, "invalid_input"},
	{db.ErrNotFound, exitError, "not_found"},
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.exit
		}
	}
	return exitError
}

func errorCode(err error) string {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.code
		}
	}
	return "error"
}

// fail prints err in the active output mode and marks it as reported
func fail(err error) error {
	if jsonOutput {
		output.JSONError(errorCode(err), err)
	} else {
		output.Error("%v", err)
	}
	return &reportedError{err: err}
}

// openDB opens the project store, migrating it when needed
func openDB() (*db.DB, error) {
	database, err := db.Open(getBaseDir())
	if err != nil {
		return nil, fail(err)
	}
	return database, nil
}

// parseID accepts "12", "#12" or a kind prefix such as "D12" / "T12"
func parseID(arg string, prefixes ...string) (int64, error) {
	s := strings.TrimPrefix(strings.TrimSpace(arg), "#")
	for _, p := range prefixes {
		if len(s) > len(p) && strings.EqualFold(s[:len(p)], p) {
			s = s[len(p):]
			break
		}
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", db.ErrInvalidInput, arg)
	}
	return id, nil
}

func isInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// confirm asks a yes/no question. Non-interactive callers and --json mode
// get def without a prompt.
func confirm(title, description string, def bool) (bool, error) {
	if jsonOutput || !isInteractive() {
		return def, nil
	}
	ok := def
	err := huh.NewConfirm().
		Title(title).
		Description(description).
		Affirmative("Yes").
		Negative("No").
		Value(&ok).
		Run()
	if err != nil {
		return false, err
	}
	return ok, nil
}
