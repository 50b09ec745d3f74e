package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/marcus/proj/internal/config"
	"github.com/marcus/proj/internal/workdir"
	_ "modernc.org/sqlite"
)

const dbName = "tracking.db"

// immediateRetries is how many times a write transaction is attempted when
// SQLite reports the database busy
const immediateRetries = 3

// cgoDriverAvailable is flipped by driver_cgo.go in cgo builds
var cgoDriverAvailable bool

// DB wraps the database connection
type DB struct {
	conn    *sql.DB
	baseDir string
	cfg     *config.Config
	now     func() time.Time

	// initializing suppresses the pre-migration backup for a brand-new file
	initializing bool
}

// querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ResolveBaseDir follows .proj-root redirects and .tracking ancestors so git
// worktrees share a single database with the main checkout.
func ResolveBaseDir(baseDir string) string {
	return workdir.ResolveBaseDir(baseDir)
}

// Path returns the database file location for a project root
func Path(baseDir string) string {
	return filepath.Join(baseDir, workdir.TrackingDir, dbName)
}

// Open opens the database and runs any pending migrations
func Open(baseDir string) (*DB, error) {
	db, err := OpenNoMigrate(baseDir)
	if err != nil {
		return nil, err
	}
	if _, err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return db, nil
}

// OpenNoMigrate opens an existing database without touching its schema.
// Used by check and migrate, which inspect the version themselves.
func OpenNoMigrate(baseDir string) (*DB, error) {
	baseDir = ResolveBaseDir(baseDir)
	dbPath := Path(baseDir)

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: no tracking database under %s (run 'proj init' first)", ErrNotInitialized, baseDir)
	}

	cfg, err := config.Load(baseDir)
	if err != nil {
		return nil, err
	}

	conn, err := openConn(cfg.Driver, dbPath)
	if err != nil {
		return nil, err
	}

	return &DB{conn: conn, baseDir: baseDir, cfg: cfg, now: time.Now}, nil
}

// Initialize creates the tracking directory, the database and the config
// file, then brings the schema to the current version.
func Initialize(baseDir string, cfg *config.Config) (*DB, error) {
	dbPath := Path(baseDir)
	if _, err := os.Stat(dbPath); err == nil {
		return nil, fmt.Errorf("%w: already initialized at %s", ErrInvalidInput, dbPath)
	}
	if cfg == nil {
		cfg = config.Default()
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create tracking dir: %w", err)
	}

	conn, err := openConn(cfg.Driver, dbPath)
	if err != nil {
		return nil, err
	}

	db := &DB{conn: conn, baseDir: baseDir, cfg: cfg, now: time.Now, initializing: true}

	if err := db.createBaseSchema(); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	db.initializing = false

	cfg.SchemaVersion = SchemaVersion
	if err := config.Save(baseDir, cfg); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func openConn(driver, dbPath string) (*sql.DB, error) {
	var dsn string
	switch driver {
	case config.DriverCgo:
		if !cgoDriverAvailable {
			return nil, fmt.Errorf("driver %q needs a cgo build; set \"driver\": %q in config.json", driver, config.DriverModernc)
		}
		// Pragmas go in the DSN so every pooled connection gets them
		dsn = "file:" + dbPath + "?_busy_timeout=500&_journal_mode=WAL&_synchronous=NORMAL"
	default:
		driver = config.DriverModernc
		dsn = "file:" + dbPath + "?_pragma=busy_timeout(500)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}
	slog.Debug("opened database", "path", dbPath, "driver", driver)
	return conn, nil
}

// Close closes the database
func (db *DB) Close() error {
	return db.conn.Close()
}

// BaseDir returns the project root the database belongs to
func (db *DB) BaseDir() string {
	return db.baseDir
}

// Config returns the project config loaded at open
func (db *DB) Config() *config.Config {
	return db.cfg
}

// SetClock replaces the time source. Tests use it to drive staleness.
func (db *DB) SetClock(now func() time.Time) {
	db.now = now
}

func (db *DB) clock() time.Time {
	return db.now().UTC()
}

// withWriteLock executes fn while holding an exclusive write lock.
// This prevents concurrent writes from multiple processes.
func (db *DB) withWriteLock(fn func() error) error {
	locker := newWriteLocker(db.baseDir)
	if err := locker.acquire(defaultTimeout); err != nil {
		return err
	}
	defer locker.release()
	return fn()
}

// withWriteTx runs fn inside one IMMEDIATE transaction under the write lock.
// A busy database is retried a few times before surfacing ErrStoreLocked.
func (db *DB) withWriteTx(fn func(q querier) error) error {
	return db.withWriteLock(func() error {
		var err error
		for attempt := 0; attempt < immediateRetries; attempt++ {
			if attempt > 0 {
				time.Sleep(time.Duration(attempt*50) * time.Millisecond)
				slog.Debug("retrying write transaction", "attempt", attempt+1)
			}
			err = db.immediateTx(fn)
			if !errors.Is(err, ErrStoreLocked) {
				return err
			}
		}
		return err
	})
}

func (db *DB) immediateTx(fn func(q querier) error) error {
	ctx := context.Background()
	conn, err := db.conn.Conn(ctx)
	if err != nil {
		return classify(err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return classify(fmt.Errorf("begin: %w", err))
	}
	if err := fn(conn); err != nil {
		conn.ExecContext(ctx, "ROLLBACK")
		return classify(err)
	}
	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		conn.ExecContext(ctx, "ROLLBACK")
		return classify(fmt.Errorf("commit: %w", err))
	}
	return nil
}

// withReadTx gives fn a consistent snapshot across several queries
func (db *DB) withReadTx(fn func(q querier) error) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return classify(err)
	}
	defer tx.Rollback()
	return fn(tx)
}

var bg = context.Background()

const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// formatTime renders a fixed-width UTC timestamp, so text order is time order
func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	for _, layout := range []string{timeLayout, time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func parseNullTime(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := parseTime(ns.String)
	return &t
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
