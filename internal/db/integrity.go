package db

import "fmt"

// IntegrityReport is the outcome of CheckIntegrity
type IntegrityReport struct {
	SQLite           string         `json:"sqlite_integrity"`
	SchemaVersion    int            `json:"schema_version"`
	SupportedVersion int            `json:"supported_version"`
	Counts           map[string]int `json:"counts"`
	Warnings         []string       `json:"warnings,omitempty"`
	Problems         []string       `json:"problems,omitempty"`
	BackupPath       string         `json:"backup_path,omitempty"`
}

// OK reports whether no problems were found
func (r *IntegrityReport) OK() bool {
	return len(r.Problems) == 0
}

var countedTables = []string{"sessions", "decisions", "tasks", "blockers", "context_notes", "questions", "git_commits", "activity_log"}

// CheckIntegrity runs SQLite's own check plus the store's invariants. When
// problems are found the report is returned alongside an *IntegrityError.
func (db *DB) CheckIntegrity() (*IntegrityReport, error) {
	report := &IntegrityReport{
		SupportedVersion: SchemaVersion,
		Counts:           map[string]int{},
		BackupPath:       db.existingBackup(),
	}

	err := db.withReadTx(func(q querier) error {
		rows, err := q.QueryContext(bg, `PRAGMA integrity_check`)
		if err != nil {
			return err
		}
		var lines []string
		for rows.Next() {
			var line string
			if err := rows.Scan(&line); err != nil {
				rows.Close()
				return err
			}
			lines = append(lines, line)
		}
		rows.Close()
		if len(lines) == 1 && lines[0] == "ok" {
			report.SQLite = "ok"
		} else {
			report.SQLite = "failed"
			for _, l := range lines {
				report.Problems = append(report.Problems, "sqlite: "+l)
			}
		}

		if report.SchemaVersion, err = schemaVersion(q); err != nil {
			return err
		}
		if report.SchemaVersion != SchemaVersion {
			report.Warnings = append(report.Warnings, (&SchemaVersionError{Stored: report.SchemaVersion, Supported: SchemaVersion}).Error())
		}

		for _, m := range Migrations {
			if m.Version > report.SchemaVersion {
				break
			}
			ok, err := m.isApplied(q)
			if err != nil {
				return err
			}
			if !ok {
				report.Problems = append(report.Problems, fmt.Sprintf("schema v%d recorded but %q is missing", m.Version, m.Description))
			}
		}

		for _, table := range countedTables {
			var exists, n int
			if err := q.QueryRowContext(bg, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&exists); err != nil {
				return err
			}
			if exists == 0 {
				continue
			}
			if err := q.QueryRowContext(bg, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
				return err
			}
			report.Counts[table] = n
		}

		return checkInvariants(q, report)
	})
	if err != nil {
		return nil, fmt.Errorf("integrity check: %w", err)
	}

	if !report.OK() {
		return report, &IntegrityError{Problems: report.Problems, BackupPath: report.BackupPath}
	}
	return report, nil
}

// invariantChecks are queries counting offending rows; more than allowed is
// a problem. Checks needing later schema versions are skipped on older ones.
var invariantChecks = []struct {
	minVersion int
	allowed    int
	query      string
	problem    string
}{
	{1, 1, `SELECT COUNT(*) FROM sessions WHERE ended_at IS NULL`, "%d sessions are active at once"},
	{1, 0, `SELECT COUNT(*) FROM sessions WHERE ended_at IS NOT NULL AND ended_at < started_at`, "%d sessions end before they start"},
	{1, 0, `SELECT COUNT(*) FROM tasks WHERE status NOT IN ('pending', 'in_progress', 'completed', 'cancelled', 'blocked')`, "%d tasks have an unknown status"},
	{1, 0, `SELECT COUNT(*) FROM tasks WHERE status = 'completed' AND completed_at IS NULL`, "%d completed tasks have no completion time"},
	{1, 0, `SELECT COUNT(*) FROM blockers WHERE status = 'resolved' AND resolved_at IS NULL`, "%d resolved blockers have no resolution time"},
	{6, 0, `SELECT COUNT(*) FROM decisions d WHERE d.supersedes IS NOT NULL
		AND NOT EXISTS (SELECT 1 FROM decisions o WHERE o.id = d.supersedes AND o.status = 'superseded')`, "%d decisions supersede a missing or still-active decision"},
	{6, 0, `SELECT COUNT(*) FROM decisions o WHERE o.status = 'superseded'
		AND NOT EXISTS (SELECT 1 FROM decisions d WHERE d.supersedes = o.id)`, "%d superseded decisions have no successor"},
}

func checkInvariants(q querier, report *IntegrityReport) error {
	for _, c := range invariantChecks {
		if report.SchemaVersion < c.minVersion {
			continue
		}
		var n int
		if err := q.QueryRowContext(bg, c.query).Scan(&n); err != nil {
			return err
		}
		if n > c.allowed {
			report.Problems = append(report.Problems, fmt.Sprintf(c.problem, n))
		}
	}
	return nil
}
