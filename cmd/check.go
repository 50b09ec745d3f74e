package cmd

import (
	"errors"
	"sort"

	"github.com/spf13/cobra"

	"github.com/marcus/proj/internal/db"
	"github.com/marcus/proj/internal/output"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify database integrity",
	Long: `Runs SQLite's integrity check, confirms every recorded schema change is
present and checks the store's own invariants. The database is not migrated.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := db.OpenNoMigrate(getBaseDir())
		if err != nil {
			return fail(err)
		}
		defer database.Close()

		report, err := database.CheckIntegrity()
		var integrityErr *db.IntegrityError
		if err != nil && !errors.As(err, &integrityErr) {
			return fail(err)
		}

		if jsonOutput {
			if jerr := output.JSON(report); jerr != nil {
				return jerr
			}
			if err != nil {
				return &reportedError{err: err}
			}
			return nil
		}

		output.Header("Integrity")
		output.Line("  sqlite:  %s", report.SQLite)
		output.Line("  schema:  v%d (this build v%d)", report.SchemaVersion, report.SupportedVersion)
		tables := make([]string, 0, len(report.Counts))
		for t := range report.Counts {
			tables = append(tables, t)
		}
		sort.Strings(tables)
		for _, t := range tables {
			output.Line("  %-14s %s", t+":", output.FormatCount(report.Counts[t], "row"))
		}
		for _, w := range report.Warnings {
			output.Warning("%s", w)
		}
		if err != nil {
			for _, p := range report.Problems {
				output.Error("%s", p)
			}
			if report.BackupPath != "" {
				output.Line("Last backup: %s", report.BackupPath)
			}
			return &reportedError{err: err}
		}
		output.Success("No problems found")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
