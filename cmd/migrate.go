package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marcus/proj/internal/db"
	"github.com/marcus/proj/internal/output"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Upgrade the database schema",
	Long: `Applies pending schema changes in order, each in its own transaction.
Destructive changes are preceded by a backup. --dry-run prints the plan only.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := db.OpenNoMigrate(getBaseDir())
		if err != nil {
			return fail(err)
		}
		defer database.Close()

		plan, err := database.PlanMigrations()
		if err != nil {
			return fail(err)
		}

		if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
			if jsonOutput {
				return output.JSON(plan)
			}
			printPlan(plan)
			return nil
		}

		if len(plan.Pending) == 0 {
			if jsonOutput {
				return output.JSON(map[string]any{"applied": 0, "version": plan.Current})
			}
			output.Info("Schema is up to date (v%d)", plan.Current)
			return nil
		}

		if !jsonOutput {
			printPlan(plan)
		}
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			ok, err := confirm(fmt.Sprintf("Apply %d migration(s)?", len(plan.Pending)), "", true)
			if err != nil {
				return fail(err)
			}
			if !ok {
				output.Info("Aborted")
				return nil
			}
		}

		applied, err := database.RunMigrations()
		if err != nil {
			return fail(err)
		}
		version, _ := database.GetSchemaVersion()
		if jsonOutput {
			return output.JSON(map[string]any{"applied": applied, "version": version, "backup_path": plan.BackupPath})
		}
		output.Success("Applied %s, schema now v%d", output.FormatCount(applied, "migration"), version)
		return nil
	},
}

func printPlan(plan *db.MigrationPlan) {
	output.Line("Schema v%d -> v%d", plan.Current, plan.Target)
	if len(plan.Pending) == 0 {
		output.Line("  nothing to do")
		return
	}
	for _, m := range plan.Pending {
		line := fmt.Sprintf("  v%d %s", m.Version, m.Description)
		if m.Risk == db.RiskDestructive {
			line += " " + output.Dim("[destructive]")
		}
		output.Line("%s", line)
	}
	if plan.NeedsBackup {
		output.Line("A backup will be written to %s", plan.BackupPath)
	}
}

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().Bool("dry-run", false, "Show pending migrations without applying them")
	migrateCmd.Flags().BoolP("yes", "y", false, "Apply without confirmation")
}
