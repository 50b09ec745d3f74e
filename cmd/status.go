package cmd

import (
	"github.com/spf13/cobra"

	"github.com/marcus/proj/internal/output"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current project state",
	Long: `Begins or resumes the work session, then shows active tasks and blockers,
recent decisions and commits. A session idle past stale_hours is closed first.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()

		snap, err := database.Status()
		if err != nil {
			return fail(err)
		}
		if jsonOutput {
			return output.JSON(snap)
		}
		renderSnapshot(snap, false)
		return nil
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Detailed context for picking work back up",
	Long: `Like status, plus open questions and recent context notes. With --for-ai
the snapshot is printed as JSON for an assistant's context window.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()

		snap, err := database.ResumeContext()
		if err != nil {
			return fail(err)
		}
		if forAI, _ := cmd.Flags().GetBool("for-ai"); forAI || jsonOutput {
			return output.JSON(snap)
		}
		renderSnapshot(snap, true)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(resumeCmd)

	resumeCmd.Flags().Bool("for-ai", false, "Emit the resume context as JSON")
}
