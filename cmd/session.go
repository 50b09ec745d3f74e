package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/marcus/proj/internal/db"
	"github.com/marcus/proj/internal/git"
	"github.com/marcus/proj/internal/output"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage work sessions",
}

var sessionStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Begin a session, or resume the active one",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()

		res, err := database.StartSession()
		if err != nil {
			return fail(err)
		}
		if jsonOutput {
			return output.JSON(res)
		}
		if res.AutoClosed != nil {
			output.Warning("session #%d was idle and has been auto-closed", res.AutoClosed.ID)
		}
		if res.Created {
			output.Success("Started session #%d", res.Session.ID)
		} else {
			output.Info("Resuming session #%d (started %s)", res.Session.ID, output.FormatTimeAgo(res.Session.StartedAt))
		}
		return nil
	},
}

var sessionEndCmd = &cobra.Command{
	Use:   "end [SUMMARY]",
	Short: "End the active session with a summary",
	Long: `Closes the active session and stores a structured summary of what it
captured. A session with nothing logged is refused unless --force is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()

		summary, _ := cmd.Flags().GetString("summary")
		if len(args) > 0 {
			summary = args[0]
		}
		force, _ := cmd.Flags().GetBool("force")

		if force {
			if ok, err := confirmEmptyEnd(database); err != nil {
				return fail(err)
			} else if !ok {
				output.Info("Session left open")
				return nil
			}
		}

		res, err := database.EndSession(summary, force)
		if err != nil {
			return fail(err)
		}

		cfg := database.Config()
		var backupPath string
		if cfg.AutoBackup {
			if backupPath, err = database.Backup(); err != nil {
				slog.Debug("auto backup failed", "err", err)
				output.Warning("backup failed: %v", err)
			}
		}
		committed := false
		if cfg.AutoCommit {
			committed = autoCommit(database, fmt.Sprintf("proj: session #%d - %s", res.Session.ID, firstLine(res.Session.Summary)))
		}

		if jsonOutput {
			return output.JSON(struct {
				*db.EndResult
				BackupPath string `json:"backup_path,omitempty"`
				Committed  bool   `json:"committed"`
			}{res, backupPath, committed})
		}
		output.Success("Ended session #%d after %s", res.Session.ID, output.FormatDuration(res.Session.EndedAt.Sub(res.Session.StartedAt)))
		renderSummary(res.Summary)
		if res.Advisory != "" {
			output.Warning("%s", res.Advisory)
		}
		if backupPath != "" {
			output.Line("%s", output.Dim("backup: "+backupPath))
		}
		return nil
	},
}

// confirmEmptyEnd asks before force-ending a session that captured nothing
func confirmEmptyEnd(database *db.DB) (bool, error) {
	active, err := database.GetActiveSession()
	if err != nil || active == nil {
		return true, err
	}
	sum, err := database.SessionSummary(active.ID)
	if err != nil {
		return false, err
	}
	if !sum.Counts.IsEmpty() {
		return true, nil
	}
	return confirm(fmt.Sprintf("End session #%d?", active.ID), "Nothing was logged during this session.", true)
}

// autoCommit commits the work tree per auto_commit_mode. Failures are
// reported but never fail the command.
func autoCommit(database *db.DB, message string) bool {
	ctx := context.Background()
	repo := git.NewReader(database.BaseDir())
	changed, err := repo.HasChanges(ctx)
	if err != nil {
		slog.Debug("auto commit skipped", "err", err)
		return false
	}
	if !changed {
		if !jsonOutput {
			output.Info("No changes to commit")
		}
		return false
	}
	if database.Config().AutoCommitMode != "auto" {
		if jsonOutput || !isInteractive() {
			return false
		}
		ok, err := confirm("Commit changes?", message, true)
		if err != nil || !ok {
			return false
		}
	}
	committed, err := repo.CommitAll(ctx, message)
	if err != nil {
		output.Warning("auto commit failed: %v", err)
		return false
	}
	if committed && !jsonOutput {
		output.Success("Committed: %s", message)
	}
	return committed
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if s == "" {
		return "no summary"
	}
	return output.Truncate(s, 72)
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		sessions, err := database.ListSessions(limit)
		if err != nil {
			return fail(err)
		}
		if jsonOutput {
			return output.JSON(sessions)
		}
		if len(sessions) == 0 {
			output.Line("No sessions yet")
			return nil
		}
		for _, s := range sessions {
			line := fmt.Sprintf("#%-4d %s", s.ID, s.StartedAt.Local().Format("2006-01-02 15:04"))
			switch {
			case s.IsActive():
				line += " [active]"
			case s.ClosedReason != "":
				line += " " + output.Dim("["+string(s.ClosedReason)+"]")
			}
			if s.Summary != "" {
				line += "  " + output.Truncate(s.Summary, lineWidth)
			}
			output.Line("%s", line)
		}
		return nil
	},
}

var sessionShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show a session's structured summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()

		id, err := parseID(args[0], "S")
		if err != nil {
			return fail(err)
		}
		s, err := database.GetSession(id)
		if err != nil {
			return fail(err)
		}
		sum, err := database.SessionSummary(id)
		if err != nil {
			return fail(err)
		}
		if jsonOutput {
			return output.JSON(sum)
		}
		output.Header(sessionLine(s, time.Now()))
		if s.Summary != "" {
			output.Line("%s", s.Summary)
		}
		renderSummary(sum)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionStartCmd, sessionEndCmd, sessionListCmd, sessionShowCmd)

	sessionEndCmd.Flags().StringP("summary", "m", "", "What the session accomplished")
	sessionEndCmd.Flags().BoolP("force", "f", false, "End even when nothing was logged")
	sessionListCmd.Flags().IntP("limit", "n", 20, "Number of sessions")
}
