package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marcus/proj/internal/db"
	"github.com/marcus/proj/internal/models"
	"github.com/marcus/proj/internal/output"
)

var deltaCmd = &cobra.Command{
	Use:   "delta",
	Short: "Show only what changed since the last context check",
	Long: `Lists decisions, tasks, blockers, questions, notes and commits created or
changed since this session last ran status, resume or delta, then moves
that marker to now.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()

		d, err := database.Delta()
		if err != nil {
			return fail(err)
		}
		if jsonOutput {
			return output.JSON(d)
		}
		renderDelta(d)
		return nil
	},
}

func renderDelta(d *db.Delta) {
	now := d.GeneratedAt
	if d.FirstCheck {
		output.Info("No context shown yet in session #%d; run 'proj status' for the full picture", d.Session.ID)
	}
	if d.Empty() {
		output.Line("No changes since %s", output.FormatTimeAgoFrom(d.Since, now))
		return
	}
	output.Header(fmt.Sprintf("Changes since %s (session #%d)", output.FormatTimeAgoFrom(d.Since, now), d.Session.ID))

	for _, dec := range d.Decisions {
		output.Line("%s", decisionLine(dec))
	}
	for _, t := range d.Tasks {
		output.Line("%s", taskLine(t))
	}
	for _, b := range d.Blockers {
		line := fmt.Sprintf("  B%-4d %s", b.ID, output.Truncate(b.Description, lineWidth))
		if b.Status == models.BlockerResolved {
			line += output.Dim(" (resolved)")
		}
		output.Line("%s", line)
	}
	for _, q := range d.Questions {
		line := fmt.Sprintf("  Q%-4d %s", q.ID, output.Truncate(q.Question, lineWidth))
		if q.Answered {
			line += output.Dim(" (answered)")
		}
		output.Line("%s", line)
	}
	for _, n := range d.Notes {
		output.Line("  N%-4d [%s] %s", n.ID, n.Category, n.Title)
	}
	for _, c := range d.Commits {
		output.Line("%s", commitLine(c, now))
	}

	c := d.Counts
	output.Line("")
	output.Line("%s active, %s, %s, %s",
		output.FormatCount(c.ActiveTasks, "task"),
		output.FormatCount(c.ActiveBlockers, "blocker"),
		output.FormatCount(c.OpenQuestions, "open question"),
		output.FormatCount(c.ActiveDecisions, "decision"))
}

func init() {
	rootCmd.AddCommand(deltaCmd)
}
