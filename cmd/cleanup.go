package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marcus/proj/internal/db"
	"github.com/marcus/proj/internal/models"
	"github.com/marcus/proj/internal/output"
)

const staleResolution = "stale: closed by cleanup"

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Review blockers, questions and tasks nobody has touched in a while",
	Long: `Lists active blockers and unanswered questions older than --stale-days, and
pending or blocked tasks not updated in that time. On a terminal each stale
blocker and task can be closed in turn; --auto closes them all without asking.
Questions are only listed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("stale-days")
		auto, _ := cmd.Flags().GetBool("auto")

		database, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()

		stale, err := database.StaleItems(days)
		if err != nil {
			return fail(err)
		}
		if !jsonOutput {
			renderStale(stale)
		}

		resolved, cancelled, err := closeStale(database, stale, auto)
		if err != nil {
			return fail(err)
		}
		if jsonOutput {
			return output.JSON(map[string]any{
				"stale":             stale,
				"resolved_blockers": resolved,
				"cancelled_tasks":   cancelled,
			})
		}
		if n := len(resolved) + len(cancelled); n > 0 {
			output.Success("Closed %s", output.FormatCount(n, "stale item"))
		}
		return nil
	},
}

func renderStale(s *db.StaleItems) {
	if s.Total() == 0 {
		output.Line("No stale items (threshold: %d days)", s.Days)
		return
	}
	output.Line("%s older than %d days", output.FormatCount(s.Total(), "stale item"), s.Days)
	if len(s.Blockers) > 0 {
		output.Header(fmt.Sprintf("Blockers (%d)", len(s.Blockers)))
		for _, b := range s.Blockers {
			output.Line("  B%-4d %s %s", b.ID, output.Truncate(b.Description, lineWidth), output.Dim(b.CreatedAt.Format("2006-01-02")))
		}
	}
	if len(s.Questions) > 0 {
		output.Header(fmt.Sprintf("Questions (%d)", len(s.Questions)))
		for _, q := range s.Questions {
			output.Line("  Q%-4d %s %s", q.ID, output.Truncate(q.Question, lineWidth), output.Dim(q.CreatedAt.Format("2006-01-02")))
		}
	}
	if len(s.Tasks) > 0 {
		output.Header(fmt.Sprintf("Tasks (%d)", len(s.Tasks)))
		for _, t := range s.Tasks {
			output.Line("%s %s", taskLine(t), output.Dim(t.UpdatedAt.Format("2006-01-02")))
		}
	}
}

// closeStale resolves stale blockers and cancels stale tasks, each after a
// prompt unless auto is set. Without a terminal nothing is closed.
func closeStale(database *db.DB, s *db.StaleItems, auto bool) (resolved, cancelled []int64, err error) {
	resolved, cancelled = []int64{}, []int64{}
	for _, b := range s.Blockers {
		ok := auto
		if !ok {
			if ok, err = confirm(fmt.Sprintf("Resolve B%d?", b.ID), b.Description, false); err != nil {
				return nil, nil, err
			}
		}
		if !ok {
			continue
		}
		if err := database.ResolveBlocker(b.ID, staleResolution); err != nil {
			return nil, nil, err
		}
		resolved = append(resolved, b.ID)
	}
	for _, t := range s.Tasks {
		ok := auto
		if !ok {
			if ok, err = confirm(fmt.Sprintf("Cancel T%d?", t.ID), t.Description, false); err != nil {
				return nil, nil, err
			}
		}
		if !ok {
			continue
		}
		if _, err := database.UpdateTaskStatus(t.ID, models.TaskCancelled, staleResolution); err != nil {
			return nil, nil, err
		}
		cancelled = append(cancelled, t.ID)
	}
	return resolved, cancelled, nil
}

func init() {
	rootCmd.AddCommand(cleanupCmd)

	cleanupCmd.Flags().Int("stale-days", 30, "Age in days after which an open item counts as stale")
	cleanupCmd.Flags().Bool("auto", false, "Close every stale blocker and task without asking")
}
