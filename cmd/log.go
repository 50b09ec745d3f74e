package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marcus/proj/internal/db"
	"github.com/marcus/proj/internal/models"
	"github.com/marcus/proj/internal/output"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Log decisions, notes, blockers and questions",
	Long:  `Each entry is attached to the active session, which is started or resumed first.`,
}

// logged prints the id of a newly written entry
func logged(kind, ref string, id int64) error {
	if jsonOutput {
		return output.JSON(map[string]any{"kind": kind, "id": id, "ref": ref})
	}
	output.Success("Logged %s %s", kind, ref)
	return nil
}

var logDecisionCmd = &cobra.Command{
	Use:   "decision TOPIC DECISION [RATIONALE]",
	Short: "Record a decision",
	Long: `Records a decision under TOPIC. With --supersedes ID the earlier decision is
marked superseded and kept as history; TOPIC may then be omitted:

  proj log decision --supersedes D3 "use Postgres" "need concurrent writers"`,
	Args: cobra.RangeArgs(1, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		supersedes, _ := cmd.Flags().GetString("supersedes")
		in := db.DecisionInput{}
		switch {
		case supersedes != "" && len(args) < 3:
			in.Decision = args[0]
			if len(args) == 2 {
				in.Rationale = args[1]
			}
		case len(args) < 2:
			return fail(fmt.Errorf("%w: need TOPIC and DECISION", db.ErrInvalidInput))
		default:
			in.Topic, in.Decision = args[0], args[1]
			if len(args) == 3 {
				in.Rationale = args[2]
			}
		}
		if r, _ := cmd.Flags().GetString("rationale"); r != "" {
			in.Rationale = r
		}

		database, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()

		var id int64
		if supersedes != "" {
			oldID, err := parseID(supersedes, "D")
			if err != nil {
				return fail(err)
			}
			if id, err = database.SupersedeDecision(oldID, in); err != nil {
				return fail(err)
			}
			if !jsonOutput {
				output.Info("D%d is now superseded", oldID)
			}
		} else if id, err = database.LogDecision(in); err != nil {
			return fail(err)
		}
		return logged("decision", fmt.Sprintf("D%d", id), id)
	},
}

var noteCategory = newEnum("", toStrings(models.NoteCategories())...)

var logNoteCmd = &cobra.Command{
	Use:   "note CATEGORY TITLE CONTENT",
	Short: "Record a context note",
	Long:  `CATEGORY is one of goal, constraint, assumption, requirement or note.`,
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := noteCategory.Set(args[0]); err != nil {
			return fail(fmt.Errorf("%w: category %v", db.ErrInvalidInput, err))
		}

		database, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()

		id, err := database.LogNote(models.NoteCategory(noteCategory.String()), args[1], args[2])
		if err != nil {
			return fail(err)
		}
		return logged("note", fmt.Sprintf("N%d", id), id)
	},
}

var logBlockerCmd = &cobra.Command{
	Use:   "blocker DESCRIPTION",
	Short: "Record something blocking progress",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()

		id, err := database.LogBlocker(args[0])
		if err != nil {
			return fail(err)
		}
		return logged("blocker", fmt.Sprintf("B%d", id), id)
	},
}

var logQuestionCmd = &cobra.Command{
	Use:   "question QUESTION [CONTEXT]",
	Short: "Record an open question",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()

		var qctx string
		if len(args) == 2 {
			qctx = args[1]
		}
		id, err := database.LogQuestion(args[0], qctx)
		if err != nil {
			return fail(err)
		}
		return logged("question", fmt.Sprintf("Q%d", id), id)
	},
}

func init() {
	rootCmd.AddCommand(logCmd)
	logCmd.AddCommand(logDecisionCmd, logNoteCmd, logBlockerCmd, logQuestionCmd)

	logDecisionCmd.Flags().String("supersedes", "", "ID of the decision this one replaces")
	logDecisionCmd.Flags().StringP("rationale", "r", "", "Why the decision was made")
}
