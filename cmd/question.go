package cmd

import (
	"github.com/spf13/cobra"

	"github.com/marcus/proj/internal/output"
)

var questionCmd = &cobra.Command{
	Use:     "question",
	Aliases: []string{"questions"},
	Short:   "List and answer open questions",
}

var questionListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List open questions",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()

		all, _ := cmd.Flags().GetBool("all")
		questions, err := database.ListQuestions(all)
		if err != nil {
			return fail(err)
		}
		if jsonOutput {
			return output.JSON(questions)
		}
		if len(questions) == 0 {
			output.Line("No open questions")
			return nil
		}
		for _, q := range questions {
			output.Line("  Q%-4d %s", q.ID, output.Truncate(q.Question, lineWidth))
			if q.Context != "" {
				output.Line("        %s", output.Dim(q.Context))
			}
			if q.Answered {
				output.Line("        -> %s", q.Answer)
			}
		}
		return nil
	},
}

var questionAnswerCmd = &cobra.Command{
	Use:   "answer ID ANSWER",
	Short: "Answer an open question",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "Q")
		if err != nil {
			return fail(err)
		}

		database, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()

		if err := database.AnswerQuestion(id, args[1]); err != nil {
			return fail(err)
		}
		if jsonOutput {
			return output.JSON(map[string]any{"question_id": id, "answered": true})
		}
		output.Success("Answered Q%d", id)
		return nil
	},
}

var noteCmd = &cobra.Command{
	Use:     "notes",
	Aliases: []string{"note"},
	Short:   "List recent context notes",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		notes, err := database.ListNotes(limit)
		if err != nil {
			return fail(err)
		}
		if jsonOutput {
			return output.JSON(notes)
		}
		for _, n := range notes {
			output.Line("  N%-4d [%s] %s: %s", n.ID, n.Category, n.Title, output.Truncate(n.Content, lineWidth))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(questionCmd, noteCmd)
	questionCmd.AddCommand(questionListCmd, questionAnswerCmd)

	questionListCmd.Flags().BoolP("all", "a", false, "Include answered questions")
	noteCmd.Flags().IntP("limit", "n", 20, "Number of notes")
}
