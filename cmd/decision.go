package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marcus/proj/internal/output"
)

var decisionCmd = &cobra.Command{
	Use:     "decision",
	Aliases: []string{"decisions"},
	Short:   "Browse decisions",
}

var decisionListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List decisions, newest first",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()

		all, _ := cmd.Flags().GetBool("all")
		limit, _ := cmd.Flags().GetInt("limit")
		decisions, err := database.ListDecisions(all, limit)
		if err != nil {
			return fail(err)
		}
		if jsonOutput {
			return output.JSON(decisions)
		}
		if len(decisions) == 0 {
			output.Line("No decisions")
			return nil
		}
		for _, d := range decisions {
			output.Line("%s", decisionLine(d))
		}
		return nil
	},
}

var decisionHistoryCmd = &cobra.Command{
	Use:   "history ID",
	Short: "Show the chain of decisions a decision replaced",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "D")
		if err != nil {
			return fail(err)
		}

		database, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()

		chain, err := database.DecisionHistory(id)
		if err != nil {
			return fail(err)
		}
		if jsonOutput {
			return output.JSON(chain)
		}

		nodes := make([]output.TreeNode, len(chain))
		for i, d := range chain {
			nodes[i] = output.TreeNode{
				ID:     fmt.Sprintf("D%d", d.ID),
				Title:  fmt.Sprintf("%s: %s", d.Topic, output.Truncate(d.Decision, lineWidth)),
				Status: string(d.Status),
			}
		}
		head := output.Chain(nodes)[0]
		output.Line("%s: %s [%s]", head.ID, head.Title, head.Status)
		if len(head.Children) > 0 {
			output.Line("%s", output.RenderTree(head, output.TreeRenderOptions{ShowStatus: true}))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(decisionCmd)
	decisionCmd.AddCommand(decisionListCmd, decisionHistoryCmd)

	decisionListCmd.Flags().BoolP("all", "a", false, "Include superseded decisions")
	decisionListCmd.Flags().IntP("limit", "n", 0, "Maximum decisions")
}
