package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marcus/proj/internal/models"
	"github.com/marcus/proj/internal/output"
)

var blockerCmd = &cobra.Command{
	Use:     "blocker",
	Aliases: []string{"blockers"},
	Short:   "List and resolve blockers",
}

var blockerListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List active blockers",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()

		all, _ := cmd.Flags().GetBool("all")
		blockers, err := database.ListBlockers(all)
		if err != nil {
			return fail(err)
		}
		if jsonOutput {
			return output.JSON(blockers)
		}
		if len(blockers) == 0 {
			output.Line("No blockers")
			return nil
		}
		for _, b := range blockers {
			line := fmt.Sprintf("  B%-4d %s", b.ID, output.Truncate(b.Description, lineWidth))
			if b.Status == models.BlockerResolved {
				line = output.Dim(line + " (resolved: " + b.Resolution + ")")
			}
			output.Line("%s", line)
		}
		return nil
	},
}

var blockerResolveCmd = &cobra.Command{
	Use:   "resolve ID [RESOLUTION]",
	Short: "Mark a blocker resolved",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "B")
		if err != nil {
			return fail(err)
		}
		resolution, _ := cmd.Flags().GetString("resolution")
		if len(args) == 2 {
			resolution = args[1]
		}

		database, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()

		if err := database.ResolveBlocker(id, resolution); err != nil {
			return fail(err)
		}
		if jsonOutput {
			return output.JSON(map[string]any{"blocker_id": id, "status": models.BlockerResolved})
		}
		output.Success("Resolved B%d", id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(blockerCmd)
	blockerCmd.AddCommand(blockerListCmd, blockerResolveCmd)

	blockerListCmd.Flags().BoolP("all", "a", false, "Include resolved blockers")
	blockerResolveCmd.Flags().String("resolution", "", "How the blocker was cleared")
}
