package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marcus/proj/internal/db"
	"github.com/marcus/proj/internal/output"
)

var searchKinds = []string{db.KindDecision, db.KindNote, db.KindCommit}

var contextCmd = &cobra.Command{
	Use:     "context QUERY",
	Aliases: []string{"search"},
	Short:   "Search decisions, notes and commits",
	Long: `Matches QUERY against decisions (superseded ones included), context notes
and mirrored commits. Results come newest first; --ranked orders them by
match quality weighted by recency.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()

		query := strings.Join(args, " ")
		opts := db.SearchOptions{}
		opts.Ranked, _ = cmd.Flags().GetBool("ranked")
		opts.Limit, _ = cmd.Flags().GetInt("limit")
		kinds, _ := cmd.Flags().GetStringSlice("kind")
		for _, k := range kinds {
			if !slices.Contains(searchKinds, k) {
				return fail(fmt.Errorf("%w: unknown kind %q (want %s)", db.ErrInvalidInput, k, strings.Join(searchKinds, ", ")))
			}
		}
		opts.Kinds = kinds

		results, err := database.Search(query, opts)
		if err != nil {
			return fail(err)
		}
		if jsonOutput {
			return output.JSON(results)
		}
		if len(results) == 0 {
			output.Line("No matches for '%s'", query)
			return nil
		}
		for _, r := range results {
			printSearchResult(r, opts.Ranked)
		}
		return nil
	},
}

func printSearchResult(r db.SearchResult, ranked bool) {
	head := fmt.Sprintf("%-8s %-9s %s", r.Ref, r.Kind, r.Title)
	if r.Status == "superseded" {
		head += output.Dim(" (superseded)")
	}
	if ranked {
		head += output.Dim(fmt.Sprintf("  %.2f via %s", r.Score, r.MatchField))
	}
	output.Line("%s", head)
	if r.Body != "" && r.Body != r.Title {
		output.Line("         %s", output.Truncate(r.Body, lineWidth))
	}
	output.Line("         %s", output.Dim(output.FormatTimeAgo(r.CreatedAt)))
}

func init() {
	rootCmd.AddCommand(contextCmd)

	contextCmd.Flags().Bool("ranked", false, "Order by relevance and recency")
	contextCmd.Flags().Bool("recent", false, "Order newest first (default)")
	contextCmd.Flags().IntP("limit", "n", 0, "Maximum results (default from config)")
	contextCmd.Flags().StringSliceP("kind", "k", nil, "Restrict to kinds: "+strings.Join(searchKinds, ", "))
	contextCmd.MarkFlagsMutuallyExclusive("ranked", "recent")
}
