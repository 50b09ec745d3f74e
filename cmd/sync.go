package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/marcus/proj/internal/git"
	"github.com/marcus/proj/internal/output"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Mirror new git commits into the project history",
	Long: `Reads commits since the newest mirrored one (or the last git_sync_limit
commits on first run) and stores them. Already mirrored hashes are skipped.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		if limit == 0 {
			limit = database.Config().GitSyncLimit
		}
		var since string
		if full, _ := cmd.Flags().GetBool("full"); !full {
			latest, err := database.LatestCommit()
			if err != nil {
				return fail(err)
			}
			if latest != nil {
				since = latest.Hash
			}
		}

		commits, err := git.NewReader(database.BaseDir()).Log(cmd.Context(), since, limit)
		if errors.Is(err, git.ErrNotRepository) {
			if jsonOutput {
				return output.JSON(map[string]any{"received": 0, "inserted": 0, "skipped": "not a git repository"})
			}
			output.Warning("%s is not a git repository; nothing to sync", database.BaseDir())
			return nil
		}
		if err != nil {
			return fail(err)
		}

		res, err := database.SyncCommits(commits)
		if err != nil {
			return fail(err)
		}
		if jsonOutput {
			return output.JSON(res)
		}
		if res.Inserted == 0 {
			output.Info("Already up to date")
			return nil
		}
		output.Success("Mirrored %s", output.FormatCount(res.Inserted, "commit"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().IntP("limit", "n", 0, "Maximum commits to read (default git_sync_limit)")
	syncCmd.Flags().Bool("full", false, "Ignore the last mirrored commit and rescan up to the limit")
}
