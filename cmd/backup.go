package cmd

import (
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/marcus/proj/internal/output"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Write a backup of the project database",
	Long:  `Each project keeps one backup under ~/.proj/backups (or $PROJ_HOME/backups); it is replaced on every run.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()

		path, err := database.Backup()
		if err != nil {
			return fail(err)
		}
		var size uint64
		if fi, err := os.Stat(path); err == nil {
			size = uint64(fi.Size())
		}
		if jsonOutput {
			return output.JSON(map[string]any{"path": path, "bytes": size})
		}
		output.Success("Backed up to %s (%s)", path, humanize.Bytes(size))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(backupCmd)
}
