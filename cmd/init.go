package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/marcus/proj/internal/config"
	"github.com/marcus/proj/internal/db"
	"github.com/marcus/proj/internal/git"
	"github.com/marcus/proj/internal/output"
	"github.com/marcus/proj/internal/workdir"
)

var (
	initProjectType = newEnum("", config.ProjectTypes...)
	initCommitMode  = newEnum("prompt", "prompt", "auto")
	initDriver      = newEnum(config.DriverModernc, config.DriverModernc, config.DriverCgo)
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize project tracking in the current directory",
	Long: `Creates .tracking/ with config.json and tracking.db at the current schema
version. Refuses to run when the project is already initialized.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := filepath.Abs(getBaseDir())
		if err != nil {
			return fail(err)
		}
		if workdir.IsInitialized(dir) {
			return fail(fmt.Errorf("%w: %s is already initialized", db.ErrInvalidInput, dir))
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fail(err)
		}

		cfg := config.Default()
		cfg.Name, _ = cmd.Flags().GetString("name")
		cfg.Description, _ = cmd.Flags().GetString("description")
		cfg.ProjectType = initProjectType.String()
		cfg.AutoCommitMode = initCommitMode.String()
		cfg.Driver = initDriver.String()
		cfg.AutoCommit, _ = cmd.Flags().GetBool("auto-commit")

		if cfg.Name == "" {
			cfg.Name = filepath.Base(dir)
		}
		if cfg.ProjectType == "" {
			cfg.ProjectType = config.DetectProjectType(dir)
		}

		// Prompt only for what was not given on the command line
		if !cmd.Flags().Changed("name") && !jsonOutput && isInteractive() {
			if err := promptProjectInfo(cfg); err != nil {
				return fail(err)
			}
		}

		if cfg.AutoCommit && !git.NewReader(dir).IsRepo(context.Background()) {
			output.Warning("auto-commit needs a git repository; leaving it off")
			cfg.AutoCommit = false
		}

		database, err := db.Initialize(dir, cfg)
		if err != nil {
			return fail(err)
		}
		defer database.Close()

		info := database.ProjectInfo()
		if jsonOutput {
			return output.JSON(info)
		}
		output.Success("Initialized %s (%s) in %s", info.Name, info.ProjectType, db.Path(dir))
		output.Line("  schema v%d, sessions go stale after %s", info.SchemaVersion, output.FormatDuration(cfg.StaleAfter()))
		if cfg.AutoCommit {
			output.Line("  auto-commit on session end (%s)", cfg.AutoCommitMode)
		}
		return nil
	},
}

func promptProjectInfo(cfg *config.Config) error {
	options := make([]huh.Option[string], 0, len(config.ProjectTypes))
	for _, t := range config.ProjectTypes {
		options = append(options, huh.NewOption(t, t))
	}
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Project name").Value(&cfg.Name),
			huh.NewSelect[string]().Title("Project type").Options(options...).Value(&cfg.ProjectType),
			huh.NewInput().Title("Description").Placeholder("optional").Value(&cfg.Description),
		),
	)
	return form.Run()
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().String("name", "", "Project name (defaults to the directory name)")
	initCmd.Flags().String("description", "", "Project description")
	initCmd.Flags().Bool("auto-commit", false, "Commit changes to git when a session ends")
	addEnumFlag(initCmd.Flags(), "type", "t", initProjectType, "Project type, detected when omitted")
	addEnumFlag(initCmd.Flags(), "commit-mode", "", initCommitMode, "Auto-commit mode")
	addEnumFlag(initCmd.Flags(), "driver", "", initDriver, "SQLite driver")
}
