package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marcus/proj/internal/output"
)

var (
	version string
	baseDir string

	jsonOutput bool
	verbose    bool
	dirFlag    string
)

// SetVersion sets the version string
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

var rootCmd = &cobra.Command{
	Use:   "proj",
	Short: "Project tracking and context for AI-assisted development",
	Long: `proj - records decisions, tasks, blockers, notes, questions and commits
in a per-project SQLite database, grouped into work sessions.

Optimized for resuming work: status and resume rebuild the picture of where
the last session stopped.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging()
		return initBaseDir()
	},
}

// Execute runs the root command and exits with a code derived from the error
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	cmd, err := rootCmd.ExecuteContextC(ctx)
	stop()
	if err == nil {
		return
	}
	if strings.HasPrefix(err.Error(), "unknown command") {
		name := firstNonFlagArg(os.Args[1:])
		output.Error("unknown command %q", name)
		if hints := rootCmd.SuggestionsFor(name); len(hints) > 0 {
			output.Info("Did you mean: %s?", strings.Join(hints, ", "))
		}
		os.Exit(exitUsage)
	}
	// Flag and argument errors come from cobra before RunE, so nothing was printed yet
	if !reported(err) {
		output.Error("%v", err)
		if cmd != nil {
			fmt.Fprintln(output.Stderr, cmd.UsageString())
		}
	}
	os.Exit(exitCode(err))
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Machine-readable JSON output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging on stderr")
	rootCmd.PersistentFlags().StringVarP(&dirFlag, "dir", "C", "", "Run as if started in this directory")
}

func setupLogging() {
	level := slog.LevelWarn
	if verbose || os.Getenv("PROJ_DEBUG") == "1" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func initBaseDir() error {
	if dirFlag != "" {
		baseDir = dirFlag
		return nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("cannot determine working directory: %w", err)
	}
	baseDir = wd
	return nil
}

// getBaseDir returns the base directory for the project
func getBaseDir() string {
	return baseDir
}

// firstNonFlagArg returns the first argument that is not a flag
func firstNonFlagArg(args []string) string {
	for _, a := range args {
		if !strings.HasPrefix(a, "-") {
			return a
		}
	}
	return ""
}

// reportedError marks an error that a command already printed
type reportedError struct{ err error }

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

func reported(err error) bool {
	var r *reportedError
	return errors.As(err, &r)
}
