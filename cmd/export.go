package cmd

import (
	"bytes"
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/marcus/proj/internal/export"
	"github.com/marcus/proj/internal/output"
	"github.com/marcus/proj/internal/workdir"
)

var exportFormat = newEnum(export.FormatMarkdown, append(export.Formats(), "md", "yml")...)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the full project history",
	Long: `Writes every session, decision, task, blocker, note, question and commit.
JSON carries the complete history; markdown is meant for reading and can be
rendered for the terminal with --render.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()

		data, err := database.Export()
		if err != nil {
			return fail(err)
		}

		format := exportFormat.String()
		if jsonOutput && !cmd.Flags().Changed("format") {
			format = export.FormatJSON
		}

		var buf bytes.Buffer
		if err := export.Write(&buf, data, format); err != nil {
			return fail(err)
		}

		out := buf.Bytes()
		if render, _ := cmd.Flags().GetBool("render"); render {
			if format != export.FormatMarkdown && format != "md" {
				return fail(fmt.Errorf("--render only applies to markdown"))
			}
			r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(lineWidth))
			if err != nil {
				return fail(err)
			}
			rendered, err := r.Render(buf.String())
			if err != nil {
				return fail(err)
			}
			out = []byte(rendered)
		}

		path, _ := cmd.Flags().GetString("output")
		if path == "" || path == "-" {
			_, err := output.Stdout.Write(out)
			return err
		}
		if err := workdir.WriteFileAtomic(path, out, 0644); err != nil {
			return fail(err)
		}
		output.Success("Exported %s to %s", format, path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	addEnumFlag(exportCmd.Flags(), "format", "f", exportFormat, "Output format")
	exportCmd.Flags().StringP("output", "o", "", "Write to a file instead of stdout")
	exportCmd.Flags().Bool("render", false, "Render markdown for the terminal")
}
