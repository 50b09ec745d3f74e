// Package export renders a full store dump as JSON, YAML or Markdown.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/marcus/proj/internal/models"
)

// Format names accepted by Write
const (
	FormatJSON     = "json"
	FormatYAML     = "yaml"
	FormatMarkdown = "markdown"
)

// Formats lists every supported format
func Formats() []string {
	return []string{FormatJSON, FormatYAML, FormatMarkdown}
}

// Write renders data to w in the named format
func Write(w io.Writer, data *models.ExportData, format string) error {
	switch strings.ToLower(format) {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case FormatYAML, "yml":
		return writeYAML(w, data)
	case FormatMarkdown, "md":
		_, err := io.WriteString(w, Markdown(data))
		return err
	}
	return fmt.Errorf("export: unknown format %q (want one of %s)", format, strings.Join(Formats(), ", "))
}

// writeYAML goes through JSON so field names match the JSON export
func writeYAML(w io.Writer, data *models.ExportData) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	var tree yaml.Node
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return err
	}
	blockStyle(&tree)
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&tree); err != nil {
		return err
	}
	return enc.Close()
}

// blockStyle drops the flow and quoting styles inherited from JSON
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}

const dateFmt = "2006-01-02 15:04"

// Markdown renders a human-readable project report
func Markdown(data *models.ExportData) string {
	var b bytes.Buffer
	name := data.Project.Name
	if name == "" {
		name = "Project"
	}
	fmt.Fprintf(&b, "# %s\n\n", name)
	if data.Project.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", data.Project.Description)
	}
	fmt.Fprintf(&b, "_Exported %s, schema v%d._\n", data.ExportedAt.Format(dateFmt), data.Project.SchemaVersion)

	section(&b, "Decisions", len(data.Decisions))
	for _, d := range data.Decisions {
		line := fmt.Sprintf("- **%s**: %s", d.Topic, d.Decision)
		if d.Status == models.DecisionSuperseded {
			line = fmt.Sprintf("- ~~**%s**: %s~~ (superseded)", d.Topic, d.Decision)
		}
		if d.Supersedes != 0 {
			line += fmt.Sprintf(" (replaces #%d)", d.Supersedes)
		}
		b.WriteString(line + "\n")
		if d.Rationale != "" {
			fmt.Fprintf(&b, "  - _Why:_ %s\n", d.Rationale)
		}
	}

	section(&b, "Tasks", len(data.Tasks))
	for _, t := range data.Tasks {
		box := " "
		if t.Status == models.TaskCompleted {
			box = "x"
		}
		fmt.Fprintf(&b, "- [%s] %s (%s, %s)\n", box, t.Description, t.Status, t.Priority)
	}

	section(&b, "Blockers", len(data.Blockers))
	for _, bl := range data.Blockers {
		fmt.Fprintf(&b, "- %s [%s]", bl.Description, bl.Status)
		if bl.Resolution != "" {
			fmt.Fprintf(&b, ": %s", bl.Resolution)
		}
		b.WriteString("\n")
	}

	section(&b, "Context", len(data.Notes))
	for _, n := range data.Notes {
		fmt.Fprintf(&b, "- **%s** (%s): %s\n", n.Title, n.Category, n.Content)
	}

	section(&b, "Questions", len(data.Questions))
	for _, q := range data.Questions {
		if q.Answered {
			fmt.Fprintf(&b, "- %s\n  - %s\n", q.Question, q.Answer)
		} else {
			fmt.Fprintf(&b, "- %s _(open)_\n", q.Question)
		}
	}

	section(&b, "Sessions", len(data.Sessions))
	for _, s := range data.Sessions {
		end := "active"
		if s.EndedAt != nil {
			end = s.EndedAt.Format(dateFmt)
		}
		fmt.Fprintf(&b, "- #%d %s → %s", s.ID, s.StartedAt.Format(dateFmt), end)
		if s.Summary != "" {
			fmt.Fprintf(&b, ": %s", s.Summary)
		}
		if s.ClosedReason == models.ClosedAutoStale {
			b.WriteString(" _(auto-closed)_")
		}
		b.WriteString("\n")
	}

	section(&b, "Commits", len(data.Commits))
	for _, c := range data.Commits {
		fmt.Fprintf(&b, "- `%s` %s (%s)\n", c.ShortHash, c.Message, c.Author)
	}

	return b.String()
}

func section(b *bytes.Buffer, title string, n int) {
	fmt.Fprintf(b, "\n## %s\n\n", title)
	if n == 0 {
		b.WriteString("_None._\n")
	}
}
