// Package output renders CLI messages, tables and JSON for proj commands.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"
	"golang.org/x/term"

	"github.com/marcus/proj/internal/models"
)

var (
	// Stdout and Stderr are swapped out by tests
	Stdout io.Writer = os.Stdout
	Stderr io.Writer = os.Stderr

	colorEnabled = detectColor()

	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	dimStyle     = lipgloss.NewStyle().Faint(true)
)

func detectColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// SetColor forces colored output on or off
func SetColor(enabled bool) {
	colorEnabled = enabled
}

func render(style lipgloss.Style, s string) string {
	if !colorEnabled {
		return s
	}
	return style.Render(s)
}

// Error prints an error message to stderr
func Error(format string, args ...any) {
	fmt.Fprintln(Stderr, render(errorStyle, "ERROR:")+" "+fmt.Sprintf(format, args...))
}

// Warning prints a warning to stderr
func Warning(format string, args ...any) {
	fmt.Fprintln(Stderr, render(warnStyle, "WARNING:")+" "+fmt.Sprintf(format, args...))
}

// Success prints a confirmation to stdout
func Success(format string, args ...any) {
	fmt.Fprintln(Stdout, render(successStyle, fmt.Sprintf(format, args...)))
}

// Info prints a neutral message to stdout
func Info(format string, args ...any) {
	fmt.Fprintln(Stdout, render(infoStyle, fmt.Sprintf(format, args...)))
}

// Line prints a plain line to stdout
func Line(format string, args ...any) {
	fmt.Fprintf(Stdout, format+"\n", args...)
}

// Header prints a section heading
func Header(title string) {
	fmt.Fprintln(Stdout, render(headerStyle, strings.ToUpper(title)))
}

// Dim renders secondary text
func Dim(s string) string {
	return render(dimStyle, s)
}

// JSON writes v as indented JSON to stdout
func JSON(v any) error {
	enc := json.NewEncoder(Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// JSONError writes {"error": ..., "code": ...} to stdout for --json callers
func JSONError(code string, err error) {
	JSON(map[string]string{"error": err.Error(), "code": code})
}

// FormatTimeAgo renders t relative to now, e.g. "3 hours ago"
func FormatTimeAgo(t time.Time) string {
	return FormatTimeAgoFrom(t, time.Now())
}

// FormatTimeAgoFrom is FormatTimeAgo against an explicit now
func FormatTimeAgoFrom(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// FormatDuration renders a session length like "2h15m"
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	if d < time.Minute {
		return "<1m"
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh%02dm", h, m)
}

// FormatStatus renders a task status as a colored tag
func FormatStatus(s models.TaskStatus) string {
	tag := "[" + string(s) + "]"
	switch s {
	case models.TaskCompleted:
		return render(successStyle, tag)
	case models.TaskInProgress:
		return render(infoStyle, tag)
	case models.TaskBlocked:
		return render(errorStyle, tag)
	case models.TaskCancelled:
		return render(dimStyle, tag)
	}
	return tag
}

// FormatPriority renders a priority, urgent ones highlighted
func FormatPriority(p models.Priority) string {
	switch p {
	case models.PriorityUrgent:
		return render(errorStyle, string(p))
	case models.PriorityHigh:
		return render(warnStyle, string(p))
	}
	return string(p)
}

// FormatCount renders n with thousands separators and a pluralized noun
func FormatCount(n int, noun string) string {
	if n != 1 {
		noun += "s"
	}
	return humanize.Comma(int64(n)) + " " + noun
}

// Truncate shortens s to width display cells, ANSI-aware
func Truncate(s string, width int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if width <= 0 {
		return s
	}
	return ansi.Truncate(s, width, "…")
}
