package cli

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Palette shared with the settings wizard.
var (
	colourPrimary = lipgloss.Color("#7C3AED")
	colourMuted   = lipgloss.Color("#6C7086")
	colourSuccess = lipgloss.Color("#A6E3A1")
	colourWarning = lipgloss.Color("#F9E2AF")
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(colourPrimary)
	mutedStyle   = lipgloss.NewStyle().Foreground(colourMuted)
	successStyle = lipgloss.NewStyle().Foreground(colourSuccess)
	warnStyle    = lipgloss.NewStyle().Foreground(colourWarning)
)

// styled is false when stdout is redirected, so piped output stays plain.
var styled = term.IsTerminal(int(os.Stdout.Fd()))

func render(style lipgloss.Style, s string) string {
	if !styled {
		return s
	}
	return style.Render(s)
}

// heading renders a title followed by an underline of the same width.
func heading(title string) string {
	return render(headingStyle, title) + "\n" + strings.Repeat("=", lipgloss.Width(title))
}

func muted(s string) string   { return render(mutedStyle, s) }
func success(s string) string { return render(successStyle, s) }
func warn(s string) string    { return render(warnStyle, s) }
