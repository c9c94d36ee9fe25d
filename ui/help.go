package ui

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

var (
	themeMu   sync.RWMutex
	helpTheme = styles.NoTTYStyle
)

// DetectHelpTheme picks the glamour theme for help from out and the
// terminal background, and returns its name. Asking for the background
// reads the terminal's reply from stdin, so call it before a line editor
// starts reading.
func DetectHelpTheme(out *os.File) string {
	theme := styles.NoTTYStyle
	if isatty.IsTerminal(out.Fd()) {
		theme = styles.LightStyle
		if lipgloss.HasDarkBackground() {
			theme = styles.DarkStyle
		}
	}
	SetHelpTheme(theme)
	return theme
}

// SetHelpTheme sets the glamour standard style used by RenderHelp.
func SetHelpTheme(name string) {
	themeMu.Lock()
	defer themeMu.Unlock()
	helpTheme = name
}

func currentHelpTheme() string {
	themeMu.RLock()
	defer themeMu.RUnlock()
	return helpTheme
}

// HelpEntry is one line of the help table.
type HelpEntry struct {
	Usage       string
	Description string
}

// HelpMarkdown lays the entries out as a markdown table.
func HelpMarkdown(entries []HelpEntry) string {
	var b strings.Builder
	b.WriteString("## Supported commands\n\n")
	b.WriteString("| Command | Description |\n|---|---|\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "| `%s` | %s |\n", e.Usage, e.Description)
	}
	return b.String()
}

// HelpPlain is the unrendered fallback.
func HelpPlain(entries []HelpEntry) string {
	width := 0
	for _, e := range entries {
		width = max(width, len(e.Usage))
	}

	var b strings.Builder
	b.WriteString("Supported commands:\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "  %-*s - %s\n", width, e.Usage, e.Description)
	}
	return b.String()
}

// RenderHelp renders the help table for the terminal, falling back to plain
// text when glamour cannot render.
func RenderHelp(entries []HelpEntry) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(currentHelpTheme()),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return HelpPlain(entries)
	}
	out, err := r.Render(HelpMarkdown(entries))
	if err != nil {
		return HelpPlain(entries)
	}
	return out
}
