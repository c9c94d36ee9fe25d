package ui

import (
	"fmt"
	"io"
	"strings"

	"termpal/model"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sahilm/fuzzy"
)

// HistoryStore is the part of the history database the picker needs.
type HistoryStore interface {
	Recent(limit int) ([]model.HistoryEntry, error)
	Delete(id int64) error
}

type pickerMode int

const (
	pickerBrowse pickerMode = iota
	pickerDelete
)

// HistoryPicker is a full-screen fuzzy finder over command history. After the
// program exits, Selected holds the chosen line or "" when cancelled.
type HistoryPicker struct {
	store    HistoryStore
	limit    int
	entries  []model.HistoryEntry
	filtered []model.HistoryEntry

	mode   pickerMode
	cursor int
	width  int
	height int
	err    string
	status string

	searchInput textinput.Model

	Selected string
}

func NewHistoryPicker(store HistoryStore, limit int) (*HistoryPicker, error) {
	entries, err := store.Recent(limit)
	if err != nil {
		return nil, err
	}

	search := textinput.New()
	search.Placeholder = "Search history..."
	search.Focus()

	return &HistoryPicker{
		store:       store,
		limit:       limit,
		entries:     entries,
		filtered:    entries,
		searchInput: search,
	}, nil
}

// RunPicker shows the picker on the given terminal streams and returns the
// chosen line.
func RunPicker(store HistoryStore, limit int, in io.Reader, out io.Writer) (string, error) {
	picker, err := NewHistoryPicker(store, limit)
	if err != nil {
		return "", err
	}

	p := tea.NewProgram(picker, tea.WithAltScreen(), tea.WithInput(in), tea.WithOutput(out))
	final, err := p.Run()
	if err != nil {
		return "", err
	}
	return final.(*HistoryPicker).Selected, nil
}

func (h *HistoryPicker) Init() tea.Cmd {
	return textinput.Blink
}

func (h *HistoryPicker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		h.width = msg.Width - 4
		h.height = msg.Height - 2
		return h, nil

	case tea.KeyMsg:
		h.err = ""
		h.status = ""

		switch h.mode {
		case pickerBrowse:
			return h.updateBrowse(msg)
		case pickerDelete:
			return h.updateDelete(msg)
		}
	}

	return h, nil
}

func (h *HistoryPicker) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return h, tea.Quit

	case "esc":
		if h.searchInput.Value() == "" {
			return h, tea.Quit
		}
		h.searchInput.SetValue("")
		h.filterEntries()

	case "up", "ctrl+p":
		if h.cursor > 0 {
			h.cursor--
		}

	case "down", "ctrl+n":
		if h.cursor < len(h.filtered)-1 {
			h.cursor++
		}

	case "enter":
		if len(h.filtered) > 0 {
			h.Selected = h.filtered[h.cursor].Line
			return h, tea.Quit
		}

	case "ctrl+d":
		if len(h.filtered) > 0 {
			h.mode = pickerDelete
		}

	default:
		var cmd tea.Cmd
		h.searchInput, cmd = h.searchInput.Update(msg)
		h.filterEntries()
		return h, cmd
	}

	return h, nil
}

func (h *HistoryPicker) updateDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		entry := h.filtered[h.cursor]
		if err := h.store.Delete(entry.ID); err != nil {
			h.err = err.Error()
		} else {
			h.status = "Deleted!"
			h.refreshEntries()
			if h.cursor >= len(h.filtered) && h.cursor > 0 {
				h.cursor--
			}
		}
		h.mode = pickerBrowse

	case "n", "N", "esc":
		h.mode = pickerBrowse
	}

	return h, nil
}

func (h *HistoryPicker) refreshEntries() {
	entries, err := h.store.Recent(h.limit)
	if err != nil {
		h.err = err.Error()
		return
	}
	h.entries = entries
	h.filterEntries()
}

func (h *HistoryPicker) filterEntries() {
	h.filtered = FilterHistory(h.entries, h.searchInput.Value())
	if h.cursor >= len(h.filtered) {
		h.cursor = max(0, len(h.filtered)-1)
	}
}

// FilterHistory ranks entries by fuzzy match against query. An empty query
// keeps the original order.
func FilterHistory(entries []model.HistoryEntry, query string) []model.HistoryEntry {
	if query == "" {
		return entries
	}

	targets := make([]string, len(entries))
	for i, e := range entries {
		targets[i] = e.Line
	}

	matches := fuzzy.Find(query, targets)
	filtered := make([]model.HistoryEntry, len(matches))
	for i, m := range matches {
		filtered[i] = entries[m.Index]
	}
	return filtered
}

func (h *HistoryPicker) View() string {
	if h.width == 0 {
		return "Loading..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("termpal history"))
	b.WriteString("\n\n")

	b.WriteString(h.searchInput.View())
	b.WriteString("\n\n")

	listHeight := h.height - 8
	if listHeight < 3 {
		listHeight = 3
	}
	b.WriteString(h.renderList(listHeight))

	if h.mode == pickerDelete && len(h.filtered) > 0 {
		b.WriteString("\n")
		b.WriteString(warningStyle.Render(fmt.Sprintf("Delete '%s'? (y/n)", h.filtered[h.cursor].Line)))
		b.WriteString("\n")
	}

	if h.err != "" {
		b.WriteString(errorStyle.Render("Error: " + h.err))
		b.WriteString("\n")
	}
	if h.status != "" {
		b.WriteString(successStyle.Render(h.status))
		b.WriteString("\n")
	}

	b.WriteString(h.renderHelp())

	return appStyle.Render(b.String())
}

func (h *HistoryPicker) renderList(height int) string {
	if len(h.filtered) == 0 {
		return mutedStyle.Render("No matching history.") + "\n"
	}

	var lines []string
	start := 0
	if h.cursor >= height {
		start = h.cursor - height + 1
	}
	end := min(start+height, len(h.filtered))

	for i := start; i < end; i++ {
		entry := h.filtered[i]
		prefix := "  "
		style := normalStyle
		if i == h.cursor {
			prefix = "▸ "
			style = selectedStyle
		}

		line := style.Render(prefix + truncate(entry.Line, h.width-20))
		if entry.LastUsedAt != nil {
			line += cmdPreviewStyle.Render("  " + entry.LastUsedAt.Format("Jan 02 15:04"))
		}
		lines = append(lines, line)
	}

	return strings.Join(lines, "\n") + "\n"
}

func (h *HistoryPicker) renderHelp() string {
	if h.mode != pickerBrowse {
		return ""
	}

	keys := []struct{ key, desc string }{
		{"enter", "run"},
		{"↑/↓", "move"},
		{"ctrl+d", "delete"},
		{"esc", "quit"},
	}

	var parts []string
	for _, k := range keys {
		parts = append(parts, helpKeyStyle.Render(k.key)+" "+helpStyle.Render(k.desc))
	}

	return strings.Join(parts, "  ")
}

func truncate(s string, n int) string {
	if n < 4 || len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
