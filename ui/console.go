package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Console writes styled shell output. Each call is written atomically, but
// calls from the prompt and the scheduler may interleave with each other.
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

// SetOutput redirects later writes, e.g. to a line editor that redraws its
// prompt after foreign output.
func (c *Console) SetOutput(w io.Writer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.out = w
}

func (c *Console) write(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	io.WriteString(c.out, s)
}

// Print writes s verbatim.
func (c *Console) Print(s string) {
	c.write(s)
}

func (c *Console) Println(s string) {
	c.write(s + "\n")
}

// Printf formats like fmt.Printf, unstyled.
func (c *Console) Printf(format string, args ...any) {
	c.write(fmt.Sprintf(format, args...))
}

// Error prints "Error: msg" in the error style.
func (c *Console) Error(msg string) {
	c.write(errorStyle.Render("Error: "+msg) + "\n")
}

func (c *Console) Errorf(format string, args ...any) {
	c.Error(fmt.Sprintf(format, args...))
}

func (c *Console) Success(msg string) {
	c.write(successStyle.Render(msg) + "\n")
}

// Notice is for scheduler announcements.
func (c *Console) Notice(label, msg string) {
	c.write(noticeStyle.Render(label) + " " + msg + "\n")
}

func (c *Console) Heading(msg string) {
	c.write(headingStyle.Render(msg) + "\n")
}

// Dir prints a directory name in a listing.
func (c *Console) Dir(name string) {
	c.write(dirStyle.Render(name) + "\n")
}

func (c *Console) Path(p string) {
	c.write(pathStyle.Render(p) + "\n")
}

func (c *Console) Weather(msg string) {
	c.write(weatherStyle.Render(msg) + "\n")
}

func (c *Console) Muted(msg string) {
	c.write(mutedStyle.Render(msg) + "\n")
}

// Stderr writes a child's standard error, styled line by line so that no
// padding is added to short lines.
func (c *Console) Stderr(text string) {
	c.write(styleLines(stderrStyle, text))
}

// Prompt renders the prompt for the given working directory.
func Prompt(cwd string) string {
	return promptStyle.Render(cwd+" $") + " "
}

func styleLines(st lipgloss.Style, text string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = st.Render(l)
		}
	}
	return strings.Join(lines, "\n")
}
