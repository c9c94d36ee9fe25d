package shell

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"
)

// Completer offers verbs for the first word of a line and directory entries
// for the rest. It implements readline.AutoCompleter.
type Completer struct {
	verbs []string
}

func NewCompleter(verbs []string) *Completer {
	sorted := append([]string(nil), verbs...)
	sort.Strings(sorted)
	return &Completer{verbs: sorted}
}

func (c *Completer) Do(line []rune, pos int) ([][]rune, int) {
	text := string(line[:pos])
	start := strings.LastIndexAny(text, " \t") + 1
	word := text[start:]

	var options []string
	if strings.TrimSpace(text[:start]) == "" {
		options = c.completeVerb(word)
	} else {
		options = completePath(word)
	}

	var out [][]rune
	for _, opt := range options {
		if suffix := opt[len(word):]; suffix != "" {
			out = append(out, []rune(suffix))
		}
	}
	return out, utf8.RuneCountInString(word)
}

func (c *Completer) completeVerb(word string) []string {
	var out []string
	for _, v := range c.verbs {
		if strings.HasPrefix(v, word) {
			out = append(out, v)
		}
	}
	return out
}

// completePath lists entries matching word. A directory part in word is kept
// in each option; directories get a trailing separator.
func completePath(word string) []string {
	dir, base := ".", word
	prefix := ""
	if i := strings.LastIndexAny(word, `/`+string(filepath.Separator)); i >= 0 {
		prefix = word[:i+1]
		dir, base = prefix, word[i+1:]
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var out []string
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), base) {
			continue
		}
		opt := prefix + e.Name()
		if e.IsDir() {
			opt += "/"
		}
		out = append(out, opt)
	}
	return out
}
