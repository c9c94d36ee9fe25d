// Package nlp turns short English phrases into filesystem intents.
//
// The matcher is a fixed, ordered table of patterns. The first pattern that
// matches wins, so the table order is part of the contract: "remove x to y"
// contains "move x to y" and resolves to a move.
package nlp

import (
	"regexp"
	"strings"
)

// Kind identifies the action an intent asks for.
type Kind int

const (
	Unrecognized Kind = iota
	CreateFolder
	MoveEntry
	RemoveEntry
	ListFolder
)

func (k Kind) String() string {
	switch k {
	case CreateFolder:
		return "create-folder"
	case MoveEntry:
		return "move-entry"
	case RemoveEntry:
		return "remove-entry"
	case ListFolder:
		return "list-folder"
	default:
		return "unrecognized"
	}
}

// Intent is the result of matching a phrase. Path is the folder to create,
// the entry to remove, the folder to list, or the move source. Dest is only
// set for MoveEntry.
type Intent struct {
	Kind Kind
	Path string
	Dest string
}

type pattern struct {
	kind    Kind
	re      *regexp.Regexp
	extract func(m []string) Intent
}

// The leading .* is greedy, so when a phrase repeats a keyword the last
// occurrence supplies the parameters.
var patterns = []pattern{
	{
		kind: CreateFolder,
		re:   regexp.MustCompile(`^.*(?:create|make) (?:a )?(?:folder|directory) (\S+)`),
		extract: func(m []string) Intent {
			return Intent{Kind: CreateFolder, Path: m[1]}
		},
	},
	{
		kind: MoveEntry,
		re:   regexp.MustCompile(`^.*move (\S+) (?:to|into) (\S+)`),
		extract: func(m []string) Intent {
			return Intent{Kind: MoveEntry, Path: m[1], Dest: m[2]}
		},
	},
	{
		kind: RemoveEntry,
		re:   regexp.MustCompile(`^.*remove (\S+)`),
		extract: func(m []string) Intent {
			return Intent{Kind: RemoveEntry, Path: m[1]}
		},
	},
	{
		kind: ListFolder,
		re:   regexp.MustCompile(`^.*list files in (\S+)`),
		extract: func(m []string) Intent {
			return Intent{Kind: ListFolder, Path: m[1]}
		},
	},
}

// Match classifies text. It never fails: a phrase no pattern accepts yields an
// Unrecognized intent.
func Match(text string) Intent {
	text = strings.ToLower(text)
	for _, p := range patterns {
		if m := p.re.FindStringSubmatch(text); m != nil {
			return p.extract(m)
		}
	}
	return Intent{Kind: Unrecognized}
}
