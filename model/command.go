package model

import (
	"strings"
	"time"
)

// Command is a verb plus its arguments, built from one line of input.
type Command struct {
	Verb string
	Args []string
}

// ParseLine splits a line on whitespace. The second return is false when the
// line holds no tokens.
func ParseLine(line string) (Command, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, false
	}
	return Command{Verb: fields[0], Args: fields[1:]}, true
}

func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Verb
	}
	return c.Verb + " " + strings.Join(c.Args, " ")
}

// HistoryEntry is one line typed at the prompt, as stored in the history db.
type HistoryEntry struct {
	ID         int64
	Line       string
	SessionID  string
	CreatedAt  time.Time
	LastUsedAt *time.Time
}
