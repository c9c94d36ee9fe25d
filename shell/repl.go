package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"termpal/model"
	"termpal/ui"

	"github.com/chzyer/readline"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
)

// ErrInterrupt is returned by a LineReader when the user presses Ctrl+C at
// the prompt.
var ErrInterrupt = readline.ErrInterrupt

// LineReader reads one line of input per call. It returns io.EOF at end of
// input. *readline.Instance satisfies it.
type LineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
	Close() error
}

type plainReader struct {
	in     *bufio.Reader
	out    io.Writer
	prompt string
}

// NewPlainReader reads lines from in without any editing support, writing
// the prompt to out.
func NewPlainReader(in io.Reader, out io.Writer) LineReader {
	return &plainReader{in: bufio.NewReader(in), out: out}
}

func (p *plainReader) SetPrompt(prompt string) { p.prompt = prompt }

func (p *plainReader) Readline() (string, error) {
	fmt.Fprint(p.out, p.prompt)
	line, err := p.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return line, nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (p *plainReader) Close() error { return nil }

// NewLineReader returns a readline editor with completion and the given
// history when in is a terminal, and a plain reader otherwise.
func NewLineReader(in *os.File, out io.Writer, completer readline.AutoCompleter, history []string, limit int) (LineReader, error) {
	if !isatty.IsTerminal(in.Fd()) && !isatty.IsCygwinTerminal(in.Fd()) {
		return NewPlainReader(in, out), nil
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "$ ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		HistoryLimit:    limit,
		AutoComplete:    completer,
		Stdin:           readline.NewCancelableStdin(in),
	})
	if err != nil {
		return nil, fmt.Errorf("initializing readline: %w", err)
	}
	for _, line := range history {
		_ = rl.SaveHistory(line)
	}
	return rl, nil
}

type promptKey struct{}

// fromPrompt reports whether ctx belongs to a line typed at the prompt, as
// opposed to a scheduled job.
func fromPrompt(ctx context.Context) bool {
	v, _ := ctx.Value(promptKey{}).(bool)
	return v
}

type readResult struct {
	line string
	err  error
}

// readLine waits for a line or for ctx to end, whichever is first.
func readLine(ctx context.Context, r LineReader) (string, error) {
	ch := make(chan readResult, 1)
	go func() {
		line, err := r.Readline()
		ch <- readResult{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		return res.line, res.err
	}
}

// Run is the interactive loop. It returns nil on exit, end of input, or when
// ctx is cancelled.
func (s *Shell) Run(ctx context.Context, r LineReader) error {
	lineCtx := context.WithValue(ctx, promptKey{}, true)
	for {
		cwd, err := os.Getwd()
		if err != nil {
			cwd = "?"
		}
		r.SetPrompt(ui.Prompt(cwd))

		line, err := readLine(ctx, r)
		switch {
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, ErrInterrupt):
			s.console.Println("")
			continue
		case errors.Is(err, io.EOF):
			s.console.Println("")
			return nil
		case err != nil:
			return fmt.Errorf("reading input: %w", err)
		}

		cmd, ok := model.ParseLine(line)
		if !ok {
			continue
		}
		s.record(line)

		if err := s.Dispatch(lineCtx, cmd); errors.Is(err, ErrExit) {
			return nil
		}
	}
}

func (s *Shell) record(line string) {
	if s.history == nil {
		return
	}
	if _, err := s.history.Add(line, s.sessionID); err != nil {
		s.logger.Warn("recording history failed", zap.Error(err))
	}
}
