// Package shell is termpal's command registry, dispatcher and REPL.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"

	"termpal/model"
	"termpal/runner"
	"termpal/scheduler"
	"termpal/sysmon"
	"termpal/ui"
	"termpal/weather"

	"github.com/sahilm/fuzzy"
	"go.uber.org/zap"
)

var (
	// ErrExit is returned by Dispatch for the exit verb.
	ErrExit = errors.New("exit")
	// ErrMalformedInput marks bad arguments: missing operands, bad times.
	ErrMalformedInput = errors.New("malformed input")
	// ErrUnrecognized means a natural-language phrase matched no pattern.
	ErrUnrecognized = errors.New("unrecognized phrase")
)

// usageError is a handler failure shown to the user as-is.
type usageError struct {
	msg  string
	kind error
}

func (e *usageError) Error() string { return e.msg }
func (e *usageError) Unwrap() error { return e.kind }

func malformed(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...), kind: ErrMalformedInput}
}

// Handler runs a built-in. Per-target problems are printed by the handler;
// a returned error is printed by the dispatcher.
type Handler func(ctx context.Context, s *Shell, args []string) error

type builtin struct {
	name        string
	usage       string
	description string
	run         Handler
}

// HistoryStore records and recalls typed lines.
type HistoryStore interface {
	ui.HistoryStore
	Add(line, sessionID string) (int64, error)
}

// Options are the collaborators a Shell dispatches to. Only Console is
// required.
type Options struct {
	Console      *ui.Console
	Scheduler    *scheduler.Scheduler
	Sampler      sysmon.Sampler
	Weather      weather.Lookup
	History      HistoryStore
	HistoryLimit int
	SessionID    string
	Interpreters runner.Interpreters
	Logger       *zap.Logger

	// Terminal streams, used by the history picker.
	Stdin  io.Reader
	Stdout io.Writer

	// GOOS overrides runtime.GOOS, for tests.
	GOOS string
}

// Shell resolves verbs to built-ins or external programs. It has no notion
// of who is calling: the prompt and the scheduler go through Dispatch alike.
type Shell struct {
	console      *ui.Console
	scheduler    *scheduler.Scheduler
	sampler      sysmon.Sampler
	weather      weather.Lookup
	history      HistoryStore
	historyLimit int
	sessionID    string
	interpreters runner.Interpreters
	logger       *zap.Logger
	stdin        io.Reader
	stdout       io.Writer
	goos         string

	builtins map[string]builtin
	order    []string

	exitMu   sync.Mutex
	exitFn   func()
	exitOnce sync.Once
}

func New(opts Options) *Shell {
	s := &Shell{
		console:      opts.Console,
		scheduler:    opts.Scheduler,
		sampler:      opts.Sampler,
		weather:      opts.Weather,
		history:      opts.History,
		historyLimit: opts.HistoryLimit,
		sessionID:    opts.SessionID,
		interpreters: opts.Interpreters,
		logger:       opts.Logger,
		stdin:        opts.Stdin,
		stdout:       opts.Stdout,
		goos:         opts.GOOS,
		builtins:     make(map[string]builtin),
	}
	if s.console == nil {
		s.console = ui.NewConsole(os.Stdout)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.goos == "" {
		s.goos = runtime.GOOS
	}
	if s.interpreters.Python == "" {
		s.interpreters.Python = "python3"
	}
	if s.interpreters.Shell == "" {
		s.interpreters.Shell = "bash"
	}
	if s.stdin == nil {
		s.stdin = os.Stdin
	}
	if s.stdout == nil {
		s.stdout = os.Stdout
	}

	s.registerBuiltins()

	if s.scheduler != nil {
		s.scheduler.SetDispatcher(s)
		s.scheduler.SetFireHandler(func(job scheduler.Job) {
			s.console.Notice("Scheduled job running:", job.Command.String())
		})
		s.scheduler.SetErrorHandler(func(job scheduler.Job, err error) {
			if errors.Is(err, ErrExit) {
				s.logger.Info("exit requested by scheduled job", zap.Int64("job_id", job.ID))
				s.requestExit()
			}
		})
	}
	return s
}

func (s *Shell) register(b builtin) {
	s.builtins[b.name] = b
	s.order = append(s.order, b.name)
}

// SetExitFunc sets what happens when a scheduled job runs exit. The prompt
// handles its own exit by returning from Run.
func (s *Shell) SetExitFunc(fn func()) {
	s.exitMu.Lock()
	defer s.exitMu.Unlock()
	s.exitFn = fn
}

func (s *Shell) requestExit() {
	s.exitMu.Lock()
	fn := s.exitFn
	s.exitMu.Unlock()
	if fn == nil {
		return
	}
	s.exitOnce.Do(fn)
}

// Verbs lists the built-in verbs in help order.
func (s *Shell) Verbs() []string {
	return append([]string(nil), s.order...)
}

// Help returns the help table entries.
func (s *Shell) Help() []ui.HelpEntry {
	entries := make([]ui.HelpEntry, 0, len(s.order))
	for _, name := range s.order {
		b := s.builtins[name]
		entries = append(entries, ui.HelpEntry{Usage: b.usage, Description: b.description})
	}
	return entries
}

// Dispatch runs cmd. Only ErrExit is returned; every other failure is
// reported on the console.
func (s *Shell) Dispatch(ctx context.Context, cmd model.Command) error {
	s.logger.Debug("dispatch", zap.String("verb", cmd.Verb), zap.Int("args", len(cmd.Args)))

	if cmd.Verb == "exit" {
		return ErrExit
	}

	if b, ok := s.builtins[cmd.Verb]; ok {
		if err := s.runBuiltin(ctx, b, cmd.Args); err != nil {
			if errors.Is(err, ErrExit) {
				return err
			}
			s.console.Error(err.Error())
		}
		return nil
	}

	s.runExternal(ctx, cmd)
	return nil
}

func (s *Shell) runBuiltin(ctx context.Context, b builtin, args []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("builtin panicked", zap.String("verb", b.name), zap.Any("panic", r))
			err = fmt.Errorf("%s: internal error: %v", b.name, r)
		}
	}()
	return b.run(ctx, s, args)
}

func (s *Shell) runExternal(ctx context.Context, cmd model.Command) {
	res, err := runner.Capture(ctx, cmd.Verb, cmd.Args)
	if err != nil {
		if errors.Is(err, runner.ErrNotFound) {
			s.console.Errorf("%s: command not found", cmd.Verb)
			if hint := s.suggest(cmd.Verb); hint != "" {
				s.console.Muted(fmt.Sprintf("did you mean '%s'?", hint))
			}
			return
		}
		s.logger.Warn("external command failed to start", zap.String("name", cmd.Verb), zap.Error(err))
		s.console.Errorf("Error running command '%s': %v", cmd.Verb, err)
		return
	}

	s.logger.Debug("external command finished", zap.String("name", cmd.Verb), zap.Int("exit_code", res.ExitCode))
	s.printResult(res)
}

func (s *Shell) printResult(res runner.Result) {
	if res.Stdout != "" {
		s.console.Print(res.Stdout)
	}
	if res.Stderr != "" {
		s.console.Stderr(res.Stderr)
	}
}

// suggest returns the closest built-in verb for an unknown one.
func (s *Shell) suggest(verb string) string {
	matches := fuzzy.Find(verb, s.order)
	if len(matches) == 0 {
		return ""
	}
	return matches[0].Str
}
