package shell

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"termpal/fsops"
	"termpal/model"
	"termpal/nlp"
	"termpal/runner"
	"termpal/scheduler"
	"termpal/ui"
	"termpal/weather"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

func (s *Shell) registerBuiltins() {
	s.register(builtin{name: "ls", usage: "ls [path]", description: "list directory contents", run: cmdLs})
	s.register(builtin{name: "cd", usage: "cd [path]", description: "change directory", run: cmdCd})
	s.register(builtin{name: "pwd", usage: "pwd", description: "print current directory", run: cmdPwd})
	s.register(builtin{name: "mkdir", usage: "mkdir <dir>...", description: "create directories", run: cmdMkdir})
	s.register(builtin{name: "rm", usage: "rm <file/dir>...", description: "remove files or directories", run: cmdRm})
	s.register(builtin{name: "monitor", usage: "monitor", description: "show CPU and memory usage", run: cmdMonitor})
	s.register(builtin{name: "ai", usage: "ai <natural language command>", description: "execute natural language commands", run: cmdAI})
	s.register(builtin{name: "run", usage: "run <script> [args...]", description: "run Python, shell scripts (Unix), or executables", run: cmdRun})
	s.register(builtin{name: "schedule", usage: "schedule <command> at HH:MM", description: "schedule a command to run daily at specified time", run: cmdSchedule})
	s.register(builtin{name: "fetch", usage: "fetch <query>", description: "fetch info from web APIs (e.g. weather in london)", run: cmdFetch})
	s.register(builtin{name: "history", usage: "history [-i] [query]", description: "show or search command history (-i to pick interactively)", run: cmdHistory})
	// Dispatch handles exit itself; the entry only places it in help.
	s.register(builtin{name: "exit", usage: "exit", description: "exit the terminal"})
	s.register(builtin{name: "help", usage: "help", description: "show this help message", run: cmdHelp})
}

func cmdHelp(ctx context.Context, s *Shell, args []string) error {
	s.console.Print(ui.RenderHelp(s.Help()))
	return nil
}

func cmdLs(ctx context.Context, s *Shell, args []string) error {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}
	s.listDir("ls", path)
	return nil
}

// listDir prints the entries of path, reporting failures under prefix.
func (s *Shell) listDir(prefix, path string) bool {
	entries, err := fsops.List(path)
	if err != nil {
		switch fsops.KindOf(err) {
		case fsops.NotFound:
			s.console.Errorf("%s: cannot access '%s': No such file or directory", prefix, path)
		case fsops.NotADirectory:
			s.console.Errorf("%s: cannot access '%s': Not a directory", prefix, path)
		case fsops.PermissionDenied:
			s.console.Errorf("%s: cannot open directory '%s': Permission denied", prefix, path)
		default:
			s.console.Errorf("%s: cannot access '%s': %v", prefix, path, errors.Unwrap(err))
		}
		return false
	}

	for _, e := range entries {
		if e.IsDir {
			s.console.Dir(e.Name)
		} else {
			s.console.Println(e.Name)
		}
	}
	return true
}

func cmdCd(ctx context.Context, s *Shell, args []string) error {
	target := "~"
	if len(args) > 0 {
		target = args[0]
	}

	dir, err := fsops.ExpandHome(target)
	if err != nil {
		return fmt.Errorf("cd: cannot find home directory: %v", err)
	}

	if err := fsops.Chdir(dir); err != nil {
		switch fsops.KindOf(err) {
		case fsops.NotFound:
			s.console.Errorf("cd: no such file or directory: %s", target)
		case fsops.NotADirectory:
			s.console.Errorf("cd: not a directory: %s", target)
		case fsops.PermissionDenied:
			s.console.Errorf("cd: permission denied: %s", target)
		default:
			s.console.Errorf("cd: %s: %v", target, errors.Unwrap(err))
		}
	}
	return nil
}

func cmdPwd(ctx context.Context, s *Shell, args []string) error {
	dir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("pwd: %v", err)
	}
	s.console.Path(dir)
	return nil
}

func cmdMkdir(ctx context.Context, s *Shell, args []string) error {
	if len(args) == 0 {
		return malformed("mkdir: missing operand")
	}
	for _, dir := range args {
		s.makeDir("mkdir", dir)
	}
	return nil
}

// makeDir creates one directory, reporting failures under prefix.
func (s *Shell) makeDir(prefix, dir string) bool {
	if err := fsops.Mkdir(dir); err != nil {
		switch fsops.KindOf(err) {
		case fsops.AlreadyExists:
			s.console.Errorf("%s: cannot create directory '%s': File exists", prefix, dir)
		case fsops.PermissionDenied:
			s.console.Errorf("%s: cannot create directory '%s': Permission denied", prefix, dir)
		default:
			s.console.Errorf("%s: cannot create directory '%s': %v", prefix, dir, errors.Unwrap(err))
		}
		return false
	}
	s.console.Success(fmt.Sprintf("Directory '%s' created.", dir))
	return true
}

func cmdRm(ctx context.Context, s *Shell, args []string) error {
	if len(args) == 0 {
		return malformed("rm: missing operand")
	}
	for _, target := range args {
		s.removeEntry("rm", target)
	}
	return nil
}

// removeEntry deletes one file or tree, reporting failures under prefix.
func (s *Shell) removeEntry(prefix, target string) bool {
	if err := fsops.Remove(target); err != nil {
		switch fsops.KindOf(err) {
		case fsops.PermissionDenied:
			s.console.Errorf("%s: cannot remove '%s': Permission denied", prefix, target)
		case fsops.NotFound:
			s.console.Errorf("%s: cannot remove '%s': No such file or directory", prefix, target)
		default:
			s.console.Errorf("%s: cannot remove '%s': %v", prefix, target, errors.Unwrap(err))
		}
		return false
	}
	s.console.Success(fmt.Sprintf("Removed '%s'.", target))
	return true
}

func cmdMonitor(ctx context.Context, s *Shell, args []string) error {
	if s.sampler == nil {
		return fmt.Errorf("monitor: resource sampling is not available")
	}
	u, err := s.sampler.Sample(ctx)
	if err != nil {
		return fmt.Errorf("monitor: %v", err)
	}

	const mb = 1024 * 1024
	s.console.Meter("CPU Usage:", u.CPUPercent, ui.CPUFill, fmt.Sprintf("%.1f%%", u.CPUPercent))
	s.console.Meter("Memory Usage:", u.MemoryPercent, ui.MemoryFill,
		fmt.Sprintf("%.1f%% (%d MB used of %d MB)", u.MemoryPercent, u.MemoryUsed/mb, u.MemoryTotal/mb))
	return nil
}

func cmdAI(ctx context.Context, s *Shell, args []string) error {
	if len(args) == 0 {
		return malformed("ai: missing natural language command")
	}

	intent := nlp.Match(strings.Join(args, " "))
	s.logger.Debug("natural language intent",
		zap.Stringer("kind", intent.Kind),
		zap.String("path", intent.Path),
		zap.String("dest", intent.Dest))
	switch intent.Kind {
	case nlp.CreateFolder:
		s.makeDir("ai", intent.Path)
	case nlp.MoveEntry:
		s.moveEntry(intent.Path, intent.Dest)
	case nlp.RemoveEntry:
		s.removeEntry("ai", intent.Path)
	case nlp.ListFolder:
		if fsops.IsDir(intent.Path) {
			s.console.Heading(fmt.Sprintf("Files in '%s':", intent.Path))
		}
		s.listDir("ai", intent.Path)
	default:
		return &usageError{msg: "Sorry, I could not understand the command.", kind: ErrUnrecognized}
	}
	return nil
}

func (s *Shell) moveEntry(src, dst string) bool {
	if !fsops.Exists(src) {
		s.console.Errorf("ai: source '%s' does not exist", src)
		return false
	}
	if !fsops.Exists(dst) {
		s.console.Errorf("ai: destination folder '%s' does not exist", dst)
		return false
	}
	if !fsops.IsDir(dst) {
		s.console.Errorf("ai: destination '%s' is not a folder", dst)
		return false
	}

	if _, err := fsops.Move(src, dst); err != nil {
		var fe *fsops.Error
		switch {
		case errors.As(err, &fe) && fe.Kind == fsops.AlreadyExists:
			s.console.Errorf("ai: cannot move '%s': '%s' already exists", src, fe.Path)
		case fsops.KindOf(err) == fsops.PermissionDenied:
			s.console.Errorf("ai: cannot move '%s': Permission denied", src)
		default:
			s.console.Errorf("ai: cannot move '%s': %v", src, errors.Unwrap(err))
		}
		return false
	}
	s.console.Success(fmt.Sprintf("Moved '%s' to '%s'.", src, dst))
	return true
}

func cmdRun(ctx context.Context, s *Shell, args []string) error {
	if len(args) == 0 {
		return malformed("run: missing script or executable name")
	}
	target := args[0]
	if !fsops.Exists(target) {
		return fmt.Errorf("run: '%s' does not exist", target)
	}

	name, argv, err := runner.ScriptCommand(s.goos, target, args[1:], s.interpreters)
	if err != nil {
		if errors.Is(err, runner.ErrUnsupported) {
			return fmt.Errorf("run: %v", err)
		}
		return fmt.Errorf("run: error running '%s': %v", target, err)
	}

	res, err := runner.Capture(ctx, name, argv)
	if err != nil {
		return fmt.Errorf("run: error running '%s': %v", target, err)
	}
	s.logger.Debug("script finished", zap.String("target", target), zap.Int("exit_code", res.ExitCode))
	s.printResult(res)
	return nil
}

func cmdSchedule(ctx context.Context, s *Shell, args []string) error {
	if s.scheduler == nil {
		return fmt.Errorf("schedule: scheduler is not running")
	}
	if len(args) < 3 {
		return malformed("schedule: usage: schedule <command...> at HH:MM")
	}

	atIndex := -1
	for i, a := range args {
		if a == "at" {
			atIndex = i
			break
		}
	}
	switch {
	case atIndex < 0:
		return malformed("schedule: missing 'at' keyword")
	case atIndex == 0:
		return malformed("schedule: missing command before 'at'")
	case atIndex == len(args)-1:
		return malformed("schedule: missing time after 'at'")
	}

	cmd := model.Command{Verb: args[0], Args: args[1:atIndex]}
	job, err := s.scheduler.Schedule(args[atIndex+1], cmd)
	if err != nil {
		if errors.Is(err, scheduler.ErrMalformedTime) {
			return malformed("schedule: time must be in HH:MM format")
		}
		return fmt.Errorf("schedule: %v", err)
	}

	s.console.Println(fmt.Sprintf("Scheduled command '%s' at %s", job.Command.String(), job.TimeOfDay()))
	return nil
}

var weatherQueryRe = regexp.MustCompile(`^weather in (.+)$`)

func cmdFetch(ctx context.Context, s *Shell, args []string) error {
	if len(args) == 0 {
		return malformed("fetch: missing query")
	}
	query := strings.ToLower(strings.Join(args, " "))

	m := weatherQueryRe.FindStringSubmatch(query)
	if m == nil {
		return malformed("fetch: unsupported query")
	}
	city := m[1]

	if s.weather == nil {
		return fmt.Errorf("fetch: weather lookup is not configured")
	}
	rep, err := s.weather.Current(ctx, city)
	switch {
	case errors.Is(err, weather.ErrCityNotFound):
		return fmt.Errorf("fetch: city '%s' not found", city)
	case errors.Is(err, weather.ErrNoAPIKey):
		return fmt.Errorf("fetch: no weather API key configured (set OPENWEATHER_API_KEY)")
	case err != nil:
		return fmt.Errorf("fetch: error fetching weather: %v", err)
	}

	s.console.Weather(fmt.Sprintf("Weather in %s: %s, Temperature: %s°C",
		cases.Title(language.English).String(city),
		rep.Description,
		strconv.FormatFloat(rep.TempC, 'f', -1, 64)))
	return nil
}

const historyShown = 20

func cmdHistory(ctx context.Context, s *Shell, args []string) error {
	if s.history == nil {
		return fmt.Errorf("history: history is disabled")
	}

	if len(args) > 0 && args[0] == "-i" {
		return s.pickHistory(ctx)
	}

	entries, err := s.history.Recent(s.historyLimit)
	if err != nil {
		return fmt.Errorf("history: %v", err)
	}

	if query := strings.Join(args, " "); query != "" {
		entries = ui.FilterHistory(entries, query)
	}
	if len(entries) > historyShown {
		entries = entries[:historyShown]
	}

	// Oldest first, so the latest line ends up next to the prompt.
	for i := len(entries) - 1; i >= 0; i-- {
		s.console.Printf("%4d  %s\n", entries[i].ID, entries[i].Line)
	}
	return nil
}

func (s *Shell) pickHistory(ctx context.Context) error {
	// The picker takes over the terminal, which only the prompt may hand out.
	if !fromPrompt(ctx) {
		return fmt.Errorf("history: -i is only available at the prompt")
	}
	if f, ok := s.stdin.(*os.File); !ok || !isatty.IsTerminal(f.Fd()) {
		return fmt.Errorf("history: -i needs an interactive terminal")
	}

	line, err := ui.RunPicker(s.history, s.historyLimit, s.stdin, s.stdout)
	if err != nil {
		return fmt.Errorf("history: %v", err)
	}
	cmd, ok := model.ParseLine(line)
	if !ok || cmd.Verb == "history" {
		return nil
	}

	s.console.Muted(line)
	s.record(line)
	return s.Dispatch(ctx, cmd)
}
