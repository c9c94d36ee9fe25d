package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

var (
	// ErrNotFound means the executable could not be located.
	ErrNotFound = errors.New("command not found")
	// ErrUnsupported means the target type cannot be run on this host.
	ErrUnsupported = errors.New("unsupported")
)

// unsupportedError carries a readable reason and matches ErrUnsupported.
type unsupportedError string

func (e unsupportedError) Error() string        { return string(e) }
func (e unsupportedError) Is(target error) bool { return target == ErrUnsupported }

// Result holds the captured output of a finished child process.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Capture runs name with args, waits for it to exit and returns both output
// streams in full. A non-zero exit status is not an error.
func Capture(ctx context.Context, name string, args []string) (Result, error) {
	c := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	err := c.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		return res, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return res, fmt.Errorf("running %s: %w", name, err)
}

// Interpreters names the programs used for recognised script types.
type Interpreters struct {
	Python string
	Shell  string
}

// ScriptCommand decides how to launch target. Python scripts go through the
// Python interpreter, shell scripts through the shell interpreter (not on
// Windows), and anything else must be executable on its own.
func ScriptCommand(goos, target string, args []string, interp Interpreters) (string, []string, error) {
	info, err := os.Stat(target)
	if err != nil {
		return "", nil, err
	}

	switch strings.ToLower(filepath.Ext(target)) {
	case ".py":
		return interp.Python, append([]string{target}, args...), nil
	case ".sh":
		if goos == "windows" {
			return "", nil, unsupportedError("shell scripts are not supported on Windows")
		}
		return interp.Shell, append([]string{target}, args...), nil
	}

	if info.IsDir() || !isExecutable(goos, target, info) {
		return "", nil, unsupportedError(fmt.Sprintf("cannot execute '%s' (unsupported file type or not executable)", target))
	}

	// A bare name would be looked up on PATH instead of the file we checked.
	abs, err := filepath.Abs(target)
	if err != nil {
		return "", nil, err
	}
	return abs, args, nil
}

func isExecutable(goos, target string, info fs.FileInfo) bool {
	if goos == "windows" {
		switch strings.ToLower(filepath.Ext(target)) {
		case ".exe", ".com", ".bat", ".cmd":
			return true
		}
		return false
	}
	return info.Mode().IsRegular() && info.Mode()&0o111 != 0
}
