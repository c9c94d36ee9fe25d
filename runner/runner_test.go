package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptureSeparatesStreams(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}

	res, err := Capture(context.Background(), "sh", []string{"-c", "echo out; echo err 1>&2; exit 3"})
	require.NoError(t, err)
	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)
	assert.Equal(t, 3, res.ExitCode)
}

func TestCaptureNotFound(t *testing.T) {
	_, err := Capture(context.Background(), "termpal-definitely-missing-binary", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestScriptCommand(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on unix permission bits")
	}
	dir := t.TempDir()
	interp := Interpreters{Python: "python3", Shell: "bash"}

	py := filepath.Join(dir, "hello.py")
	sh := filepath.Join(dir, "hello.sh")
	bin := filepath.Join(dir, "tool")
	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(py, []byte("print('hi')\n"), 0o644))
	require.NoError(t, os.WriteFile(sh, []byte("echo hi\n"), 0o644))
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\necho hi\n"), 0o755))
	require.NoError(t, os.WriteFile(txt, []byte("hi"), 0o644))

	name, argv, err := ScriptCommand("linux", py, []string{"-v"}, interp)
	require.NoError(t, err)
	assert.Equal(t, "python3", name)
	assert.Equal(t, []string{py, "-v"}, argv)

	name, argv, err = ScriptCommand("linux", sh, nil, interp)
	require.NoError(t, err)
	assert.Equal(t, "bash", name)
	assert.Equal(t, []string{sh}, argv)

	_, _, err = ScriptCommand("windows", sh, nil, interp)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupported))

	name, argv, err = ScriptCommand("linux", bin, []string{"a"}, interp)
	require.NoError(t, err)
	assert.Equal(t, bin, name)
	assert.Equal(t, []string{"a"}, argv)

	_, _, err = ScriptCommand("linux", txt, nil, interp)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupported))

	_, _, err = ScriptCommand("linux", dir, nil, interp)
	assert.True(t, errors.Is(err, ErrUnsupported))

	_, _, err = ScriptCommand("linux", filepath.Join(dir, "missing.py"), nil, interp)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
