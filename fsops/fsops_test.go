package fsops

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir is t.Chdir for toolchains before Go 1.24: it switches the working
// directory and restores the previous one when the test ends.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestListSortsAndMarksDirectories(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "b.txt"))
	touch(t, filepath.Join(dir, "a.txt"))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "c"), 0o755))

	entries, err := List(dir)
	require.NoError(t, err)
	require.Equal(t, []Entry{
		{Name: "a.txt"},
		{Name: "b.txt"},
		{Name: "c", IsDir: true},
	}, entries)
}

func TestListErrors(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file")
	touch(t, file)

	_, err := List(filepath.Join(dir, "missing"))
	require.Error(t, err)
	assert.Equal(t, NotFound, KindOf(err))

	_, err = List(file)
	require.Error(t, err)
	assert.Equal(t, NotADirectory, KindOf(err))
}

func TestMkdir(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "new")

	require.NoError(t, Mkdir(target))
	assert.True(t, IsDir(target))

	err := Mkdir(target)
	require.Error(t, err)
	assert.Equal(t, AlreadyExists, KindOf(err))
	assert.True(t, errors.Is(err, os.ErrExist))
}

func TestRemove(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f.txt")
	tree := filepath.Join(dir, "tree")
	touch(t, file)
	require.NoError(t, os.MkdirAll(filepath.Join(tree, "nested"), 0o755))
	touch(t, filepath.Join(tree, "nested", "deep.txt"))

	require.NoError(t, Remove(file))
	require.NoError(t, Remove(tree))
	assert.False(t, Exists(file))
	assert.False(t, Exists(tree))

	err := Remove(file)
	require.Error(t, err)
	assert.Equal(t, NotFound, KindOf(err))
}

func TestMove(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "demo")
	dst := filepath.Join(dir, "archive")
	require.NoError(t, os.Mkdir(src, 0o755))

	_, err := Move(src, dst)
	require.Error(t, err)
	assert.Equal(t, NotFound, KindOf(err))
	assert.True(t, Exists(src), "source stays in place when destination is missing")

	require.NoError(t, os.Mkdir(dst, 0o755))
	target, err := Move(src, dst)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dst, "demo"), target)
	assert.True(t, IsDir(target))
	assert.False(t, Exists(src))
}

func TestMoveIntoFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	dst := filepath.Join(dir, "b.txt")
	touch(t, src)
	touch(t, dst)

	_, err := Move(src, dst)
	require.Error(t, err)
	assert.Equal(t, NotADirectory, KindOf(err))
}

func TestMoveRefusesToOverwrite(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	dst := filepath.Join(dir, "archive")
	touch(t, src)
	require.NoError(t, os.Mkdir(dst, 0o755))
	touch(t, filepath.Join(dst, "a.txt"))

	_, err := Move(src, dst)
	require.Error(t, err)
	assert.Equal(t, AlreadyExists, KindOf(err))
	assert.True(t, Exists(src))
}

// crossDevice makes every rename fail the way it does between filesystems.
func crossDevice(t *testing.T) {
	t.Helper()
	orig := rename
	rename = func(oldpath, newpath string) error {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: syscall.EXDEV}
	}
	t.Cleanup(func() { rename = orig })
}

func TestMoveAcrossFilesystemsCopiesTree(t *testing.T) {
	crossDevice(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "demo")
	dst := filepath.Join(dir, "archive")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "nested", "notes.txt"), []byte("keep me"), 0o600))
	require.NoError(t, os.Mkdir(dst, 0o755))
	if runtime.GOOS != "windows" {
		require.NoError(t, os.Symlink("nested/notes.txt", filepath.Join(src, "link")))
	}

	target, err := Move(src, dst)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dst, "demo"), target)
	assert.False(t, Exists(src), "source removed after copy")

	data, err := os.ReadFile(filepath.Join(target, "nested", "notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(data))

	if runtime.GOOS != "windows" {
		info, err := os.Stat(filepath.Join(target, "nested", "notes.txt"))
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

		link, err := os.Readlink(filepath.Join(target, "link"))
		require.NoError(t, err)
		assert.Equal(t, "nested/notes.txt", link)
	}
}

func TestMoveAcrossFilesystemsCopiesFile(t *testing.T) {
	crossDevice(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "report.txt")
	dst := filepath.Join(dir, "archive")
	require.NoError(t, os.WriteFile(src, []byte("q1"), 0o644))
	require.NoError(t, os.Mkdir(dst, 0o755))

	target, err := Move(src, dst)
	require.NoError(t, err)
	assert.False(t, Exists(src))

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "q1", string(data))
}

func TestMoveKeepsUnrelatedRenameErrors(t *testing.T) {
	orig := rename
	rename = func(oldpath, newpath string) error {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: fs.ErrPermission}
	}
	t.Cleanup(func() { rename = orig })

	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	dst := filepath.Join(dir, "archive")
	touch(t, src)
	require.NoError(t, os.Mkdir(dst, 0o755))

	_, err := Move(src, dst)
	require.Error(t, err)
	assert.Equal(t, PermissionDenied, KindOf(err))
	assert.True(t, Exists(src))
	assert.False(t, Exists(filepath.Join(dst, "a.txt")), "no copy for non cross-device failures")
}

func TestChdir(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file")
	touch(t, file)
	chdir(t, dir)

	err := Chdir(file)
	require.Error(t, err)
	assert.Equal(t, NotADirectory, KindOf(err))

	err = Chdir(filepath.Join(dir, "missing"))
	require.Error(t, err)
	assert.Equal(t, NotFound, KindOf(err))

	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	require.NoError(t, Chdir(sub))
	wd, err := os.Getwd()
	require.NoError(t, err)
	resolved, err := filepath.EvalSymlinks(sub)
	require.NoError(t, err)
	assert.Equal(t, resolved, wd)
}

func TestExpandHome(t *testing.T) {
	t.Setenv("HOME", "/home/tester")

	got, err := ExpandHome("~")
	require.NoError(t, err)
	assert.Equal(t, "/home/tester", got)

	got, err = ExpandHome("~/src")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/home/tester", "src"), got)

	got, err = ExpandHome("~bob")
	require.NoError(t, err)
	assert.Equal(t, "~bob", got)
}

func TestKindOfUnclassified(t *testing.T) {
	assert.Equal(t, Other, KindOf(errors.New("boom")))
	assert.Equal(t, "Permission denied", PermissionDenied.String())
}
