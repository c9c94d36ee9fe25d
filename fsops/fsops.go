// Package fsops wraps the filesystem calls the shell's built-ins need and
// classifies their failures.
package fsops

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
)

// Kind is the classified cause of a filesystem failure.
type Kind int

const (
	Other Kind = iota
	NotFound
	NotADirectory
	PermissionDenied
	AlreadyExists
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "No such file or directory"
	case NotADirectory:
		return "Not a directory"
	case PermissionDenied:
		return "Permission denied"
	case AlreadyExists:
		return "File exists"
	default:
		return "error"
	}
}

// Error records a failed operation on a path.
type Error struct {
	Op   string
	Path string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Kind == Other && e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s %s: %s", e.Op, e.Path, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf reports the Kind of err, or Other when err is not classified.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return classify(err)
}

func classify(err error) Kind {
	switch {
	case err == nil:
		return Other
	case errors.Is(err, fs.ErrNotExist):
		return NotFound
	case errors.Is(err, fs.ErrExist):
		return AlreadyExists
	case errors.Is(err, fs.ErrPermission):
		return PermissionDenied
	case errors.Is(err, syscall.ENOTDIR):
		return NotADirectory
	default:
		return Other
	}
}

func wrap(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Path: path, Kind: classify(err), Err: err}
}

// Entry is one directory member.
type Entry struct {
	Name  string
	IsDir bool
}

// List returns the entries of dir sorted by name.
func List(dir string) ([]Entry, error) {
	des, err := os.ReadDir(dir)
	if err != nil {
		// ReadDir on a regular file fails with a platform specific error.
		if info, serr := os.Stat(dir); serr == nil && !info.IsDir() {
			return nil, &Error{Op: "list", Path: dir, Kind: NotADirectory, Err: err}
		}
		return nil, wrap("list", dir, err)
	}

	entries := make([]Entry, 0, len(des))
	for _, de := range des {
		isDir := de.IsDir()
		if de.Type()&fs.ModeSymlink != 0 {
			if info, err := os.Stat(filepath.Join(dir, de.Name())); err == nil {
				isDir = info.IsDir()
			}
		}
		entries = append(entries, Entry{Name: de.Name(), IsDir: isDir})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// ExpandHome resolves a leading "~" against the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, path[2:]), nil
}

// Chdir changes the process working directory.
func Chdir(dir string) error {
	if err := os.Chdir(dir); err != nil {
		if info, serr := os.Stat(dir); serr == nil && !info.IsDir() {
			return &Error{Op: "chdir", Path: dir, Kind: NotADirectory, Err: err}
		}
		return wrap("chdir", dir, err)
	}
	return nil
}

// Mkdir creates a single directory. The parent must exist.
func Mkdir(dir string) error {
	return wrap("mkdir", dir, os.Mkdir(dir, 0o755))
}

// Exists reports whether path names an existing entry, without following a
// final symlink.
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// IsDir reports whether path names an existing directory.
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Remove deletes path, recursively when it is a directory tree.
func Remove(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return wrap("remove", path, err)
	}
	if info.IsDir() {
		return wrap("remove", path, os.RemoveAll(path))
	}
	return wrap("remove", path, os.Remove(path))
}

// rename is os.Rename; tests swap it to simulate a cross-device move.
var rename = os.Rename

// Move places src inside the existing directory dst, keeping its base name.
// When dst is on another filesystem the entry is copied, then src removed.
func Move(src, dst string) (string, error) {
	if !Exists(src) {
		return "", &Error{Op: "move", Path: src, Kind: NotFound, Err: fs.ErrNotExist}
	}
	info, err := os.Stat(dst)
	if err != nil {
		return "", wrap("move", dst, err)
	}
	if !info.IsDir() {
		return "", &Error{Op: "move", Path: dst, Kind: NotADirectory}
	}

	target := filepath.Join(dst, filepath.Base(filepath.Clean(src)))
	if Exists(target) {
		return "", &Error{Op: "move", Path: target, Kind: AlreadyExists, Err: fs.ErrExist}
	}
	err = rename(src, target)
	if err == nil {
		return target, nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return "", wrap("move", src, err)
	}

	if err := copyTree(src, target); err != nil {
		os.RemoveAll(target)
		return "", wrap("move", src, err)
	}
	if err := os.RemoveAll(src); err != nil {
		return "", wrap("move", src, err)
	}
	return target, nil
}

// copyTree copies a file, symlink or directory tree from src to dst, keeping
// permission bits.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		out := filepath.Join(dst, rel)

		info, err := d.Info()
		if err != nil {
			return err
		}
		switch {
		case info.Mode()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, out)
		case info.IsDir():
			return os.MkdirAll(out, info.Mode().Perm())
		default:
			return copyFile(path, out, info.Mode().Perm())
		}
	})
}

func copyFile(src, dst string, perm fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
