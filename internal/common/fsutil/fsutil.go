package fsutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExpandHome expands a leading '~' to the user's home directory.
func ExpandHome(path string) (string, error) {
	if path == "" {
		return path, nil
	}
	if path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	// handle cases like ~/rasa/workspace
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}

// AbsDir expands '~' and returns the absolute form of dir.
func AbsDir(dir string) (string, error) {
	p, err := ExpandHome(dir)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("abs path: %w", err)
	}
	return abs, nil
}

// PathExists checks if the given path exists.
func PathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, os.ErrNotExist)
}

// IsExecutable reports whether path is a regular file with an execute bit set.
func IsExecutable(path string) bool {
	fi, err := os.Stat(path)
	if err != nil || !fi.Mode().IsRegular() {
		return false
	}
	return fi.Mode().Perm()&0o111 != 0
}

// ErrEscapesRoot is returned by Within when a path resolves outside its root.
var ErrEscapesRoot = errors.New("path escapes root")

// Within joins rel onto root and returns the cleaned absolute path, failing
// with ErrEscapesRoot unless the result is strictly below root. The path is
// re-checked after symlink resolution; for paths not created yet the
// nearest existing ancestor is resolved instead.
func Within(root, rel string) (string, error) {
	if rel == "" || filepath.IsAbs(rel) {
		return "", ErrEscapesRoot
	}
	root = filepath.Clean(root)
	full := filepath.Clean(filepath.Join(root, rel))
	if !isBelow(root, full) {
		return "", ErrEscapesRoot
	}
	rootResolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		// Root not created yet; nothing below it can be a link.
		if errors.Is(err, os.ErrNotExist) {
			return full, nil
		}
		return "", err
	}
	resolved, err := resolveExisting(root, full)
	if err != nil {
		return "", err
	}
	if !isBelow(rootResolved, resolved) {
		return "", ErrEscapesRoot
	}
	return full, nil
}

// resolveExisting resolves symlinks in the longest existing prefix of p,
// which lies below root, and joins the missing tail back on. A dangling
// link on the way is an escape: writing through it would follow its target.
func resolveExisting(root, p string) (string, error) {
	tail := ""
	for {
		resolved, err := filepath.EvalSymlinks(p)
		if err == nil {
			return filepath.Join(resolved, tail), nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		if _, lerr := os.Lstat(p); lerr == nil {
			return "", ErrEscapesRoot
		}
		parent := filepath.Dir(p)
		if p == root || parent == p {
			return "", err
		}
		tail = filepath.Join(filepath.Base(p), tail)
		p = parent
	}
}

func isBelow(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	return true
}
