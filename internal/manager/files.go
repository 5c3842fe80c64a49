package manager

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"rasad/internal/common/fsutil"
)

// confine resolves rel inside the project directory. Escapes are rejected
// before the project's existence is considered.
func (s *ProjectStore) confine(name, rel string) (dir, full string, err error) {
	dir, err = s.Resolve(name)
	if err != nil {
		return "", "", err
	}
	full, err = fsutil.Within(dir, rel)
	if err != nil {
		if errors.Is(err, fsutil.ErrEscapesRoot) {
			return "", "", ErrValidation("invalid path %q", rel)
		}
		return "", "", fmt.Errorf("resolve %s: %w", rel, err)
	}
	if _, err := s.Dir(name); err != nil {
		return "", "", err
	}
	return dir, full, nil
}

// Tree returns every regular file under the project, relative to its root
// with forward slashes, sorted.
func (s *ProjectStore) Tree(name string) ([]string, error) {
	dir, err := s.Dir(name)
	if err != nil {
		return nil, err
	}
	out := []string{}
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk project: %w", err)
	}
	sort.Strings(out)
	return out, nil
}

// ReadFile returns the bytes of a project file.
func (s *ProjectStore) ReadFile(name, rel string) ([]byte, error) {
	_, full, err := s.confine(name, rel)
	if err != nil {
		return nil, err
	}
	fi, err := os.Stat(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound("file", rel)
		}
		return nil, err
	}
	if fi.IsDir() {
		return nil, ErrValidation("%q is a directory", rel)
	}
	return os.ReadFile(full)
}

// WriteFile creates or replaces a project file, creating parent directories.
func (s *ProjectStore) WriteFile(name, rel string, data []byte) error {
	_, full, err := s.confine(name, rel)
	if err != nil {
		return err
	}
	if fi, err := os.Stat(full); err == nil && fi.IsDir() {
		return ErrValidation("%q is a directory", rel)
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	return os.WriteFile(full, data, 0o644)
}

// DeleteFile removes a project file. Directories are refused.
func (s *ProjectStore) DeleteFile(name, rel string) error {
	_, full, err := s.confine(name, rel)
	if err != nil {
		return err
	}
	fi, err := os.Lstat(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound("file", rel)
		}
		return err
	}
	if fi.IsDir() {
		return ErrValidation("refusing to delete directory %q", rel)
	}
	return os.Remove(full)
}
