package manager

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"rasad/internal/common/fsutil"
)

var projectNameRE = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidProjectName reports whether name is 1-64 characters of letters,
// digits, '_' or '-'.
func ValidProjectName(name string) bool { return projectNameRE.MatchString(name) }

// templateSources maps template ids to workspace projects cloned on create.
var templateSources = map[string]string{
	"pt-basic": "pt-basic-bot",
}

// requiredEntries must exist in a project before it can train or serve.
var requiredEntries = []string{"config.yml", "domain.yml", "data"}

// minimalProject is written when no template applies.
var minimalProject = map[string]string{
	"config.yml":       "language: en\npipeline: []\npolicies: []\n",
	"domain.yml":       "version: '3.1'\nintents: []\nresponses: {}\n",
	"data/nlu.yml":     "version: '3.1'\nnlu: []\n",
	"data/stories.yml": "version: '3.1'\nstories: []\n",
	"data/rules.yml":   "version: '3.1'\nrules: []\n",
}

// ProjectStore maps project names to directories under the workspace root.
// It holds no mutable state; the filesystem is the source of truth.
type ProjectStore struct {
	root string
}

// NewProjectStore returns a store rooted at root, which must be absolute.
func NewProjectStore(root string) *ProjectStore { return &ProjectStore{root: root} }

// Root returns the workspace root.
func (s *ProjectStore) Root() string { return s.root }

// Resolve returns the directory of a validly named project. It does not
// check that the directory exists.
func (s *ProjectStore) Resolve(name string) (string, error) {
	if !ValidProjectName(name) {
		return "", ErrValidation("invalid project name %q", name)
	}
	return filepath.Join(s.root, name), nil
}

// Dir resolves name and requires the project directory to exist.
func (s *ProjectStore) Dir(name string) (string, error) {
	dir, err := s.Resolve(name)
	if err != nil {
		return "", err
	}
	fi, err := os.Stat(dir)
	if err != nil || !fi.IsDir() {
		return "", ErrNotFound("project", name)
	}
	return dir, nil
}

// Validate checks the project has the entries the toolchain needs and
// returns its directory.
func (s *ProjectStore) Validate(name string) (string, error) {
	dir, err := s.Dir(name)
	if err != nil {
		return "", err
	}
	for _, entry := range requiredEntries {
		fi, err := os.Stat(filepath.Join(dir, entry))
		if err != nil {
			return "", ErrValidation("project %q is missing %s", name, entry)
		}
		if entry == "data" && !fi.IsDir() {
			return "", ErrValidation("project %q: data is not a directory", name)
		}
	}
	return dir, nil
}

// List returns the sorted names of project directories.
func (s *ProjectStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("read workspace: %w", err)
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

// Create makes a new project. With template "pt-basic" and a template
// project present in the workspace, its files are copied; otherwise a
// minimal project is written.
func (s *ProjectStore) Create(name, template string) error {
	name = strings.TrimSpace(name)
	dir, err := s.Resolve(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("create workspace: %w", err)
	}
	// Mkdir claims the name; concurrent creates of one project see ErrExist.
	if err := os.Mkdir(dir, 0o755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return ErrConflict("project %q already exists", name)
		}
		return fmt.Errorf("create project: %w", err)
	}
	if src, ok := s.templateDir(template); ok {
		if err := copyTree(src, dir); err != nil {
			_ = os.RemoveAll(dir)
			return fmt.Errorf("copy template %s: %w", template, err)
		}
		return nil
	}
	if err := writeMinimal(dir); err != nil {
		_ = os.RemoveAll(dir)
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

func writeMinimal(dir string) error {
	for rel, content := range minimalProject {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func (s *ProjectStore) templateDir(template string) (string, bool) {
	srcName, ok := templateSources[strings.ToLower(strings.TrimSpace(template))]
	if !ok {
		return "", false
	}
	src := filepath.Join(s.root, srcName)
	if !fsutil.PathExists(filepath.Join(src, "config.yml")) {
		return "", false
	}
	return src, true
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		switch {
		case d.IsDir():
			return os.MkdirAll(target, 0o755)
		case d.Type().IsRegular():
			b, err := os.ReadFile(p)
			if err != nil {
				return err
			}
			return os.WriteFile(target, b, 0o644)
		default:
			// symlinks and special files are not part of templates
			return nil
		}
	})
}
