package manager

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestValidProjectName(t *testing.T) {
	cases := map[string]bool{
		"demo":                  true,
		"my_bot-2":              true,
		strings.Repeat("a", 64): true,
		strings.Repeat("a", 65): false,
		"":                      false,
		"../x":                  false,
		"a b":                   false,
		"a/b":                   false,
		"bot.v2":                false,
	}
	for name, want := range cases {
		if got := ValidProjectName(name); got != want {
			t.Fatalf("ValidProjectName(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestCreateMinimalProject(t *testing.T) {
	s := NewProjectStore(t.TempDir())
	if err := s.Create("demo", ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	for rel, want := range minimalProject {
		b, err := os.ReadFile(filepath.Join(s.Root(), "demo", rel))
		if err != nil {
			t.Fatalf("read %s: %v", rel, err)
		}
		if string(b) != want {
			t.Fatalf("%s = %q, want %q", rel, b, want)
		}
	}
	if _, err := s.Validate("demo"); err != nil {
		t.Fatalf("fresh project should validate: %v", err)
	}
}

func TestCreateErrors(t *testing.T) {
	s := NewProjectStore(t.TempDir())
	if err := s.Create("bad name", ""); !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := s.Create("demo", ""); err != nil {
		t.Fatal(err)
	}
	if err := s.Create("demo", ""); !IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestCreateConcurrentSameName(t *testing.T) {
	s := NewProjectStore(t.TempDir())
	const n = 16
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = s.Create("demo", "")
		}()
	}
	wg.Wait()
	created := 0
	for _, err := range errs {
		switch {
		case err == nil:
			created++
		case !IsConflict(err):
			t.Fatalf("expected conflict, got %v", err)
		}
	}
	if created != 1 {
		t.Fatalf("created %d times, want exactly once", created)
	}
}

func TestCreateRemovesPartialProject(t *testing.T) {
	orig := minimalProject
	t.Cleanup(func() { minimalProject = orig })
	// a file and a directory with the same name cannot both be written
	minimalProject = map[string]string{
		"config.yml":        "language: en\n",
		"config.yml/nested": "x",
	}
	s := NewProjectStore(t.TempDir())
	if err := s.Create("demo", ""); err == nil {
		t.Fatalf("expected create to fail")
	}
	if _, err := os.Stat(filepath.Join(s.Root(), "demo")); !os.IsNotExist(err) {
		t.Fatalf("partial project left behind: %v", err)
	}
	minimalProject = orig
	if err := s.Create("demo", ""); err != nil {
		t.Fatalf("create after cleanup: %v", err)
	}
}

func TestCreateFromTemplate(t *testing.T) {
	root := t.TempDir()
	tpl := writeProject(t, root, "pt-basic-bot")
	if err := os.WriteFile(filepath.Join(tpl, "data", "stories.yml"), []byte("stories: [greet]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewProjectStore(root)
	if err := s.Create("clone", "PT-Basic"); err != nil {
		t.Fatalf("create: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(root, "clone", "data", "stories.yml"))
	if err != nil || string(b) != "stories: [greet]\n" {
		t.Fatalf("template not cloned: %q %v", b, err)
	}
}

func TestCreateTemplateFallsBackToMinimal(t *testing.T) {
	root := t.TempDir()
	// template directory without config.yml is ignored
	if err := os.MkdirAll(filepath.Join(root, "pt-basic-bot"), 0o755); err != nil {
		t.Fatal(err)
	}
	s := NewProjectStore(root)
	for _, tpl := range []string{"pt-basic", "unknown"} {
		name := "p-" + strings.ReplaceAll(tpl, "-", "")
		if err := s.Create(name, tpl); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		b, err := os.ReadFile(filepath.Join(root, name, "config.yml"))
		if err != nil || string(b) != minimalProject["config.yml"] {
			t.Fatalf("%s: expected minimal config, got %q %v", name, b, err)
		}
	}
}

func TestListSorted(t *testing.T) {
	root := t.TempDir()
	for _, n := range []string{"zeta", "alpha", "mid"} {
		if err := os.Mkdir(filepath.Join(root, n), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(root, "README.md"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := NewProjectStore(root).List()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"alpha", "mid", "zeta"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("List = %v, want %v", got, want)
	}
	empty, err := NewProjectStore(filepath.Join(root, "missing")).List()
	if err != nil || len(empty) != 0 {
		t.Fatalf("missing workspace: %v %v", empty, err)
	}
}

func TestResolve(t *testing.T) {
	s := NewProjectStore("/srv/ws")
	p, err := s.Resolve("demo")
	if err != nil || p != filepath.Join("/srv/ws", "demo") {
		t.Fatalf("Resolve = %q %v", p, err)
	}
	if _, err := s.Resolve(".."); !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestValidateMissingEntries(t *testing.T) {
	root := t.TempDir()
	s := NewProjectStore(root)
	if _, err := s.Validate("ghost"); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	for _, missing := range []string{"config.yml", "domain.yml", "data"} {
		dir := writeProject(t, root, "p")
		if err := os.RemoveAll(filepath.Join(dir, missing)); err != nil {
			t.Fatal(err)
		}
		_, err := s.Validate("p")
		if !IsValidation(err) || !strings.Contains(err.Error(), missing) {
			t.Fatalf("missing %s: got %v", missing, err)
		}
		_ = os.RemoveAll(dir)
	}
	dir := writeProject(t, root, "flat")
	_ = os.RemoveAll(filepath.Join(dir, "data"))
	_ = os.WriteFile(filepath.Join(dir, "data"), []byte("x"), 0o644)
	if _, err := s.Validate("flat"); !IsValidation(err) {
		t.Fatalf("data file instead of dir: got %v", err)
	}
}
