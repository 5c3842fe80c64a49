package manager

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestFileOpsRejectEscapes(t *testing.T) {
	root := t.TempDir()
	writeProject(t, root, "demo")
	s := NewProjectStore(root)
	bad := []string{"", ".", "..", "../x", "../../etc/passwd", "a/../../x", "/etc/passwd", "data/../../demo2/x"}
	for _, project := range []string{"demo", "ghost"} {
		for _, p := range bad {
			if _, err := s.ReadFile(project, p); !IsValidation(err) {
				t.Fatalf("ReadFile(%s,%q): expected validation error, got %v", project, p, err)
			}
			if err := s.WriteFile(project, p, []byte("x")); !IsValidation(err) {
				t.Fatalf("WriteFile(%s,%q): expected validation error, got %v", project, p, err)
			}
			if err := s.DeleteFile(project, p); !IsValidation(err) {
				t.Fatalf("DeleteFile(%s,%q): expected validation error, got %v", project, p, err)
			}
		}
	}
	if _, err := os.Stat(filepath.Join(root, "x")); !os.IsNotExist(err) {
		t.Fatalf("escaping write created a file")
	}
}

func TestFileOpsRejectSymlinkEscape(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	root := t.TempDir()
	dir := writeProject(t, root, "demo")
	outside := filepath.Join(t.TempDir(), "secret.txt")
	if err := os.WriteFile(outside, []byte("secret"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(outside, filepath.Join(dir, "link.txt")); err != nil {
		t.Fatal(err)
	}
	if _, err := NewProjectStore(root).ReadFile("demo", "link.txt"); !IsValidation(err) {
		t.Fatalf("expected validation error for symlink escape, got %v", err)
	}
}

func TestWriteFileRejectsLinkedDirEscape(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	root := t.TempDir()
	dir := writeProject(t, root, "demo")
	outside := t.TempDir()
	if err := os.Symlink(outside, filepath.Join(dir, "linkdir")); err != nil {
		t.Fatal(err)
	}
	s := NewProjectStore(root)
	for _, rel := range []string{"linkdir/pwned.txt", "linkdir/nested/pwned.txt"} {
		if err := s.WriteFile("demo", rel, []byte("x")); !IsValidation(err) {
			t.Fatalf("write %s: expected validation error, got %v", rel, err)
		}
	}
	entries, err := os.ReadDir(outside)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("write escaped the project root: %d entries outside", len(entries))
	}
}

func TestTreeReadWriteDelete(t *testing.T) {
	root := t.TempDir()
	writeProject(t, root, "demo")
	s := NewProjectStore(root)

	if err := s.WriteFile("demo", "actions/custom.py", []byte("print(1)\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	tree, err := s.Tree("demo")
	if err != nil {
		t.Fatal(err)
	}
	want := "actions/custom.py,config.yml,data/nlu.yml,domain.yml"
	if strings.Join(tree, ",") != want {
		t.Fatalf("tree = %v, want %s", tree, want)
	}
	b, err := s.ReadFile("demo", "actions/custom.py")
	if err != nil || string(b) != "print(1)\n" {
		t.Fatalf("read = %q %v", b, err)
	}
	if err := s.WriteFile("demo", "actions/custom.py", []byte("v2")); err != nil {
		t.Fatal(err)
	}
	if b, _ := s.ReadFile("demo", "actions/custom.py"); string(b) != "v2" {
		t.Fatalf("overwrite failed: %q", b)
	}
	if err := s.DeleteFile("demo", "actions/custom.py"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.ReadFile("demo", "actions/custom.py"); !IsNotFound(err) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if err := s.DeleteFile("demo", "actions/custom.py"); !IsNotFound(err) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestFileOpsErrors(t *testing.T) {
	root := t.TempDir()
	writeProject(t, root, "demo")
	s := NewProjectStore(root)
	if err := s.DeleteFile("demo", "data"); !IsValidation(err) {
		t.Fatalf("deleting a directory: expected validation error, got %v", err)
	}
	if _, err := s.ReadFile("demo", "data"); !IsValidation(err) {
		t.Fatalf("reading a directory: expected validation error, got %v", err)
	}
	if _, err := s.Tree("ghost"); !IsNotFound(err) {
		t.Fatalf("tree of missing project: expected not found, got %v", err)
	}
	if err := s.WriteFile("ghost", "a.yml", nil); !IsNotFound(err) {
		t.Fatalf("write to missing project: expected not found, got %v", err)
	}
	if _, err := s.Tree("bad name"); !IsValidation(err) {
		t.Fatalf("tree of invalid name: expected validation error, got %v", err)
	}
}
