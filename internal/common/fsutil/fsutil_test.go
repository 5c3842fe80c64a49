package fsutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestExpandHome(t *testing.T) {
	// Set a deterministic HOME for the duration of this test so we never skip.
	origHome, hadHome := os.LookupEnv("HOME")
	origUserProfile, hadUserProfile := os.LookupEnv("USERPROFILE")
	t.Cleanup(func() {
		if hadHome {
			_ = os.Setenv("HOME", origHome)
		} else {
			_ = os.Unsetenv("HOME")
		}
		if hadUserProfile {
			_ = os.Setenv("USERPROFILE", origUserProfile)
		} else {
			_ = os.Unsetenv("USERPROFILE")
		}
	})

	home := t.TempDir()
	// Configure both env vars for cross-platform behavior of os.UserHomeDir.
	_ = os.Setenv("HOME", home)
	if runtime.GOOS == "windows" {
		_ = os.Setenv("USERPROFILE", home)
	}
	// raw path unaffected
	if got, err := ExpandHome("/tmp"); err != nil || got != "/tmp" {
		t.Fatalf("got %q err=%v", got, err)
	}
	// empty path
	if got, err := ExpandHome(""); err != nil || got != "" {
		t.Fatalf("got %q err=%v", got, err)
	}
	// ~ expansion
	p, err := ExpandHome("~")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if p != home {
		t.Fatalf("expected %q, got %q", home, p)
	}
	// ~/subdir
	sub := "test-sub"
	exp, err := ExpandHome("~/" + sub)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if runtime.GOOS == "windows" {
		if filepath.Base(exp) != sub {
			t.Fatalf("unexpected expanded path: %q", exp)
		}
	} else {
		expected := filepath.Join(home, sub)
		if exp != expected {
			t.Fatalf("expected %q, got %q", expected, exp)
		}
	}
}

func TestIsExecutable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("exec bits are not meaningful on windows")
	}
	dir := t.TempDir()
	exe := filepath.Join(dir, "tool")
	if err := os.WriteFile(exe, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("write: %v", err)
	}
	plain := filepath.Join(dir, "plain")
	if err := os.WriteFile(plain, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !IsExecutable(exe) {
		t.Fatalf("expected %s to be executable", exe)
	}
	if IsExecutable(plain) {
		t.Fatalf("expected %s not to be executable", plain)
	}
	if IsExecutable(dir) {
		t.Fatalf("directory reported as executable")
	}
	if IsExecutable(filepath.Join(dir, "missing")) {
		t.Fatalf("missing file reported as executable")
	}
}

func TestWithin(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "data"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	got, err := Within(root, "data/nlu.yml")
	if err != nil {
		t.Fatalf("Within: %v", err)
	}
	if got != filepath.Join(root, "data", "nlu.yml") {
		t.Fatalf("got %q", got)
	}
	if _, err := Within(root, "data/../config.yml"); err != nil {
		t.Fatalf("inner dot-dot should stay inside root: %v", err)
	}
	for _, bad := range []string{"", ".", "..", "../../etc/passwd", "data/../../x", "/etc/passwd"} {
		if _, err := Within(root, bad); err == nil {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}

func TestWithinRejectsSymlinkEscape(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	root := t.TempDir()
	outside := t.TempDir()
	if err := os.Symlink(outside, filepath.Join(root, "link")); err != nil {
		t.Fatalf("symlink: %v", err)
	}
	if _, err := Within(root, "link"); err == nil {
		t.Fatalf("expected symlink escape to be rejected")
	}
}

func TestWithinChecksMissingPathsThroughLinkedDirs(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	root := t.TempDir()
	outside := t.TempDir()
	if err := os.Symlink(outside, filepath.Join(root, "linkdir")); err != nil {
		t.Fatalf("symlink: %v", err)
	}
	for _, rel := range []string{"linkdir/pwned.txt", "linkdir/a/b/c.txt"} {
		if _, err := Within(root, rel); err != ErrEscapesRoot {
			t.Fatalf("%s: expected ErrEscapesRoot, got %v", rel, err)
		}
	}

	if err := os.Symlink(filepath.Join(outside, "gone.txt"), filepath.Join(root, "dangling")); err != nil {
		t.Fatalf("symlink: %v", err)
	}
	if _, err := Within(root, "dangling"); err != ErrEscapesRoot {
		t.Fatalf("dangling link: expected ErrEscapesRoot, got %v", err)
	}

	if err := os.MkdirAll(filepath.Join(root, "data"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(filepath.Join(root, "data"), filepath.Join(root, "alias")); err != nil {
		t.Fatalf("symlink: %v", err)
	}
	got, err := Within(root, "alias/new/nlu.yml")
	if err != nil || got != filepath.Join(root, "alias", "new", "nlu.yml") {
		t.Fatalf("link inside root: got %q %v", got, err)
	}
}

func TestWithinMissingRootIsLexical(t *testing.T) {
	root := filepath.Join(t.TempDir(), "ghost")
	got, err := Within(root, "domain.yml")
	if err != nil || got != filepath.Join(root, "domain.yml") {
		t.Fatalf("got %q %v", got, err)
	}
	if _, err := Within(root, "../x"); err == nil {
		t.Fatalf("expected escape from missing root to be rejected")
	}
}
