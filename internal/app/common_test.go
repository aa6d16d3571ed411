package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/calder-systems/pipsnap/internal/pip"
)

// chdir switches into dir for the duration of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()

	orig, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd() failed: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir(%s) failed: %v", dir, err)
	}
	t.Cleanup(func() { os.Chdir(orig) })
}

func TestResolveScopeGlobal(t *testing.T) {
	scope, reqFile, err := resolveScope(true, "")
	if err != nil {
		t.Fatalf("resolveScope(global) failed: %v", err)
	}
	if scope != pip.ScopeGlobal || reqFile != "" {
		t.Errorf("resolveScope(global) = %q, %q", scope, reqFile)
	}
}

func TestResolveScopeGlobalConflictsWithRequirements(t *testing.T) {
	if _, _, err := resolveScope(true, "requirements.txt"); err == nil {
		t.Error("resolveScope() should reject --global with --requirements")
	}
}

func TestResolveScopeExplicitFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "requirements.txt")
	if err := os.WriteFile(path, []byte("requests\n"), 0644); err != nil {
		t.Fatalf("failed to write requirements: %v", err)
	}

	scope, reqFile, err := resolveScope(false, path)
	if err != nil {
		t.Fatalf("resolveScope(file) failed: %v", err)
	}
	if scope != pip.ScopeProject || reqFile != path {
		t.Errorf("resolveScope(file) = %q, %q", scope, reqFile)
	}

	// A missing explicit file is an error, not a silent fallback.
	if _, _, err := resolveScope(false, filepath.Join(dir, "nope.txt")); err == nil {
		t.Error("resolveScope() should reject a missing requirements file")
	}
}

func TestResolveScopeDiscovery(t *testing.T) {
	t.Run("no files", func(t *testing.T) {
		chdir(t, t.TempDir())

		if _, _, err := resolveScope(false, ""); err == nil {
			t.Error("resolveScope() should fail when no requirements files exist")
		}
	})

	t.Run("exactly one file", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, "requirements.txt"), []byte("requests\n"), 0644); err != nil {
			t.Fatalf("failed to write requirements: %v", err)
		}
		chdir(t, dir)

		scope, reqFile, err := resolveScope(false, "")
		if err != nil {
			t.Fatalf("resolveScope() failed: %v", err)
		}
		if scope != pip.ScopeProject || filepath.Base(reqFile) != "requirements.txt" {
			t.Errorf("resolveScope() = %q, %q", scope, reqFile)
		}
	})

	t.Run("several files is ambiguous", func(t *testing.T) {
		dir := t.TempDir()
		for _, name := range []string{"requirements.txt", "dev-requirements.txt"} {
			if err := os.WriteFile(filepath.Join(dir, name), []byte("requests\n"), 0644); err != nil {
				t.Fatalf("failed to write %s: %v", name, err)
			}
		}
		chdir(t, dir)

		if _, _, err := resolveScope(false, ""); err == nil {
			t.Error("resolveScope() should refuse to pick among several requirements files")
		}
	})
}
