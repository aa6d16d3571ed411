package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/calder-systems/pipsnap/internal/pip"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name           string
		line           string
		wantName       string
		wantConstraint string
		wantOK         bool
	}{
		{"bare name", "requests", "requests", "", true},
		{"pinned", "requests==2.26.0", "requests", "==2.26.0", true},
		{"range", "flask>=2.0,<3", "flask", ">=2.0,<3", true},
		{"compatible release", "django~=4.2", "django", "~=4.2", true},
		{"whitespace around constraint", "pytest >= 6.0", "pytest", ">= 6.0", true},
		{"name normalized", "Flask_SQLAlchemy==2.5.1", "flask-sqlalchemy", "==2.5.1", true},
		{"extras dropped", "requests[security]==2.26.0", "requests", "==2.26.0", true},
		{"extras without constraint", "uvicorn[standard]", "uvicorn", "", true},
		{"environment marker stripped", `pywin32>=300; sys_platform == "win32"`, "pywin32", ">=300", true},
		{"trailing comment", "requests==2.26.0  # pinned for now", "requests", "==2.26.0", true},
		{"comment line", "# just a comment", "", "", false},
		{"blank line", "   ", "", "", false},
		{"include line", "-r base.txt", "", "", false},
		{"option line", "--index-url https://mirror.example.com", "", "", false},
		{"editable local path", ".", "", "", false},
		{"absolute path", "/srv/wheels/foo.whl", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, ok := parseLine(tt.line)
			if ok != tt.wantOK {
				t.Fatalf("parseLine(%q) ok = %v, want %v", tt.line, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if req.Name != tt.wantName {
				t.Errorf("parseLine(%q) name = %q, want %q", tt.line, req.Name, tt.wantName)
			}
			if req.Constraint != tt.wantConstraint {
				t.Errorf("parseLine(%q) constraint = %q, want %q", tt.line, req.Constraint, tt.wantConstraint)
			}
		})
	}
}

func TestParse(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "requirements.txt")

	content := `# project dependencies
requests==2.26.0
flask>=2.0

-r extra.txt
Requests  # duplicate of the pinned one above
pytest
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write requirements file: %v", err)
	}

	reqs, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	want := []Requirement{
		{Name: "requests", Constraint: "==2.26.0"},
		{Name: "flask", Constraint: ">=2.0"},
		{Name: "pytest", Constraint: ""},
	}

	if len(reqs) != len(want) {
		t.Fatalf("Parse() returned %d requirements, want %d: %v", len(reqs), len(want), reqs)
	}
	for i := range want {
		if reqs[i] != want[i] {
			t.Errorf("requirement %d = %+v, want %+v", i, reqs[i], want[i])
		}
	}
}

func TestParseMissingFile(t *testing.T) {
	if _, err := Parse(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Error("Parse() should fail for a missing file")
	}
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{
		"requirements.txt",
		"dev-requirements.txt",
		"requirements-test.pip",
		"setup.py",
		"notes.txt",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
			t.Fatalf("failed to create %s: %v", name, err)
		}
	}

	files, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	if len(files) != 3 {
		t.Fatalf("Discover() returned %d files, want 3: %v", len(files), files)
	}
	for _, f := range files {
		base := filepath.Base(f)
		if base == "setup.py" || base == "notes.txt" {
			t.Errorf("Discover() matched %s", base)
		}
	}
}

func TestDiscoverEmpty(t *testing.T) {
	files, err := Discover(t.TempDir())
	if err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("Discover() on empty dir returned %v", files)
	}
}

func TestFilter(t *testing.T) {
	packages := []*pip.Package{
		{Name: "requests", Version: "2.26.0"},
		{Name: "flask", Version: "2.0.0"},
		{Name: "setuptools", Version: "69.0.0"},
	}
	reqs := []Requirement{
		{Name: "requests"},
		{Name: "flask"},
		{Name: "not-installed"},
	}

	out := Filter(packages, reqs)

	if len(out) != 2 {
		t.Fatalf("Filter() returned %d packages, want 2", len(out))
	}
	if out[0].Name != "requests" || out[1].Name != "flask" {
		t.Errorf("Filter() order = %s, %s", out[0].Name, out[1].Name)
	}
}
