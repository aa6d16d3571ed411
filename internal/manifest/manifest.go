// Package manifest discovers and parses pip requirements files. Parsing is
// deliberately shallow: pipsnap needs the package names a project declares,
// not a full resolver. Constraint expressions are carried along verbatim
// for display; lines it cannot understand are skipped rather than fatal.
package manifest

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/calder-systems/pipsnap/internal/pip"
)

// Requirement is one declared dependency: a normalized package name and
// the raw version constraint, if any ("==2.26.0", ">=1,<2", or empty).
type Requirement struct {
	Name       string
	Constraint string
}

// Discover returns the requirements files in dir, sorted by name.
// Matches the conventional patterns *requirements*.txt and
// *requirements*.pip (requirements.txt, dev-requirements.txt, ...).
func Discover(dir string) ([]string, error) {
	var files []string
	for _, pattern := range []string{"*requirements*.txt", "*requirements*.pip"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("failed to glob %s: %w", pattern, err)
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

// Parse reads a requirements file and returns its declared packages.
// Comments, blank lines, pip option lines (-r, --index-url, -e ...) and
// unparseable lines are skipped.
func Parse(path string) ([]Requirement, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open requirements file: %w", err)
	}
	defer f.Close()

	var reqs []Requirement
	seen := make(map[string]struct{})

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		req, ok := parseLine(scanner.Text())
		if !ok {
			continue
		}
		if _, dup := seen[req.Name]; dup {
			continue
		}
		seen[req.Name] = struct{}{}
		reqs = append(reqs, req)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read requirements file: %w", err)
	}

	return reqs, nil
}

// parseLine extracts a requirement from one line of a requirements file.
func parseLine(line string) (Requirement, bool) {
	// Trailing comment, then whitespace.
	if idx := strings.Index(line, "#"); idx >= 0 {
		line = line[:idx]
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return Requirement{}, false
	}

	// Option lines (-r other.txt, --index-url, -e .) and local/VCS
	// references are not package requirements.
	if strings.HasPrefix(line, "-") || strings.HasPrefix(line, ".") || strings.HasPrefix(line, "/") {
		return Requirement{}, false
	}

	// Environment markers ("; python_version < '3.9'") don't affect the
	// name or constraint.
	if idx := strings.Index(line, ";"); idx >= 0 {
		line = strings.TrimSpace(line[:idx])
	}

	// The name runs up to the first character that can't be part of a
	// distribution name. Everything after is the constraint; extras
	// ("pkg[security]") are dropped from the name.
	split := len(line)
	for i, r := range line {
		if !isNameRune(r) {
			split = i
			break
		}
	}

	name := pip.Normalize(line[:split])
	if name == "" {
		return Requirement{}, false
	}

	rest := strings.TrimSpace(line[split:])
	if strings.HasPrefix(rest, "[") {
		// Skip the extras group, keep any constraint after it.
		if end := strings.Index(rest, "]"); end >= 0 {
			rest = strings.TrimSpace(rest[end+1:])
		} else {
			rest = ""
		}
	}

	return Requirement{Name: name, Constraint: rest}, true
}

func isNameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '-', r == '_', r == '.':
		return true
	}
	return false
}

// Filter returns the packages whose normalized names appear in reqs,
// preserving the order of packages.
func Filter(packages []*pip.Package, reqs []Requirement) []*pip.Package {
	wanted := make(map[string]struct{}, len(reqs))
	for _, req := range reqs {
		wanted[req.Name] = struct{}{}
	}

	var out []*pip.Package
	for _, pkg := range packages {
		if _, ok := wanted[pkg.Name]; ok {
			out = append(out, pkg)
		}
	}
	return out
}
