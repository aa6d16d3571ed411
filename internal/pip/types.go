package pip

import "strings"

// Scope selects which package universe a command operates on.
type Scope string

const (
	// ScopeProject covers packages declared in a requirements file,
	// resolved against the per-user site-packages.
	ScopeProject Scope = "project"
	// ScopeGlobal covers every package visible to the interpreter.
	ScopeGlobal Scope = "global"
)

// Valid reports whether s is a known scope value.
func (s Scope) Valid() bool {
	return s == ScopeProject || s == ScopeGlobal
}

// Package is the record for one installed distribution.
// Latest and Description are empty until metadata resolution fills them in.
type Package struct {
	Name        string
	Version     string
	Latest      string
	Description string
}

// Normalize canonicalizes a distribution name per PEP 503: lowercase, with
// every run of '-', '_' and '.' collapsed to a single '-'. PyPI treats
// "Flask_SQLAlchemy" and "flask-sqlalchemy" as the same project; pipsnap
// keys everything on the normalized form.
func Normalize(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	sep := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if r == '-' || r == '_' || r == '.' {
			sep = true
			continue
		}
		if sep && b.Len() > 0 {
			b.WriteByte('-')
		}
		sep = false
		b.WriteRune(r)
	}

	return b.String()
}

// Dedupe returns packages with duplicate normalized names removed, keeping
// the first occurrence. Input order is preserved.
func Dedupe(packages []*Package) []*Package {
	seen := make(map[string]struct{}, len(packages))
	out := make([]*Package, 0, len(packages))

	for _, pkg := range packages {
		key := Normalize(pkg.Name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, pkg)
	}

	return out
}
