// Package pepver classifies installed packages against their latest
// released versions using ordered release-version semantics: numeric
// segments compare numerically and pre-release suffixes sort before the
// corresponding final release (1.0.0rc1 < 1.0.0).
package pepver

import (
	"fmt"
	"sort"

	goversion "github.com/hashicorp/go-version"

	"github.com/calder-systems/pipsnap/internal/pip"
)

// Ordering is the result of comparing two versions.
type Ordering int

const (
	Less    Ordering = -1
	Equal   Ordering = 0
	Greater Ordering = 1
)

func (o Ordering) String() string {
	switch o {
	case Less:
		return "less"
	case Greater:
		return "greater"
	default:
		return "equal"
	}
}

// Classification is the derived up-to-date status of a package. It is
// computed on demand, never stored.
type Classification string

const (
	// Current: installed version is at or ahead of the latest release.
	// "Ahead" covers local dev builds newer than anything published; those
	// are never flagged as outdated.
	Current Classification = "current"
	// Outdated: the latest release is strictly newer than installed.
	Outdated Classification = "outdated"
	// Unknown: metadata resolution failed or a version did not parse.
	// Unknown packages are reported but excluded from update candidacy.
	Unknown Classification = "unknown"
)

// Compare orders two version strings. Returns an error if either string is
// not a parseable version; callers treat that as a per-package condition,
// not a batch failure.
func Compare(installed, latest string) (Ordering, error) {
	iv, err := goversion.NewVersion(installed)
	if err != nil {
		return Equal, fmt.Errorf("unparseable installed version %q: %w", installed, err)
	}
	lv, err := goversion.NewVersion(latest)
	if err != nil {
		return Equal, fmt.Errorf("unparseable latest version %q: %w", latest, err)
	}

	switch c := iv.Compare(lv); {
	case c < 0:
		return Less, nil
	case c > 0:
		return Greater, nil
	default:
		return Equal, nil
	}
}

// Classify derives the status of a package from its installed and resolved
// latest versions. A package with no resolved latest version is Unknown.
func Classify(pkg *pip.Package) Classification {
	if pkg.Latest == "" {
		return Unknown
	}

	ord, err := Compare(pkg.Version, pkg.Latest)
	if err != nil {
		return Unknown
	}

	if ord == Less {
		return Outdated
	}
	return Current
}

// SortForDisplay orders packages for presentation: outdated before current
// before unknown, ties broken by name ascending. Names are already
// normalized to lowercase, so the comparison is case-insensitive by
// construction. Display ordering is cosmetic; nothing downstream relies
// on it.
func SortForDisplay(packages []*pip.Package) {
	rank := func(c Classification) int {
		switch c {
		case Outdated:
			return 0
		case Current:
			return 1
		default:
			return 2
		}
	}

	sort.SliceStable(packages, func(i, j int) bool {
		ri, rj := rank(Classify(packages[i])), rank(Classify(packages[j]))
		if ri != rj {
			return ri < rj
		}
		return packages[i].Name < packages[j].Name
	})
}

// OutdatedOnly filters packages down to those classified Outdated.
func OutdatedOnly(packages []*pip.Package) []*pip.Package {
	var out []*pip.Package
	for _, pkg := range packages {
		if Classify(pkg) == Outdated {
			out = append(out, pkg)
		}
	}
	return out
}
