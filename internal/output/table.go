// Package output provides terminal output utilities for pipsnap.
//
// This package includes:
//   - Table rendering for package status, snapshots, and run summaries
//   - A progress bar for install loops and a spinner for indeterminate waits
//   - Human-readable formatting for timestamps
//
// All rendering uses ASCII characters and ANSI color codes; color is
// suppressed when stdout is not a TTY or NO_COLOR is set.
package output

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/calder-systems/pipsnap/internal/pepver"
	"github.com/calder-systems/pipsnap/internal/pip"
	"github.com/calder-systems/pipsnap/internal/store"
	"github.com/calder-systems/pipsnap/internal/updater"
)

// ANSI color codes for status display
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorGray   = "\033[90m"
)

// IsColorEnabled returns true if ANSI color codes should be emitted.
// It checks that os.Stdout is a TTY and that the NO_COLOR env var is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

// colorize wraps text in the given ANSI color code if color is enabled,
// otherwise returns the plain text.
func colorize(color, text string) string {
	if IsColorEnabled() {
		return color + text + colorReset
	}
	return text
}

// RenderPackageTable renders the version status table: outdated packages
// first, then current, then unknown, each group sorted by name.
func RenderPackageTable(packages []*pip.Package) string {
	if len(packages) == 0 {
		return "No package information available.\n"
	}

	sorted := make([]*pip.Package, len(packages))
	copy(sorted, packages)
	pepver.SortForDisplay(sorted)

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-24s %-14s %-14s %-12s %s\n",
		"Package", "Installed", "Latest", "Status", "Description"))
	sb.WriteString(strings.Repeat("─", 96))
	sb.WriteString("\n")

	for _, pkg := range sorted {
		latest := pkg.Latest
		if latest == "" {
			latest = "?"
		}

		var status string
		switch pepver.Classify(pkg) {
		case pepver.Outdated:
			status = colorize(colorRed, "outdated")
		case pepver.Current:
			status = colorize(colorGreen, "up to date")
		default:
			status = colorize(colorGray, "unknown")
		}

		sb.WriteString(fmt.Sprintf("%-24s %-14s %-14s %-12s %s\n",
			truncate(pkg.Name, 24),
			truncate(pkg.Version, 14),
			truncate(latest, 14),
			status,
			truncate(pkg.Description, 40)))
	}

	return sb.String()
}

// RenderSnapshotTable renders available snapshots, newest first (the
// caller passes them pre-ordered from the index).
func RenderSnapshotTable(snapshots []*store.Snapshot) string {
	if len(snapshots) == 0 {
		return "No snapshots found.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-5s %-17s %-9s %-10s %s\n",
		"ID", "Created", "Scope", "Packages", "File"))
	sb.WriteString(strings.Repeat("─", 88))
	sb.WriteString("\n")

	for _, snap := range snapshots {
		sb.WriteString(fmt.Sprintf("%-5d %-17s %-9s %-10d %s\n",
			snap.ID,
			formatRelativeTime(snap.CreatedAt),
			snap.Scope,
			snap.PackageCount,
			snap.SnapshotPath))
	}

	return sb.String()
}

// RenderSummary renders the result of an update or restore run: counts,
// elapsed time, and the failure list if any.
func RenderSummary(verb string, summary *updater.Summary) string {
	var sb strings.Builder

	if summary.Interrupted {
		sb.WriteString(colorize(colorYellow, "⚠ Run interrupted, partial results below\n"))
	}

	sb.WriteString(fmt.Sprintf("%s %d package(s), %d failure(s) in %.1fs\n",
		verb, summary.Succeeded, summary.Failed, summary.Elapsed.Seconds()))

	if summary.Failed > 0 {
		sb.WriteString("\nFailures:\n")
		for _, o := range summary.Outcomes {
			if o.Status != updater.StatusFailed {
				continue
			}
			sb.WriteString(fmt.Sprintf("  - %s==%s: %s\n", o.Name, o.TargetVersion, truncate(o.Detail, 120)))
		}
	}

	return sb.String()
}

// formatRelativeTime converts a timestamp to relative time (e.g., "2 days ago").
func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "minute")
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour")
	case diff < 7*24*time.Hour:
		return plural(int(diff.Hours()/24), "day")
	case diff < 30*24*time.Hour:
		return plural(int(diff.Hours()/24/7), "week")
	case diff < 365*24*time.Hour:
		return plural(int(diff.Hours()/24/30), "month")
	default:
		return plural(int(diff.Hours()/24/365), "year")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

// truncate truncates a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
