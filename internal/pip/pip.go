// Package pip shells out to the pip executable for environment queries and
// install operations. pipsnap never touches site-packages itself; every
// mutation goes through `pip install` and is judged by its exit status.
package pip

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Python is the interpreter used to run pip (`<Python> -m pip ...`).
// Invoking pip through the interpreter rather than a bare `pip` binary
// guarantees the queried environment is the one that interpreter owns.
// Overridable via config or the PIPSNAP_PYTHON environment variable.
var Python = "python3"

func init() {
	if p := os.Getenv("PIPSNAP_PYTHON"); p != "" {
		Python = p
	}
}

// listEntry matches one element of `pip list --format=json` output.
type listEntry struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// pipCommand builds a pip invocation for the given scope. Project scope
// queries the per-user site-packages (--user), matching how project
// environments are laid out; global scope sees everything.
func pipCommand(ctx context.Context, scope Scope, args ...string) *exec.Cmd {
	full := append([]string{"-m", "pip"}, args...)
	if scope == ScopeProject {
		full = append(full, "--user")
	}
	return exec.CommandContext(ctx, Python, full...)
}

// ListInstalled returns every package installed in the given scope, with
// names normalized and duplicates dropped.
func ListInstalled(ctx context.Context, scope Scope) ([]*Package, error) {
	cmd := pipCommand(ctx, scope, "list", "--format=json")
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("pip list failed: %w (stderr: %s)", err, string(exitErr.Stderr))
		}
		return nil, fmt.Errorf("pip list failed: %w", err)
	}

	var entries []listEntry
	if err := json.Unmarshal(output, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse pip list output: %w", err)
	}

	packages := make([]*Package, 0, len(entries))
	for _, e := range entries {
		packages = append(packages, &Package{
			Name:    Normalize(e.Name),
			Version: strings.TrimSpace(e.Version),
		})
	}

	return Dedupe(packages), nil
}

// Install installs a package pinned to an exact version via
// `pip install name==version`. An empty version is refused: pipsnap only
// ever installs versions it has recorded, never "whatever is latest".
func Install(ctx context.Context, scope Scope, name, version string) error {
	if version == "" {
		return fmt.Errorf("refusing to install %s without a pinned version", name)
	}
	return runInstall(ctx, scope, false, name, version)
}

// Upgrade upgrades a package to an exact version via
// `pip install --upgrade name==version`.
func Upgrade(ctx context.Context, scope Scope, name, version string) error {
	if version == "" {
		return fmt.Errorf("refusing to upgrade %s without a target version", name)
	}
	return runInstall(ctx, scope, true, name, version)
}

func runInstall(ctx context.Context, scope Scope, upgrade bool, name, version string) error {
	spec := fmt.Sprintf("%s==%s", name, version)

	args := []string{"install"}
	if upgrade {
		args = append(args, "--upgrade")
	}
	args = append(args, spec)

	cmd := pipCommand(ctx, scope, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("pip install %s failed: %w (output: %s)", spec, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// Available checks that the configured interpreter can run pip at all.
// Used by commands up front so the failure mode is a clear message instead
// of a pile of per-package errors.
func Available(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, Python, "-m", "pip", "--version")
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s -m pip is not usable: %w (output: %s)", Python, err, strings.TrimSpace(string(output)))
	}
	return nil
}
