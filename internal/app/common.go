package app

import (
	"context"
	"fmt"
	"os"

	"github.com/calder-systems/pipsnap/internal/config"
	"github.com/calder-systems/pipsnap/internal/manifest"
	"github.com/calder-systems/pipsnap/internal/output"
	"github.com/calder-systems/pipsnap/internal/pepver"
	"github.com/calder-systems/pipsnap/internal/pip"
	"github.com/calder-systems/pipsnap/internal/registry"
	"github.com/calder-systems/pipsnap/internal/snapshots"
	"github.com/calder-systems/pipsnap/internal/store"
)

// newSnapshotManager builds the snapshot manager over the configured
// backup directory.
func newSnapshotManager(st *store.Store, cfg *config.Config) *snapshots.Manager {
	return snapshots.New(st, cfg.BackupDir)
}

// loadConfig reads the config file and applies interpreter selection.
func loadConfig() (*config.Config, error) {
	dir, err := config.Dir()
	if err != nil {
		return nil, fmt.Errorf("cannot determine config directory: %w", err)
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}

	// The env var override in the pip package wins over the config file.
	if os.Getenv("PIPSNAP_PYTHON") == "" && cfg.Python != "" {
		pip.Python = cfg.Python
	}

	return cfg, nil
}

// openStore opens the pipsnap database and ensures the schema exists.
func openStore() (*store.Store, error) {
	path, err := getDBPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get database path: %w", err)
	}

	st, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := st.CreateSchema(); err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to create database schema: %w", err)
	}

	return st, nil
}

// resolveScope maps the --global flag and the optional requirements path
// to a scope plus the requirements file to filter by (empty in global
// scope). With no explicit requirements file, exactly one discovered file
// in the current directory is accepted; zero or several is an error the
// user resolves with a flag.
func resolveScope(global bool, requirementsFile string) (pip.Scope, string, error) {
	if global {
		if requirementsFile != "" {
			return "", "", fmt.Errorf("cannot combine --global with --requirements")
		}
		return pip.ScopeGlobal, "", nil
	}

	if requirementsFile != "" {
		if _, err := os.Stat(requirementsFile); err != nil {
			return "", "", fmt.Errorf("requirements file %s: %w", requirementsFile, err)
		}
		return pip.ScopeProject, requirementsFile, nil
	}

	files, err := manifest.Discover(".")
	if err != nil {
		return "", "", err
	}

	switch len(files) {
	case 0:
		return "", "", fmt.Errorf("no requirements files found in the current directory\n\nUse --global to check the whole environment, or --requirements <file>")
	case 1:
		return pip.ScopeProject, files[0], nil
	default:
		return "", "", fmt.Errorf("multiple requirements files found (%d); pick one with --requirements <file>", len(files))
	}
}

// filterToManifest narrows the installed set to the packages declared in
// the requirements file.
func filterToManifest(packages []*pip.Package, requirementsFile string) ([]*pip.Package, error) {
	reqs, err := manifest.Parse(requirementsFile)
	if err != nil {
		return nil, err
	}
	filtered := manifest.Filter(packages, reqs)
	if len(filtered) == 0 {
		return nil, fmt.Errorf("no packages from %s are installed", requirementsFile)
	}
	return filtered, nil
}

// checkResult is the outcome of the shared check pipeline.
type checkResult struct {
	scope    pip.Scope
	packages []*pip.Package
	outdated []*pip.Package
	failures []registry.Result
}

// runCheckPipeline queries the installed packages for the scope, filters
// to the manifest in project scope, resolves latest versions from the
// index, classifies, and caches the inventory. Presentation is left to
// the caller.
func runCheckPipeline(ctx context.Context, cfg *config.Config, st *store.Store, scope pip.Scope, requirementsFile string, quiet bool) (*checkResult, error) {
	if err := pip.Available(ctx); err != nil {
		return nil, err
	}

	spinner := startSpinner(quiet, "Analyzing installed packages...")
	packages, err := pip.ListInstalled(ctx, scope)
	stopSpinner(spinner)
	if err != nil {
		return nil, err
	}

	if scope == pip.ScopeProject {
		packages, err = filterToManifest(packages, requirementsFile)
		if err != nil {
			return nil, err
		}
	}

	if len(packages) == 0 {
		return nil, fmt.Errorf("no installed packages found for scope %s", scope)
	}

	spinner = startSpinner(quiet, fmt.Sprintf("Checking %d packages for updates...", len(packages)))
	client := registry.NewClient(cfg.IndexURL, cfg.Timeout())
	results := registry.Resolve(ctx, client, packages, int64(cfg.Concurrency))
	stopSpinner(spinner)

	if err := st.ReplaceInventory(scope, packages); err != nil {
		// The cache is a convenience; a failure to update it must not
		// block the check itself.
		fmt.Fprintf(os.Stderr, "Warning: failed to cache inventory: %v\n", err)
	}

	return &checkResult{
		scope:    scope,
		packages: packages,
		outdated: pepver.OutdatedOnly(packages),
		failures: registry.Failed(results),
	}, nil
}

// reportCheck renders the status table and counts for a pipeline result.
func reportCheck(res *checkResult) {
	fmt.Println()
	fmt.Print(output.RenderPackageTable(res.packages))
	fmt.Println()
	fmt.Printf("Total package(s): %d\n", len(res.packages))

	if len(res.outdated) > 0 {
		fmt.Printf("Found %d outdated package(s)\n", len(res.outdated))
	} else {
		fmt.Println("All packages are up to date!")
	}

	if len(res.failures) > 0 {
		fmt.Fprintf(os.Stderr, "\n⚠ %d package(s) could not be resolved:\n", len(res.failures))
		for _, r := range res.failures {
			fmt.Fprintf(os.Stderr, "  - %s: %v\n", r.Package.Name, r.Err)
		}
	}
}

func startSpinner(quiet bool, message string) *output.Spinner {
	if quiet {
		return nil
	}
	s := output.NewSpinner(message)
	s.Start()
	return s
}

func stopSpinner(s *output.Spinner) {
	if s != nil {
		s.Stop()
	}
}
