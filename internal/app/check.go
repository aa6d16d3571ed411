package app

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/calder-systems/pipsnap/internal/output"
	"github.com/calder-systems/pipsnap/internal/pip"
	"github.com/calder-systems/pipsnap/internal/store"
)

var (
	checkFlagGlobal       bool
	checkFlagRequirements string
	checkFlagQuiet        bool
	checkFlagCached       bool

	checkCmd = &cobra.Command{
		Use:   "check",
		Short: "Check installed packages against the latest index releases",
		Long: `Check the installed version of every package in scope against the
latest release on the package index and show which are outdated.

By default the project scope is used: packages declared in the
requirements file found in the current directory. Use --global to check
every package installed in the environment instead.

Packages whose metadata cannot be resolved (network failure, not on the
index) are shown as "unknown" and are never selected for upgrade.`,
		Example: `  # Check the project's requirements file
  pipsnap check

  # Check a specific requirements file
  pipsnap check --requirements dev-requirements.txt

  # Check every installed package
  pipsnap check --global

  # Show the result of the last check without touching the network
  pipsnap check --cached`,
		RunE: runCheck,
	}
)

func init() {
	checkCmd.Flags().BoolVarP(&checkFlagGlobal, "global", "g", false, "check all installed packages, not a requirements file")
	checkCmd.Flags().StringVarP(&checkFlagRequirements, "requirements", "r", "", "requirements file to check")
	checkCmd.Flags().BoolVar(&checkFlagQuiet, "quiet", false, "suppress progress output")
	checkCmd.Flags().BoolVar(&checkFlagCached, "cached", false, "show the cached result of the last check, offline")

	RootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	scope, reqFile, err := resolveScope(checkFlagGlobal, checkFlagRequirements)
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if checkFlagCached {
		return reportCachedCheck(st, scope)
	}

	res, err := runCheckPipeline(ctx, cfg, st, scope, reqFile, checkFlagQuiet)
	if err != nil {
		return err
	}

	reportCheck(res)
	return nil
}

// reportCachedCheck renders the inventory recorded by the last check for
// the scope, with no pip or network round-trips.
func reportCachedCheck(st *store.Store, scope pip.Scope) error {
	packages, err := st.ListInventory(scope)
	if err != nil {
		return err
	}
	if len(packages) == 0 {
		return fmt.Errorf("no cached check result for scope %s; run 'pipsnap check' first", scope)
	}

	fmt.Println()
	fmt.Print(output.RenderPackageTable(packages))
	fmt.Println()
	fmt.Printf("Cached result; versions may be stale. Total package(s): %d\n", len(packages))
	return nil
}
