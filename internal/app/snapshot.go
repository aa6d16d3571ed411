package app

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/calder-systems/pipsnap/internal/pip"
)

var (
	snapshotFlagGlobal       bool
	snapshotFlagRequirements string
	snapshotFlagList         bool

	snapshotCmd = &cobra.Command{
		Use:   "snapshot",
		Short: "Record the current package versions without changing anything",
		Long: `Write a snapshot of the currently installed package versions to the
backup directory and register it in the index, without touching any
package.

Updates always take a snapshot automatically; this command is for
taking one on demand, e.g. before experimenting with manual installs.`,
		Example: `  pipsnap snapshot                # Snapshot the project scope
  pipsnap snapshot --global       # Snapshot the whole environment
  pipsnap snapshot --list         # List existing snapshots`,
		RunE: runSnapshot,
	}
)

func init() {
	snapshotCmd.Flags().BoolVarP(&snapshotFlagGlobal, "global", "g", false, "snapshot all installed packages, not a requirements file")
	snapshotCmd.Flags().StringVarP(&snapshotFlagRequirements, "requirements", "r", "", "requirements file to snapshot against")
	snapshotCmd.Flags().BoolVar(&snapshotFlagList, "list", false, "list available snapshots")

	RootCmd.AddCommand(snapshotCmd)
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	snapMgr := newSnapshotManager(st, cfg)

	if snapshotFlagList {
		return listSnapshots(snapMgr)
	}

	scope, reqFile, err := resolveScope(snapshotFlagGlobal, snapshotFlagRequirements)
	if err != nil {
		return err
	}

	packages, err := listScopedPackages(ctx, scope, reqFile)
	if err != nil {
		return err
	}

	snap, err := snapMgr.Create(scope, packages)
	if err != nil {
		return err
	}

	fmt.Printf("Snapshot created: ID %d (%d packages)\n", snap.ID, snap.PackageCount)
	fmt.Printf("File: %s\n", snap.SnapshotPath)
	fmt.Printf("Restore with: pipsnap restore %d\n", snap.ID)
	return nil
}

// listScopedPackages returns the installed packages for the scope,
// filtered to the requirements file in project scope. This is the check
// pipeline without the index round-trip; a snapshot only needs installed
// versions.
func listScopedPackages(ctx context.Context, scope pip.Scope, requirementsFile string) ([]*pip.Package, error) {
	if err := pip.Available(ctx); err != nil {
		return nil, err
	}

	packages, err := pip.ListInstalled(ctx, scope)
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
	return packages, nil
}
