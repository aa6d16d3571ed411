package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/calder-systems/pipsnap/internal/output"
	"github.com/calder-systems/pipsnap/internal/pip"
	"github.com/calder-systems/pipsnap/internal/snapshots"
	"github.com/calder-systems/pipsnap/internal/store"
	"github.com/calder-systems/pipsnap/internal/updater"
)

var (
	restoreFlagList        bool
	restoreFlagYes         bool
	restoreFlagForceUnlock bool

	restoreCmd = &cobra.Command{
		Use:   "restore [snapshot-id | latest]",
		Short: "Reinstall packages from a snapshot",
		Long: `Restore every package recorded in a snapshot at its recorded version.

Versions are pinned exactly: a restore installs what the snapshot says,
never "whatever is latest". A snapshot that cannot be read or parsed
fails the restore before any package is touched; after that, individual
install failures are collected and reported without stopping the rest.

Arguments:
  snapshot-id  The numeric ID of the snapshot to restore
  latest       Restore the most recent snapshot`,
		Example: `  pipsnap restore --list          # List all snapshots
  pipsnap restore latest          # Restore the most recent snapshot
  pipsnap restore 3               # Restore snapshot ID 3
  pipsnap restore 3 --yes         # Restore without confirmation`,
		RunE: runRestore,
	}
)

func init() {
	restoreCmd.Flags().BoolVar(&restoreFlagList, "list", false, "list available snapshots")
	restoreCmd.Flags().BoolVarP(&restoreFlagYes, "yes", "y", false, "skip confirmation prompt")
	restoreCmd.Flags().BoolVar(&restoreFlagForceUnlock, "force-unlock", false, "clear a stale run lock left by a crashed run")

	RootCmd.AddCommand(restoreCmd)
}

func runRestore(cmd *cobra.Command, args []string) error {
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

	if restoreFlagForceUnlock {
		return runForceUnlock(st)
	}

	if restoreFlagList {
		return listSnapshots(snapMgr)
	}

	if len(args) == 0 {
		return fmt.Errorf("snapshot ID or 'latest' required\n\nUsage: pipsnap restore [snapshot-id | latest]\n\nUse 'pipsnap restore --list' to see available snapshots")
	}

	snap, err := selectSnapshot(snapMgr, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("\nSnapshot Details:\n")
	fmt.Printf("  ID: %d\n", snap.ID)
	fmt.Printf("  Created: %s\n", snap.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("  Scope: %s\n", snap.Scope)
	fmt.Printf("  Packages: %d\n", snap.PackageCount)
	fmt.Println()

	if !restoreFlagYes && !confirm(fmt.Sprintf("Restore %d packages? [y/N]: ", snap.PackageCount)) {
		fmt.Println("Restore cancelled.")
		return nil
	}

	rst := updater.NewRestorer(st, snapMgr, func(ctx context.Context, scope pip.Scope, name, version string) error {
		return pip.Install(ctx, scope, name, version)
	})

	fmt.Printf("Restoring %d packages...\n", snap.PackageCount)
	progress := output.NewProgress(snap.PackageCount, "Restoring packages")
	rst.OnOutcome(func(o updater.Outcome) {
		if o.Status == updater.StatusFailed {
			progress.SetDescription(fmt.Sprintf("Failed to restore %s", o.Name))
		}
		progress.Increment()
	})

	summary, err := rst.Run(ctx, snap)
	progress.Finish()

	if err != nil {
		if errors.Is(err, store.ErrBusy) {
			return fmt.Errorf("%w\n\nIf a previous run crashed, clear the lock with 'pipsnap restore --force-unlock'", err)
		}
		return err
	}

	fmt.Println()
	fmt.Print(output.RenderSummary("Restored", summary))
	return nil
}

// selectSnapshot resolves a CLI argument ("latest" or a numeric ID) to an
// indexed snapshot.
func selectSnapshot(snapMgr *snapshots.Manager, arg string) (*store.Snapshot, error) {
	if strings.EqualFold(arg, "latest") {
		snap, err := snapMgr.Latest()
		if err != nil {
			if errors.Is(err, snapshots.ErrNotFound) {
				return nil, fmt.Errorf("no snapshots available\n\nSnapshots are created automatically before every update,\nor manually with 'pipsnap snapshot'")
			}
			return nil, err
		}
		fmt.Printf("Using latest snapshot: ID %d\n", snap.ID)
		return snap, nil
	}

	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid snapshot ID: %s (must be a number or 'latest')", arg)
	}

	snap, err := snapMgr.Get(id)
	if err != nil {
		return nil, fmt.Errorf("snapshot %d not found\n\nRun 'pipsnap restore --list' to see available snapshots", id)
	}
	return snap, nil
}

// listSnapshots displays all available snapshots, newest first.
func listSnapshots(snapMgr *snapshots.Manager) error {
	snaps, err := snapMgr.List()
	if err != nil {
		return err
	}

	if len(snaps) == 0 {
		fmt.Println("No snapshots available.")
		fmt.Println("\nSnapshots are created automatically before every update,")
		fmt.Println("or manually with 'pipsnap snapshot'.")
		return nil
	}

	fmt.Printf("\nAvailable snapshots:\n\n")
	fmt.Print(output.RenderSnapshotTable(snaps))
	fmt.Printf("\nRestore with: pipsnap restore <id>\n")
	return nil
}

// runForceUnlock clears stale run locks for both scopes.
func runForceUnlock(st *store.Store) error {
	var total int64
	for _, scope := range []pip.Scope{pip.ScopeProject, pip.ScopeGlobal} {
		n, err := st.ClearStaleRuns(scope)
		if err != nil {
			return err
		}
		total += n
	}

	if total == 0 {
		fmt.Println("No stale run locks found.")
	} else {
		fmt.Printf("Cleared %d stale run lock(s).\n", total)
	}
	return nil
}
