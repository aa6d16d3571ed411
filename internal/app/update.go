package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/calder-systems/pipsnap/internal/output"
	"github.com/calder-systems/pipsnap/internal/pip"
	"github.com/calder-systems/pipsnap/internal/store"
	"github.com/calder-systems/pipsnap/internal/updater"
)

var (
	updateFlagGlobal       bool
	updateFlagRequirements string
	updateFlagDryRun       bool
	updateFlagYes          bool

	updateCmd = &cobra.Command{
		Use:   "update",
		Short: "Upgrade all outdated packages, snapshot first",
		Long: `Upgrade every outdated package in scope to its latest released version.

Before anything is touched, a snapshot of the full current package list
is written to the backup directory. If that snapshot cannot be written
the update aborts with zero changes: an upgrade that cannot be rolled
back is not performed.

Individual upgrade failures do not stop the run; they are collected and
reported in the final summary. Interrupting the run (Ctrl-C) stops
after the package currently being installed and reports the partial
summary.`,
		Example: `  # Preview what would be upgraded
  pipsnap update --dry-run

  # Upgrade the project's requirements without a confirmation prompt
  pipsnap update --yes

  # Upgrade every package in the environment
  pipsnap update --global`,
		RunE: runUpdate,
	}
)

func init() {
	updateCmd.Flags().BoolVarP(&updateFlagGlobal, "global", "g", false, "update all installed packages, not a requirements file")
	updateCmd.Flags().StringVarP(&updateFlagRequirements, "requirements", "r", "", "requirements file to update against")
	updateCmd.Flags().BoolVar(&updateFlagDryRun, "dry-run", false, "show what would be updated without updating")
	updateCmd.Flags().BoolVarP(&updateFlagYes, "yes", "y", false, "skip confirmation prompt")

	RootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	scope, reqFile, err := resolveScope(updateFlagGlobal, updateFlagRequirements)
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	res, err := runCheckPipeline(ctx, cfg, st, scope, reqFile, false)
	if err != nil {
		return err
	}
	reportCheck(res)

	if len(res.outdated) == 0 {
		return nil
	}

	fmt.Printf("\nWill upgrade %d package(s):\n", len(res.outdated))
	for _, pkg := range res.outdated {
		fmt.Printf("  - %s %s → %s\n", pkg.Name, pkg.Version, pkg.Latest)
	}

	if updateFlagDryRun {
		fmt.Println("\nDry-run mode: no packages will be updated.")
		return nil
	}

	if !updateFlagYes && !confirm(fmt.Sprintf("\nUpgrade %d packages? [y/N]: ", len(res.outdated))) {
		fmt.Println("Update cancelled.")
		return nil
	}

	snapMgr := newSnapshotManager(st, cfg)
	upd := updater.NewUpdater(st, snapMgr, func(ctx context.Context, scope pip.Scope, name, version string) error {
		return pip.Upgrade(ctx, scope, name, version)
	})

	fmt.Println("\nCreating snapshot and updating packages...")
	progress := output.NewProgress(len(res.outdated), "Updating packages")
	upd.OnOutcome(func(o updater.Outcome) {
		if o.Status == updater.StatusFailed {
			progress.SetDescription(fmt.Sprintf("Failed to update %s", o.Name))
		}
		progress.Increment()
	})

	summary, err := upd.Run(ctx, scope, res.packages, res.outdated)
	progress.Finish()

	if err != nil {
		if errors.Is(err, store.ErrBusy) {
			return fmt.Errorf("%w\n\nIf a previous run crashed, clear the lock with 'pipsnap restore --force-unlock'", err)
		}
		return err
	}

	fmt.Println()
	fmt.Print(output.RenderSummary("Updated", summary))
	fmt.Printf("\nSnapshot: ID %d\n", summary.SnapshotID)
	fmt.Printf("Roll back with: pipsnap restore %d\n", summary.SnapshotID)

	return nil
}

// confirm prompts on stdin and accepts "y" or "yes".
func confirm(prompt string) bool {
	fmt.Print(prompt)

	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
