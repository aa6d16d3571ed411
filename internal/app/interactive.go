package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/calder-systems/pipsnap/internal/config"
	"github.com/calder-systems/pipsnap/internal/manifest"
	"github.com/calder-systems/pipsnap/internal/output"
	"github.com/calder-systems/pipsnap/internal/pip"
	"github.com/calder-systems/pipsnap/internal/snapshots"
	"github.com/calder-systems/pipsnap/internal/store"
	"github.com/calder-systems/pipsnap/internal/updater"
)

var interactiveCmd = &cobra.Command{
	Use:     "interactive",
	Aliases: []string{"i"},
	Short:   "Guided menu for check, update, and restore",
	Long: `Walk through scope selection and an action menu interactively instead
of passing flags. Useful for a first run or when several requirements
files exist in the working directory.`,
	RunE: runInteractive,
}

func init() {
	RootCmd.AddCommand(interactiveCmd)
}

func runInteractive(cmd *cobra.Command, args []string) error {
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

	scope, reqFile, err := chooseScope()
	if err != nil {
		return err
	}

	for {
		var action string
		err := huh.NewSelect[string]().
			Title("What would you like to do?").
			Options(
				huh.NewOption("Check for outdated packages", "check"),
				huh.NewOption("Update outdated packages (snapshot first)", "update"),
				huh.NewOption("Restore a snapshot", "restore"),
				huh.NewOption("Take a snapshot now", "snapshot"),
				huh.NewOption("Quit", "quit"),
			).
			Value(&action).
			Run()
		if err != nil {
			return err
		}

		switch action {
		case "check":
			res, err := runCheckPipeline(ctx, cfg, st, scope, reqFile, false)
			if err != nil {
				fmt.Printf("Check failed: %v\n", err)
				continue
			}
			reportCheck(res)

		case "update":
			if err := interactiveUpdate(ctx, cfg, st, snapMgr, scope, reqFile); err != nil {
				fmt.Printf("Update failed: %v\n", err)
			}

		case "restore":
			if err := interactiveRestore(ctx, st, snapMgr); err != nil {
				fmt.Printf("Restore failed: %v\n", err)
			}

		case "snapshot":
			packages, err := listScopedPackages(ctx, scope, reqFile)
			if err != nil {
				fmt.Printf("Snapshot failed: %v\n", err)
				continue
			}
			snap, err := snapMgr.Create(scope, packages)
			if err != nil {
				fmt.Printf("Snapshot failed: %v\n", err)
				continue
			}
			fmt.Printf("Snapshot created: ID %d (%d packages)\n", snap.ID, snap.PackageCount)

		case "quit":
			return nil
		}
	}
}

// chooseScope asks for project or global scope, and in project scope
// picks a requirements file from those discovered in the working
// directory.
func chooseScope() (pip.Scope, string, error) {
	files, err := manifest.Discover(".")
	if err != nil {
		return "", "", err
	}

	scopeOpts := []huh.Option[string]{
		huh.NewOption("Global (every installed package)", "global"),
	}
	if len(files) > 0 {
		scopeOpts = append([]huh.Option[string]{
			huh.NewOption("Project (requirements file)", "project"),
		}, scopeOpts...)
	}

	var choice string
	if err := huh.NewSelect[string]().
		Title("Which packages should pipsnap manage?").
		Options(scopeOpts...).
		Value(&choice).
		Run(); err != nil {
		return "", "", err
	}

	if choice == "global" {
		return pip.ScopeGlobal, "", nil
	}

	if len(files) == 1 {
		return pip.ScopeProject, files[0], nil
	}

	var fileOpts []huh.Option[string]
	for _, f := range files {
		fileOpts = append(fileOpts, huh.NewOption(f, f))
	}

	var reqFile string
	if err := huh.NewSelect[string]().
		Title("Which requirements file?").
		Options(fileOpts...).
		Value(&reqFile).
		Run(); err != nil {
		return "", "", err
	}

	return pip.ScopeProject, reqFile, nil
}

func interactiveUpdate(ctx context.Context, cfg *config.Config, st *store.Store, snapMgr *snapshots.Manager, scope pip.Scope, reqFile string) error {
	res, err := runCheckPipeline(ctx, cfg, st, scope, reqFile, false)
	if err != nil {
		return err
	}
	reportCheck(res)

	if len(res.outdated) == 0 {
		return nil
	}

	proceed := false
	if err := huh.NewConfirm().
		Title(fmt.Sprintf("Upgrade %d outdated package(s)?", len(res.outdated))).
		Description("A snapshot of the current versions is taken first.").
		Value(&proceed).
		Run(); err != nil {
		return err
	}
	if !proceed {
		fmt.Println("Update cancelled.")
		return nil
	}

	upd := updater.NewUpdater(st, snapMgr, func(ctx context.Context, scope pip.Scope, name, version string) error {
		return pip.Upgrade(ctx, scope, name, version)
	})

	progress := output.NewProgress(len(res.outdated), "Updating packages")
	upd.OnOutcome(func(o updater.Outcome) {
		progress.Increment()
	})

	summary, err := upd.Run(ctx, scope, res.packages, res.outdated)
	progress.Finish()
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Print(output.RenderSummary("Updated", summary))
	fmt.Printf("\nRoll back with: pipsnap restore %d\n", summary.SnapshotID)
	return nil
}

func interactiveRestore(ctx context.Context, st *store.Store, snapMgr *snapshots.Manager) error {
	snaps, err := snapMgr.List()
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		fmt.Println("No snapshots available.")
		return nil
	}

	var opts []huh.Option[int64]
	for _, s := range snaps {
		label := fmt.Sprintf("ID %d: %s, %s, %d packages",
			s.ID, s.CreatedAt.Format("2006-01-02 15:04"), s.Scope, s.PackageCount)
		opts = append(opts, huh.NewOption(label, s.ID))
	}

	var id int64
	if err := huh.NewSelect[int64]().
		Title("Which snapshot?").
		Options(opts...).
		Value(&id).
		Run(); err != nil {
		return err
	}

	snap, err := snapMgr.Get(id)
	if err != nil {
		return err
	}

	proceed := false
	if err := huh.NewConfirm().
		Title(fmt.Sprintf("Restore %d package(s) from snapshot %d?", snap.PackageCount, snap.ID)).
		Value(&proceed).
		Run(); err != nil {
		return err
	}
	if !proceed {
		fmt.Println("Restore cancelled.")
		return nil
	}

	rst := updater.NewRestorer(st, snapMgr, func(ctx context.Context, scope pip.Scope, name, version string) error {
		return pip.Install(ctx, scope, name, version)
	})

	progress := output.NewProgress(snap.PackageCount, "Restoring packages")
	rst.OnOutcome(func(o updater.Outcome) {
		progress.Increment()
	})

	summary, err := rst.Run(ctx, snap)
	progress.Finish()
	if err != nil {
		if errors.Is(err, store.ErrBusy) {
			return fmt.Errorf("%w\n\nclear the lock with 'pipsnap restore --force-unlock'", err)
		}
		return err
	}

	fmt.Println()
	fmt.Print(output.RenderSummary("Restored", summary))
	return nil
}
