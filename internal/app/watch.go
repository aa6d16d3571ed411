package app

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/calder-systems/pipsnap/internal/watcher"
)

var (
	watchFlagRequirements string

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Re-run the check whenever the requirements file changes",
		Long: `Watch the project's requirements file and re-run the version check
every time it changes.

Each edit triggers a fresh check after a short debounce, so an editor
save (which usually fires several filesystem events) produces exactly
one check. Stop with Ctrl-C.`,
		Example: `  pipsnap watch
  pipsnap watch --requirements dev-requirements.txt`,
		RunE: runWatch,
	}
)

func init() {
	watchCmd.Flags().StringVarP(&watchFlagRequirements, "requirements", "r", "", "requirements file to watch")

	RootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Watch mode is inherently about a requirements file, so the scope is
	// always the project.
	scope, reqFile, err := resolveScope(false, watchFlagRequirements)
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	runOnce := func() {
		res, err := runCheckPipeline(ctx, cfg, st, scope, reqFile, false)
		if err != nil {
			fmt.Printf("Check failed: %v\n", err)
			return
		}
		reportCheck(res)
	}

	fmt.Printf("Watching %s (Ctrl-C to stop)\n", reqFile)
	runOnce()

	changes := make(chan string, 1)
	w, err := watcher.New([]string{reqFile}, func(path string) {
		select {
		case changes <- path:
		default:
		}
	})
	if err != nil {
		return err
	}
	w.Start()
	defer w.Stop()

	for {
		select {
		case <-ctx.Done():
			fmt.Println("\nStopped watching.")
			return nil
		case path := <-changes:
			fmt.Printf("\n%s changed, re-checking...\n", filepath.Base(path))
			runOnce()
		}
	}
}
