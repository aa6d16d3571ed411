package updater

import (
	"context"
	"fmt"
	"time"

	"github.com/calder-systems/pipsnap/internal/pip"
	"github.com/calder-systems/pipsnap/internal/snapshots"
	"github.com/calder-systems/pipsnap/internal/store"
)

// Updater orchestrates a bulk upgrade run:
// lock → snapshot → per-package install → summary.
type Updater struct {
	store     *store.Store
	snapshots *snapshots.Manager
	install   InstallFunc
	onOutcome func(Outcome)
}

// NewUpdater creates an Updater. install is typically pip.Upgrade.
func NewUpdater(st *store.Store, snapMgr *snapshots.Manager, install InstallFunc) *Updater {
	return &Updater{
		store:     st,
		snapshots: snapMgr,
		install:   install,
	}
}

// OnOutcome registers a callback invoked after each package is processed,
// for progress display. Called from the run goroutine.
func (u *Updater) OnOutcome(fn func(Outcome)) {
	u.onOutcome = fn
}

// Run upgrades every package in outdated to its resolved latest version.
//
// The pre-update snapshot records the full package list, not just the
// outdated subset, so a restore recreates the complete pre-update state.
// If the snapshot cannot be written the run aborts before any install:
// an irreversible bulk mutation is worse than no mutation.
//
// A second concurrent run against the same scope fails with store.ErrBusy.
// Cancelling ctx stops dispatching installs and returns the summary
// accumulated so far with Interrupted set; no install is ever applied
// without its outcome being recorded.
func (u *Updater) Run(ctx context.Context, scope pip.Scope, full, outdated []*pip.Package) (*Summary, error) {
	runID, err := u.store.BeginRun("update", scope)
	if err != nil {
		return nil, err
	}

	summary := &Summary{}
	start := time.Now()
	defer func() {
		summary.Elapsed = time.Since(start)
		u.store.FinishRun(runID, summary.Succeeded, summary.Failed, summary.Interrupted)
	}()

	snap, err := u.snapshots.Create(scope, full)
	if err != nil {
		return nil, fmt.Errorf("pre-update snapshot failed, aborting before any change: %w", err)
	}
	summary.SnapshotID = snap.ID

	for _, pkg := range outdated {
		if ctx.Err() != nil {
			summary.Interrupted = true
			break
		}

		outcome := Outcome{Name: pkg.Name, TargetVersion: pkg.Latest, Status: StatusSuccess}
		if err := u.install(ctx, scope, pkg.Name, pkg.Latest); err != nil {
			outcome.Status = StatusFailed
			outcome.Detail = err.Error()
		}

		summary.add(outcome)
		if u.onOutcome != nil {
			u.onOutcome(outcome)
		}
	}

	return summary, nil
}
