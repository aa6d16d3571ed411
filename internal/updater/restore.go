package updater

import (
	"context"
	"fmt"
	"time"

	"github.com/calder-systems/pipsnap/internal/pip"
	"github.com/calder-systems/pipsnap/internal/snapshots"
	"github.com/calder-systems/pipsnap/internal/store"
)

// Restorer replays a snapshot, reinstalling every recorded package at its
// recorded version.
type Restorer struct {
	store     *store.Store
	snapshots *snapshots.Manager
	install   InstallFunc
	onOutcome func(Outcome)
}

// NewRestorer creates a Restorer. install is typically pip.Install.
func NewRestorer(st *store.Store, snapMgr *snapshots.Manager, install InstallFunc) *Restorer {
	return &Restorer{
		store:     st,
		snapshots: snapMgr,
		install:   install,
	}
}

// OnOutcome registers a per-package progress callback.
func (r *Restorer) OnOutcome(fn func(Outcome)) {
	r.onOutcome = fn
}

// Run restores every entry of the snapshot behind the given index entry,
// pinned to the recorded version, never "latest". The snapshot is read
// and validated up front; a read or parse failure is fatal before any
// package is touched. After that, per-entry failures are recorded and the
// remaining entries still get their turn.
func (r *Restorer) Run(ctx context.Context, snap *store.Snapshot) (*Summary, error) {
	loaded, err := r.snapshots.Read(snap)
	if err != nil {
		return nil, fmt.Errorf("cannot restore: %w", err)
	}

	scope := loaded.Scope
	if !scope.Valid() {
		scope = pip.ScopeGlobal
	}

	runID, err := r.store.BeginRun("restore", scope)
	if err != nil {
		return nil, err
	}

	summary := &Summary{}
	start := time.Now()
	defer func() {
		summary.Elapsed = time.Since(start)
		r.store.FinishRun(runID, summary.Succeeded, summary.Failed, summary.Interrupted)
	}()

	for _, entry := range loaded.Entries {
		if ctx.Err() != nil {
			summary.Interrupted = true
			break
		}

		outcome := Outcome{Name: entry.Name, TargetVersion: entry.Version, Status: StatusSuccess}
		if err := r.install(ctx, scope, entry.Name, entry.Version); err != nil {
			outcome.Status = StatusFailed
			outcome.Detail = err.Error()
		}

		summary.add(outcome)
		if r.onOutcome != nil {
			r.onOutcome(outcome)
		}
	}

	return summary, nil
}
