// Package updater drives bulk mutations of the live environment: upgrades
// of outdated packages and restores from snapshots. Every run follows the
// same discipline: take the scope lock, make the mutation reversible (or
// prove it already is), then mutate one package at a time with per-package
// outcome recording. One package failing never stops the rest; only a
// failure that would make the run irreversible aborts it.
package updater

import (
	"context"
	"time"

	"github.com/calder-systems/pipsnap/internal/pip"
)

// Status is the per-package result of an install operation.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Outcome records what happened to a single package during an update or
// restore run.
type Outcome struct {
	Name          string
	TargetVersion string
	Status        Status
	Detail        string // failure detail, empty on success
}

// Summary aggregates the outcomes of one run.
type Summary struct {
	Outcomes    []Outcome
	Succeeded   int
	Failed      int
	Elapsed     time.Duration
	Interrupted bool
	SnapshotID  int64 // pre-update snapshot; 0 for restore runs
}

func (s *Summary) add(o Outcome) {
	s.Outcomes = append(s.Outcomes, o)
	if o.Status == StatusSuccess {
		s.Succeeded++
	} else {
		s.Failed++
	}
}

// InstallFunc invokes the external package manager to put name at exactly
// version within the scope. The updater knows nothing about pip beyond
// this signature; tests substitute fakes.
type InstallFunc func(ctx context.Context, scope pip.Scope, name, version string) error
