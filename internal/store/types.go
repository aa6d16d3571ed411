package store

import (
	"errors"
	"time"
)

// ErrBusy is returned when a mutating run is requested for a scope that
// already has an unfinished run. The live environment is a single shared
// resource; overlapping mutations against it are refused.
var ErrBusy = errors.New("another run is already in progress for this scope")

// Snapshot is an index entry for a snapshot file on disk. The file itself
// is owned by the snapshots package; the index exists for fast listing
// and as an audit trail.
type Snapshot struct {
	ID           int64
	CreatedAt    time.Time
	Scope        string
	PackageCount int
	SnapshotPath string
}

// Run records one update or restore run. A row with a NULL finished_at is
// the scope lock: no second run may start for the same scope until it is
// finished or force-cleared.
type Run struct {
	ID          int64
	Kind        string // "update" or "restore"
	Scope       string
	StartedAt   time.Time
	FinishedAt  time.Time // zero while the run is active
	Succeeded   int
	Failed      int
	Interrupted bool
}
