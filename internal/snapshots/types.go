// Package snapshots persists point-in-time package lists as JSON files
// under a fixed backup directory. A snapshot is the sole mechanism for
// reversing a bulk update: it is written before any mutation, is immutable
// once written, and is never deleted by pipsnap itself.
package snapshots

import (
	"errors"
	"time"

	"github.com/calder-systems/pipsnap/internal/pip"
	"github.com/calder-systems/pipsnap/internal/store"
)

// ErrNotFound is returned when a snapshot file is missing from disk.
var ErrNotFound = errors.New("snapshot file not found")

// ErrCorrupt is returned when a snapshot file cannot be parsed into the
// expected shape (non-array top level, missing fields, empty list).
var ErrCorrupt = errors.New("snapshot file is corrupt")

// Entry is one recorded package. The on-disk format is a bare JSON array
// of these objects; creation time and scope are carried in the filename.
type Entry struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
}

// Snapshot is a fully loaded snapshot file.
type Snapshot struct {
	CreatedAt time.Time
	Scope     pip.Scope
	Entries   []Entry
}

// Manager owns the backup directory and the sqlite index of snapshots.
type Manager struct {
	store *store.Store
	dir   string
	now   func() time.Time
}

// New creates a snapshot Manager writing under dir and indexing in st.
func New(st *store.Store, dir string) *Manager {
	return &Manager{
		store: st,
		dir:   dir,
		now:   time.Now,
	}
}
