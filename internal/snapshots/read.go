package snapshots

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/calder-systems/pipsnap/internal/pip"
	"github.com/calder-systems/pipsnap/internal/store"
)

// Read loads and validates the snapshot file behind an index entry.
// A missing file yields ErrNotFound; a file that does not parse into a
// non-empty array of {name, version} objects yields ErrCorrupt. A snapshot
// returned without error is structurally valid throughout.
func (m *Manager) Read(snap *store.Snapshot) (*Snapshot, error) {
	data, err := os.ReadFile(snap.SnapshotPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", snap.SnapshotPath, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read snapshot file %s: %w", snap.SnapshotPath, err)
	}

	entries, err := decodeEntries(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", snap.SnapshotPath, ErrCorrupt, err)
	}

	return &Snapshot{
		CreatedAt: snap.CreatedAt,
		Scope:     pip.Scope(snap.Scope),
		Entries:   entries,
	}, nil
}

// decodeEntries parses the bare-array snapshot format and enforces the
// structural invariants.
func decodeEntries(data []byte) ([]Entry, error) {
	// Decode into RawMessage first so a non-array top level is reported
	// as a shape error rather than a generic unmarshal failure.
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("top level is not an array: %w", err)
	}

	if len(raw) == 0 {
		return nil, fmt.Errorf("snapshot contains no entries")
	}

	entries := make([]Entry, 0, len(raw))
	for i, msg := range raw {
		var e Entry
		if err := json.Unmarshal(msg, &e); err != nil {
			return nil, fmt.Errorf("entry %d is not an object: %w", i, err)
		}
		if e.Name == "" {
			return nil, fmt.Errorf("entry %d is missing a name", i)
		}
		if e.Version == "" {
			return nil, fmt.Errorf("entry %d (%s) is missing a version", i, e.Name)
		}
		entries = append(entries, e)
	}

	return entries, nil
}
