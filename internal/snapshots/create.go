package snapshots

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/calder-systems/pipsnap/internal/pip"
	"github.com/calder-systems/pipsnap/internal/store"
)

// Create writes a new snapshot of the given packages and registers it in
// the index. The write is atomic from the caller's point of view: the
// entries are serialized to a temporary file in the backup directory and
// renamed into place, so a crash never leaves a half-written snapshot
// behind under the final name.
func (m *Manager) Create(scope pip.Scope, packages []*pip.Package) (*store.Snapshot, error) {
	if len(packages) == 0 {
		return nil, fmt.Errorf("refusing to snapshot an empty package list")
	}

	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	entries := make([]Entry, 0, len(packages))
	for _, pkg := range packages {
		entries = append(entries, Entry{
			Name:        pkg.Name,
			Version:     pkg.Version,
			Description: pkg.Description,
		})
	}

	// Filename: pipsnap_YYYYMMDD_HHMMSS_<scope>.json, sortable and
	// self-describing. Two snapshots in the same second would collide;
	// that is refused rather than silently overwritten.
	createdAt := m.now()
	filename := fmt.Sprintf("pipsnap_%s_%s.json", createdAt.Format("20060102_150405"), scope)
	path := filepath.Join(m.dir, filename)

	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("snapshot %s already exists", filename)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to check snapshot path: %w", err)
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot entries: %w", err)
	}

	tmp, err := os.CreateTemp(m.dir, ".pipsnap-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary snapshot file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to write snapshot data: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to close snapshot file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to finalize snapshot file: %w", err)
	}

	id, err := m.store.InsertSnapshot(scope, len(entries), path, createdAt)
	if err != nil {
		// Keep the index and the directory consistent: a snapshot the
		// index does not know about would never show up in listings.
		os.Remove(path)
		return nil, fmt.Errorf("failed to index snapshot: %w", err)
	}

	return &store.Snapshot{
		ID:           id,
		CreatedAt:    createdAt,
		Scope:        string(scope),
		PackageCount: len(entries),
		SnapshotPath: path,
	}, nil
}

// List returns all indexed snapshots, newest first.
func (m *Manager) List() ([]*store.Snapshot, error) {
	snapshots, err := m.store.ListSnapshots()
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	return snapshots, nil
}

// Latest returns the most recent snapshot, or ErrNotFound if none exist.
func (m *Manager) Latest() (*store.Snapshot, error) {
	snapshots, err := m.List()
	if err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return nil, ErrNotFound
	}
	return snapshots[0], nil
}

// Get returns the indexed snapshot with the given ID.
func (m *Manager) Get(id int64) (*store.Snapshot, error) {
	return m.store.GetSnapshot(id)
}
