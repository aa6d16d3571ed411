package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/calder-systems/pipsnap/internal/pip"
)

// Inventory operations

// ReplaceInventory replaces the cached inventory for a scope with the
// given packages in one transaction.
func (s *Store) ReplaceInventory(scope pip.Scope, packages []*pip.Package) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM inventory WHERE scope = ?`, string(scope)); err != nil {
		return fmt.Errorf("failed to clear inventory for %s: %w", scope, err)
	}

	now := time.Now().Format(time.RFC3339)
	insert := `
		INSERT INTO inventory (scope, name, version, latest, description, checked_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	for _, pkg := range packages {
		if _, err := tx.Exec(insert, string(scope), pkg.Name, pkg.Version, pkg.Latest, pkg.Description, now); err != nil {
			return fmt.Errorf("failed to insert inventory row %s: %w", pkg.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit inventory: %w", err)
	}
	return nil
}

// ListInventory returns the cached inventory for a scope, ordered by name.
func (s *Store) ListInventory(scope pip.Scope) ([]*pip.Package, error) {
	rows, err := s.db.Query(`
		SELECT name, version, latest, description
		FROM inventory
		WHERE scope = ?
		ORDER BY name
	`, string(scope))
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory: %w", err)
	}
	defer rows.Close()

	var packages []*pip.Package
	for rows.Next() {
		var pkg pip.Package
		var latest, description sql.NullString
		if err := rows.Scan(&pkg.Name, &pkg.Version, &latest, &description); err != nil {
			return nil, fmt.Errorf("failed to scan inventory row: %w", err)
		}
		pkg.Latest = latest.String
		pkg.Description = description.String
		packages = append(packages, &pkg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating inventory: %w", err)
	}
	return packages, nil
}

// Snapshot index operations

// InsertSnapshot records a snapshot file in the index and returns its ID.
func (s *Store) InsertSnapshot(scope pip.Scope, packageCount int, path string, createdAt time.Time) (int64, error) {
	result, err := s.db.Exec(`
		INSERT INTO snapshots (created_at, scope, package_count, snapshot_path)
		VALUES (?, ?, ?, ?)
	`, createdAt.Format(time.RFC3339), string(scope), packageCount, path)
	if err != nil {
		return 0, fmt.Errorf("failed to insert snapshot: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get snapshot ID: %w", err)
	}
	return id, nil
}

// ListSnapshots returns all indexed snapshots, newest first.
func (s *Store) ListSnapshots() ([]*Snapshot, error) {
	rows, err := s.db.Query(`
		SELECT id, created_at, scope, package_count, snapshot_path
		FROM snapshots
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows.Scan)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}
	return snapshots, nil
}

// GetSnapshot retrieves one snapshot index entry by ID.
func (s *Store) GetSnapshot(id int64) (*Snapshot, error) {
	row := s.db.QueryRow(`
		SELECT id, created_at, scope, package_count, snapshot_path
		FROM snapshots
		WHERE id = ?
	`, id)

	snap, err := scanSnapshot(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("snapshot %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func scanSnapshot(scan func(...any) error) (*Snapshot, error) {
	var snap Snapshot
	var createdAt string

	if err := scan(&snap.ID, &createdAt, &snap.Scope, &snap.PackageCount, &snap.SnapshotPath); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
	}

	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse snapshot created_at: %w", err)
	}
	snap.CreatedAt = t
	return &snap, nil
}

// Run lock operations

// BeginRun opens a run row for the scope, acting as the scope lock.
// Returns ErrBusy if an unfinished run already exists for the scope.
func (s *Store) BeginRun(kind string, scope pip.Scope) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var active int
	err = tx.QueryRow(`
		SELECT COUNT(*) FROM runs WHERE scope = ? AND finished_at IS NULL
	`, string(scope)).Scan(&active)
	if err != nil {
		return 0, fmt.Errorf("failed to check active runs: %w", err)
	}
	if active > 0 {
		return 0, ErrBusy
	}

	result, err := tx.Exec(`
		INSERT INTO runs (kind, scope, started_at)
		VALUES (?, ?, ?)
	`, kind, string(scope), time.Now().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run ID: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return id, nil
}

// FinishRun closes a run row, releasing the scope lock and recording the
// outcome counts.
func (s *Store) FinishRun(id int64, succeeded, failed int, interrupted bool) error {
	_, err := s.db.Exec(`
		UPDATE runs
		SET finished_at = ?, succeeded = ?, failed = ?, interrupted = ?
		WHERE id = ?
	`, time.Now().Format(time.RFC3339), succeeded, failed, interrupted, id)
	if err != nil {
		return fmt.Errorf("failed to finish run %d: %w", id, err)
	}
	return nil
}

// ClearStaleRuns force-finishes every unfinished run for the scope.
// Used by --force-unlock after a crash left the lock row behind.
// Returns the number of rows cleared.
func (s *Store) ClearStaleRuns(scope pip.Scope) (int64, error) {
	result, err := s.db.Exec(`
		UPDATE runs
		SET finished_at = ?, interrupted = 1
		WHERE scope = ? AND finished_at IS NULL
	`, time.Now().Format(time.RFC3339), string(scope))
	if err != nil {
		return 0, fmt.Errorf("failed to clear stale runs: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count cleared runs: %w", err)
	}
	return n, nil
}
