package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	dbPath string

	// RootCmd is the root command for pipsnap
	RootCmd = &cobra.Command{
		Use:   "pipsnap",
		Short: "Check, upgrade, and roll back pip package versions",
		Long: `pipsnap inventories the pip packages of a project or environment,
compares each against the latest release on PyPI, and performs bulk
upgrades guarded by an automatic snapshot you can restore later.

A snapshot of the full pre-update state is always written before any
package is touched; if the snapshot cannot be written, nothing is.

Quick Start:
  1. pipsnap check              # see what is outdated
  2. pipsnap update             # upgrade everything (snapshot first)
  3. pipsnap restore latest     # changed your mind? roll it back

Features:
  • Parallel PyPI metadata resolution
  • Automatic pre-update snapshots with exact pinned versions
  • One-command rollback to any snapshot
  • Project scope (requirements files) or global scope
  • Watch mode that re-checks when a requirements file changes

Examples:
  # Check packages declared in ./requirements.txt
  pipsnap check

  # Check everything installed in the environment
  pipsnap check --global

  # Upgrade all outdated project packages
  pipsnap update

  # List snapshots and restore one
  pipsnap restore --list
  pipsnap restore 3

  # Re-check whenever requirements.txt changes
  pipsnap watch`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("pipsnap: pip version checking with snapshot-backed upgrades")
			fmt.Println()
			fmt.Println("Run 'pipsnap check' to see package status.")
			fmt.Println("Run 'pipsnap --help' for the full reference.")
			return nil
		},
	}
)

func init() {
	// Global flags
	RootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (default: ~/.pipsnap/pipsnap.db)")

	// Enable cobra's built-in suggestion feature for unknown subcommands
	RootCmd.SuggestionsMinimumDistance = 2
}

// Execute runs the root command
func Execute() error {
	return RootCmd.Execute()
}

// getDBPath returns the database path, using the flag value or default
func getDBPath() (string, error) {
	if dbPath != "" {
		return dbPath, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	pipsnapDir := filepath.Join(home, ".pipsnap")
	if err := os.MkdirAll(pipsnapDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create pipsnap directory: %w", err)
	}

	return filepath.Join(pipsnapDir, "pipsnap.db"), nil
}
