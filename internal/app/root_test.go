package app

import "testing"

func TestRootCommand(t *testing.T) {
	if RootCmd == nil {
		t.Fatal("RootCmd is nil")
	}
	if RootCmd.Use != "pipsnap" {
		t.Errorf("RootCmd.Use = %q, want pipsnap", RootCmd.Use)
	}
	if !RootCmd.SilenceUsage || !RootCmd.SilenceErrors {
		t.Error("RootCmd should silence usage and errors; main owns error printing")
	}
}

func TestRootSubcommands(t *testing.T) {
	want := map[string]bool{
		"check":       false,
		"update":      false,
		"restore":     false,
		"snapshot":    false,
		"watch":       false,
		"interactive": false,
	}

	for _, cmd := range RootCmd.Commands() {
		if _, ok := want[cmd.Name()]; ok {
			want[cmd.Name()] = true
		}
	}

	for name, found := range want {
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestRootPersistentFlags(t *testing.T) {
	if RootCmd.PersistentFlags().Lookup("db") == nil {
		t.Error("persistent flag \"db\" not found")
	}
}

func TestGetDBPathFlagOverride(t *testing.T) {
	orig := dbPath
	dbPath = "/tmp/custom.db"
	defer func() { dbPath = orig }()

	path, err := getDBPath()
	if err != nil {
		t.Fatalf("getDBPath() failed: %v", err)
	}
	if path != "/tmp/custom.db" {
		t.Errorf("getDBPath() = %q, want the flag value", path)
	}
}
