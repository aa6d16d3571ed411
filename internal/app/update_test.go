package app

import (
	"strings"
	"testing"
)

func TestUpdateCommand(t *testing.T) {
	if updateCmd == nil {
		t.Fatal("updateCmd is nil")
	}
	if updateCmd.Use != "update" {
		t.Errorf("updateCmd.Use = %q, want %q", updateCmd.Use, "update")
	}
	if updateCmd.RunE == nil {
		t.Error("updateCmd.RunE is nil")
	}
}

func TestUpdateFlags(t *testing.T) {
	tests := []struct {
		flagName     string
		defaultValue string
	}{
		{"global", "false"},
		{"dry-run", "false"},
		{"yes", "false"},
		{"requirements", ""},
	}

	for _, tt := range tests {
		flag := updateCmd.Flags().Lookup(tt.flagName)
		if flag == nil {
			t.Errorf("flag %q not found", tt.flagName)
			continue
		}
		if flag.DefValue != tt.defaultValue {
			t.Errorf("flag %q default = %q, want %q", tt.flagName, flag.DefValue, tt.defaultValue)
		}
	}
}

func TestUpdateLongMentionsSnapshot(t *testing.T) {
	// The guarantee users rely on: snapshot first, abort if it fails.
	for _, keyword := range []string{"snapshot", "abort"} {
		if !strings.Contains(strings.ToLower(updateCmd.Long), keyword) {
			t.Errorf("updateCmd.Long missing keyword %q", keyword)
		}
	}
}
