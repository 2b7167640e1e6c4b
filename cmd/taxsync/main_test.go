package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"taxsync/internal/config"
	"taxsync/internal/models"
)

const testRoster = `
logging:
  level: error
roster:
  - provider: santa_clara_county
    properties:
      - id: scc-dana-125
        address: 125 DANA AV SAN JOSE
  - provider: vermont_nemrc
    properties:
      - id: dummerston-2055
        address: 2055 Sunset Lake Rd
  - provider: nyc_finance
    properties:
      - id: nyc-1305
        parcel: 3-2324-1305
`

func writeConfig(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "taxsync.yaml")
	if err := os.WriteFile(path, []byte(testRoster), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)

	err := root.Execute()

	return out.String(), err
}

func TestSyncDryRun(t *testing.T) {
	out, err := execute(t, "--config", writeConfig(t), "--env-file", "", "sync", "--dry-run")
	if err != nil {
		t.Fatalf("sync --dry-run failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected 3 planned lookups, got %d:\n%s", len(lines), out)
	}

	for _, line := range lines {
		if !strings.HasPrefix(line, "would run: ") {
			t.Errorf("Unexpected line %q", line)
		}
	}

	if !strings.Contains(lines[1], "lookup --provider vermont_nemrc --json --id dummerston-2055") {
		t.Errorf("Unexpected command line %q", lines[1])
	}
}

func TestSyncDryRun_ProviderFilter(t *testing.T) {
	out, err := execute(t, "--config", writeConfig(t), "--env-file", "", "sync", "--dry-run", "--provider", "nyc_finance")
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	if n := strings.Count(out, "would run: "); n != 1 {
		t.Errorf("Expected 1 planned lookup, got %d:\n%s", n, out)
	}
}

func TestSync_RejectsBadFlags(t *testing.T) {
	path := writeConfig(t)

	if _, err := execute(t, "--config", path, "--env-file", "", "sync", "--provider", "atlantis"); !errors.Is(err, config.ErrUnknownProvider) {
		t.Errorf("unknown provider error = %v", err)
	}

	if _, err := execute(t, "--config", path, "--env-file", "", "sync", "--callback", "not a url"); !errors.Is(err, config.ErrInvalidCallbackURL) {
		t.Errorf("bad callback error = %v", err)
	}
}

func TestProviders(t *testing.T) {
	out, err := execute(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "--env-file", "", "providers")
	if err != nil {
		t.Fatalf("providers failed: %v", err)
	}

	for _, p := range models.Providers() {
		if !strings.Contains(out, string(p)) {
			t.Errorf("providers output missing %s:\n%s", p, out)
		}
	}

	if !strings.Contains(out, "12/10 04/10") {
		t.Errorf("Expected Santa Clara due dates in output:\n%s", out)
	}
}

func TestLookupFlags_Property(t *testing.T) {
	cfg, err := config.LoadConfig(writeConfig(t), "")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	prop, err := (&lookupFlags{id: "nyc-1305", unit: "4B"}).property(cfg)
	if err != nil {
		t.Fatalf("roster lookup failed: %v", err)
	}

	if prop.Provider != models.ProviderNYCFinance || prop.Parcel != "3-2324-1305" || prop.Unit != "4B" {
		t.Errorf("Unexpected property %+v", prop)
	}

	if _, err := (&lookupFlags{address: "1 Main St"}).property(cfg); err == nil {
		t.Error("Expected an error without --provider")
	}

	if _, err := (&lookupFlags{provider: "vermont_nemrc"}).property(cfg); !errors.Is(err, config.ErrPropertyMissingKey) {
		t.Errorf("Expected missing key error, got %v", err)
	}

	if _, err := (&lookupFlags{provider: "atlantis", parcel: "1"}).property(cfg); !errors.Is(err, config.ErrUnknownProvider) {
		t.Errorf("Expected unknown provider error, got %v", err)
	}
}

func TestAttemptFailed(t *testing.T) {
	tests := []struct {
		rec  models.TaxRecord
		want bool
	}{
		{models.TaxRecord{Success: true}, false},
		{models.TaxRecord{ErrorCode: models.CodeParseMismatch}, false},
		{models.TaxRecord{ErrorCode: models.CodeNavigation}, true},
		{models.TaxRecord{ErrorCode: models.CodeElementNotFound}, true},
		{models.TaxRecord{ErrorCode: models.CodeWorkerFailure}, true},
	}

	for _, tt := range tests {
		if got := attemptFailed(&tt.rec); got != tt.want {
			t.Errorf("attemptFailed(%s) = %t, want %t", tt.rec.ErrorCode, got, tt.want)
		}
	}
}
