package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ccsync/ccsync/pkg/logging"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "ccsync.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, `
sourceRoot: ./src
minecraftSavePath: ./save
computerGroups:
  monitors: ["1", "2"]
  all: ["monitors", "3"]
rules:
  - source: "program.lua"
    target: "/program.lua"
    computers: ["1"]
  - source: "**/*.lua"
    target: "/lib/"
    computers: ["all"]
    flatten: false
advanced:
  cacheTTL: 5000ms
  usePolling: false
  logToFile: false
  logLevel: info
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(cfg.Rules) != 2 {
		t.Fatalf("got %d rules, want 2", len(cfg.Rules))
	}
	if cfg.Rules[1].FlattenOrDefault() {
		t.Error("expected second rule's flatten to be false")
	}
	if cfg.Advanced.CacheTTL != 5*time.Second {
		t.Errorf("got cacheTTL %v, want 5s", cfg.Advanced.CacheTTL)
	}
	if cfg.Advanced.LogLevel != logging.LevelInfo {
		t.Errorf("got log level %v, want info", cfg.Advanced.LogLevel)
	}
	if !filepath.IsAbs(filepath.FromSlash(cfg.SourceRoot)) {
		t.Errorf("expected sourceRoot to be normalized to absolute, got %q", cfg.SourceRoot)
	}
}

func TestLoadRejectsUnknownField(t *testing.T) {
	path := writeConfig(t, `
sourceRoot: ./src
minecraftSavePath: ./save
rules:
  - source: "program.lua"
    target: "/program.lua"
    computers: ["1"]
    typoField: true
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected strict decoding to reject an unknown field")
	}
}

func TestLoadRejectsDefaultsMissingRequiredRuleFields(t *testing.T) {
	path := writeConfig(t, `
sourceRoot: ./src
minecraftSavePath: ./save
rules:
  - target: "/program.lua"
    computers: ["1"]
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for a rule missing source")
	}
}

func TestValidateCollectsEveryError(t *testing.T) {
	path := writeConfig(t, `
sourceRoot: ./src
minecraftSavePath: ./save
rules:
  - source: ""
    target: ""
    computers: []
`)

	errs, err := Validate(path)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(errs) != 3 {
		t.Fatalf("got %d errors, want 3 (source, target, computers), got %+v", len(errs), errs)
	}
}

func TestValidateDetectsGroupCycle(t *testing.T) {
	path := writeConfig(t, `
sourceRoot: ./src
minecraftSavePath: ./save
computerGroups:
  a: ["b"]
  b: ["a"]
rules:
  - source: "program.lua"
    target: "/program.lua"
    computers: ["a"]
`)

	errs, err := Validate(path)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}

	found := false
	for _, e := range errs {
		if e.Field == "computerGroups" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a computerGroups cycle error, got %+v", errs)
	}
}

func TestLoadDefaultsAdvancedWhenOmitted(t *testing.T) {
	path := writeConfig(t, `
sourceRoot: ./src
minecraftSavePath: ./save
rules:
  - source: "program.lua"
    target: "/program.lua"
    computers: ["1"]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Advanced.CacheTTL != 5*time.Second {
		t.Errorf("got default cacheTTL %v, want 5s", cfg.Advanced.CacheTTL)
	}
	if cfg.Advanced.LogLevel != logging.LevelInfo {
		t.Errorf("got default log level %v, want info", cfg.Advanced.LogLevel)
	}
}
