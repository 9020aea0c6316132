package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseConfig_ValidFull(t *testing.T) {
	yaml := `
lowering:
  bounds_checks: false
runtime:
  step_limit: 500
  max_call_depth: 16
cache:
  enabled: true
  path: out/cache.db
log:
  level: debug
output:
  color: never
`
	cfg, err := ParseConfig([]byte(yaml), "/work/refssa.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Lowering.BoundsChecksEnabled() {
		t.Errorf("bounds checks should be disabled")
	}
	if cfg.Runtime.StepLimit != 500 {
		t.Errorf("step_limit = %d, want 500", cfg.Runtime.StepLimit)
	}
	if cfg.Runtime.MaxCallDepth != 16 {
		t.Errorf("max_call_depth = %d, want 16", cfg.Runtime.MaxCallDepth)
	}
	if !cfg.Cache.Enabled {
		t.Errorf("cache should be enabled")
	}
	if cfg.Cache.Path != filepath.Join("/work", "out/cache.db") {
		t.Errorf("cache path = %q, want it anchored at the config dir", cfg.Cache.Path)
	}
	if cfg.Output.Color != "never" {
		t.Errorf("color = %q, want never", cfg.Output.Color)
	}
	level, err := ParseLevel(cfg.Log.Level)
	if err != nil || level != slog.LevelDebug {
		t.Errorf("level = %v (%v), want debug", level, err)
	}
}

func TestParseConfig_Defaults(t *testing.T) {
	cfg, err := ParseConfig([]byte("cache:\n  enabled: false\n"), "refssa.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.Lowering.BoundsChecksEnabled() {
		t.Errorf("bounds checks default to enabled")
	}
	if cfg.Runtime.StepLimit != DefaultStepLimit {
		t.Errorf("step_limit = %d, want %d", cfg.Runtime.StepLimit, DefaultStepLimit)
	}
	if cfg.Runtime.MaxCallDepth != DefaultMaxCallDepth {
		t.Errorf("max_call_depth = %d, want %d", cfg.Runtime.MaxCallDepth, DefaultMaxCallDepth)
	}
	if cfg.Log.Level != DefaultLogLevel || cfg.Output.Color != DefaultColorMode {
		t.Errorf("log/color defaults not applied: %+v", cfg)
	}

	def := Default()
	if def.Cache.Path != DefaultCachePath {
		t.Errorf("Default() cache path = %q, want %q", def.Cache.Path, DefaultCachePath)
	}
}

func TestParseConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"negative steps", "runtime:\n  step_limit: -1\n", "step_limit"},
		{"negative depth", "runtime:\n  max_call_depth: -3\n", "max_call_depth"},
		{"bad level", "log:\n  level: loud\n", "log.level"},
		{"bad color", "output:\n  color: sometimes\n", "output.color"},
		{"bad yaml", "runtime: [", "parsing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.yaml), "test.yaml")
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should contain %q", err, tt.want)
			}
		})
	}
}

func TestFindConfig_WalksUp(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(root, "refssa.yml")
	if err := os.WriteFile(want, []byte("log:\n  level: warn\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := FindConfig(nested)
	if err != nil {
		t.Fatalf("FindConfig: %v", err)
	}
	if got != want {
		t.Errorf("FindConfig = %q, want %q", got, want)
	}

	cfg, err := LoadConfig(got)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("level = %q, want warn", cfg.Log.Level)
	}
}

func TestLoadConfig_Missing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil || !strings.Contains(err.Error(), "reading config") {
		t.Errorf("expected reading error, got %v", err)
	}
}
