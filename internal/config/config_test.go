package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoad_DefaultWhenMissing(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	def := DefaultConfig()
	if cfg.Port != def.Port {
		t.Fatalf("Port = %d, want %d", cfg.Port, def.Port)
	}
	if cfg.PromotionPageSize != 200 {
		t.Fatalf("PromotionPageSize = %d, want 200", cfg.PromotionPageSize)
	}
	if cfg.StructureRowLimit != 5000 {
		t.Fatalf("StructureRowLimit = %d, want 5000", cfg.StructureRowLimit)
	}
	if !reflect.DeepEqual(cfg.RootPrefixes, DefaultRootPrefixes) {
		t.Fatalf("RootPrefixes = %v, want %v", cfg.RootPrefixes, DefaultRootPrefixes)
	}
}

func TestLoad_OverridesFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, FileName)

	body := `
port = 9000
upstream_timeout_ms = 2000
terminal_url = "http://127.0.0.1:7681"
root_prefixes = ["srv/app/"]
`
	if err := os.WriteFile(configPath, []byte(body), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Port)
	}
	if cfg.UpstreamTimeout() != 2*time.Second {
		t.Errorf("UpstreamTimeout() = %v, want 2s", cfg.UpstreamTimeout())
	}
	if cfg.TerminalURL != "http://127.0.0.1:7681" {
		t.Errorf("TerminalURL = %q", cfg.TerminalURL)
	}
	if !reflect.DeepEqual(cfg.RootPrefixes, []string{"srv/app/"}) {
		t.Errorf("RootPrefixes = %v, want [srv/app/]", cfg.RootPrefixes)
	}
	// Untouched keys keep defaults
	if cfg.QueryTimeout() != 5*time.Second {
		t.Errorf("QueryTimeout() = %v, want 5s", cfg.QueryTimeout())
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, FileName)

	if err := os.WriteFile(configPath, []byte(`port = [not toml`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := Load(tmpDir); err == nil {
		t.Fatalf("Load() expected error, got nil")
	}
}

func TestMerge_DisabledToolsDeduplicated(t *testing.T) {
	base := &Config{DisabledTools: []string{"triage_set_ready", " triage_activity "}}
	overlay := &Config{DisabledTools: []string{"triage_activity", "triage_rebuild_structure"}}

	got := Merge(base, overlay)
	want := []string{"triage_set_ready", "triage_activity", "triage_rebuild_structure"}
	if !reflect.DeepEqual(got.DisabledTools, want) {
		t.Errorf("DisabledTools = %v, want %v", got.DisabledTools, want)
	}
}

func TestMerge_ScalarsOverlayWins(t *testing.T) {
	base := DefaultConfig()
	overlay := &Config{Bind: "0.0.0.0", LogLevel: "debug"}

	got := Merge(base, overlay)
	if got.Bind != "0.0.0.0" {
		t.Errorf("Bind = %q, want 0.0.0.0", got.Bind)
	}
	if got.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", got.LogLevel)
	}
	if got.Port != base.Port {
		t.Errorf("Port = %d, want %d", got.Port, base.Port)
	}
}

func TestMerge_EmptyPrefixOverlayKeepsBase(t *testing.T) {
	base := DefaultConfig()
	got := Merge(base, &Config{})
	if !reflect.DeepEqual(got.RootPrefixes, DefaultRootPrefixes) {
		t.Errorf("RootPrefixes = %v, want defaults", got.RootPrefixes)
	}
}
