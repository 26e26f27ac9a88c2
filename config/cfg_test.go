package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfiguration_NoFile(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() with empty path error = %v", err)
	}
	if cfg == nil {
		t.Fatal("LoadConfiguration() returned nil config")
	}
	if cfg.Version != 1 {
		t.Errorf("Default config version = %d, want 1", cfg.Version)
	}
	if cfg.Stream.Variant != "detect" {
		t.Errorf("default stream variant = %q, want detect", cfg.Stream.Variant)
	}
}

func TestLoadConfiguration_WithFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `version: 1
policy:
  html:
    inline: [b, i, span]
    prot: [script, style]
    prot_inline: [br]
    parents_allow: [p, td]
    text_attrs: [alt, title]
stream:
  variant: line
project:
  root: /tmp/transfuse-projects
  keep: true
logging:
  console:
    level: normal
  file:
    level: debug
    destination: /tmp/test.log
    mode: append
reporting:
  destination: /tmp/test-report.zip
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := LoadConfiguration(configPath)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if cfg.Version != 1 {
		t.Errorf("Version = %d, want 1", cfg.Version)
	}
	if cfg.Stream.Variant != "line" {
		t.Errorf("Stream.Variant = %q, want line", cfg.Stream.Variant)
	}
	if !cfg.Project.Keep {
		t.Error("expected Project.Keep to be true")
	}

	html, ok := cfg.Policy["html"]
	if !ok {
		t.Fatal("expected an html policy entry")
	}
	if !html.IsInline("b") {
		t.Error("expected policy to be compiled after load (IsInline lookup failed)")
	}
	if !html.IsProt("script") {
		t.Error("expected IsProt(script) to hold")
	}
	if !html.IsTextAttr("alt") {
		t.Error("expected IsTextAttr(alt) to hold")
	}
}

func TestLoadConfiguration_NonExistentFile(t *testing.T) {
	if _, err := LoadConfiguration("/nonexistent/config.yaml"); err == nil {
		t.Error("Expected error for nonexistent file")
	}
}

func TestLoadConfiguration_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := "version: 1\nstream:\n  variant: line\n  invalid indent\n"
	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if _, err := LoadConfiguration(configPath); err == nil {
		t.Error("Expected error for invalid YAML")
	}
}

func TestLoadConfiguration_UnknownFields(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "unknown.yaml")

	configWithUnknown := "version: 1\nunknown_field: value\n"
	if err := os.WriteFile(configPath, []byte(configWithUnknown), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if _, err := LoadConfiguration(configPath); err == nil {
		t.Error("Expected error for unknown fields")
	}
}

func TestLoadConfiguration_ValidationError(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid_values.yaml")

	// Invalid version number and stream variant.
	configWithInvalidVersion := "version: 2\nstream:\n  variant: carrier-pigeon\n"
	if err := os.WriteFile(configPath, []byte(configWithInvalidVersion), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if _, err := LoadConfiguration(configPath); err == nil {
		t.Error("Expected validation error for invalid version/stream variant")
	}
}

func TestPrepare(t *testing.T) {
	data, err := Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if len(data) == 0 {
		t.Error("Prepare() returned empty data")
	}

	cfg := &Config{}
	if _, err := unmarshalConfig(data, cfg, true); err != nil {
		t.Errorf("Prepared config is not valid: %v", err)
	}
}

func TestDump(t *testing.T) {
	cfg := &Config{
		Version: 1,
		Stream:  StreamConfig{Variant: "detect"},
		Project: ProjectConfig{Root: "/tmp/x", Keep: true},
	}

	data, err := Dump(cfg)
	if err != nil {
		t.Fatalf("Dump() error = %v", err)
	}
	if len(data) == 0 {
		t.Error("Dump() returned empty data")
	}

	roundTripped := &Config{}
	if _, err := unmarshalConfig(data, roundTripped, false); err != nil {
		t.Fatalf("dumped config did not parse back: %v", err)
	}
	if roundTripped.Project.Root != "/tmp/x" || !roundTripped.Project.Keep {
		t.Errorf("round-tripped Project = %+v", roundTripped.Project)
	}
}
