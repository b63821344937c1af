package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestGetDefaults(t *testing.T) {
	cfg := GetDefaults()

	if err := validateConfig(cfg); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.Redaction.TextField != "sentence" || cfg.Redaction.IDField != "verbatim_id" {
		t.Errorf("unexpected record fields: %q %q", cfg.Redaction.TextField, cfg.Redaction.IDField)
	}
	if len(cfg.Redaction.Detectors) != 1 || cfg.Redaction.Detectors[0] != "all" {
		t.Errorf("expected all detectors, got %v", cfg.Redaction.Detectors)
	}
	if cfg.Redaction.MaxFileMB != 5 {
		t.Errorf("expected 5MB file limit, got %d", cfg.Redaction.MaxFileMB)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := writeFile(t, "config.yaml", `
server:
  port: 9090
redaction:
  detectors: [EMAIL, PHONE]
  ignore_fillers: true
  custom_rules:
    - name: EMPLOYEE_ID
      pattern: '\bE\d{6}\b'
      style: tag
sessions:
  ttl: 5m
logging:
  level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if got := strings.Join(cfg.Redaction.Detectors, ","); got != "EMAIL,PHONE" {
		t.Errorf("detectors = %s", got)
	}
	if !cfg.Redaction.IgnoreFillers {
		t.Error("ignore_fillers not applied")
	}
	if len(cfg.Redaction.CustomRules) != 1 || cfg.Redaction.CustomRules[0].Pattern != `\bE\d{6}\b` {
		t.Errorf("custom rules = %+v", cfg.Redaction.CustomRules)
	}
	if cfg.Sessions.TTL != 5*time.Minute {
		t.Errorf("ttl = %s", cfg.Sessions.TTL)
	}
	// untouched keys keep their defaults
	if cfg.Redaction.WorkerCount != 4 {
		t.Errorf("worker_count = %d, want default 4", cfg.Redaction.WorkerCount)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeFile(t, "config.yaml", "server:\n  port: 9090\n")
	t.Setenv("PII_SERVER_PORT", "7070")
	t.Setenv("PII_AUDIT_BACKEND", "file")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("port = %d, want env override 7070", cfg.Server.Port)
	}
	if cfg.Audit.Backend != "file" {
		t.Errorf("audit backend = %s, want file", cfg.Audit.Backend)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{name: "sessions backend", content: "sessions:\n  backend: memcached\n", wantErr: "sessions backend"},
		{name: "postgres without url", content: "audit:\n  backend: postgres\n", wantErr: "database_url"},
		{name: "log level", content: "logging:\n  level: verbose\n", wantErr: "log level"},
		{name: "custom rule without pattern", content: "redaction:\n  custom_rules:\n    - name: X\n", wantErr: "custom rule 0"},
		{name: "zero workers", content: "redaction:\n  worker_count: 0\n", wantErr: "worker_count"},
		{name: "zero cleanup interval", content: "sessions:\n  cleanup_interval: 0s\n", wantErr: "cleanup_interval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "config.yaml", tt.content))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadRulesFile(t *testing.T) {
	path := writeFile(t, "rules.yaml", `
rules:
  - name: ORDER_ID
    pattern: 'ORD-\d{8}'
    style: preserve
  - name: BADGE
    pattern: 'B-\d{4}'
    placeholder: '<{{TYPE}}>'
`)

	rules, err := LoadRulesFile(path)
	if err != nil {
		t.Fatalf("LoadRulesFile: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("got %d rules, want 2", len(rules))
	}
	if rules[0].Name != "ORDER_ID" || rules[0].Style != "preserve" {
		t.Errorf("first rule = %+v", rules[0])
	}
	if rules[1].Placeholder != "<{{TYPE}}>" {
		t.Errorf("placeholder = %q", rules[1].Placeholder)
	}

	if _, err := LoadRulesFile(writeFile(t, "bad.yaml", "rules:\n  - name: X\n")); err == nil {
		t.Error("expected error for rule without pattern")
	}
	if _, err := LoadRulesFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
