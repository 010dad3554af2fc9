package model

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.IMAP.Host != "imap.gmail.com" || cfg.IMAP.Port != 993 {
		t.Errorf("IMAP defaults = %s:%d, want imap.gmail.com:993", cfg.IMAP.Host, cfg.IMAP.Port)
	}
	if cfg.Fetch.Mailbox != "INBOX" || !cfg.Fetch.UnreadOnly {
		t.Errorf("Fetch defaults = %+v", cfg.Fetch)
	}
	if len(cfg.Categories) != 4 {
		t.Errorf("default categories = %d, want 4", len(cfg.Categories))
	}
}

func TestLoadConfig_MergesOverDefaults(t *testing.T) {
	path := writeConfig(t, `
imap:
  host: mail.example.com
  email: me@example.com
fetch:
  max_messages: 10
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.IMAP.Host != "mail.example.com" {
		t.Errorf("Host = %q, want override", cfg.IMAP.Host)
	}
	if cfg.IMAP.Port != 993 {
		t.Errorf("Port = %d, want default 993 preserved", cfg.IMAP.Port)
	}
	if cfg.Fetch.MaxMessages != 10 {
		t.Errorf("MaxMessages = %d, want 10", cfg.Fetch.MaxMessages)
	}
	if len(cfg.Categories) != 4 {
		t.Errorf("categories = %d, want defaults kept when unset", len(cfg.Categories))
	}
}

func TestLoadConfig_ExplicitCategoriesReplaceDefaults(t *testing.T) {
	path := writeConfig(t, `
categories:
  - name: receipts
    description: Order confirmations
    action: archive
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if len(cfg.Categories) != 1 || cfg.Categories[0].Name != "receipts" {
		t.Errorf("categories = %+v, want only the configured rule", cfg.Categories)
	}
	if cfg.Categories[0].Action != ActionArchive {
		t.Errorf("action = %q, want archive", cfg.Categories[0].Action)
	}
}

func TestLoadConfig_DuplicateCategory(t *testing.T) {
	path := writeConfig(t, `
categories:
  - name: spam
    action: trash
  - name: spam
    action: flag
`)

	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "duplicate category") {
		t.Errorf("LoadConfig() error = %v, want duplicate category error", err)
	}
}

func TestLoadConfig_UnknownAction(t *testing.T) {
	path := writeConfig(t, `
categories:
  - name: odd
    action: shred
`)

	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "unknown action") {
		t.Errorf("LoadConfig() error = %v, want unknown action error", err)
	}
}

func TestLoadConfig_MoveRequiresTarget(t *testing.T) {
	path := writeConfig(t, `
categories:
  - name: stale
    action: move
`)

	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "target_folder") {
		t.Errorf("LoadConfig() error = %v, want missing target_folder error", err)
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.IMAP.Email = "me@example.com"
	cfg.Anthropic.Model = "claude-haiku-4-5"

	if err := SaveConfig(path, cfg); err != nil {
		t.Fatalf("SaveConfig() error = %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if loaded.IMAP.Email != "me@example.com" {
		t.Errorf("Email = %q after round trip", loaded.IMAP.Email)
	}
	if loaded.Anthropic.Model != "claude-haiku-4-5" {
		t.Errorf("Model = %q after round trip", loaded.Anthropic.Model)
	}
}

func TestDefaultConfigPath_EnvOverride(t *testing.T) {
	t.Setenv("MAILTRIAGE_CONFIG_DIR", "/tmp/triage-test")
	if got := DefaultConfigPath(); got != filepath.Join("/tmp/triage-test", "config.yaml") {
		t.Errorf("DefaultConfigPath() = %q", got)
	}
}
