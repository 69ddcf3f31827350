package core

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rentnest/nestchat/internal/types"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadConfig(NewViper(), "")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.RequestTimeout != DefaultRequestTimeout || cfg.HistoryLimit != DefaultHistoryLimit {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if !strings.HasSuffix(cfg.SessionPath(), filepath.Join("nestchat", "session.json")) {
		t.Fatalf("unexpected session path %q", cfg.SessionPath())
	}
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := "api_url: https://chat.example.com/\nreconnect_delay: 5s\nnotifications: false\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("NESTCHAT_HISTORY_LIMIT", "10")

	cfg, err := LoadConfig(NewViper(), path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.APIURL != "https://chat.example.com" {
		t.Fatalf("expected trimmed api url, got %q", cfg.APIURL)
	}
	if cfg.ReconnectDelay != 5*time.Second || cfg.Notifications {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.HistoryLimit != 10 {
		t.Fatalf("env override not applied: %d", cfg.HistoryLimit)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("NESTCHAT_API_URL", "not a url")

	if _, err := LoadConfig(NewViper(), ""); err == nil || !strings.Contains(err.Error(), "APIURL") {
		t.Fatalf("expected api url validation error, got %v", err)
	}
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	if _, err := LoadConfig(NewViper(), filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLabels(t *testing.T) {
	if got := DurationLabel(75.4); got != "1:15" {
		t.Fatalf("duration: got %q", got)
	}
	if got := DurationLabel(0); got != "0:00" {
		t.Fatalf("zero duration: got %q", got)
	}
	if got := SizeLabel(2000); got != "2.0 kB" {
		t.Fatalf("size: got %q", got)
	}
	if got := PresenceLabel(types.Presence{IsOnline: true}); got != "online" {
		t.Fatalf("online: got %q", got)
	}
	if got := PresenceLabel(types.Presence{}); got != "offline" {
		t.Fatalf("offline: got %q", got)
	}
	seen := time.Now().Add(-3 * time.Hour)
	if got := PresenceLabel(types.Presence{LastSeen: &seen}); !strings.HasPrefix(got, "last seen 3 hours ago") {
		t.Fatalf("last seen: got %q", got)
	}
}

func TestNewTempID(t *testing.T) {
	a, b := NewTempID(), NewTempID()
	if a == b || !strings.HasPrefix(string(a), types.TempIDPrefix) {
		t.Fatalf("unexpected temp ids %q %q", a, b)
	}
}
