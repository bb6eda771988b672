package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("NOTIFICATION_TTL", "")
	t.Setenv("MEDIA_PUBLIC_URL", "")

	cfg := Load()
	if cfg.Port != "4000" {
		t.Fatalf("expected default port 4000, got %q", cfg.Port)
	}
	if cfg.NotificationTTL != 30*24*time.Hour {
		t.Fatalf("expected 30 day notification ttl, got %v", cfg.NotificationTTL)
	}
	if cfg.MediaPublicURL != "http://localhost:4000/uploads" {
		t.Fatalf("unexpected media url %q", cfg.MediaPublicURL)
	}
	if cfg.GoogleEnabled() {
		t.Fatalf("google sign-in should be disabled without credentials")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SWEEPER_ENABLED", "false")
	t.Setenv("SWEEPER_INTERVAL", "30s")
	t.Setenv("REPORT_LIMIT_PER_HOUR", "3")
	t.Setenv("MEDIA_PUBLIC_URL", "https://cdn.example.org/media/")

	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("port override ignored: %q", cfg.Port)
	}
	if cfg.SweeperEnabled {
		t.Fatalf("expected sweeper disabled")
	}
	if cfg.SweeperInterval != 30*time.Second {
		t.Fatalf("expected 30s interval, got %v", cfg.SweeperInterval)
	}
	if cfg.ReportLimitPerHour != 3 {
		t.Fatalf("expected report limit 3, got %d", cfg.ReportLimitPerHour)
	}
	if cfg.MediaPublicURL != "https://cdn.example.org/media" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.MediaPublicURL)
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("NOTIFICATION_TTL", "soon")
	t.Setenv("MAX_UPLOAD_BYTES", "lots")
	t.Setenv("LOG_SQL", "maybe")

	cfg := Load()
	if cfg.NotificationTTL != 30*24*time.Hour {
		t.Fatalf("malformed ttl should fall back, got %v", cfg.NotificationTTL)
	}
	if cfg.MaxUploadBytes != 25<<20 {
		t.Fatalf("malformed size should fall back, got %d", cfg.MaxUploadBytes)
	}
	if cfg.LogSQL {
		t.Fatalf("malformed bool should fall back to false")
	}
}
