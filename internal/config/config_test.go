package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type mapEnv map[string]string

func (m mapEnv) Getenv(key string) string { return m[key] }

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadConfigFromEnv(mapEnv{"VIEW_SECRET": "x"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Port)
	}
	if cfg.BackendURL != "http://127.0.0.1:5000" {
		t.Fatalf("unexpected backend url %q", cfg.BackendURL)
	}
	if cfg.GinMode != "release" {
		t.Fatalf("expected default gin mode release, got %q", cfg.GinMode)
	}
	if cfg.NotificationTTL != 5*time.Second || cfg.AutoLoginDelay != 3*time.Second || cfg.ActivityRefresh != time.Minute {
		t.Fatalf("unexpected timing defaults %+v", cfg)
	}
}

func TestLoadConfigFromEnv_MissingSecret(t *testing.T) {
	if _, err := LoadConfigFromEnv(mapEnv{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestLoadConfigFromEnv_Overrides(t *testing.T) {
	cfg, err := LoadConfigFromEnv(mapEnv{
		"VIEW_SECRET":         "x",
		"PORT":                "1234",
		"BACKEND_URL":         "https://credentials.example.com",
		"NOTIFICATION_TTL_MS": "2500",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Port != 1234 || cfg.BackendURL != "https://credentials.example.com" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.NotificationTTL != 2500*time.Millisecond {
		t.Fatalf("expected 2.5s ttl, got %v", cfg.NotificationTTL)
	}
}

func TestLoadConfigFromEnv_Invalid(t *testing.T) {
	for _, env := range []mapEnv{
		{"VIEW_SECRET": "x", "PORT": "70000"},
		{"VIEW_SECRET": "x", "BACKEND_URL": "ftp://host"},
		{"VIEW_SECRET": "x", "AUTO_LOGIN_DELAY_MS": "-1"},
	} {
		if _, err := LoadConfigFromEnv(env); err == nil {
			t.Fatalf("%v: expected error", env)
		}
	}
}

func TestLayered_EnvWinsOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.yaml")
	data := []byte("port: 9000\nview_secret: from-file\nbackend_url: http://backend:5000\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	file, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	cfg, err := LoadConfigFromEnv(Layered(mapEnv{"PORT": "9100"}, file))
	if err != nil {
		t.Fatalf("LoadConfigFromEnv: %v", err)
	}
	if cfg.Port != 9100 {
		t.Fatalf("expected env port, got %d", cfg.Port)
	}
	if cfg.ViewSecret != "from-file" || cfg.BackendURL != "http://backend:5000" {
		t.Fatalf("expected file values, got %+v", cfg)
	}
}

func TestParseFile_UnknownKey(t *testing.T) {
	if _, err := ParseFile([]byte("prot: 1\n")); err == nil {
		t.Fatalf("expected unknown key rejected")
	}
}
