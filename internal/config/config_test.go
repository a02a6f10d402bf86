package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config failed: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
client-id: client-1
client-secret: secret-1
subscription-key: sub-1
debug: true
proxy-url: socks5://127.0.0.1:1080
callback:
  host: 127.0.0.1
  port: 9000
receiver:
  public-url: https://example.com/events
  plants:
    - plant-1
  postgres:
    dsn: postgres://localhost/smarther
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if cfg.ClientID != "client-1" || cfg.ClientSecret != "secret-1" || cfg.SubscriptionKey != "sub-1" {
		t.Errorf("credentials = %q/%q/%q, want configured values", cfg.ClientID, cfg.ClientSecret, cfg.SubscriptionKey)
	}
	if !cfg.Debug {
		t.Error("Debug should be true")
	}
	if cfg.ProxyURL != "socks5://127.0.0.1:1080" {
		t.Errorf("ProxyURL = %q", cfg.ProxyURL)
	}
	if cfg.Callback.Host != "127.0.0.1" || cfg.Callback.Port != 9000 {
		t.Errorf("callback = %s:%d, want 127.0.0.1:9000", cfg.Callback.Host, cfg.Callback.Port)
	}
	if len(cfg.Receiver.Plants) != 1 || cfg.Receiver.Plants[0] != "plant-1" {
		t.Errorf("Plants = %v, want [plant-1]", cfg.Receiver.Plants)
	}
	if cfg.Receiver.Postgres.DSN != "postgres://localhost/smarther" {
		t.Errorf("Postgres DSN = %q", cfg.Receiver.Postgres.DSN)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
client-id: client-1
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if cfg.TokenFile != DefaultTokenFile {
		t.Errorf("TokenFile = %q, want %q", cfg.TokenFile, DefaultTokenFile)
	}
	if cfg.Callback.Host != DefaultCallbackHost || cfg.Callback.Port != DefaultCallbackPort {
		t.Errorf("callback = %s:%d, want %s:%d", cfg.Callback.Host, cfg.Callback.Port, DefaultCallbackHost, DefaultCallbackPort)
	}
	if cfg.Receiver.Listen != DefaultReceiverListen || cfg.Receiver.Path != DefaultReceiverPath {
		t.Errorf("receiver = %s%s, want defaults", cfg.Receiver.Listen, cfg.Receiver.Path)
	}
	if cfg.Receiver.Postgres.Table != DefaultPostgresTable {
		t.Errorf("Postgres table = %q, want %q", cfg.Receiver.Postgres.Table, DefaultPostgresTable)
	}
}

func TestLoadConfigEnvFallback(t *testing.T) {
	t.Setenv("SMARTHER_CLIENT_ID", "env-client")
	t.Setenv("SMARTHER_CLIENT_SECRET", "env-secret")
	t.Setenv("SMARTHER_SUBSCRIPTION_KEY", "env-sub")

	path := writeConfig(t, `
debug: false
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ClientID != "env-client" || cfg.ClientSecret != "env-secret" || cfg.SubscriptionKey != "env-sub" {
		t.Errorf("credentials = %q/%q/%q, want environment values", cfg.ClientID, cfg.ClientSecret, cfg.SubscriptionKey)
	}

	// Explicit configuration wins over the environment.
	path = writeConfig(t, `
client-id: file-client
`)
	cfg, err = LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ClientID != "file-client" {
		t.Errorf("ClientID = %q, want file-client", cfg.ClientID)
	}
}

func TestLoadConfigOptional(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	if _, err := LoadConfig(missing); err == nil {
		t.Fatal("LoadConfig did not fail on a missing file")
	}
	if _, err := LoadConfigOptional(missing, false); err == nil {
		t.Fatal("LoadConfigOptional(required) did not fail on a missing file")
	}

	cfg, err := LoadConfigOptional(missing, true)
	if err != nil {
		t.Fatalf("LoadConfigOptional returned error: %v", err)
	}
	if cfg.Callback.Port != DefaultCallbackPort {
		t.Errorf("default Callback.Port = %d, want %d", cfg.Callback.Port, DefaultCallbackPort)
	}
}

func TestLoadConfigRejectsBadYAML(t *testing.T) {
	path := writeConfig(t, "client-id: [unterminated")
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("LoadConfig did not fail on malformed YAML")
	}
}
