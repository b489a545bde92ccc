package config

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SEGUGIO_BACKEND_URL", "http://backend.local")
	t.Setenv("SEGUGIO_API_KEY", "secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "")
	t.Setenv("ENS_CACHE_TTL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RelayPort != defaultRelayPort {
		t.Fatalf("expected default port %d, got %d", defaultRelayPort, cfg.RelayPort)
	}
	if cfg.ENSCacheTTL != defaultENSCacheTTL {
		t.Fatalf("expected default cache ttl, got %s", cfg.ENSCacheTTL)
	}
	if cfg.RelayAddr() != ":3333" {
		t.Fatalf("unexpected relay addr %q", cfg.RelayAddr())
	}
}

func TestLoad_MissingBackendURL(t *testing.T) {
	t.Setenv("SEGUGIO_BACKEND_URL", "")
	t.Setenv("SEGUGIO_API_KEY", "secret")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing backend url")
	}
}

func TestLoad_TrimsTrailingSlash(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SEGUGIO_BACKEND_URL", "http://backend.local/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BackendURL != "http://backend.local" {
		t.Fatalf("expected trimmed url, got %q", cfg.BackendURL)
	}
}

func TestLoad_InvalidPort(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "not-a-port")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestLoad_CacheTTLOverride(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ENS_CACHE_TTL", "30s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ENSCacheTTL != 30*time.Second {
		t.Fatalf("expected 30s ttl, got %s", cfg.ENSCacheTTL)
	}
}
