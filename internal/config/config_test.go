package config

import (
	"testing"
	"time"
)

func TestLoad_RequiresPostgrest(t *testing.T) {
	t.Setenv("LIBROVISION_POSTGREST_URL", "")
	t.Setenv("LIBROVISION_POSTGREST_API_KEY", "")

	if _, err := Load(); err == nil {
		t.Fatal("Load succeeded without the remote store configured")
	}

	t.Setenv("LIBROVISION_POSTGREST_URL", "https://db.example.com/rest/v1")
	if _, err := Load(); err == nil {
		t.Fatal("Load succeeded without an API key")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("LIBROVISION_POSTGREST_URL", "https://db.example.com/rest/v1")
	t.Setenv("LIBROVISION_POSTGREST_API_KEY", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.PostgrestSchema != "public" {
		t.Errorf("PostgrestSchema = %q", cfg.PostgrestSchema)
	}
	if cfg.MemoryCapacity != 1000 {
		t.Errorf("MemoryCapacity = %d", cfg.MemoryCapacity)
	}
	if cfg.DefaultMaxAge != 5*time.Minute {
		t.Errorf("DefaultMaxAge = %v", cfg.DefaultMaxAge)
	}
	if cfg.RedisAddr != "" {
		t.Errorf("RedisAddr = %q, want empty (durable tier is optional)", cfg.RedisAddr)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("LIBROVISION_POSTGREST_URL", "https://db.example.com/rest/v1")
	t.Setenv("LIBROVISION_POSTGREST_API_KEY", "secret")
	t.Setenv("LIBROVISION_MEMORY_CAPACITY", "250")
	t.Setenv("LIBROVISION_DEFAULT_MAX_AGE", "90s")
	t.Setenv("LIBROVISION_REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.MemoryCapacity != 250 {
		t.Errorf("MemoryCapacity = %d, want 250", cfg.MemoryCapacity)
	}
	if cfg.DefaultMaxAge != 90*time.Second {
		t.Errorf("DefaultMaxAge = %v, want 90s", cfg.DefaultMaxAge)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Errorf("RedisAddr = %q", cfg.RedisAddr)
	}
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("LIBROVISION_POSTGREST_URL", "https://db.example.com/rest/v1")
	t.Setenv("LIBROVISION_POSTGREST_API_KEY", "secret")
	t.Setenv("LIBROVISION_MEMORY_CAPACITY", "lots")
	t.Setenv("LIBROVISION_DEFAULT_MAX_AGE", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.MemoryCapacity != 1000 {
		t.Errorf("MemoryCapacity = %d, want default", cfg.MemoryCapacity)
	}
	if cfg.DefaultMaxAge != 5*time.Minute {
		t.Errorf("DefaultMaxAge = %v, want default", cfg.DefaultMaxAge)
	}
}
