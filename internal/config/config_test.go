package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Database.Driver = %q, expected sqlite", cfg.Database.Driver)
	}
	if cfg.Search.Driver != "memory" {
		t.Errorf("Search.Driver = %q, expected memory", cfg.Search.Driver)
	}
	if cfg.Sync.GracePeriod != 30*time.Second {
		t.Errorf("Sync.GracePeriod = %v, expected 30s", cfg.Sync.GracePeriod)
	}
	if GlobalConfig != cfg {
		t.Error("GlobalConfig should point at the loaded config")
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("server:\n  port: \"9090\"\nsync:\n  grace_period: 5s\n  max_retries: 3\n")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Server.Port = %q, expected 9090", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, expected default", cfg.Server.Host)
	}
	if cfg.Sync.GracePeriod != 5*time.Second {
		t.Errorf("Sync.GracePeriod = %v, expected 5s", cfg.Sync.GracePeriod)
	}
	if cfg.Sync.MaxRetries != 3 {
		t.Errorf("Sync.MaxRetries = %d, expected 3", cfg.Sync.MaxRetries)
	}
	if cfg.Sync.RelaySchedule != "@every 30s" {
		t.Errorf("Sync.RelaySchedule = %q, expected default", cfg.Sync.RelaySchedule)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("SEARCH_DRIVER", "surrealdb")
	t.Setenv("SEARCH_URL", "ws://search:8000/rpc")
	t.Setenv("SYNC_MAX_RETRIES", "4")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Database.Driver != "postgres" {
		t.Errorf("Database.Driver = %q, expected postgres", cfg.Database.Driver)
	}
	if cfg.Search.Driver != "surrealdb" || cfg.Search.URL != "ws://search:8000/rpc" {
		t.Errorf("Search = %+v, expected surrealdb at ws://search:8000/rpc", cfg.Search)
	}
	if cfg.Sync.MaxRetries != 4 {
		t.Errorf("Sync.MaxRetries = %d, expected 4", cfg.Sync.MaxRetries)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, expected debug", cfg.Log.Level)
	}
}

func TestParseRedisURL(t *testing.T) {
	tests := []struct {
		url      string
		addr     string
		password string
		db       int
	}{
		{"redis://localhost:6379", "localhost:6379", "", 0},
		{"redis://:secret@redis:6380/2", "redis:6380", "secret", 2},
		{"redis://user:pw@10.0.0.1:6379/5", "10.0.0.1:6379", "pw", 5},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.parseRedisURL(tt.url)
			if cfg.Redis.Addr != tt.addr {
				t.Errorf("Addr = %q, expected %q", cfg.Redis.Addr, tt.addr)
			}
			if cfg.Redis.Password != tt.password {
				t.Errorf("Password = %q, expected %q", cfg.Redis.Password, tt.password)
			}
			if cfg.Redis.DB != tt.db {
				t.Errorf("DB = %d, expected %d", cfg.Redis.DB, tt.db)
			}
		})
	}
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Search.PageSize = 50

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if loaded.Search.PageSize != 50 {
		t.Errorf("Search.PageSize = %d, expected 50", loaded.Search.PageSize)
	}
}
