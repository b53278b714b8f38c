package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Security.TokenTTL != 2*time.Hour {
		t.Fatalf("expected 2h token ttl, got %v", cfg.Security.TokenTTL)
	}
	if cfg.Security.BcryptCost < 10 {
		t.Fatalf("expected bcrypt cost >= 10, got %d", cfg.Security.BcryptCost)
	}
	if cfg.App.BasePath != "/api" {
		t.Fatalf("expected /api base path, got %q", cfg.App.BasePath)
	}
	if cfg.Store.Driver != StoreMySQL {
		t.Fatalf("expected mysql driver, got %q", cfg.Store.Driver)
	}
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	src := getDefaultConfig()
	src.App.HTTPAddr = ":7000"
	src.Security.TokenTTL = 30 * time.Minute
	src.Catalog.CacheTTL = time.Hour
	if err := Save(path, src); err != nil {
		t.Fatalf("save: %v", err)
	}

	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("STORE_DRIVER", "Mongo")
	t.Setenv("MONGO_URI", "mongodb://db:27017")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.App.HTTPAddr != ":7000" {
		t.Fatalf("expected file http addr, got %q", cfg.App.HTTPAddr)
	}
	if cfg.Security.TokenTTL != 30*time.Minute {
		t.Fatalf("expected 30m token ttl, got %v", cfg.Security.TokenTTL)
	}
	if cfg.Catalog.CacheTTL != time.Hour {
		t.Fatalf("expected 1h cache ttl, got %v", cfg.Catalog.CacheTTL)
	}
	if cfg.Security.JWTSecret != "from-env" {
		t.Fatalf("expected env secret, got %q", cfg.Security.JWTSecret)
	}
	if cfg.Store.Driver != StoreMongo {
		t.Fatalf("expected mongo driver, got %q", cfg.Store.Driver)
	}
	if cfg.Mongo.URI != "mongodb://db:27017" {
		t.Fatalf("expected env mongo uri, got %q", cfg.Mongo.URI)
	}
}

func TestLoad_AssemblesMySQLDSNFromParts(t *testing.T) {
	t.Setenv("DB_HOST", "mysql")
	t.Setenv("DB_PORT", "3307")
	t.Setenv("DB_USER", "chef")
	t.Setenv("DB_NAME", "recipes")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	dsn := cfg.MySQL.DSN
	if !strings.HasPrefix(dsn, "chef:") || !strings.Contains(dsn, "@tcp(mysql:3307)/recipes") {
		t.Fatalf("unexpected dsn: %s", dsn)
	}
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"security":{"token_ttl":"soon"}}`), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}
