package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var envKeys = []string{
	"PORT", "LOG_LEVEL", "STORE_DRIVER", "DATABASE_URL", "JWT_SECRET", "JWT_ISSUER",
	"SESSION_TTL", "STORAGE_DRIVER", "UPLOAD_DIR", "MINIO_ENDPOINT", "MINIO_ACCESS_KEY",
	"MINIO_SECRET_KEY", "MINIO_BUCKET", "MINIO_USE_SSL", "MAX_UPLOAD_BYTES", "REDIS_ADDR",
	"REDIS_PASSWORD", "LOGIN_RATE_LIMIT_PER_MINUTE", "REGISTER_RATE_LIMIT_PER_MINUTE",
	"CORS_ALLOWED_ORIGINS", "TRUSTED_PROXIES", "LIBRARY_CONFIG",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadYAMLWithDefaults(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
port: "9000"
storeDriver: memory
jwtSecret: from-file
corsAllowedOrigins:
  - http://localhost:3000
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "9000" || cfg.StoreDriver != StoreDriverMemory || cfg.JWTSecret != "from-file" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.StorageDriver != StorageDriverLocal || cfg.UploadDir != "uploads" {
		t.Fatalf("expected local storage defaults, got %+v", cfg)
	}
	if cfg.MaxUploadBytes != 50<<20 {
		t.Fatalf("expected default upload limit, got %d", cfg.MaxUploadBytes)
	}
	if cfg.LoginRateLimitPerMinute != 10 || cfg.RegisterRateLimitPerMinute != 5 {
		t.Fatalf("expected default rate limits, got %d/%d", cfg.LoginRateLimitPerMinute, cfg.RegisterRateLimitPerMinute)
	}
	if len(cfg.CORSAllowedOrigins) != 1 {
		t.Fatalf("expected cors origins from file, got %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
port: "9000"
storeDriver: memory
jwtSecret: from-file
`)
	t.Setenv("PORT", "7000")
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/library")
	t.Setenv("LOGIN_RATE_LIMIT_PER_MINUTE", "5")
	t.Setenv("MAX_UPLOAD_BYTES", "1024")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "7000" || cfg.JWTSecret != "from-env" || cfg.StoreDriver != StoreDriverPostgres {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if cfg.LoginRateLimitPerMinute != 5 || cfg.MaxUploadBytes != 1024 {
		t.Fatalf("numeric overrides not applied: %+v", cfg)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected cors origins: %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadValidation(t *testing.T) {
	cases := map[string]struct {
		body string
		env  map[string]string
		want string
	}{
		"missing secret": {
			body: "storeDriver: memory\n",
			want: "jwtSecret",
		},
		"postgres without url": {
			body: "jwtSecret: s\n",
			want: "databaseURL",
		},
		"unknown store": {
			body: "jwtSecret: s\nstoreDriver: mongo\n",
			want: "storeDriver",
		},
		"minio without bucket": {
			body: "jwtSecret: s\nstoreDriver: memory\nstorageDriver: minio\nminioEndpoint: localhost:9000\n",
			want: "minioBucket",
		},
		"bad ttl": {
			body: "jwtSecret: s\nstoreDriver: memory\nsessionTTL: soon\n",
			want: "sessionTTL",
		},
		"bad env int": {
			body: "jwtSecret: s\nstoreDriver: memory\n",
			env:  map[string]string{"REGISTER_RATE_LIMIT_PER_MINUTE": "ten"},
			want: "REGISTER_RATE_LIMIT_PER_MINUTE",
		},
		"negative limit": {
			body: "jwtSecret: s\nstoreDriver: memory\nloginRateLimitPerMinute: -1\n",
			want: "rate limits",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load(writeConfig(t, tc.body))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for explicit missing file")
	}

	prev := ConfigPath
	ConfigPath = filepath.Join(t.TempDir(), "config.yaml")
	t.Cleanup(func() { ConfigPath = prev })
	t.Setenv("JWT_SECRET", "env-only")
	t.Setenv("STORE_DRIVER", "memory")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("expected env-only config to load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %q", cfg.Port)
	}
}

func TestResolvePath(t *testing.T) {
	clearEnv(t)
	if got := ResolvePath(); got != ConfigPath {
		t.Fatalf("expected default path, got %q", got)
	}
	t.Setenv("LIBRARY_CONFIG", "/etc/library.yaml")
	if got := ResolvePath(); got != "/etc/library.yaml" {
		t.Fatalf("expected env path, got %q", got)
	}
}

func TestParseSessionTTL(t *testing.T) {
	ttl, err := ParseSessionTTL("")
	if err != nil || ttl != 60*time.Minute {
		t.Fatalf("expected 60m default, got %v %v", ttl, err)
	}
	ttl, err = ParseSessionTTL("15m")
	if err != nil || ttl != 15*time.Minute {
		t.Fatalf("expected 15m, got %v %v", ttl, err)
	}
	if _, err := ParseSessionTTL("-5m"); err == nil {
		t.Fatalf("expected error for negative ttl")
	}
}
