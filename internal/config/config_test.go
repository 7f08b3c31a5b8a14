package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var configEnvKeys = []string{
	"REGIONS_PORT", "PORT", "REGIONS_ENV", "ENV", "GO_ENV", "LOG_LEVEL",
	"PERSIST_BACKEND", "PERSIST_DIR", "PERSIST_KEY_PREFIX", "AUTOSAVE_DELAY_MS",
	"DATABASE_URL", "REDIS_URL",
	"S3_BUCKET", "S3_ENDPOINT", "S3_REGION", "S3_ACCESS_KEY_ID", "S3_SECRET_ACCESS_KEY",
	"GEOCODE_API_KEY", "GOOGLE_MAPS_API_KEY", "GEOCODE_BASE_URL", "GEOCODE_CACHE_TTL_MINUTES",
	"GEOMETRY_PRECISE", "HISTORY_LIMIT", "CORS_ALLOWED_ORIGINS", "RATE_LIMIT_PER_MINUTE",
	"TRACING_ENABLED", "TRACING_EXPORTER", "OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT",
	"TRACING_SAMPLE_RATE",
}

// clearEnv blanks every variable Load reads. Empty values count as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnvKeys {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, errs := Load("")
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
	if cfg.Port != DefaultPort {
		t.Errorf("expected port %d, got %d", DefaultPort, cfg.Port)
	}
	if cfg.Env != DefaultEnv {
		t.Errorf("expected env %q, got %q", DefaultEnv, cfg.Env)
	}
	if cfg.PersistBackend != "memory" {
		t.Errorf("expected memory backend, got %q", cfg.PersistBackend)
	}
	if cfg.AutosaveDelay() != 2*time.Second {
		t.Errorf("expected 2s autosave delay, got %v", cfg.AutosaveDelay())
	}
	if cfg.GeocodeCacheTTL() != 24*time.Hour {
		t.Errorf("expected 24h geocode TTL, got %v", cfg.GeocodeCacheTTL())
	}
	if !cfg.GeometryPrecise {
		t.Error("expected precise geometry by default")
	}
	if cfg.HistoryLimit != DefaultHistoryLimit {
		t.Errorf("expected history limit %d, got %d", DefaultHistoryLimit, cfg.HistoryLimit)
	}
	if cfg.TracingEnabled {
		t.Error("expected tracing disabled by default")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("REGIONS_PORT", "9191")
	t.Setenv("PERSIST_BACKEND", "File")
	t.Setenv("PERSIST_DIR", "/tmp/regions")
	t.Setenv("GEOMETRY_PRECISE", "off")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("GOOGLE_MAPS_API_KEY", "maps-key-123456")
	t.Setenv("TRACING_SAMPLE_RATE", "0.5")

	cfg, errs := Load("")
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
	if cfg.Port != 9191 {
		t.Errorf("expected REGIONS_PORT to win, got %d", cfg.Port)
	}
	if cfg.PersistBackend != "file" {
		t.Errorf("expected backend to be lowercased, got %q", cfg.PersistBackend)
	}
	if cfg.GeometryPrecise {
		t.Error("expected planar geometry")
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Errorf("unexpected origins: %v", cfg.CORSAllowedOrigins)
	}
	if cfg.GeocodeAPIKey != "maps-key-123456" {
		t.Errorf("expected fallback geocode key, got %q", cfg.GeocodeAPIKey)
	}
	if cfg.TracingSampleRate != 0.5 {
		t.Errorf("expected sample rate 0.5, got %v", cfg.TracingSampleRate)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr error
		wantMsg string
	}{
		{
			name:    "non-numeric port",
			envVars: map[string]string{"PORT": "http"},
			wantErr: ErrInvalidInteger,
		},
		{
			name:    "port out of range",
			envVars: map[string]string{"PORT": "70000"},
			wantErr: ErrInvalidPort,
		},
		{
			name:    "unknown backend",
			envVars: map[string]string{"PERSIST_BACKEND": "etcd"},
			wantErr: ErrInvalidPersistBackend,
		},
		{
			name:    "file backend without dir",
			envVars: map[string]string{"PERSIST_BACKEND": "file"},
			wantErr: ErrMissingPersistDir,
		},
		{
			name:    "postgres backend without url",
			envVars: map[string]string{"PERSIST_BACKEND": "postgres"},
			wantErr: ErrMissingDatabaseURL,
		},
		{
			name:    "redis backend without url",
			envVars: map[string]string{"PERSIST_BACKEND": "redis"},
			wantErr: ErrMissingRedisURL,
		},
		{
			name:    "s3 backend without bucket",
			envVars: map[string]string{"PERSIST_BACKEND": "s3", "S3_ACCESS_KEY_ID": "id", "S3_SECRET_ACCESS_KEY": "secret"},
			wantErr: ErrMissingS3Bucket,
		},
		{
			name:    "s3 backend without credentials",
			envVars: map[string]string{"PERSIST_BACKEND": "s3", "S3_BUCKET": "regions"},
			wantErr: ErrMissingS3Credentials,
		},
		{
			name:    "zero autosave delay",
			envVars: map[string]string{"AUTOSAVE_DELAY_MS": "0"},
			wantErr: ErrInvalidAutosaveDelay,
		},
		{
			name:    "negative history limit",
			envVars: map[string]string{"HISTORY_LIMIT": "-1"},
			wantErr: ErrInvalidHistoryLimit,
		},
		{
			name:    "sample rate above one",
			envVars: map[string]string{"TRACING_SAMPLE_RATE": "1.5"},
			wantErr: ErrInvalidSampleRate,
		},
		{
			name:    "unknown exporter",
			envVars: map[string]string{"TRACING_ENABLED": "true", "TRACING_EXPORTER": "jaeger"},
			wantErr: ErrInvalidTracingExporter,
		},
		{
			name:    "geocode base url without scheme",
			envVars: map[string]string{"GEOCODE_BASE_URL": "maps.example.com/geocode"},
			wantErr: ErrInvalidServiceURL,
		},
		{
			name:    "bad boolean",
			envVars: map[string]string{"GEOMETRY_PRECISE": "maybe"},
			wantMsg: "GEOMETRY_PRECISE must be a boolean",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			_, errs := Load("")
			if len(errs) == 0 {
				t.Fatal("expected validation errors, got none")
			}
			found := false
			for _, err := range errs {
				if tt.wantErr != nil && errors.Is(err, tt.wantErr) {
					found = true
				}
				if tt.wantMsg != "" && strings.Contains(err.Error(), tt.wantMsg) {
					found = true
				}
			}
			if !found {
				t.Errorf("expected %v%s in errors, got %v", tt.wantErr, tt.wantMsg, errs)
			}
		})
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `port: 7070
persist_backend: redis
redis_url: redis://localhost:6379
history_limit: 25
geometry_precise: false
cors_allowed_origins:
  - https://maps.example
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	t.Setenv("HISTORY_LIMIT", "50")

	cfg, errs := Load(path)
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
	if cfg.Port != 7070 {
		t.Errorf("expected port 7070 from file, got %d", cfg.Port)
	}
	if cfg.PersistBackend != "redis" {
		t.Errorf("expected redis backend from file, got %q", cfg.PersistBackend)
	}
	if cfg.HistoryLimit != 50 {
		t.Errorf("expected env to override file history limit, got %d", cfg.HistoryLimit)
	}
	if cfg.GeometryPrecise {
		t.Error("expected geometry_precise false from file")
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "https://maps.example" {
		t.Errorf("unexpected origins: %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	clearEnv(t)

	cfg, errs := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if cfg != nil {
		t.Error("expected nil config for unreadable file")
	}
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %d", len(errs))
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)

	if err := LoadDotEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Fatalf("expected missing .env to be ignored, got %v", err)
	}

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("HISTORY_LIMIT=42\n"), 0o600); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}
	// godotenv does not override variables that are already set, and an
	// empty value still counts as set, so drop the blank from clearEnv.
	os.Unsetenv("HISTORY_LIMIT")
	t.Cleanup(func() { os.Unsetenv("HISTORY_LIMIT") })

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv failed: %v", err)
	}
	cfg, errs := Load("")
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
	if cfg.HistoryLimit != 42 {
		t.Errorf("expected history limit 42 from .env, got %d", cfg.HistoryLimit)
	}
}

func TestLogSummary_MasksSecrets(t *testing.T) {
	cfg := &Config{
		DatabaseURL:       "postgres://regions:hunter22@db:5432/regions",
		RedisURL:          "redis://:redispass@cache:6379",
		S3AccessKeyID:     "AKIAEXAMPLEKEY",
		S3SecretAccessKey: "short",
		GeocodeAPIKey:     "",
	}
	summary := cfg.LogSummary()

	if got := summary["database_url"]; got != "postgres://regions:****@db:5432/regions" {
		t.Errorf("unexpected database_url %q", got)
	}
	if got := summary["redis_url"]; got != "redis://:****@cache:6379" {
		t.Errorf("unexpected redis_url %q", got)
	}
	if got := summary["s3_access_key_id"]; got != "AKIA****" {
		t.Errorf("unexpected s3_access_key_id %q", got)
	}
	if got := summary["s3_secret_access_key"]; got != "****" {
		t.Errorf("unexpected s3_secret_access_key %q", got)
	}
	if got := summary["geocode_api_key"]; got != "<not set>" {
		t.Errorf("unexpected geocode_api_key %q", got)
	}
	for key, value := range summary {
		if strings.Contains(value, "hunter22") || strings.Contains(value, "redispass") {
			t.Errorf("secret leaked in %s: %q", key, value)
		}
	}
}
