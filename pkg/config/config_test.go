package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(EnvAppEnv, "dev")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.API.BaseURL != "https://vault.impalapay.com/api" {
		t.Fatalf("unexpected API base url %q", cfg.API.BaseURL)
	}
	if cfg.Storage.Driver != StorageDriverSQLite || cfg.Storage.DSN != "raamul.db" {
		t.Fatalf("unexpected storage defaults %+v", cfg.Storage)
	}
	if got := cfg.Checkout.PollInterval; got != 3*time.Second {
		t.Fatalf("expected poll interval 3s, got %v", got)
	}
	if got := cfg.Checkout.SuccessDelay; got != 2*time.Second {
		t.Fatalf("expected success delay 2s, got %v", got)
	}
	if got := cfg.Upload.MaxBytes(); got != 10*1024*1024 {
		t.Fatalf("unexpected upload limit %d", got)
	}
	if len(cfg.Sandbox.PaymentScript) != 3 || cfg.Sandbox.PaymentScript[2] != "completed" {
		t.Fatalf("unexpected payment script %v", cfg.Sandbox.PaymentScript)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv(EnvAPIBaseURL, "http://localhost:8088/api")
	t.Setenv(EnvStorageDriver, "REDIS")
	t.Setenv(EnvRedisURL, "redis://localhost:6379/0")
	t.Setenv(EnvPollInterval, "500ms")
	t.Setenv(EnvPollMaxAttempts, "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if cfg.Storage.Driver != StorageDriverRedis {
		t.Fatalf("expected normalized redis driver, got %q", cfg.Storage.Driver)
	}
	if cfg.Redis.URL != "redis://localhost:6379/0" {
		t.Fatalf("unexpected Redis URL: %q", cfg.Redis.URL)
	}
	if cfg.Checkout.PollInterval != 500*time.Millisecond || cfg.Checkout.PollMaxAttempts != 5 {
		t.Fatalf("unexpected checkout config %+v", cfg.Checkout)
	}
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"bad base url":         {EnvAPIBaseURL: "ftp://example.com"},
		"unknown driver":       {EnvStorageDriver: "mongo"},
		"postgres without dsn": {EnvStorageDriver: "postgres"},
		"zero poll interval":   {EnvPollInterval: "0s"},
	}
	for name, vars := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range vars {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatal("expected Load to fail")
			}
		})
	}
}

func TestAppConfigEnvHelpers(t *testing.T) {
	devConfig := AppConfig{Env: "DEV"}
	if !devConfig.IsDev() {
		t.Fatalf("expected IsDev true for %q", devConfig.Env)
	}
	if devConfig.IsProd() {
		t.Fatalf("expected IsProd false for %q", devConfig.Env)
	}

	prodConfig := AppConfig{Env: "prod"}
	if !prodConfig.IsProd() {
		t.Fatalf("expected IsProd true for %q", prodConfig.Env)
	}
	if prodConfig.IsDev() {
		t.Fatalf("expected IsDev false for %q", prodConfig.Env)
	}
}
