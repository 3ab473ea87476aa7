package config

import (
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("UPDATER_REDIS_ADDR", "localhost:6379")
	t.Setenv("UPDATER_REDIS_DB", "0")
	t.Setenv("UPDATER_REDIS_PASSWORD_REQUIRED", "false")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg := Load()

	if cfg.APITimeout != 120*time.Second {
		t.Errorf("APITimeout = %v, want 120s", cfg.APITimeout)
	}
	if cfg.LicenseTimeout != 60*time.Second {
		t.Errorf("LicenseTimeout = %v, want 60s", cfg.LicenseTimeout)
	}
	if cfg.CacheTTL != 3*time.Hour {
		t.Errorf("CacheTTL = %v, want 3h", cfg.CacheTTL)
	}
	if !cfg.SkipTLSVerify {
		t.Error("SkipTLSVerify should default to true")
	}
	if cfg.Beta {
		t.Error("Beta should default to false")
	}
	if cfg.RedisKeyPrefix != "updater:" {
		t.Errorf("RedisKeyPrefix = %q", cfg.RedisKeyPrefix)
	}
	if cfg.AllowedCIDRS != nil {
		t.Errorf("AllowedCIDRS = %v, want nil", cfg.AllowedCIDRS)
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("UPDATER_API_TIMEOUT", "1s")
	t.Setenv("UPDATER_BETA", "true")
	t.Setenv("UPDATER_ALLOWED_CIDRS", "10.0.0.0/8, '192.168.1.4'")

	cfg := Load()

	if cfg.APITimeout != time.Second {
		t.Errorf("APITimeout = %v, want 1s", cfg.APITimeout)
	}
	if !cfg.Beta {
		t.Error("Beta should be true")
	}
	if len(cfg.AllowedCIDRS) != 2 || cfg.AllowedCIDRS[1] != "192.168.1.4" {
		t.Errorf("AllowedCIDRS = %v", cfg.AllowedCIDRS)
	}
}

func TestLoadPanics(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "missing redis addr",
			env:  map[string]string{"UPDATER_REDIS_DB": "0"},
		},
		{
			name: "password required but empty",
			env: map[string]string{
				"UPDATER_REDIS_ADDR":              "localhost:6379",
				"UPDATER_REDIS_DB":                "0",
				"UPDATER_REDIS_PASSWORD_REQUIRED": "true",
			},
		},
		{
			name: "unknown store",
			env:  map[string]string{"UPDATER_STORE": "sqlite"},
		},
		{
			name: "zero cache ttl",
			env: map[string]string{
				"UPDATER_REDIS_ADDR":              "localhost:6379",
				"UPDATER_REDIS_DB":                "0",
				"UPDATER_REDIS_PASSWORD_REQUIRED": "false",
				"UPDATER_CACHE_TTL":               "0s",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("UPDATER_REDIS_ADDR", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			defer func() {
				if r := recover(); r == nil {
					t.Errorf("Load() should have panicked")
				}
			}()
			Load()
		})
	}
}

func TestLoadMemoryStore(t *testing.T) {
	t.Setenv("UPDATER_STORE", "memory")
	t.Setenv("UPDATER_REDIS_ADDR", "")

	cfg := Load()

	if cfg.Store != StoreMemory {
		t.Errorf("Store = %q", cfg.Store)
	}
	if cfg.RedisAddr != "" {
		t.Errorf("RedisAddr = %q, should not be read for the memory store", cfg.RedisAddr)
	}
	if cfg.SweepInterval != 10*time.Minute {
		t.Errorf("SweepInterval = %v", cfg.SweepInterval)
	}
}

func TestRequireEnvInt(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		expected  int
		wantPanic bool
	}{
		{name: "valid integer", value: "42", expected: 42},
		{name: "invalid integer", value: "not_a_number", wantPanic: true},
		{name: "missing variable", value: "", wantPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_UPDATER_INT", tt.value)

			if tt.wantPanic {
				defer func() {
					if r := recover(); r == nil {
						t.Errorf("requireEnvInt() should have panicked")
					}
				}()
			}

			result := requireEnvInt("TEST_UPDATER_INT")
			if !tt.wantPanic && result != tt.expected {
				t.Errorf("requireEnvInt() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestMustDuration(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		def      time.Duration
		expected time.Duration
	}{
		{name: "valid duration", value: "5s", def: time.Second, expected: 5 * time.Second},
		{name: "invalid duration uses default", value: "invalid", def: 10 * time.Second, expected: 10 * time.Second},
		{name: "missing variable uses default", value: "", def: 15 * time.Second, expected: 15 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_UPDATER_DURATION", tt.value)

			if got := mustDuration("TEST_UPDATER_DURATION", tt.def); got != tt.expected {
				t.Errorf("mustDuration() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestMustBool(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		def      bool
		expected bool
	}{
		{name: "true value", value: "true", def: false, expected: true},
		{name: "false value", value: "false", def: true, expected: false},
		{name: "invalid value uses default", value: "invalid", def: true, expected: true},
		{name: "missing variable uses default", value: "", def: false, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_UPDATER_BOOL", tt.value)

			if got := mustBool("TEST_UPDATER_BOOL", tt.def); got != tt.expected {
				t.Errorf("mustBool() = %v, want %v", got, tt.expected)
			}
		})
	}
}
