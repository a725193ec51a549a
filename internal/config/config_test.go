package config

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

func expectPanic(t *testing.T, name string) {
	t.Helper()
	if r := recover(); r == nil {
		t.Errorf("%s should have panicked", name)
	}
}

func TestRequireEnv(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		value     string
		wantPanic bool
	}{
		{name: "variable set", key: "TEST_VAR", value: "test_value"},
		{name: "variable not set", key: "TEST_VAR_MISSING", wantPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				t.Setenv(tt.key, tt.value)
			}
			if tt.wantPanic {
				defer expectPanic(t, "requireEnv()")
			}

			result := requireEnv(tt.key)
			if !tt.wantPanic && result != tt.value {
				t.Errorf("requireEnv() = %v, want %v", result, tt.value)
			}
		})
	}
}

func TestMustOneOf(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		expected  string
		wantPanic bool
	}{
		{name: "default", value: "", expected: BackendMemory},
		{name: "redis", value: "redis", expected: BackendRedis},
		{name: "case folded", value: "SQLite", expected: BackendSQLite},
		{name: "unknown", value: "postgres", wantPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_BACKEND", tt.value)
			if tt.wantPanic {
				defer expectPanic(t, "mustOneOf()")
			}

			got := mustOneOf("TEST_BACKEND", BackendMemory, BackendMemory, BackendRedis, BackendSQLite)
			if got != tt.expected {
				t.Errorf("mustOneOf() = %q, want %q", got, tt.expected)
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
		{name: "valid duration", value: "30s", def: time.Second, expected: 30 * time.Second},
		{name: "invalid falls back", value: "soon", def: time.Second, expected: time.Second},
		{name: "unset uses default", value: "", def: 2 * time.Minute, expected: 2 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.value)
			if got := mustDuration("TEST_DURATION", tt.def); got != tt.expected {
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
		{name: "true", value: "true", expected: true},
		{name: "numeric false", value: "0", def: true, expected: false},
		{name: "invalid falls back", value: "maybe", def: true, expected: true},
		{name: "unset uses default", value: "", def: false, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_BOOL", tt.value)
			if got := mustBool("TEST_BOOL", tt.def); got != tt.expected {
				t.Errorf("mustBool() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestSplitAndTrim(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"", nil},
		{"a", []string{"a"}},
		{" a , 'b' ,\"c\", ", []string{"a", "b", "c"}},
	}
	for _, tt := range tests {
		if got := splitAndTrim(tt.input); !reflect.DeepEqual(got, tt.expected) {
			t.Errorf("splitAndTrim(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SHELF_BACKEND", "")
	t.Setenv("SHELF_LOG_LEVEL", "error")

	cfg := Load()
	if cfg.Backend != BackendMemory {
		t.Errorf("Backend = %q, want memory", cfg.Backend)
	}
	if cfg.ListenPort != ":8080" || cfg.TodayRefreshInterval != 15*time.Minute {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.RedisAddr != "" {
		t.Errorf("RedisAddr = %q without the redis backend", cfg.RedisAddr)
	}
}

func TestLoadRedisRequiresAddr(t *testing.T) {
	t.Setenv("SHELF_BACKEND", "redis")
	t.Setenv("SHELF_REDIS_ADDR", "")
	defer expectPanic(t, "Load()")
	Load()
}

func TestLoadRejectsNonPositiveRate(t *testing.T) {
	t.Setenv("SHELF_BACKEND", "memory")
	t.Setenv("SHELF_AUTH_RATE_BURST", "0")
	defer expectPanic(t, "Load()")
	Load()
}

func TestRedacted(t *testing.T) {
	cfg := &Config{RedisUser: "default", RedisPassword: "hunter22"}
	out := cfg.Redacted()
	if strings.Contains(out.RedisPassword+out.RedisUser, "hunter22") || out.RedisUser == "default" {
		t.Errorf("Redacted leaks secrets: %+v", out)
	}
	if cfg.RedisPassword != "hunter22" {
		t.Error("Redacted modified the original")
	}
}
