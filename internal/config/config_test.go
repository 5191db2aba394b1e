package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setenv(t *testing.T, key, value string) {
	t.Helper()
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set env var: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Unsetenv(key); err != nil {
			t.Errorf("failed to unset env var: %v", err)
		}
	})
}

func TestRequireEnv(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		value     string
		shouldSet bool
		wantPanic bool
	}{
		{
			name:      "variable set",
			key:       "MARKS_TEST_VAR",
			value:     "test_value",
			shouldSet: true,
			wantPanic: false,
		},
		{
			name:      "variable not set",
			key:       "MARKS_TEST_VAR_MISSING",
			shouldSet: false,
			wantPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.shouldSet {
				setenv(t, tt.key, tt.value)
			}

			if tt.wantPanic {
				defer func() {
					if r := recover(); r == nil {
						t.Errorf("requireEnv() should have panicked")
					}
				}()
			}

			result := requireEnv(tt.key)
			if !tt.wantPanic && result != tt.value {
				t.Errorf("requireEnv() = %v, want %v", result, tt.value)
			}
		})
	}
}

func TestGetenvInt(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		def      int
		expected int
	}{
		{name: "valid integer", key: "MARKS_TEST_INT", value: "42", def: 1, expected: 42},
		{name: "invalid integer uses default", key: "MARKS_TEST_INT_INVALID", value: "nope", def: 7, expected: 7},
		{name: "missing variable uses default", key: "MARKS_TEST_INT_MISSING", value: "", def: 3, expected: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				setenv(t, tt.key, tt.value)
			}
			if got := getenvInt(tt.key, tt.def); got != tt.expected {
				t.Errorf("getenvInt() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestMustDuration(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		def      time.Duration
		expected time.Duration
	}{
		{
			name:     "valid duration",
			key:      "MARKS_TEST_DURATION",
			value:    "5s",
			def:      1 * time.Second,
			expected: 5 * time.Second,
		},
		{
			name:     "invalid duration uses default",
			key:      "MARKS_TEST_DURATION_INVALID",
			value:    "invalid",
			def:      10 * time.Second,
			expected: 10 * time.Second,
		},
		{
			name:     "missing variable uses default",
			key:      "MARKS_TEST_DURATION_MISSING",
			value:    "",
			def:      15 * time.Second,
			expected: 15 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				setenv(t, tt.key, tt.value)
			}
			if got := mustDuration(tt.key, tt.def); got != tt.expected {
				t.Errorf("mustDuration() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestMustBool(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		def      bool
		expected bool
	}{
		{name: "true value", key: "MARKS_TEST_BOOL", value: "true", def: false, expected: true},
		{name: "false value", key: "MARKS_TEST_BOOL_FALSE", value: "false", def: true, expected: false},
		{name: "invalid value uses default", key: "MARKS_TEST_BOOL_INVALID", value: "invalid", def: true, expected: true},
		{name: "missing variable uses default", key: "MARKS_TEST_BOOL_MISSING", value: "", def: false, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				setenv(t, tt.key, tt.value)
			}
			if got := mustBool(tt.key, tt.def); got != tt.expected {
				t.Errorf("mustBool() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestSplitAndTrim(t *testing.T) {
	got := splitAndTrim(` a , "b",, 'c' `)
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("splitAndTrim() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("splitAndTrim()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if splitAndTrim("") != nil {
		t.Error("splitAndTrim(\"\") should be nil")
	}
}

func TestNormalizePublicURL(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		want      string
		wantPanic bool
	}{
		{name: "empty", in: "", want: ""},
		{name: "strips path", in: "https://marks.domain.ext/app/", want: "https://marks.domain.ext"},
		{name: "keeps port", in: "http://localhost:8080", want: "http://localhost:8080"},
		{name: "rejects scheme", in: "ftp://marks.domain.ext", wantPanic: true},
		{name: "rejects relative", in: "marks.domain.ext", wantPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.wantPanic {
				defer func() {
					if r := recover(); r == nil {
						t.Errorf("normalizePublicURL(%q) should have panicked", tt.in)
					}
				}()
			}
			if got := normalizePublicURL(tt.in); got != tt.want {
				t.Errorf("normalizePublicURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestConfigFileProvidesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marks.yaml")
	content := "marks_listen_port: \":9090\"\nmarks_flash_ttl: 5s\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	prev := src
	src = newSource(path)
	t.Cleanup(func() { src = prev })

	if got := getenv("MARKS_LISTEN_PORT", ":8080"); got != ":9090" {
		t.Errorf("getenv() from file = %q, want :9090", got)
	}
	if got := mustDuration("MARKS_FLASH_TTL", time.Second); got != 5*time.Second {
		t.Errorf("mustDuration() from file = %v, want 5s", got)
	}

	// env still wins over the file
	setenv(t, "MARKS_LISTEN_PORT", ":7070")
	if got := getenv("MARKS_LISTEN_PORT", ":8080"); got != ":7070" {
		t.Errorf("env should override file, got %q", got)
	}
}

func TestRedactedHidesSecrets(t *testing.T) {
	cfg := Config{
		GoogleClientSecret: "client-secret",
		SessionSecret:      "session-secret",
		RedisPassword:      "redis-pass",
		RedisUser:          "default",
	}
	r := cfg.Redacted()
	for name, v := range map[string]string{
		"GoogleClientSecret": r.GoogleClientSecret,
		"SessionSecret":      r.SessionSecret,
		"RedisPassword":      r.RedisPassword,
		"RedisUser":          r.RedisUser,
	} {
		if v != "***REDACTED***" {
			t.Errorf("%s not redacted: %q", name, v)
		}
	}
	if cfg.SessionSecret != "session-secret" {
		t.Error("Redacted() must not modify the receiver")
	}
}

func setRequired(t *testing.T) {
	t.Helper()
	setenv(t, "MARKS_GOOGLE_CLIENT_ID", "client")
	setenv(t, "MARKS_GOOGLE_CLIENT_SECRET", "secret")
	setenv(t, "MARKS_SESSION_SECRET", "0123456789abcdef0123456789abcdef")
	setenv(t, "MARKS_REDIS_ADDR", "localhost:6379")
	setenv(t, "MARKS_REDIS_PASSWORD_REQUIRED", "false")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg := Load()
	if cfg.ListenPort != ":8080" || cfg.SessionTTL != 7*24*time.Hour || cfg.FlashTTL != 3*time.Second {
		t.Errorf("unexpected defaults: %+v", cfg.Redacted())
	}
	if cfg.GCInterval != time.Hour || cfg.ImportFile != "" || cfg.ImportInterval != 15*time.Minute {
		t.Errorf("unexpected job defaults: %+v", cfg.Redacted())
	}
}

func TestLoadPanics(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "short session secret", env: map[string]string{"MARKS_SESSION_SECRET": "short"}},
		{name: "import without owner", env: map[string]string{"MARKS_IMPORT_FILE": "/config/bookmarks.yaml"}},
		{name: "redis password required", env: map[string]string{"MARKS_REDIS_PASSWORD_REQUIRED": "true"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tt.env {
				setenv(t, k, v)
			}
			defer func() {
				if r := recover(); r == nil {
					t.Error("Load() should have panicked")
				}
			}()
			Load()
		})
	}
}
