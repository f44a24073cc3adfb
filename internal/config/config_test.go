package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DB_TYPE", "")
	t.Setenv("SESSION_DURATION", "")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "")

	cfg := Load()

	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want 8080", cfg.ServerPort)
	}
	if cfg.DatabaseType != "sqlite" {
		t.Errorf("DatabaseType = %q, want sqlite", cfg.DatabaseType)
	}
	if cfg.SessionDuration != 24*time.Hour {
		t.Errorf("SessionDuration = %v, want 24h", cfg.SessionDuration)
	}
	if cfg.RateLimit != 10 {
		t.Errorf("RateLimit = %d, want 10", cfg.RateLimit)
	}
}

func TestLoadOverrides(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		check func(*Config) bool
	}{
		{
			name:  "port",
			key:   "PORT",
			value: "9000",
			check: func(c *Config) bool { return c.ServerPort == "9000" },
		},
		{
			name:  "session duration",
			key:   "SESSION_DURATION",
			value: "2h",
			check: func(c *Config) bool { return c.SessionDuration == 2*time.Hour },
		},
		{
			name:  "invalid duration keeps default",
			key:   "TOKEN_DURATION",
			value: "soon",
			check: func(c *Config) bool { return c.TokenDuration == 24*time.Hour },
		},
		{
			name:  "negative rate limit keeps default",
			key:   "RATE_LIMIT_PER_MINUTE",
			value: "-3",
			check: func(c *Config) bool { return c.RateLimit == 10 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if !tt.check(Load()) {
				t.Errorf("%s=%q not applied as expected", tt.key, tt.value)
			}
		})
	}
}

func TestTrustedProxies(t *testing.T) {
	t.Setenv("TRUSTED_PROXIES", "")
	if got := Load().TrustedProxies; got != nil {
		t.Errorf("TrustedProxies = %v, want none by default", got)
	}

	t.Setenv("TRUSTED_PROXIES", " 10.0.0.0/8, ,127.0.0.1 ")
	got := Load().TrustedProxies
	if len(got) != 2 || got[0] != "10.0.0.0/8" || got[1] != "127.0.0.1" {
		t.Errorf("TrustedProxies = %v, want [10.0.0.0/8 127.0.0.1]", got)
	}
}

func TestLocation(t *testing.T) {
	cfg := &Config{SchoolTimezone: "Asia/Kolkata"}
	if got := cfg.Location().String(); got != "Asia/Kolkata" {
		t.Errorf("Location() = %q, want Asia/Kolkata", got)
	}

	cfg.SchoolTimezone = "Not/AZone"
	if cfg.Location() != time.Local {
		t.Error("unknown zone should fall back to time.Local")
	}
}
