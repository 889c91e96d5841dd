package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func baseConfig() *Config {
	return &Config{
		AttemptTimeout: 10 * time.Second,
		MaxRetries:     3,
		RetryBaseDelay: 500 * time.Millisecond,
		GlobalDeadline: 2 * time.Minute,
		MaxBodyBytes:   10 * 1024 * 1024,
		CacheSize:      1000,
	}
}

func TestConfig_ValidDefaultsPass(t *testing.T) {
	if err := baseConfig().Validate(); err != nil {
		t.Errorf("Expected the default shape to validate. Got: %v", err)
	}
}

func TestConfig_RejectsNonPositiveValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero attempt timeout", func(c *Config) { c.AttemptTimeout = 0 }},
		{"negative retry delay", func(c *Config) { c.RetryBaseDelay = -time.Second }},
		{"zero retries", func(c *Config) { c.MaxRetries = 0 }},
		{"zero body limit", func(c *Config) { c.MaxBodyBytes = 0 }},
		{"zero cache size", func(c *Config) { c.CacheSize = 0 }},
	}
	for _, tc := range cases {
		cfg := baseConfig()
		tc.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("Expected %s to be rejected", tc.name)
		}
	}
}

func TestConfig_RejectsInvertedTimeoutOrdering(t *testing.T) {
	cfg := baseConfig()
	cfg.AttemptTimeout = 3 * time.Minute
	if err := cfg.Validate(); err == nil {
		t.Errorf("Expected attempt timeout above the global deadline to be rejected")
	}

	cfg = baseConfig()
	cfg.GlobalDeadline = 20 * time.Second // retry window (3x10s + backoff) exceeds this
	if err := cfg.Validate(); err == nil {
		t.Errorf("Expected a retry window above the global deadline to be rejected")
	}
}

func TestConfig_RetryWindowSumsAttemptsAndBackoff(t *testing.T) {
	cfg := baseConfig()
	// 3 attempts of 10s plus sleeps of 500ms and 1s.
	want := 30*time.Second + 1500*time.Millisecond
	if got := cfg.RetryWindow(); got != want {
		t.Errorf("Expected retry window %v. Got: %v", want, got)
	}
}

func TestConfig_PseudonymizationRequiresSalt(t *testing.T) {
	cfg := baseConfig()
	cfg.Pseudonymize = true
	if err := cfg.Validate(); err == nil {
		t.Errorf("Expected pseudonymization without a salt to be rejected")
	}
	cfg.PseudonymizationSalt = "pepper"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected a salted config to validate. Got: %v", err)
	}
}

func TestParseBool(t *testing.T) {
	for _, s := range []string{"true", "TRUE", "1", "yes", " Yes "} {
		if !ParseBool(s) {
			t.Errorf("Expected %q to parse as true", s)
		}
	}
	for _, s := range []string{"", "false", "0", "no", "on", "enabled"} {
		if ParseBool(s) {
			t.Errorf("Expected %q to parse as false", s)
		}
	}
}

func TestValidateInputName(t *testing.T) {
	valid := []string{"trades.csv", "batch_2026-03-02.csv", "a", "x.y.z"}
	for _, name := range valid {
		if err := ValidateInputName(name); err != nil {
			t.Errorf("Expected %q to be accepted. Got: %v", name, err)
		}
	}
	invalid := []string{"", ".hidden", "trailing.", "../escape.csv", "a/b.csv", `a\b.csv`, "sp ace.csv"}
	for _, name := range invalid {
		if err := ValidateInputName(name); err == nil {
			t.Errorf("Expected %q to be rejected", name)
		}
	}
}

func TestResolveInputPath_ConfinesToInputDir(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "trades.csv")
	if err := os.WriteFile(target, []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to seed input file: %v", err)
	}

	resolved, err := ResolveInputPath(dir, "trades.csv")
	if err != nil {
		t.Fatalf("Expected resolution to succeed. Got: %v", err)
	}
	if filepath.Base(resolved) != "trades.csv" {
		t.Errorf("Unexpected resolved path: %s", resolved)
	}

	if _, err := ResolveInputPath(dir, "missing.csv"); !errors.Is(err, ErrInputNotFound) {
		t.Errorf("Expected ErrInputNotFound. Got: %v", err)
	}
	if _, err := ResolveInputPath(dir, "../outside.csv"); !errors.Is(err, ErrInvalidInputName) {
		t.Errorf("Expected ErrInvalidInputName for a traversal name. Got: %v", err)
	}
}

func TestResolveInputPath_RejectsEscapingSymlink(t *testing.T) {
	outside := t.TempDir()
	secret := filepath.Join(outside, "secret.csv")
	if err := os.WriteFile(secret, []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to seed outside file: %v", err)
	}

	dir := t.TempDir()
	link := filepath.Join(dir, "sneaky.csv")
	if err := os.Symlink(secret, link); err != nil {
		t.Skipf("Symlinks unavailable: %v", err)
	}

	if _, err := ResolveInputPath(dir, "sneaky.csv"); !errors.Is(err, ErrOutsideInputDir) {
		t.Errorf("Expected ErrOutsideInputDir for an escaping symlink. Got: %v", err)
	}
}
