// Package config reads all service configuration from the environment.
// Credentials and inter-service targets MUST come from environment
// variables; a .env file is supported for local development.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the settings shared by the three service roles. Unused
// fields are simply ignored by roles that do not need them.
type Config struct {
	Port string

	// Directories. Input files are only ever resolved inside InputDir.
	InputDir  string
	OutputDir string
	LogsDir   string

	// API key for mutation endpoints. Empty disables auth (development).
	APIKey string

	AllowedOrigins string

	ValidationStrict    bool
	AllowPartialResults bool

	// Pseudonymization of account ids in the detection log output.
	// When enabled the salt is required.
	Pseudonymize         bool
	PseudonymizationSalt string

	// Which algorithms the coordinator fans out to. Nil means every
	// registered algorithm.
	EnabledAlgorithms []string

	// Inter-service targets.
	WorkerURLs    map[string]string // algorithm name -> base URL
	AggregatorURL string

	// Orchestration timing. AttemptTimeout bounds one HTTP attempt,
	// MaxRetries and RetryBaseDelay shape the per-target backoff, and
	// GlobalDeadline bounds the whole invocation.
	AttemptTimeout time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration
	GlobalDeadline time.Duration

	MaxBodyBytes int64
	CacheSize    int
}

// Load reads the environment (after an optional .env file) into a Config
// and validates it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := &Config{
		Port:                 getEnvOrDefault("PORT", "8080"),
		InputDir:             getEnvOrDefault("INPUT_DIR", "./data/input"),
		OutputDir:            getEnvOrDefault("OUTPUT_DIR", "./data/output"),
		LogsDir:              getEnvOrDefault("LOGS_DIR", "./data/logs"),
		APIKey:               os.Getenv("API_KEY"),
		AllowedOrigins:       os.Getenv("ALLOWED_ORIGINS"),
		ValidationStrict:     ParseBool(os.Getenv("VALIDATION_STRICT")),
		AllowPartialResults:  ParseBool(os.Getenv("ALLOW_PARTIAL_RESULTS")),
		Pseudonymize:         ParseBool(os.Getenv("PSEUDONYMIZE_ACCOUNTS")),
		PseudonymizationSalt: os.Getenv("PSEUDONYMIZATION_SALT"),
		AggregatorURL:        getEnvOrDefault("AGGREGATOR_URL", "http://localhost:8083"),
		AttemptTimeout:       getDurationOrDefault("HTTP_ATTEMPT_TIMEOUT", 10*time.Second),
		MaxRetries:           getIntOrDefault("MAX_RETRIES", 3),
		RetryBaseDelay:       getDurationOrDefault("RETRY_BASE_DELAY", 500*time.Millisecond),
		GlobalDeadline:       getDurationOrDefault("GLOBAL_DEADLINE", 2*time.Minute),
		MaxBodyBytes:         int64(getIntOrDefault("MAX_BODY_BYTES", 10*1024*1024)),
		CacheSize:            getIntOrDefault("CACHE_SIZE", 1000),
	}

	if raw := os.Getenv("ENABLED_ALGORITHMS"); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			cfg.EnabledAlgorithms = append(cfg.EnabledAlgorithms, strings.TrimSpace(name))
		}
	}

	cfg.WorkerURLs = map[string]string{
		"layering":     getEnvOrDefault("LAYERING_WORKER_URL", "http://localhost:8081"),
		"wash_trading": getEnvOrDefault("WASH_TRADING_WORKER_URL", "http://localhost:8082"),
	}
	// Any extra algorithm gets its target from <NAME>_WORKER_URL.
	for _, name := range cfg.EnabledAlgorithms {
		if _, ok := cfg.WorkerURLs[name]; ok {
			continue
		}
		envKey := strings.ToUpper(name) + "_WORKER_URL"
		if url := os.Getenv(envKey); url != "" {
			cfg.WorkerURLs[name] = url
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate enforces the configuration invariants, including the timeout
// ordering: per-attempt timeout < retry window < global deadline. Violating
// it produces spurious retry exhaustion, so it is rejected up front.
func (c *Config) Validate() error {
	if c.Pseudonymize && c.PseudonymizationSalt == "" {
		return fmt.Errorf("PSEUDONYMIZATION_SALT is required when PSEUDONYMIZE_ACCOUNTS is enabled")
	}
	if c.AttemptTimeout <= 0 || c.RetryBaseDelay <= 0 || c.GlobalDeadline <= 0 {
		return fmt.Errorf("timeouts must be strictly positive")
	}
	if c.MaxRetries <= 0 {
		return fmt.Errorf("MAX_RETRIES must be strictly positive, got %d", c.MaxRetries)
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("MAX_BODY_BYTES must be strictly positive, got %d", c.MaxBodyBytes)
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("CACHE_SIZE must be strictly positive, got %d", c.CacheSize)
	}
	if c.AttemptTimeout >= c.GlobalDeadline {
		return fmt.Errorf("HTTP_ATTEMPT_TIMEOUT (%v) must be below GLOBAL_DEADLINE (%v)",
			c.AttemptTimeout, c.GlobalDeadline)
	}
	if c.RetryWindow() >= c.GlobalDeadline {
		return fmt.Errorf("per-target retry window (%v) must be below GLOBAL_DEADLINE (%v)",
			c.RetryWindow(), c.GlobalDeadline)
	}
	return nil
}

// RetryWindow is the worst-case duration of one target's retry loop:
// every attempt timing out plus every backoff sleep at multiplier 2.
func (c *Config) RetryWindow() time.Duration {
	window := time.Duration(c.MaxRetries) * c.AttemptTimeout
	delay := c.RetryBaseDelay
	for i := 1; i < c.MaxRetries; i++ {
		window += delay
		delay *= 2
	}
	return window
}

// ParseBool accepts {true, 1, yes} case-insensitively; anything else is false.
func ParseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		return true
	}
	return false
}

// getEnvOrDefault returns the env var value or a safe default for
// non-secret settings.
func getEnvOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getIntOrDefault(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
		log.Printf("Warning: %s=%q is not an integer, using %d", key, val, fallback)
	}
	return fallback
}

func getDurationOrDefault(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
		log.Printf("Warning: %s=%q is not a duration, using %v", key, val, fallback)
	}
	return fallback
}
