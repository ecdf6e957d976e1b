package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr                string
	DatabaseURL         string
	LocalDBPath         string
	LogLevel            string
	LogFormat           string
	QuizDurationSeconds int
	AutoAdvanceMS       int
	SessionRetainMin    int
	SessionIdleMin      int
	SaveWorkerCount     int
	SaveQueueSize       int
	CORSOrigins         []string
	DefaultSubjectTitle string
}

// Load reads configuration from a .env file (if present) and environment variables,
// applying sensible defaults when values are missing or invalid.
func Load() Config {
	// Ignore error so the app still starts when .env is absent in production.
	_ = godotenv.Load()

	return Config{
		Addr:                envOr("ADDR", ":8080"),
		DatabaseURL:         strings.TrimSpace(os.Getenv("DATABASE_URL")),
		LocalDBPath:         envOr("LOCAL_DB_PATH", "file:neet-practice.db"),
		LogLevel:            strings.ToUpper(envOr("LOG_LEVEL", "INFO")),
		LogFormat:           strings.ToLower(envOr("LOG_FORMAT", "text")),
		QuizDurationSeconds: envIntOr("QUIZ_DURATION_SECONDS", 1800),
		AutoAdvanceMS:       envIntOr("AUTO_ADVANCE_MS", 500),
		SessionRetainMin:    envIntOr("SESSION_RETAIN_MINUTES", 30),
		SessionIdleMin:      envIntOr("SESSION_IDLE_MINUTES", 120),
		SaveWorkerCount:     envIntOr("SAVE_WORKER_COUNT", 2),
		SaveQueueSize:       envIntOr("SAVE_QUEUE_SIZE", 64),
		CORSOrigins:         csvOr("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173"),
		DefaultSubjectTitle: envOr("DEFAULT_SUBJECT_TITLE", "NEET"),
	}
}

// UsesRemoteStore reports whether the relational backend is configured.
// The answer is fixed for the lifetime of the process.
func (c Config) UsesRemoteStore() bool {
	return c.DatabaseURL != ""
}

func (c Config) QuizDuration() time.Duration {
	return time.Duration(c.QuizDurationSeconds) * time.Second
}

func (c Config) AutoAdvanceDelay() time.Duration {
	return time.Duration(c.AutoAdvanceMS) * time.Millisecond
}

// SessionRetention is how long a finished quiz session stays in memory.
func (c Config) SessionRetention() time.Duration {
	return time.Duration(c.SessionRetainMin) * time.Minute
}

// SessionIdleTimeout evicts quiz sessions left not started or paused.
func (c Config) SessionIdleTimeout() time.Duration {
	return time.Duration(c.SessionIdleMin) * time.Minute
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Addr) == "" {
		errs = append(errs, errors.New("ADDR cannot be empty"))
	}
	if !c.UsesRemoteStore() && strings.TrimSpace(c.LocalDBPath) == "" {
		errs = append(errs, errors.New("LOCAL_DB_PATH cannot be empty when DATABASE_URL is unset"))
	}
	if c.UsesRemoteStore() && !strings.HasPrefix(c.DatabaseURL, "postgres://") && !strings.HasPrefix(c.DatabaseURL, "postgresql://") {
		errs = append(errs, fmt.Errorf("DATABASE_URL must be a postgres:// or postgresql:// URL"))
	}
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL must be one of DEBUG, INFO, WARN, ERROR (got %q)", c.LogLevel))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be text or json (got %q)", c.LogFormat))
	}
	if c.QuizDurationSeconds <= 0 {
		errs = append(errs, fmt.Errorf("QUIZ_DURATION_SECONDS must be positive (got %d)", c.QuizDurationSeconds))
	}
	if c.AutoAdvanceMS <= 0 {
		errs = append(errs, fmt.Errorf("AUTO_ADVANCE_MS must be positive (got %d)", c.AutoAdvanceMS))
	}
	if c.SessionRetainMin <= 0 {
		errs = append(errs, fmt.Errorf("SESSION_RETAIN_MINUTES must be positive (got %d)", c.SessionRetainMin))
	}
	if c.SessionIdleMin <= 0 {
		errs = append(errs, fmt.Errorf("SESSION_IDLE_MINUTES must be positive (got %d)", c.SessionIdleMin))
	}
	if c.SaveWorkerCount <= 0 {
		errs = append(errs, fmt.Errorf("SAVE_WORKER_COUNT must be positive (got %d)", c.SaveWorkerCount))
	}
	if c.SaveQueueSize <= 0 {
		errs = append(errs, fmt.Errorf("SAVE_QUEUE_SIZE must be positive (got %d)", c.SaveQueueSize))
	}
	if strings.TrimSpace(c.DefaultSubjectTitle) == "" {
		errs = append(errs, errors.New("DEFAULT_SUBJECT_TITLE cannot be empty"))
	}

	return errors.Join(errs...)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
		log.Printf("invalid value for %s=%q, using default %d", key, v, def)
	}
	return def
}

func csvOr(key, def string) []string {
	raw := envOr(key, def)
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
