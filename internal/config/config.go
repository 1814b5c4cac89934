// Package config builds the process configuration from the environment.
// The value is constructed once in main and passed down explicitly.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"note-summary-service/internal/retry"
	"note-summary-service/internal/summarizer"
)

const (
	StorePostgres = "postgres"
	StoreRedis    = "redis"
	StoreMemory   = "memory"
)

type Config struct {
	Store          string
	PostgresDSN    string
	RedisAddr      string
	RedisKeyPrefix string
	NatsURL        string

	HTTPAddr    string
	MetricsAddr string

	PollInterval       time.Duration
	BatchSize          int
	MaxAttempts        int
	StoreRetryInterval time.Duration
	StaleAfter         time.Duration
	SweepSchedule      string

	Summarizer summarizer.Config
}

// Error is a configuration problem detected at startup. It is not
// recoverable at runtime.
type Error struct {
	Problems []string
}

func (e *Error) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

// Load reads the environment. Malformed numbers are reported by Validate
// rather than silently replaced with defaults.
func Load() (Config, error) {
	p := &parser{}

	cfg := Config{
		Store:          strings.ToLower(envOr("STORE", StorePostgres)),
		PostgresDSN:    os.Getenv("POSTGRES_DSN"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisKeyPrefix: envOr("REDIS_KEY_PREFIX", "notes"),
		NatsURL:        os.Getenv("NATS_URL"),

		HTTPAddr:    envOr("HTTP_ADDR", ":8080"),
		MetricsAddr: envOr("METRICS_ADDR", ":9100"),

		PollInterval:       p.seconds("WORKER_POLL_INTERVAL_SECONDS", 2),
		BatchSize:          p.int("WORKER_BATCH_SIZE", 5),
		MaxAttempts:        p.int("MAX_ATTEMPTS", retry.DefaultMaxAttempts),
		StoreRetryInterval: p.seconds("STORE_RETRY_INTERVAL_SECONDS", 5),
		StaleAfter:         p.seconds("STALE_AFTER_SECONDS", 300),
		SweepSchedule:      envOr("SWEEP_SCHEDULE", "@every 1m"),

		Summarizer: summarizer.Config{
			Provider: strings.ToLower(envOr("SUMMARIZE_PROVIDER", summarizer.ProviderExtractive)),
			Limits: summarizer.Limits{
				MaxChars:         p.int("SUMMARY_MAX_CHARS", summarizer.DefaultMaxChars),
				MaxSentences:     p.int("SUMMARY_MAX_SENTENCES", summarizer.DefaultMaxSentences),
				MinSentenceChars: p.int("SUMMARY_MIN_SENT_CHARS", summarizer.DefaultMinSentenceChars),
			},
			Ollama: summarizer.OllamaConfig{
				Host:          envOr("OLLAMA_HOST", summarizer.DefaultOllamaHost),
				Model:         envOr("SUMMARIZE_LLM_MODEL", summarizer.DefaultOllamaModel),
				Timeout:       p.seconds("SUMMARIZE_LLM_TIMEOUT_SECONDS", 60),
				Temperature:   p.float("SUMMARIZE_LLM_TEMPERATURE", 0.2),
				RatePerSecond: p.float("SUMMARIZE_LLM_RATE_PER_SEC", 0),
			},
		},
	}

	if len(p.problems) > 0 {
		return cfg, &Error{Problems: p.problems}
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	switch c.Store {
	case StorePostgres:
		if c.PostgresDSN == "" {
			add("POSTGRES_DSN is required for store %q", c.Store)
		}
	case StoreRedis:
		if c.RedisAddr == "" {
			add("REDIS_ADDR is required for store %q", c.Store)
		}
	case StoreMemory:
	default:
		add("unknown STORE %q", c.Store)
	}

	if c.PollInterval <= 0 {
		add("poll interval must be positive, got %s", c.PollInterval)
	}
	if c.BatchSize < 1 {
		add("batch size must be >= 1, got %d", c.BatchSize)
	}
	if c.MaxAttempts < 1 {
		add("max attempts must be >= 1, got %d", c.MaxAttempts)
	}
	if c.StoreRetryInterval <= 0 {
		add("store retry interval must be positive, got %s", c.StoreRetryInterval)
	}
	if c.StaleAfter <= 0 {
		add("stale threshold must be positive, got %s", c.StaleAfter)
	}
	if _, err := cron.ParseStandard(c.SweepSchedule); err != nil {
		add("SWEEP_SCHEDULE %q: %v", c.SweepSchedule, err)
	}
	if err := c.Summarizer.Limits.Validate(); err != nil {
		add("%v", err)
	}
	switch c.Summarizer.Provider {
	case summarizer.ProviderExtractive:
	case summarizer.ProviderOllama:
		if c.Summarizer.Ollama.Timeout <= 0 {
			add("model timeout must be positive, got %s", c.Summarizer.Ollama.Timeout)
		}
		if c.Summarizer.Ollama.RatePerSecond < 0 {
			add("model rate must be >= 0, got %v", c.Summarizer.Ollama.RatePerSecond)
		}
	default:
		add("unknown SUMMARIZE_PROVIDER %q", c.Summarizer.Provider)
	}

	if len(problems) > 0 {
		return &Error{Problems: problems}
	}
	return nil
}

// Redacted renders the settings worth logging at startup.
func (c Config) Redacted() []any {
	return []any{
		"store", c.Store,
		"postgres_dsn", RedactDSN(c.PostgresDSN),
		"redis_addr", c.RedisAddr,
		"nats_url", c.NatsURL,
		"poll_interval", c.PollInterval.String(),
		"batch_size", c.BatchSize,
		"max_attempts", c.MaxAttempts,
		"stale_after", c.StaleAfter.String(),
		"summarize_provider", c.Summarizer.Provider,
	}
}

var dsnPassword = regexp.MustCompile(`://([^:/?#]+):([^@/]+)@`)

// RedactDSN masks the password of a URL-style DSN: user:pass@ -> user:****@.
func RedactDSN(dsn string) string {
	return dsnPassword.ReplaceAllString(dsn, `://$1:****@`)
}

func envOr(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

type parser struct {
	problems []string
}

func (p *parser) int(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		p.problems = append(p.problems, fmt.Sprintf("%s: %q is not an integer", key, v))
		return def
	}
	return i
}

func (p *parser) float(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.problems = append(p.problems, fmt.Sprintf("%s: %q is not a number", key, v))
		return def
	}
	return f
}

func (p *parser) seconds(key string, def float64) time.Duration {
	return time.Duration(p.float(key, def) * float64(time.Second))
}
