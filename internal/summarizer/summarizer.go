// Package summarizer turns note text into a short summary.
//
// Two strategies are available: Extractive, a deterministic frequency-based
// sentence selector with no I/O, and Ollama, which asks a remote model and
// falls back to Extractive on any failure. Neither strategy returns the
// remote failure to the caller.
package summarizer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"
)

const (
	ProviderExtractive = "extractive"
	ProviderOllama     = "ollama"

	DefaultMaxChars         = 300
	DefaultMaxSentences     = 3
	DefaultMinSentenceChars = 20

	ellipsis = "…"
)

type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

type Limits struct {
	MaxChars         int
	MaxSentences     int
	MinSentenceChars int
}

func DefaultLimits() Limits {
	return Limits{
		MaxChars:         DefaultMaxChars,
		MaxSentences:     DefaultMaxSentences,
		MinSentenceChars: DefaultMinSentenceChars,
	}
}

func (l Limits) Validate() error {
	if l.MaxChars < 1 {
		return fmt.Errorf("max_chars must be >= 1, got %d", l.MaxChars)
	}
	if l.MaxSentences < 1 {
		return fmt.Errorf("max_sentences must be >= 1, got %d", l.MaxSentences)
	}
	if l.MinSentenceChars < 0 {
		return fmt.Errorf("min_sentence_chars must be >= 0, got %d", l.MinSentenceChars)
	}
	return nil
}

type Config struct {
	Provider string
	Limits   Limits
	Ollama   OllamaConfig
}

// New builds the strategy named by cfg.Provider. An empty provider selects
// the extractive strategy.
func New(cfg Config, logger *slog.Logger) (Summarizer, error) {
	if err := cfg.Limits.Validate(); err != nil {
		return nil, err
	}
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderExtractive:
		return NewExtractive(cfg.Limits), nil
	case ProviderOllama:
		return NewOllama(cfg.Ollama, cfg.Limits, logger), nil
	default:
		return nil, fmt.Errorf("unknown summarize provider %q", cfg.Provider)
	}
}

// truncate cuts s so that the result, ellipsis included, is at most limit runes.
func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	if limit <= 1 {
		return ellipsis
	}
	return strings.TrimRightFunc(string(r[:limit-1]), unicode.IsSpace) + ellipsis
}

func runeLen(s string) int {
	return len([]rune(s))
}
