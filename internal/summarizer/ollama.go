package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultOllamaHost    = "http://localhost:11434"
	DefaultOllamaModel   = "llama3.1"
	DefaultOllamaTimeout = 60 * time.Second
)

var errEmptyResponse = errors.New("empty model response")

type OllamaConfig struct {
	Host        string
	Model       string
	Temperature float64
	Timeout     time.Duration
	// RatePerSecond limits outgoing requests; 0 disables the limit.
	RatePerSecond float64
}

// Ollama summarizes through an Ollama /api/generate endpoint. Every failure
// path, including a rate limit wait that cannot finish within the timeout,
// is answered by the extractive strategy.
type Ollama struct {
	cfg      OllamaConfig
	limits   Limits
	client   *http.Client
	limiter  *rate.Limiter
	fallback *Extractive
	logger   *slog.Logger
}

func NewOllama(cfg OllamaConfig, limits Limits, logger *slog.Logger) *Ollama {
	if cfg.Host == "" {
		cfg.Host = DefaultOllamaHost
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOllamaModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultOllamaTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	o := &Ollama{
		cfg:      cfg,
		limits:   limits,
		client:   &http.Client{Timeout: cfg.Timeout},
		fallback: NewExtractive(limits),
		logger:   logger,
	}
	if cfg.RatePerSecond > 0 {
		o.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}
	return o
}

type generateRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	Temperature float64 `json:"temperature"`
	Stream      bool    `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

func (o *Ollama) Summarize(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}

	start := time.Now()
	out, err := o.generate(ctx, text)
	if err != nil {
		o.logger.Warn("model summarize failed, using extractive",
			"model", o.cfg.Model, "duration_ms", time.Since(start).Milliseconds(), "error", err)
		return o.fallback.Summary(text), nil
	}
	return truncate(out, o.limits.MaxChars), nil
}

func (o *Ollama) prompt(text string) string {
	return fmt.Sprintf("Summarize the following text in at most %d sentence(s). "+
		"Use plain text, no bullets. Keep key facts and names. "+
		"Hard limit: at most %d characters total.\n\n"+
		"=== TEXT START ===\n%s\n=== TEXT END ===",
		o.limits.MaxSentences, o.limits.MaxChars, text)
}

func (o *Ollama) generate(ctx context.Context, text string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limit: %w", err)
		}
	}

	body, err := json.Marshal(generateRequest{
		Model:       o.cfg.Model,
		Prompt:      o.prompt(text),
		Temperature: o.cfg.Temperature,
		Stream:      false,
	})
	if err != nil {
		return "", err
	}

	url := strings.TrimRight(o.cfg.Host, "/") + "/api/generate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var gr generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	out := strings.TrimSpace(gr.Response)
	if out == "" {
		return "", errEmptyResponse
	}
	return out, nil
}
