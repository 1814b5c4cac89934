package summarizer_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"note-summary-service/internal/summarizer"
)

const note = "Weather today looks cloudy across northern regions overall. " +
	"Rocket launch rocket launch rocket launch rocket launch today. " +
	"Gardening requires patience, water, sunlight, and good soil."

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func extractiveOf(text string) string {
	return summarizer.NewExtractive(summarizer.DefaultLimits()).Summary(text)
}

func newOllama(url string, timeout time.Duration) *summarizer.Ollama {
	return summarizer.NewOllama(summarizer.OllamaConfig{
		Host:    url,
		Model:   "test-model",
		Timeout: timeout,
	}, summarizer.DefaultLimits(), quietLogger())
}

func TestOllama_UsesModelResponse(t *testing.T) {
	bodies := make(chan map[string]any, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		bodies <- body
		_, _ = w.Write([]byte(`{"response":"  Rockets launched today.  "}`))
	}))
	defer srv.Close()

	out, err := newOllama(srv.URL+"/", time.Second).Summarize(context.Background(), note)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if out != "Rockets launched today." {
		t.Fatalf("unexpected summary %q", out)
	}
	got := <-bodies
	if got["model"] != "test-model" || got["stream"] != false {
		t.Fatalf("unexpected request body %#v", got)
	}
	if !strings.Contains(got["prompt"].(string), "Rocket launch") {
		t.Fatalf("prompt must contain the note text, got %q", got["prompt"])
	}
}

func TestOllama_TruncatesLongResponse(t *testing.T) {
	long := strings.Repeat("x", 1000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"response": long})
	}))
	defer srv.Close()

	out, _ := newOllama(srv.URL, time.Second).Summarize(context.Background(), note)
	if n := len([]rune(out)); n > summarizer.DefaultMaxChars {
		t.Fatalf("expected at most %d runes, got %d", summarizer.DefaultMaxChars, n)
	}
}

func TestOllama_FallsBack(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
		},
		{
			name: "empty response",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"response":"   "}`))
			},
		},
		{
			name: "invalid json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`not json`))
			},
		},
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(2 * time.Second):
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			out, err := newOllama(srv.URL, 100*time.Millisecond).Summarize(context.Background(), note)
			if err != nil {
				t.Fatalf("fallback must not return an error, got %v", err)
			}
			if want := extractiveOf(note); out != want {
				t.Fatalf("expected extractive fallback %q, got %q", want, out)
			}
		})
	}
}

func TestOllama_UnreachableFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	out, err := newOllama(url, 200*time.Millisecond).Summarize(context.Background(), note)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if out != extractiveOf(note) {
		t.Fatalf("expected extractive fallback, got %q", out)
	}
}

func TestOllama_RateLimitWaitFallsBack(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"response":"model summary"}`))
	}))
	defer srv.Close()

	o := summarizer.NewOllama(summarizer.OllamaConfig{
		Host:          srv.URL,
		Timeout:       50 * time.Millisecond,
		RatePerSecond: 0.01,
	}, summarizer.DefaultLimits(), quietLogger())

	first, _ := o.Summarize(context.Background(), note)
	if first != "model summary" {
		t.Fatalf("expected model summary on first call, got %q", first)
	}
	second, err := o.Summarize(context.Background(), note)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if second != extractiveOf(note) {
		t.Fatalf("expected extractive fallback when rate limited, got %q", second)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("expected exactly one remote call, got %d", n)
	}
}

func TestOllama_EmptyInput(t *testing.T) {
	out, err := newOllama("http://127.0.0.1:1", time.Second).Summarize(context.Background(), "  ")
	if err != nil || out != "" {
		t.Fatalf("expected empty result, got %q, %v", out, err)
	}
}

func TestNew(t *testing.T) {
	s, err := summarizer.New(summarizer.Config{Limits: summarizer.DefaultLimits()}, quietLogger())
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if _, ok := s.(*summarizer.Extractive); !ok {
		t.Fatalf("expected extractive default, got %T", s)
	}

	s, err = summarizer.New(summarizer.Config{Provider: "OLLAMA", Limits: summarizer.DefaultLimits()}, quietLogger())
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if _, ok := s.(*summarizer.Ollama); !ok {
		t.Fatalf("expected ollama strategy, got %T", s)
	}

	if _, err := summarizer.New(summarizer.Config{Provider: "gpt", Limits: summarizer.DefaultLimits()}, nil); err == nil {
		t.Fatal("expected error for unknown provider")
	}
	bad := summarizer.DefaultLimits()
	bad.MaxSentences = 0
	if _, err := summarizer.New(summarizer.Config{Limits: bad}, nil); err == nil {
		t.Fatal("expected error for invalid limits")
	}
}
