package summarizer_test

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"note-summary-service/internal/summarizer"
)

const (
	weather   = "Weather today looks cloudy across northern regions overall."
	rocket    = "Rocket launch rocket launch rocket launch rocket launch today."
	gardening = "Gardening requires patience, water, sunlight, and good soil."
)

func limits(maxChars, maxSentences int) summarizer.Limits {
	l := summarizer.DefaultLimits()
	l.MaxChars = maxChars
	l.MaxSentences = maxSentences
	return l
}

func TestExtractive_HelloWorld(t *testing.T) {
	in := "Hello world. This is a long note for summary."
	got := summarizer.NewExtractive(summarizer.DefaultLimits()).Summary(in)
	if got != in {
		t.Fatalf("expected %q, got %q", in, got)
	}
}

func TestExtractive_Empty(t *testing.T) {
	s := summarizer.NewExtractive(summarizer.DefaultLimits())
	for _, in := range []string{"", "   ", "\n\t\n"} {
		if got := s.Summary(in); got != "" {
			t.Fatalf("expected empty summary for %q, got %q", in, got)
		}
	}
}

func TestExtractive_StopwordsOnly_NotEmpty(t *testing.T) {
	s := summarizer.NewExtractive(summarizer.DefaultLimits())

	in := "2024 2025 the a of"
	if got := s.Summary(in); got != in {
		t.Fatalf("expected %q, got %q", in, got)
	}

	in = "The a of it. 2024 2025 and the. To be or not to be."
	if got := s.Summary(in); got != in {
		t.Fatalf("expected greedy fallback to keep %q, got %q", in, got)
	}
}

func TestExtractive_GreedyRespectsLimits(t *testing.T) {
	long := strings.Repeat("the ", 15) + "it."
	in := long + " " + long + " " + long
	s := summarizer.NewExtractive(limits(130, 2))

	got := s.Summary(in)
	if got != long+" "+long {
		t.Fatalf("expected first two sentences, got %q", got)
	}
}

func TestExtractive_SelectsTopAndKeepsOrder(t *testing.T) {
	in := weather + " " + rocket + " " + gardening

	got := summarizer.NewExtractive(limits(300, 1)).Summary(in)
	if got != rocket {
		t.Fatalf("expected highest scoring sentence %q, got %q", rocket, got)
	}

	got = summarizer.NewExtractive(limits(300, 2)).Summary(in)
	if want := weather + " " + rocket; got != want {
		t.Fatalf("expected document order %q, got %q", want, got)
	}

	got = summarizer.NewExtractive(limits(300, 3)).Summary(in)
	if got != in {
		t.Fatalf("expected all sentences, got %q", got)
	}
}

func TestExtractive_TieBreaksByPosition(t *testing.T) {
	first := "Apples grow on trees in orchards everywhere nearby."
	second := "Pears grow on trees in orchards everywhere nearby."

	got := summarizer.NewExtractive(limits(300, 1)).Summary(first + " " + second)
	if got != first {
		t.Fatalf("expected earlier sentence on tie, got %q", got)
	}
}

func TestExtractive_Truncates(t *testing.T) {
	in := weather + " " + rocket + " " + gardening

	for _, maxChars := range []int{1, 2, 10, 40, 100} {
		got := summarizer.NewExtractive(limits(maxChars, 3)).Summary(in)
		if n := utf8.RuneCountInString(got); n > maxChars {
			t.Fatalf("max_chars=%d: summary has %d runes: %q", maxChars, n, got)
		}
		if !strings.HasSuffix(got, "…") {
			t.Fatalf("max_chars=%d: expected ellipsis, got %q", maxChars, got)
		}
	}
}

func TestExtractive_NoBoundaryTruncated(t *testing.T) {
	in := strings.Repeat("word ", 100)
	got := summarizer.NewExtractive(limits(50, 3)).Summary(in)
	if n := utf8.RuneCountInString(got); n > 50 {
		t.Fatalf("expected at most 50 runes, got %d", n)
	}
	if !strings.HasPrefix(got, "word word") || !strings.HasSuffix(got, "…") {
		t.Fatalf("unexpected summary %q", got)
	}
}

func TestExtractive_Properties(t *testing.T) {
	inputs := []string{
		weather + " " + rocket + " " + gardening,
		"Kısa bir not. Bu not çok uzun değil ama yine de özetlenmesi gereken bilgiler içeriyor. Toplantı yarın saat onda yapılacak ve herkes katılmalı.",
		"Line one without end\n\nLine two without end\n\nLine three! Line four? Line five…",
		strings.Repeat("Distributed systems need careful retries. ", 30),
	}
	s := summarizer.NewExtractive(summarizer.DefaultLimits())

	for _, in := range inputs {
		got := s.Summary(in)
		if got == "" {
			t.Fatalf("empty summary for non-empty input %q", in)
		}
		if n := utf8.RuneCountInString(got); n > summarizer.DefaultMaxChars {
			t.Fatalf("summary exceeds max chars (%d): %q", n, got)
		}
		if again := s.Summary(in); again != got {
			t.Fatalf("summary is not deterministic: %q vs %q", got, again)
		}
	}
}

func TestExtractive_SummarizeNeverErrors(t *testing.T) {
	s := summarizer.NewExtractive(summarizer.DefaultLimits())
	got, err := s.Summarize(context.Background(), "Hello world. This is a long note for summary.")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if got == "" {
		t.Fatal("expected summary")
	}
}
