package summarizer

import (
	"context"
	"sort"
	"strings"
)

// Extractive selects the highest scoring sentences of the input and returns
// them in document order. It is deterministic and performs no I/O.
type Extractive struct {
	limits Limits
}

func NewExtractive(limits Limits) *Extractive {
	return &Extractive{limits: limits}
}

func (e *Extractive) Summarize(_ context.Context, text string) (string, error) {
	return e.Summary(text), nil
}

type scoredSentence struct {
	idx   int
	score float64
}

// Summary is the context-free form of Summarize.
func (e *Extractive) Summary(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	maxChars := e.limits.MaxChars

	parts := splitParts(text)
	if len(parts) <= 1 {
		return truncate(text, maxChars)
	}
	sents := mergeShort(parts)

	freqs := make(map[string]int)
	maxFreq := 0
	for _, tok := range tokenize(text) {
		if !qualifies(tok) {
			continue
		}
		freqs[tok]++
		if freqs[tok] > maxFreq {
			maxFreq = freqs[tok]
		}
	}
	if len(freqs) == 0 {
		return e.greedy(sents)
	}

	scored := make([]scoredSentence, len(sents))
	for i, s := range sents {
		var score float64
		for _, tok := range tokenize(s) {
			if !qualifies(tok) {
				continue
			}
			score += float64(freqs[tok]) / float64(maxFreq)
		}
		if runeLen(s) < e.limits.MinSentenceChars {
			score *= 0.8
		}
		scored[i] = scoredSentence{idx: i, score: score}
	}

	// Stable sort keeps the lower index first on equal scores.
	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].score > scored[b].score
	})
	if len(scored) > e.limits.MaxSentences {
		scored = scored[:e.limits.MaxSentences]
	}
	sort.Slice(scored, func(a, b int) bool {
		return scored[a].idx < scored[b].idx
	})

	chosen := make([]string, 0, len(scored))
	for _, s := range scored {
		chosen = append(chosen, sents[s.idx])
	}
	return truncate(strings.Join(chosen, " "), maxChars)
}

// greedy packs leading sentences in order until either limit is reached.
// The first sentence is always taken so non-empty input never yields "".
func (e *Extractive) greedy(sents []string) string {
	var out []string
	total := 0
	for _, s := range sents {
		n := runeLen(s)
		if total > 0 && total+1+n > e.limits.MaxChars {
			break
		}
		out = append(out, s)
		if total > 0 {
			total++
		}
		total += n
		if len(out) >= e.limits.MaxSentences {
			break
		}
	}
	return truncate(strings.Join(out, " "), e.limits.MaxChars)
}
