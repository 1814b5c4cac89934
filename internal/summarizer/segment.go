package summarizer

import (
	"strings"
	"unicode"
)

func isTerminal(r rune) bool {
	switch r {
	case '.', '!', '?', '…':
		return true
	}
	return false
}

// splitParts cuts text at whitespace runs that follow terminal punctuation
// and at blank lines. Parts are trimmed; empty parts are dropped.
func splitParts(text string) []string {
	runes := []rune(text)
	var parts []string
	flush := func(seg []rune) {
		if s := strings.TrimSpace(string(seg)); s != "" {
			parts = append(parts, s)
		}
	}

	start := 0
	for i := 0; i < len(runes); {
		if !unicode.IsSpace(runes[i]) {
			i++
			continue
		}
		j, newlines := i, 0
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			if runes[j] == '\n' {
				newlines++
			}
			j++
		}
		if (i > 0 && isTerminal(runes[i-1])) || newlines >= 2 {
			flush(runes[start:i])
			start = j
		}
		i = j
	}
	flush(runes[start:])
	return parts
}

// mergeShort folds fragments into the preceding buffer while the buffer is
// under 40 runes, or under 80 runes without terminal punctuation.
func mergeShort(parts []string) []string {
	var merged []string
	buf := ""
	for _, p := range parts {
		if buf == "" {
			buf = p
			continue
		}
		n := runeLen(buf)
		last, _ := lastRune(buf)
		if n < 40 || (!isTerminal(last) && n < 80) {
			buf = buf + " " + p
			continue
		}
		merged = append(merged, buf)
		buf = p
	}
	if buf != "" {
		merged = append(merged, buf)
	}
	return merged
}

func lastRune(s string) (rune, bool) {
	r := []rune(s)
	if len(r) == 0 {
		return 0, false
	}
	return r[len(r)-1], true
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !isWordRune(r)
	})
}

// qualifies reports whether a token carries enough information to be scored.
func qualifies(tok string) bool {
	if runeLen(tok) <= 2 {
		return false
	}
	if _, stop := stopwords[tok]; stop {
		return false
	}
	for _, r := range tok {
		if !unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
