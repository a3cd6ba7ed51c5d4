// Package match compares recognised speech with exercise text.
//
// The comparison is a lenient heuristic, not a precision scorer: it prefers
// false positives over rejecting a roughly correct attempt.
package match

import (
	"strings"
	"unicode"

	"github.com/verte-zerg/diktor/internal/model"
)

const stripped = ".,/#!$%^&*;:{}=-_`~()"

// prefixLen is the number of leading characters compared by the prefix rule.
// TODO: revisit the threshold once attempts with accuracy are recorded.
const prefixLen = 5

// Normalize lowercases s, drops punctuation and collapses runs of two or more
// whitespace characters into a single space. It does not trim.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = strings.Map(func(r rune) rune {
		if strings.ContainsRune(stripped, r) {
			return -1
		}
		return r
	}, s)
	return collapseSpaces(s)
}

func collapseSpaces(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(runes); {
		if !isSpace(runes[i]) {
			b.WriteRune(runes[i])
			i++
			continue
		}
		j := i
		for j < len(runes) && isSpace(runes[j]) {
			j++
		}
		if j-i >= 2 {
			b.WriteByte(' ')
		} else {
			b.WriteRune(runes[i])
		}
		i = j
	}
	return b.String()
}

// isSpace is the ECMAScript whitespace set: unicode.IsSpace without U+0085,
// plus the byte order mark U+FEFF.
func isSpace(r rune) bool {
	if r == '\uFEFF' {
		return true
	}
	return r != '\u0085' && unicode.IsSpace(r)
}

// Matches reports whether transcript is close enough to target.
func Matches(transcript, target string) bool {
	t := Normalize(transcript)
	e := Normalize(target)
	if strings.Contains(e, t) || strings.Contains(t, e) {
		return true
	}
	tr := []rune(t)
	return len(tr) > prefixLen && strings.HasPrefix(e, string(tr[:prefixLen]))
}

// Evaluate returns the feedback verdict for transcript against target.
func Evaluate(transcript, target string) model.Feedback {
	if Matches(transcript, target) {
		return model.FeedbackMatch
	}
	return model.FeedbackMismatch
}

// Words splits normalized text into words.
func Words(s string) []string {
	return strings.Fields(Normalize(s))
}
