// Package tokenizer counts tokens of prompt contexts for run traces.
package tokenizer

import (
	"unicode"
)

// Counter counts tokens in text. Implementations are safe for concurrent use.
type Counter interface {
	CountTokens(text string) int
}

// Simple approximates BPE token counts without a vocabulary: letter and digit
// runs count as one token, every other non-space rune counts as one.
type Simple struct{}

var _ Counter = Simple{}

// CountTokens implements Counter.
func (Simple) CountTokens(text string) int {
	count := 0
	inWord := false
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			inWord = false
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if !inWord {
				count++
				inWord = true
			}
		default:
			count++
			inWord = false
		}
	}
	return count
}

// Fallback returns primary when it loaded, otherwise Simple.
func Fallback(primary Counter, err error) Counter {
	if err != nil || primary == nil {
		return Simple{}
	}
	return primary
}
