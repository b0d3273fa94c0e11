package services

import (
	"strings"
	"unicode/utf8"
)

const ellipsis = "…"

// truncatePrefix collapses whitespace and cuts text to at most maxChars runes,
// preferring a word boundary in the second half of the budget.
func truncatePrefix(text string, maxChars int) string {
	text = strings.Join(strings.Fields(text), " ")
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return text
	}

	budget := maxChars - utf8.RuneCountInString(ellipsis)
	if budget < 1 {
		budget = 1
	}
	cut := text
	n := 0
	for i := range text {
		if n == budget {
			cut = text[:i]
			break
		}
		n++
	}
	if len(cut) < len(text) && text[len(cut)] != ' ' {
		if sp := strings.LastIndexByte(cut, ' '); sp > len(cut)/2 {
			cut = cut[:sp]
		}
	}
	return strings.TrimRight(cut, " ,;:") + ellipsis
}
