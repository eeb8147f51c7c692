package cleaner

import "unicode/utf8"

// EstimateTokens gives a rough token count for logging how much a
// conversion shrank the payload: rune count divided by three, which sits
// between typical English (~4 chars/token) and CJK (~1.5 chars/token).
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return max(n/3, 1)
}
