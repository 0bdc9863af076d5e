// Package tokenizer provides the approximate token counting used by the
// dynamic retrieval-breadth heuristic.
package tokenizer

import "regexp"

var tokenRe = regexp.MustCompile(`\w+|[^\s\w]`)

// CountTokens returns an approximate token count: words and standalone
// punctuation each count as one token.
func CountTokens(text string) int {
	return len(tokenRe.FindAllString(text, -1))
}
