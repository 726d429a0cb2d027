package chat

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/ragchat/internal/domain/chunk"
)

// SnippetRunes is how much of each chunk a bullet quotes.
const SnippetRunes = 160

const (
	answerHeader  = "Here is what I found in your documents about %q:"
	answerClosing = "Ask a follow-up question to dig deeper into any of these sources."
	fallbackText  = "I could not find matching content for %q because no documents have been uploaded yet " +
		"or none of them cover it. Upload relevant material such as a report or notes and ask again. " +
		"Until then I can only answer in general terms."
)

// Compose renders the answer for query over hits, in the given order.
func Compose(query string, hits []chunk.Chunk) string {
	query = strings.TrimSpace(query)
	if len(hits) == 0 {
		return fmt.Sprintf(fallbackText, query)
	}

	var b strings.Builder
	fmt.Fprintf(&b, answerHeader, query)
	for i := range hits {
		b.WriteString("\n- from «")
		b.WriteString(hits[i].Source())
		b.WriteString("»: ")
		b.WriteString(snippet(hits[i].Content()))
	}
	b.WriteString("\n")
	b.WriteString(answerClosing)
	return b.String()
}

// snippet returns the first SnippetRunes runes of s on a single line.
func snippet(s string) string {
	runes := []rune(s)
	if len(runes) > SnippetRunes {
		runes = runes[:SnippetRunes]
	}
	for i, r := range runes {
		if r == '\n' || r == '\r' || r == '\t' {
			runes[i] = ' '
		}
	}
	return strings.TrimSpace(string(runes))
}
