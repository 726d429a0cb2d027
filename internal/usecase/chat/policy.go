package chat

import (
	"strings"
	"unicode/utf8"
)

// Defaults for the retrieval policy.
const DefaultMinChars = 16

// DefaultKeywords trigger retrieval for short queries.
var DefaultKeywords = []string{"document", "material", "file", "report", "文档", "资料", "文件", "报告"}

// Policy decides whether a message is worth a knowledge base lookup.
type Policy struct {
	minChars int
	keywords []string
}

// NewPolicy creates a policy. minChars <= 0 and an empty keyword list select the defaults.
func NewPolicy(minChars int, keywords []string) Policy {
	if minChars <= 0 {
		minChars = DefaultMinChars
	}
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	lower := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			lower = append(lower, k)
		}
	}
	return Policy{minChars: minChars, keywords: lower}
}

// ShouldRetrieve reports true for queries of at least minChars runes after trimming,
// or for shorter ones mentioning any keyword.
func (p Policy) ShouldRetrieve(query string) bool {
	q := strings.TrimSpace(query)
	if utf8.RuneCountInString(q) >= p.minChars {
		return true
	}
	q = strings.ToLower(q)
	for _, k := range p.keywords {
		if strings.Contains(q, k) {
			return true
		}
	}
	return false
}
