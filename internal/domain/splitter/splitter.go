// Package splitter cuts normalized document text into overlapping, size-bounded chunks.
package splitter

import (
	"fmt"
	"maps"
	"strings"
	"unicode/utf8"
)

// Defaults used when configuration leaves chunking unset.
const (
	DefaultChunkSize    = 800
	DefaultChunkOverlap = 120
)

// separators are tried coarsest first. "" is terminal: text reaching it is emitted whole.
var separators = []string{"\n\n", "\n", ". ", " ", ""}

// Piece is one emitted chunk with a private copy of the source metadata.
type Piece struct {
	Content  string
	Metadata map[string]string
}

// Splitter is stateless after construction and safe for concurrent use.
type Splitter struct {
	size    int
	overlap int
}

// New creates a Splitter. Sizes are measured in characters.
func New(size, overlap int) (*Splitter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", size, overlap)
	}
	return &Splitter{size: size, overlap: overlap}, nil
}

// Size returns the configured maximum chunk length.
func (s *Splitter) Size() int { return s.size }

// Overlap returns the configured overlap.
func (s *Splitter) Overlap() int { return s.overlap }

// Split returns the chunks of text in document order. Blank text yields nil.
func (s *Splitter) Split(text string, metadata map[string]string) []Piece {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	contents := s.split(text, separators)
	pieces := make([]Piece, 0, len(contents))
	for _, c := range contents {
		pieces = append(pieces, Piece{Content: c, Metadata: maps.Clone(metadata)})
	}
	return pieces
}

func (s *Splitter) split(text string, seps []string) []string {
	sep, rest := pickSeparator(text, seps)
	if sep == "" {
		if t := strings.TrimSpace(text); t != "" {
			return []string{t}
		}
		return nil
	}

	var out, fitting []string
	for _, part := range strings.Split(text, sep) {
		if part == "" {
			continue
		}
		if runeLen(part) < s.size {
			fitting = append(fitting, part)
			continue
		}
		if len(fitting) > 0 {
			out = append(out, s.merge(fitting, sep)...)
			fitting = nil
		}
		out = append(out, s.split(part, rest)...)
	}
	if len(fitting) > 0 {
		out = append(out, s.merge(fitting, sep)...)
	}
	return out
}

// pickSeparator returns the first separator present in text and the finer ones after it.
func pickSeparator(text string, seps []string) (string, []string) {
	for i, sep := range seps {
		if sep == "" || strings.Contains(text, sep) {
			return sep, seps[i+1:]
		}
	}
	return "", nil
}

// merge packs parts greedily into chunks of at most s.size characters. Each new chunk
// starts with the trailing parts of the previous one, up to s.overlap characters.
func (s *Splitter) merge(parts []string, sep string) []string {
	sepLen := runeLen(sep)
	var (
		out     []string
		window  []string
		lengths []int
		total   int
	)

	joined := func(n int) int {
		if n > 0 {
			return sepLen
		}
		return 0
	}

	for _, p := range parts {
		l := runeLen(p)
		if total+l+joined(len(window)) > s.size && len(window) > 0 {
			if doc := strings.TrimSpace(strings.Join(window, sep)); doc != "" {
				out = append(out, doc)
			}
			for total > s.overlap || (total > 0 && total+l+joined(len(window)) > s.size) {
				total -= lengths[0] + joined(len(window)-1)
				window, lengths = window[1:], lengths[1:]
			}
		}
		total += l + joined(len(window))
		window = append(window, p)
		lengths = append(lengths, l)
	}

	if doc := strings.TrimSpace(strings.Join(window, sep)); doc != "" {
		out = append(out, doc)
	}
	return out
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }
