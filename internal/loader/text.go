package loader

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/unicode/norm"

	"github.com/kailas-cloud/ragchat/internal/domain"
)

// DefaultMaxBytes bounds how much of a file a loader reads.
const DefaultMaxBytes = 32 << 20

// Text loads plain text in any encoding the charset sniffer recognizes.
type Text struct {
	maxBytes int64
}

// NewText creates a plain text loader. maxBytes <= 0 selects DefaultMaxBytes.
func NewText(maxBytes int64) *Text {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Text{maxBytes: maxBytes}
}

// Load reads path as a single section. Binary content is rejected.
func (l *Text) Load(ctx context.Context, path string) ([]Section, error) {
	raw, err := readLimited(path, l.maxBytes)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err //nolint:wrapcheck // context error
	}

	text, err := decodeText(raw)
	if err != nil {
		return nil, err
	}
	return []Section{{Text: text}}, nil
}

// decodeText sniffs raw and converts it to NFC-normalized UTF-8.
func decodeText(raw []byte) (string, error) {
	mt := mimetype.Detect(raw)
	if !isText(mt) {
		return "", fmt.Errorf("%w: binary content (%s)", domain.ErrParse, mt.String())
	}

	enc, name, _ := charset.DetermineEncoding(raw, mt.String())
	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("%w: decode %s: %w", domain.ErrParse, name, err)
	}
	return norm.NFC.String(strings.TrimPrefix(string(decoded), "\uFEFF")), nil
}

func isText(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}

func readLimited(path string, maxBytes int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", domain.ErrStorage, path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrStorage, path, err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", domain.ErrParse, maxBytes)
	}
	return data, nil
}
