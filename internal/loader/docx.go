package loader

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kailas-cloud/ragchat/internal/domain"
)

const docxBody = "word/document.xml"

// DOCX extracts paragraph text from Office Open XML word documents.
type DOCX struct {
	maxBytes int64
}

// NewDOCX creates a DOCX loader. maxBytes bounds the uncompressed document part.
func NewDOCX(maxBytes int64) *DOCX {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &DOCX{maxBytes: maxBytes}
}

// Load returns the document as one section with paragraphs separated by blank lines.
func (l *DOCX) Load(ctx context.Context, path string) ([]Section, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: docx is not a zip archive: %w", domain.ErrParse, err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != docxBody {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: open %s: %w", domain.ErrParse, docxBody, err)
		}
		defer rc.Close()

		text, err := paragraphs(ctx, io.LimitReader(rc, l.maxBytes))
		if err != nil {
			return nil, err
		}
		return []Section{{Text: text}}, nil
	}
	return nil, fmt.Errorf("%w: %s missing", domain.ErrParse, docxBody)
}

// paragraphs walks WordprocessingML tokens collecting w:t runs per w:p.
func paragraphs(ctx context.Context, r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var (
		out    []string
		para   strings.Builder
		inText bool
	)
	for {
		if err := ctx.Err(); err != nil {
			return "", err //nolint:wrapcheck // context error
		}
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: %s: %w", domain.ErrParse, docxBody, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				para.WriteByte('\t')
			case "br", "cr":
				para.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if s := strings.TrimSpace(para.String()); s != "" {
					out = append(out, s)
				}
				para.Reset()
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		}
	}
	return strings.Join(out, "\n\n"), nil
}
