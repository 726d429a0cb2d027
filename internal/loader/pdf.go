package loader

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/kailas-cloud/ragchat/internal/domain"
)

// PDF loads one section per page with extractable text. Scanned pages come out empty.
type PDF struct {
	conf *model.Configuration
}

// NewPDF creates a PDF loader with relaxed validation.
func NewPDF() *PDF {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &PDF{conf: conf}
}

// Load reads every page of path. A file without any extractable text is a parse error.
func (l *PDF) Load(ctx context.Context, path string) (sections []Section, err error) {
	// both libraries panic on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			sections, err = nil, fmt.Errorf("%w: pdf: %v", domain.ErrParse, r)
		}
	}()

	if err := l.validate(path); err != nil {
		return nil, err
	}

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: pdf: %w", domain.ErrParse, err)
	}
	defer f.Close()

	for n := 1; n <= r.NumPage(); n++ {
		if err := ctx.Err(); err != nil {
			return nil, err //nolint:wrapcheck // context error
		}
		page := r.Page(n)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: pdf page %d: %w", domain.ErrParse, n, err)
		}
		if text = strings.TrimSpace(text); text != "" {
			sections = append(sections, Section{Text: text, Page: n})
		}
	}
	if len(sections) == 0 {
		return nil, fmt.Errorf("%w: pdf has no extractable text", domain.ErrParse)
	}
	return sections, nil
}

// validate rejects files pdfcpu cannot read even in relaxed mode, such as encrypted ones.
func (l *PDF) validate(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", domain.ErrStorage, path, err)
	}
	defer f.Close()

	if err := api.Validate(f, l.conf); err != nil {
		return fmt.Errorf("%w: pdf: %w", domain.ErrParse, err)
	}
	return nil
}
