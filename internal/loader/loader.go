// Package loader turns stored uploads into plain text sections.
package loader

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kailas-cloud/ragchat/internal/domain"
)

// Section is a run of text with its 1-based page, or page 0 when the format has no pages.
type Section struct {
	Text string
	Page int
}

// Loader reads a file into sections. Content it cannot interpret yields domain.ErrParse.
type Loader interface {
	Load(ctx context.Context, path string) ([]Section, error)
}

// Func adapts a function to Loader.
type Func func(ctx context.Context, path string) ([]Section, error)

// Load calls f.
func (f Func) Load(ctx context.Context, path string) ([]Section, error) { return f(ctx, path) }

// Registry dispatches by lowercase file extension and falls back to a default loader.
type Registry struct {
	byExt    map[string]Loader
	fallback Loader
}

// NewRegistry creates an empty registry that uses fallback for unknown extensions.
func NewRegistry(fallback Loader) *Registry {
	return &Registry{byExt: make(map[string]Loader), fallback: fallback}
}

// Register binds one or more extensions (with or without the dot) to l.
func (r *Registry) Register(l Loader, exts ...string) *Registry {
	for _, e := range exts {
		r.byExt[normalizeExt(e)] = l
	}
	return r
}

// For returns the loader for path.
func (r *Registry) For(path string) Loader {
	if l, ok := r.byExt[normalizeExt(filepath.Ext(path))]; ok {
		return l
	}
	return r.fallback
}

// Load dispatches path to its loader.
func (r *Registry) Load(ctx context.Context, path string) ([]Section, error) {
	return r.For(path).Load(ctx, path) //nolint:wrapcheck // loaders wrap their own errors
}

// Default returns the registry used by the server: text formats, DOCX and PDF,
// with known binary office and image formats rejected up front.
func Default(maxBytes int64) *Registry {
	text := NewText(maxBytes)
	return NewRegistry(text).
		Register(text, ".txt", ".md", ".markdown", ".csv", ".log", ".json", ".yaml", ".yml").
		Register(NewDOCX(maxBytes), ".docx").
		Register(NewPDF(), ".pdf").
		Register(Unsupported(), ".doc", ".xls", ".xlsx", ".ppt", ".pptx",
			".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tiff", ".webp", ".zip")
}

// Unsupported rejects every file with domain.ErrParse.
func Unsupported() Loader {
	return Func(func(_ context.Context, path string) ([]Section, error) {
		return nil, fmt.Errorf("%w: unsupported format %q", domain.ErrParse, filepath.Ext(path))
	})
}

func normalizeExt(e string) string {
	e = strings.ToLower(strings.TrimSpace(e))
	if e != "" && !strings.HasPrefix(e, ".") {
		e = "." + e
	}
	return e
}
