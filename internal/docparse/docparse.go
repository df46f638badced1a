// Package docparse extracts text and embedded metadata from uploaded
// documents: PDF, EPUB, DOCX, Markdown, and plain text.
package docparse

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/felipesantoos/read-it-later-backend/internal/classify"
)

// Document is the parsed form of an uploaded file.
type Document struct {
	// Content is extracted plain text, or markup when IsHTML is set.
	Content string
	IsHTML  bool
	// Pages is the page count (PDF) or chapter count (EPUB); zero when
	// the format has no such notion.
	Pages int
	// Embedded document metadata, empty when the format carries none.
	Title       string
	Author      string
	Description string
}

// Parse dispatches a file buffer to the parser for its category. Callers
// are expected to have already classified the file and passed the
// allow-list gate; parse failures surface as errors for the caller's
// degrade path.
func Parse(buf []byte, fileName string, category classify.ContentType) (Document, error) {
	switch category {
	case classify.PDF:
		return ParsePDF(buf)
	case classify.Ebook:
		return ParseEPUB(buf)
	case classify.Book:
		return ParseDOCX(buf)
	}

	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".md", ".markdown":
		return RenderMarkdown(buf)
	case ".html", ".htm":
		return Document{Content: string(buf), IsHTML: true}, nil
	default:
		// Plain text and anything unknown within a recognized category
		// passes through as raw text.
		return Document{Content: string(buf)}, nil
	}
}

// BaseName returns the file name without directory or extension, the
// fallback title for degraded parses.
func BaseName(fileName string) string {
	base := filepath.Base(fileName)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func wrapParseErr(format string, err error) error {
	return fmt.Errorf("parse %s: %w", format, err)
}
