// Package classify maps URLs and uploaded files to logical content
// categories and gates uploads against the allowed file types.
package classify

import (
	"path/filepath"
	"strings"
)

// ContentType is the logical category assigned to an ingested item.
type ContentType string

// The fixed set of content categories.
const (
	Article    ContentType = "article"
	Blog       ContentType = "blog"
	PDF        ContentType = "pdf"
	YouTube    ContentType = "youtube"
	Twitter    ContentType = "twitter"
	Newsletter ContentType = "newsletter"
	Book       ContentType = "book"
	Ebook      ContentType = "ebook"
)

// mimeCategories maps exact MIME types to categories. Checked before the
// extension table.
var mimeCategories = map[string]ContentType{
	"application/pdf":      PDF,
	"application/epub+zip": Ebook,
	"application/msword":   Book,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": Book,
	"text/markdown":   Article,
	"text/x-markdown": Article,
	"text/html":       Article,
	"text/plain":      Article,
}

// extCategories maps lowercased file extensions to categories. Used when the
// MIME type is absent or unrecognized.
var extCategories = map[string]ContentType{
	".pdf":      PDF,
	".epub":     Ebook,
	".docx":     Book,
	".doc":      Book,
	".md":       Article,
	".markdown": Article,
	".html":     Article,
	".htm":      Article,
	".txt":      Article,
}

// URL classifies a URL string by substring matching in priority order.
func URL(rawurl string) ContentType {
	lower := strings.ToLower(rawurl)
	switch {
	case strings.Contains(lower, "youtube.com"), strings.Contains(lower, "youtu.be"):
		return YouTube
	case strings.Contains(lower, "twitter.com"), strings.Contains(lower, "x.com"):
		return Twitter
	case strings.HasSuffix(lower, ".pdf"):
		return PDF
	case strings.Contains(lower, "newsletter"), strings.Contains(lower, "substack"):
		return Newsletter
	default:
		return Article
	}
}

// File classifies an uploaded file by MIME type first, then extension.
// Unknown inputs default to Article.
func File(fileName, mimeType string) ContentType {
	if mimeType != "" {
		if ct, ok := mimeCategories[normalizeMime(mimeType)]; ok {
			return ct
		}
	}
	if ct, ok := extCategories[strings.ToLower(filepath.Ext(fileName))]; ok {
		return ct
	}
	return Article
}

// IsAllowedFileType reports whether an upload passes the allow-list gate.
// A file is rejected when both its MIME type and its extension fall outside
// the allowed set. Callers must check this before parsing.
func IsAllowedFileType(fileName, mimeType string) bool {
	if mimeType != "" {
		if _, ok := mimeCategories[normalizeMime(mimeType)]; ok {
			return true
		}
	}
	_, ok := extCategories[strings.ToLower(filepath.Ext(fileName))]
	return ok
}

// normalizeMime strips parameters such as "; charset=utf-8".
func normalizeMime(mimeType string) string {
	if idx := strings.IndexByte(mimeType, ';'); idx >= 0 {
		mimeType = mimeType[:idx]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}
