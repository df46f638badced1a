// Package extract orchestrates the content ingestion pipeline: it turns a
// URL or an uploaded document into a normalized metadata record.
package extract

import (
	"errors"

	"github.com/felipesantoos/read-it-later-backend/internal/classify"
)

// ErrInvalidURL is returned by ExtractFromURL for syntactically invalid
// URLs, before any network activity. It is the only error URL extraction
// surfaces; every downstream failure degrades to a minimal record instead.
var ErrInvalidURL = errors.New("invalid url")

// wordsPerMinute drives the reading time estimate.
const wordsPerMinute = 200

// Metadata is the normalized output record of an extraction. ContentType
// is always set, even when everything else failed. Optional string fields
// use "" for absent; optional numeric fields use nil.
type Metadata struct {
	ContentType   classify.ContentType `json:"contentType"`
	Title         string               `json:"title,omitempty"`
	Description   string               `json:"description,omitempty"`
	Favicon       string               `json:"favicon,omitempty"`
	CoverImage    string               `json:"coverImage,omitempty"`
	SiteName      string               `json:"siteName,omitempty"`
	Content       string               `json:"content"`
	WordCount     *int                 `json:"wordCount,omitempty"`
	ReadingTime   *int                 `json:"readingTime,omitempty"`
	TotalPages    *int                 `json:"totalPages,omitempty"`
	Author        string               `json:"author,omitempty"`
	PublishedDate string               `json:"publishedDate,omitempty"`
	Images        []string             `json:"images,omitempty"`
}

// setReadingStats fills word count and reading time together; the two
// fields are never set independently.
func (m *Metadata) setReadingStats(words int) {
	seconds := readingTimeSeconds(words)
	m.WordCount = &words
	m.ReadingTime = &seconds
}

// setTotalPages records a page or chapter count, but only for categories
// where the notion is meaningful.
func (m *Metadata) setTotalPages(pages int) {
	switch m.ContentType {
	case classify.PDF, classify.Book, classify.Ebook:
		if pages > 0 {
			m.TotalPages = &pages
		}
	}
}

// readingTimeSeconds is ceil(words / wordsPerMinute) minutes in seconds.
func readingTimeSeconds(words int) int {
	return (words*60 + wordsPerMinute - 1) / wordsPerMinute
}

// minimalMetadata is the degraded fallback record: category plus a
// hostname- or filename-derived title.
func minimalMetadata(ct classify.ContentType, title string) Metadata {
	return Metadata{ContentType: ct, Title: title}
}
