// Package ingest runs the background pipeline that turns saved links
// into archived, readable content.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/felipesantoos/read-it-later-backend/internal/extract"
	"github.com/felipesantoos/read-it-later-backend/internal/observability"
	"github.com/felipesantoos/read-it-later-backend/internal/page"
)

// Extractor produces a metadata record for a URL.
type Extractor interface {
	ExtractFromURL(ctx context.Context, rawurl string, useCache bool) (extract.Metadata, error)
}

// LinkStore is the persistence surface the processor needs.
type LinkStore interface {
	LookupLink(ctx context.Context, id uuid.UUID) (Link, error)
	PersistResult(ctx context.Context, linkID uuid.UUID, meta extract.Metadata, lang string) error
}

// Processor ties together extraction, language detection, and persistence.
type Processor struct {
	store     LinkStore
	extractor Extractor
	metrics   *observability.Metrics
}

// NewProcessor constructs a Processor. metrics may be nil.
func NewProcessor(store LinkStore, extractor Extractor, metrics *observability.Metrics) *Processor {
	return &Processor{store: store, extractor: extractor, metrics: metrics}
}

// Process executes the ingestion pipeline for a link identifier.
func (p *Processor) Process(ctx context.Context, linkID uuid.UUID) error {
	link, err := p.store.LookupLink(ctx, linkID)
	if err != nil {
		return fmt.Errorf("lookup link: %w", err)
	}

	meta, err := p.extractor.ExtractFromURL(ctx, link.URL, true)
	if err != nil {
		// Only syntactically invalid URLs error out; nothing to retry.
		return fmt.Errorf("extract %s: %w", link.URL, err)
	}

	lang := p.detectLanguage(meta.Content)

	persistStart := time.Now()
	if err := p.store.PersistResult(ctx, linkID, meta, lang); err != nil {
		return fmt.Errorf("persist: %w", err)
	}
	if p.metrics != nil {
		p.metrics.PersistLatency.Observe(time.Since(persistStart).Seconds())
	}
	return nil
}

func (p *Processor) detectLanguage(content string) string {
	text := content
	if page.LooksLikeHTML(content) {
		text = page.PlainText(content)
	}
	lang := DetectLanguage(text)
	if p.metrics == nil {
		return lang
	}
	if lang == "" {
		p.metrics.LangDetectErrors.Inc()
	} else {
		p.metrics.LangDetect.WithLabelValues(lang).Inc()
	}
	return lang
}
