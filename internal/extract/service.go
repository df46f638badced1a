package extract

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/felipesantoos/read-it-later-backend/internal/classify"
	"github.com/felipesantoos/read-it-later-backend/internal/docparse"
	"github.com/felipesantoos/read-it-later-backend/internal/fetch"
	"github.com/felipesantoos/read-it-later-backend/internal/observability"
	"github.com/felipesantoos/read-it-later-backend/internal/page"
)

// ResultCache stores extraction results keyed by the exact request URL.
// Implemented by cache.Results; defined here so the cache package can
// depend on Metadata without a cycle.
type ResultCache interface {
	Get(url string) (Metadata, bool)
	Set(url string, meta Metadata)
}

// FailureHook is invoked whenever a pipeline stage fails and the
// extraction degrades to a minimal record.
type FailureHook func(stage string, err error)

// Service runs extractions. All downstream failures degrade to minimal
// metadata; the only error the URL path returns is ErrInvalidURL.
type Service struct {
	fetcher *fetch.Fetcher
	cache   ResultCache
	logger  *log.Logger
	metrics *observability.Metrics

	wrapTokens     bool
	onFailure      FailureHook
	oembedEndpoint string
	oembedClient   *http.Client
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithTokenWrapping enables wrapping of text tokens in addressable spans
// in extracted HTML content.
func WithTokenWrapping(enabled bool) ServiceOption {
	return func(s *Service) { s.wrapTokens = enabled }
}

// WithFailureHook installs a callback fired on every degraded stage.
func WithFailureHook(hook FailureHook) ServiceOption {
	return func(s *Service) { s.onFailure = hook }
}

// WithOEmbedEndpoint overrides the YouTube oEmbed endpoint.
func WithOEmbedEndpoint(endpoint string) ServiceOption {
	return func(s *Service) { s.oembedEndpoint = endpoint }
}

// WithOEmbedTimeout overrides the oEmbed request timeout.
func WithOEmbedTimeout(d time.Duration) ServiceOption {
	return func(s *Service) { s.oembedClient.Timeout = d }
}

// NewService wires an extraction service. cache and metrics may be nil.
func NewService(fetcher *fetch.Fetcher, cache ResultCache, logger *log.Logger, metrics *observability.Metrics, opts ...ServiceOption) *Service {
	s := &Service{
		fetcher:        fetcher,
		cache:          cache,
		logger:         logger,
		metrics:        metrics,
		oembedEndpoint: defaultOEmbedEndpoint,
		oembedClient:   &http.Client{Timeout: defaultOEmbedTimeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ExtractFromURL fetches and extracts metadata for a URL. Invalid URLs
// fail fast with ErrInvalidURL before any network activity; every other
// failure is absorbed into a minimal record.
func (s *Service) ExtractFromURL(ctx context.Context, rawurl string, useCache bool) (Metadata, error) {
	u, err := url.ParseRequestURI(rawurl)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Metadata{}, ErrInvalidURL
	}

	ct := classify.URL(rawurl)

	if useCache && s.cache != nil {
		if meta, ok := s.cache.Get(rawurl); ok {
			if s.metrics != nil {
				s.metrics.CacheHits.Inc()
			}
			return meta, nil
		}
	}
	if s.metrics != nil {
		s.metrics.CacheMisses.Inc()
	}

	var (
		meta     Metadata
		degraded bool
	)
	switch ct {
	case classify.YouTube:
		meta, degraded = s.extractYouTube(ctx, rawurl)
	case classify.Twitter:
		meta, degraded = s.extractTwitter(ctx, rawurl)
	default:
		meta, degraded = s.extractPage(ctx, rawurl, ct)
	}

	if !degraded && s.cache != nil {
		s.cache.Set(rawurl, meta)
	}
	return meta, nil
}

// ExtractFromFile parses an already-uploaded document buffer. Like the
// URL path it never fails: unparseable files yield a minimal record with
// the base file name as title.
func (s *Service) ExtractFromFile(buf []byte, fileName, mimeType string) Metadata {
	ct := classify.File(fileName, mimeType)

	start := time.Now()
	doc, err := docparse.Parse(buf, fileName, ct)
	if s.metrics != nil {
		s.metrics.ParseLatency.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		if s.metrics != nil {
			s.metrics.FileParses.WithLabelValues(string(ct), "failure").Inc()
		}
		s.fail("parse", err)
		return minimalMetadata(ct, docparse.BaseName(fileName))
	}
	if s.metrics != nil {
		s.metrics.FileParses.WithLabelValues(string(ct), "success").Inc()
	}

	meta := Metadata{
		ContentType: ct,
		Title:       doc.Title,
		Description: doc.Description,
		Author:      doc.Author,
	}
	if meta.Title == "" {
		meta.Title = docparse.BaseName(fileName)
	}

	text := doc.Content
	if doc.IsHTML {
		content := page.Sanitize(doc.Content)
		if s.wrapTokens {
			content = page.WrapTokens(content)
		}
		meta.Content = content
		meta.Images = page.CollectImages(content)
		text = page.PlainText(content)
	} else {
		meta.Content = doc.Content
	}

	meta.setReadingStats(countWords(text))
	meta.setTotalPages(doc.Pages)
	return meta
}

// extractPage runs the generic fetch/parse pipeline for web pages and
// directly linked documents.
func (s *Service) extractPage(ctx context.Context, rawurl string, ct classify.ContentType) (Metadata, bool) {
	start := time.Now()
	res, err := s.fetcher.Fetch(ctx, rawurl)
	if s.metrics != nil {
		s.metrics.FetchLatency.Observe(time.Since(start).Seconds())
		s.metrics.FetchAttempts.Observe(float64(res.Attempts))
	}
	if err != nil {
		s.fail("fetch", err)
		return minimalMetadata(ct, hostnameOf(rawurl)), true
	}

	if ct == classify.PDF {
		return s.extractFetchedPDF(res.Body, rawurl)
	}

	base, err := url.Parse(res.FinalURL)
	if err != nil {
		base, _ = url.Parse(rawurl)
	}

	doc, err := page.ParseDocument(res.Body)
	if err != nil {
		s.fail("parse", err)
		return minimalMetadata(ct, hostnameOf(rawurl)), true
	}

	pm := page.ExtractMeta(doc, base)
	content := page.ExtractContent(res.Body, base, s.wrapTokens)

	meta := Metadata{
		ContentType: ct,
		// The readability title is cleaned of site suffixes, so it wins
		// over the raw page-level title when both are present.
		Title:         firstNonEmpty(content.Title, pm.Title, hostnameOf(rawurl)),
		Description:   pm.Description,
		Favicon:       pm.Favicon,
		CoverImage:    pm.CoverImage,
		SiteName:      pm.SiteName,
		Author:        pm.Author,
		PublishedDate: pm.PublishedDate,
		Content:       content.HTML,
		Images:        page.CollectImages(content.HTML),
	}
	meta.setReadingStats(countWords(content.Text))
	return meta, false
}

// extractFetchedPDF handles URLs that point straight at a PDF document.
func (s *Service) extractFetchedPDF(body []byte, rawurl string) (Metadata, bool) {
	fileName := pathBaseName(rawurl)
	doc, err := docparse.Parse(body, fileName, classify.PDF)
	if err != nil {
		s.fail("parse", err)
		return minimalMetadata(classify.PDF, hostnameOf(rawurl)), true
	}
	meta := Metadata{
		ContentType: classify.PDF,
		Title:       firstNonEmpty(doc.Title, docparse.BaseName(fileName), hostnameOf(rawurl)),
		Content:     doc.Content,
	}
	meta.setReadingStats(countWords(doc.Content))
	meta.setTotalPages(doc.Pages)
	return meta, false
}

// fail records a degraded pipeline stage.
func (s *Service) fail(stage string, err error) {
	if s.logger != nil {
		s.logger.Printf("extract %s failed, degrading to minimal metadata: %v", stage, err)
	}
	if s.metrics != nil {
		s.metrics.ExtractionsDegraded.WithLabelValues(stage).Inc()
	}
	if s.onFailure != nil {
		s.onFailure(stage, err)
	}
}

func countWords(text string) int {
	return len(strings.Fields(text))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// hostnameOf returns the URL's hostname, used as the degraded title.
func hostnameOf(rawurl string) string {
	u, err := url.Parse(rawurl)
	if err != nil || u.Hostname() == "" {
		return rawurl
	}
	return u.Hostname()
}

// pathBaseName returns the last path segment of a URL.
func pathBaseName(rawurl string) string {
	u, err := url.Parse(rawurl)
	if err != nil {
		return rawurl
	}
	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	return segs[len(segs)-1]
}
