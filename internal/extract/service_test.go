package extract

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/felipesantoos/read-it-later-backend/internal/classify"
	"github.com/felipesantoos/read-it-later-backend/internal/fetch"
)

type mapCache struct {
	entries map[string]Metadata
}

func newMapCache() *mapCache {
	return &mapCache{entries: map[string]Metadata{}}
}

func (c *mapCache) Get(url string) (Metadata, bool) {
	meta, ok := c.entries[url]
	return meta, ok
}

func (c *mapCache) Set(url string, meta Metadata) {
	c.entries[url] = meta
}

func newTestService(opts ...ServiceOption) *Service {
	f := fetch.NewFetcher(2*time.Second, fetch.WithBackoffBase(time.Millisecond))
	return NewService(f, nil, nil, nil, opts...)
}

const articlePage = `<!DOCTYPE html>
<html><head>
<title>Document Title</title>
<meta property="og:title" content="OG Title">
<meta property="og:description" content="A description.">
<meta property="og:site_name" content="Example Site">
<meta property="og:image" content="/cover.png">
<meta name="author" content="Jane Roe">
</head><body>
<article>
<p>The quick brown fox jumps over the lazy dog and keeps on running through
the field until it reaches the river where it stops to drink some water.</p>
<p>Another paragraph with enough words to keep the readability heuristics
happy about treating this markup as a proper article worth extracting.
<img src="/figure.png" alt="figure"></p>
</article>
</body></html>`

func TestExtractFromURLInvalidURL(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	s := newTestService()
	for _, raw := range []string{"", "not a url", "ftp://example.com/x", "http://", "relative/path"} {
		if _, err := s.ExtractFromURL(context.Background(), raw, false); !errors.Is(err, ErrInvalidURL) {
			t.Fatalf("ExtractFromURL(%q) error = %v, want ErrInvalidURL", raw, err)
		}
	}
	if n := atomic.LoadInt32(&calls); n != 0 {
		t.Fatalf("invalid URLs reached the network %d times", n)
	}
}

func TestExtractFromURLArticle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, articlePage)
	}))
	defer srv.Close()

	s := newTestService()
	meta, err := s.ExtractFromURL(context.Background(), srv.URL, false)
	if err != nil {
		t.Fatalf("ExtractFromURL: %v", err)
	}

	if meta.ContentType != classify.Article {
		t.Fatalf("ContentType = %q, want article", meta.ContentType)
	}
	if meta.Title != "OG Title" {
		t.Fatalf("Title = %q, want OG Title", meta.Title)
	}
	if meta.Description != "A description." {
		t.Fatalf("Description = %q", meta.Description)
	}
	if meta.SiteName != "Example Site" {
		t.Fatalf("SiteName = %q", meta.SiteName)
	}
	if meta.Author != "Jane Roe" {
		t.Fatalf("Author = %q", meta.Author)
	}
	if meta.CoverImage != "/cover.png" {
		t.Fatalf("CoverImage = %q", meta.CoverImage)
	}
	if !strings.HasPrefix(meta.Favicon, "http://") || !strings.HasSuffix(meta.Favicon, "/favicon.ico") {
		t.Fatalf("Favicon = %q, want synthesized origin favicon", meta.Favicon)
	}
	if meta.Content == "" || strings.Contains(meta.Content, "<script") {
		t.Fatalf("unexpected content: %q", meta.Content)
	}
	if meta.WordCount == nil || meta.ReadingTime == nil {
		t.Fatal("reading stats not set")
	}
	if want := readingTimeSeconds(*meta.WordCount); *meta.ReadingTime != want {
		t.Fatalf("ReadingTime = %d, want %d for %d words", *meta.ReadingTime, want, *meta.WordCount)
	}
	if meta.TotalPages != nil {
		t.Fatalf("TotalPages = %d, want nil for articles", *meta.TotalPages)
	}
	if len(meta.Images) == 0 {
		t.Fatal("expected extracted images")
	}
}

func TestExtractFromURLContentTitleOverridesPageTitle(t *testing.T) {
	page := `<!DOCTYPE html>
<html><head>
<title>How To Extract Articles From Messy Pages - SuperSite</title>
<meta property="og:description" content="A description.">
</head><body>
<article>
<p>The quick brown fox jumps over the lazy dog and keeps on running through
the field until it reaches the river where it stops to drink some water.</p>
<p>Another paragraph with enough words to keep the readability heuristics
happy about treating this markup as a proper article worth extracting.</p>
</article>
</body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, page)
	}))
	defer srv.Close()

	s := newTestService()
	meta, err := s.ExtractFromURL(context.Background(), srv.URL, false)
	if err != nil {
		t.Fatalf("ExtractFromURL: %v", err)
	}

	// The content extractor emits the title with the site suffix stripped;
	// it must beat the raw <title> value from the metadata chains.
	if meta.Title != "How To Extract Articles From Messy Pages" {
		t.Fatalf("Title = %q, want cleaned content title", meta.Title)
	}
}

func TestExtractFromURLTimeoutDegrades(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	f := fetch.NewFetcher(30*time.Millisecond, fetch.WithBackoffBase(time.Millisecond))
	s := NewService(f, nil, nil, nil)

	meta, err := s.ExtractFromURL(context.Background(), srv.URL, false)
	if err != nil {
		t.Fatalf("ExtractFromURL: %v", err)
	}
	if meta.ContentType != classify.Article {
		t.Fatalf("ContentType = %q, want article", meta.ContentType)
	}
	if meta.Title != "127.0.0.1" {
		t.Fatalf("Title = %q, want hostname", meta.Title)
	}
	if meta.Content != "" || meta.WordCount != nil {
		t.Fatal("degraded record carries extra fields")
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("timeout retried: %d calls", n)
	}
}

func TestExtractFromURLFetchFailureDegradesAndIsNotCached(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cache := newMapCache()
	f := fetch.NewFetcher(2*time.Second, fetch.WithBackoffBase(time.Millisecond))
	var failedStage string
	s := NewService(f, cache, nil, nil, WithFailureHook(func(stage string, err error) {
		failedStage = stage
	}))

	meta, err := s.ExtractFromURL(context.Background(), srv.URL, true)
	if err != nil {
		t.Fatalf("ExtractFromURL: %v", err)
	}
	if meta.Title != "127.0.0.1" {
		t.Fatalf("Title = %q, want hostname", meta.Title)
	}
	if failedStage != "fetch" {
		t.Fatalf("failure hook stage = %q, want fetch", failedStage)
	}
	if len(cache.entries) != 0 {
		t.Fatal("degraded result was cached")
	}
}

func TestExtractFromURLCaching(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, articlePage)
	}))
	defer srv.Close()

	cache := newMapCache()
	f := fetch.NewFetcher(2*time.Second, fetch.WithBackoffBase(time.Millisecond))
	s := NewService(f, cache, nil, nil)

	first, err := s.ExtractFromURL(context.Background(), srv.URL, true)
	if err != nil {
		t.Fatalf("first extract: %v", err)
	}
	second, err := s.ExtractFromURL(context.Background(), srv.URL, true)
	if err != nil {
		t.Fatalf("second extract: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("cached extraction hit the network %d times", n)
	}
	if first.Title != second.Title {
		t.Fatalf("cached record differs: %q vs %q", first.Title, second.Title)
	}

	// Bypassing the cache refetches but still refreshes the stored entry.
	if _, err := s.ExtractFromURL(context.Background(), srv.URL, false); err != nil {
		t.Fatalf("bypass extract: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Fatalf("bypass did not refetch: %d calls", n)
	}
}

func TestExtractFromURLPDFSuffix(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		fmt.Fprint(w, "not really a pdf")
	}))
	defer srv.Close()

	s := newTestService()
	meta, err := s.ExtractFromURL(context.Background(), srv.URL+"/paper.pdf", false)
	if err != nil {
		t.Fatalf("ExtractFromURL: %v", err)
	}
	// The body is unparseable, so the record degrades, but the category
	// from the URL suffix sticks.
	if meta.ContentType != classify.PDF {
		t.Fatalf("ContentType = %q, want pdf", meta.ContentType)
	}
	if meta.Title != "127.0.0.1" {
		t.Fatalf("Title = %q, want hostname", meta.Title)
	}
}

func TestExtractTwitterMetadataOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><head>
<meta property="og:title" content="A thread about Go">
<meta property="og:description" content="1/12 Let's talk about contexts.">
</head><body><div>hydrated client side</div></body></html>`)
	}))
	defer srv.Close()

	s := newTestService()
	meta, degraded := s.extractTwitter(context.Background(), srv.URL)
	if degraded {
		t.Fatal("extraction degraded")
	}
	if meta.SiteName != "Twitter" {
		t.Fatalf("SiteName = %q, want Twitter", meta.SiteName)
	}
	if meta.Title != "A thread about Go" {
		t.Fatalf("Title = %q", meta.Title)
	}
	if meta.Content != "" || meta.WordCount != nil {
		t.Fatal("tweet records should not carry content or reading stats")
	}
}

func TestExtractTwitterFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	s := newTestService()
	meta, degraded := s.extractTwitter(context.Background(), srv.URL)
	if !degraded {
		t.Fatal("expected degraded record")
	}
	if meta.ContentType != classify.Twitter || meta.Title != "127.0.0.1" {
		t.Fatalf("unexpected minimal record: %+v", meta)
	}
}

func TestExtractFromFilePlainText(t *testing.T) {
	s := newTestService()
	meta := s.ExtractFromFile([]byte("one two three four five"), "notes.txt", "text/plain")

	if meta.ContentType != classify.Article {
		t.Fatalf("ContentType = %q, want article", meta.ContentType)
	}
	if meta.Title != "notes" {
		t.Fatalf("Title = %q, want notes", meta.Title)
	}
	if meta.WordCount == nil || *meta.WordCount != 5 {
		t.Fatalf("WordCount = %v, want 5", meta.WordCount)
	}
	if meta.ReadingTime == nil || *meta.ReadingTime != 2 {
		t.Fatalf("ReadingTime = %v, want 2s for 5 words", meta.ReadingTime)
	}
	if meta.TotalPages != nil {
		t.Fatal("TotalPages set for plain text")
	}
}

func TestExtractFromFileEmpty(t *testing.T) {
	s := newTestService()
	meta := s.ExtractFromFile(nil, "empty.txt", "text/plain")

	if meta.Title != "empty" {
		t.Fatalf("Title = %q, want empty", meta.Title)
	}
	if meta.Content != "" {
		t.Fatalf("Content = %q, want empty", meta.Content)
	}
	if meta.WordCount == nil || *meta.WordCount != 0 {
		t.Fatalf("WordCount = %v, want 0", meta.WordCount)
	}
	if meta.ReadingTime == nil || *meta.ReadingTime != 0 {
		t.Fatalf("ReadingTime = %v, want 0", meta.ReadingTime)
	}
}

func TestExtractFromFileMarkdown(t *testing.T) {
	s := newTestService()
	md := "# Heading\n\nSome *emphasized* words here.\n\n<script>alert(1)</script>\n"
	meta := s.ExtractFromFile([]byte(md), "post.md", "text/markdown")

	if !strings.Contains(meta.Content, "<h1") {
		t.Fatalf("Content = %q, want rendered heading", meta.Content)
	}
	if strings.Contains(meta.Content, "<script") {
		t.Fatal("script survived sanitization")
	}
	if meta.WordCount == nil || *meta.WordCount == 0 {
		t.Fatal("reading stats missing for markdown")
	}
}

func TestExtractFromFileParseFailureDegrades(t *testing.T) {
	var failedStage string
	s := newTestService(WithFailureHook(func(stage string, err error) {
		failedStage = stage
	}))
	meta := s.ExtractFromFile([]byte("garbage"), "broken.epub", "application/epub+zip")

	if meta.ContentType != classify.Ebook {
		t.Fatalf("ContentType = %q, want ebook", meta.ContentType)
	}
	if meta.Title != "broken" {
		t.Fatalf("Title = %q, want broken", meta.Title)
	}
	if meta.Content != "" || meta.WordCount != nil || meta.TotalPages != nil {
		t.Fatal("degraded file record carries extra fields")
	}
	if failedStage != "parse" {
		t.Fatalf("failure hook stage = %q, want parse", failedStage)
	}
}

func TestReadingTimeSeconds(t *testing.T) {
	cases := []struct {
		words, want int
	}{
		{0, 0},
		{1, 1},
		{200, 60},
		{201, 61},
		{400, 120},
		{1000, 300},
	}
	for _, tc := range cases {
		if got := readingTimeSeconds(tc.words); got != tc.want {
			t.Fatalf("readingTimeSeconds(%d) = %d, want %d", tc.words, got, tc.want)
		}
	}
}
