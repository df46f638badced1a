package extract

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/felipesantoos/read-it-later-backend/internal/classify"
)

func TestVideoID(t *testing.T) {
	cases := []struct {
		rawurl string
		want   string
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://youtube.com/watch?v=abc123&t=42s", "abc123"},
		{"https://youtu.be/abc123", "abc123"},
		{"https://youtu.be/abc123?si=share", "abc123"},
		{"https://www.youtube.com/embed/abc123", "abc123"},
		{"https://www.youtube.com/shorts/abc123", "abc123"},
		{"https://www.youtube.com/feed/history", ""},
		{"https://example.com/watch?v=abc123", ""},
	}
	for _, tc := range cases {
		if got := VideoID(tc.rawurl); got != tc.want {
			t.Fatalf("VideoID(%q) = %q, want %q", tc.rawurl, got, tc.want)
		}
	}
}

func TestExtractYouTubeOEmbed(t *testing.T) {
	oembed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("format") != "json" {
			t.Errorf("missing format=json in oEmbed query")
		}
		if r.URL.Query().Get("url") == "" {
			t.Errorf("missing url in oEmbed query")
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"title":"A Video","author_name":"A Channel","thumbnail_url":"https://i.ytimg.com/vi/abc/hqdefault.jpg"}`)
	}))
	defer oembed.Close()

	s := newTestService(WithOEmbedEndpoint(oembed.URL))
	meta, err := s.ExtractFromURL(context.Background(), "https://www.youtube.com/watch?v=abc", false)
	if err != nil {
		t.Fatalf("ExtractFromURL: %v", err)
	}

	if meta.ContentType != classify.YouTube {
		t.Fatalf("ContentType = %q, want youtube", meta.ContentType)
	}
	if meta.Title != "A Video" {
		t.Fatalf("Title = %q", meta.Title)
	}
	if meta.Author != "A Channel" {
		t.Fatalf("Author = %q", meta.Author)
	}
	if meta.CoverImage != "https://i.ytimg.com/vi/abc/hqdefault.jpg" {
		t.Fatalf("CoverImage = %q", meta.CoverImage)
	}
	if meta.SiteName != "YouTube" {
		t.Fatalf("SiteName = %q, want YouTube", meta.SiteName)
	}
}

func TestExtractYouTubeFallsBackToPagePipeline(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><head><meta property="og:title" content="Watch page"></head><body><p>player</p></body></html>`)
	}))
	defer page.Close()

	// No video id in the URL, so the oEmbed step fails before any request
	// and the generic pipeline takes over.
	s := newTestService()
	meta, degraded := s.extractYouTube(context.Background(), page.URL)
	if degraded {
		t.Fatal("extraction degraded")
	}
	if meta.ContentType != classify.YouTube {
		t.Fatalf("ContentType = %q, want youtube", meta.ContentType)
	}
	if meta.Title != "Watch page" {
		t.Fatalf("Title = %q", meta.Title)
	}
}

func TestExtractYouTubeFallbackToMinimal(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer page.Close()

	s := newTestService()
	meta, degraded := s.extractYouTube(context.Background(), page.URL)
	if !degraded {
		t.Fatal("expected degraded record")
	}
	if meta.ContentType != classify.YouTube || meta.Title != "127.0.0.1" {
		t.Fatalf("unexpected minimal record: %+v", meta)
	}
}
