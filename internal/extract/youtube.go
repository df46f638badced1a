package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/felipesantoos/read-it-later-backend/internal/classify"
)

const (
	defaultOEmbedEndpoint = "https://www.youtube.com/oembed"
	defaultOEmbedTimeout  = 10 * time.Second
)

// oembedResponse is the subset of the oEmbed payload the pipeline uses.
type oembedResponse struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	AuthorName   string `json:"author_name"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// extractYouTube resolves video metadata through the oEmbed endpoint.
// When oEmbed fails it falls back to the generic page pipeline, and from
// there to a minimal record.
func (s *Service) extractYouTube(ctx context.Context, rawurl string) (Metadata, bool) {
	resp, err := s.fetchOEmbed(ctx, rawurl)
	if err != nil {
		s.fail("oembed", err)
		return s.extractPage(ctx, rawurl, classify.YouTube)
	}

	meta := Metadata{
		ContentType: classify.YouTube,
		Title:       resp.Title,
		Description: resp.Description,
		Author:      resp.AuthorName,
		CoverImage:  resp.ThumbnailURL,
		SiteName:    "YouTube",
	}
	if meta.Title == "" {
		meta.Title = hostnameOf(rawurl)
	}
	return meta, false
}

func (s *Service) fetchOEmbed(ctx context.Context, rawurl string) (oembedResponse, error) {
	var out oembedResponse

	if VideoID(rawurl) == "" {
		return out, fmt.Errorf("no video id in %q", rawurl)
	}

	endpoint := fmt.Sprintf("%s?url=%s&format=json", s.oembedEndpoint, url.QueryEscape(rawurl))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return out, fmt.Errorf("build oembed request: %w", err)
	}

	resp, err := s.oembedClient.Do(req)
	if err != nil {
		return out, fmt.Errorf("oembed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return out, fmt.Errorf("oembed status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("decode oembed response: %w", err)
	}
	return out, nil
}

// VideoID extracts the video identifier from the common YouTube URL
// shapes: watch?v=, youtu.be/, /embed/ and /shorts/. Empty when the URL
// has none.
func VideoID(rawurl string) string {
	u, err := url.Parse(rawurl)
	if err != nil {
		return ""
	}
	host := strings.ToLower(strings.TrimPrefix(u.Hostname(), "www."))

	if host == "youtu.be" {
		return firstSegment(u.Path)
	}
	if !strings.HasSuffix(host, "youtube.com") {
		return ""
	}
	if v := u.Query().Get("v"); v != "" {
		return v
	}
	for _, prefix := range []string{"/embed/", "/shorts/"} {
		if strings.HasPrefix(u.Path, prefix) {
			return firstSegment(strings.TrimPrefix(u.Path, prefix))
		}
	}
	return ""
}

func firstSegment(path string) string {
	path = strings.Trim(path, "/")
	if i := strings.IndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	return path
}
