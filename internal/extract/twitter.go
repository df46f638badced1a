package extract

import (
	"context"
	"net/url"

	"github.com/felipesantoos/read-it-later-backend/internal/classify"
	"github.com/felipesantoos/read-it-later-backend/internal/page"
)

// extractTwitter pulls document metadata only. Tweet pages render their
// body client-side, so no content extraction is attempted.
func (s *Service) extractTwitter(ctx context.Context, rawurl string) (Metadata, bool) {
	res, err := s.fetcher.Fetch(ctx, rawurl)
	if err != nil {
		s.fail("fetch", err)
		return minimalMetadata(classify.Twitter, hostnameOf(rawurl)), true
	}

	doc, err := page.ParseDocument(res.Body)
	if err != nil {
		s.fail("parse", err)
		return minimalMetadata(classify.Twitter, hostnameOf(rawurl)), true
	}

	base, err := url.Parse(res.FinalURL)
	if err != nil {
		base, _ = url.Parse(rawurl)
	}
	pm := page.ExtractMeta(doc, base)

	meta := Metadata{
		ContentType:   classify.Twitter,
		Title:         firstNonEmpty(pm.Title, hostnameOf(rawurl)),
		Description:   pm.Description,
		Favicon:       pm.Favicon,
		CoverImage:    pm.CoverImage,
		SiteName:      "Twitter",
		Author:        pm.Author,
		PublishedDate: pm.PublishedDate,
	}
	return meta, false
}
