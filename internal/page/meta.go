package page

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Meta holds page-level descriptive fields scraped from document markup.
// Empty string means the field was not found.
type Meta struct {
	Title         string
	Description   string
	Favicon       string
	CoverImage    string
	SiteName      string
	Author        string
	PublishedDate string
}

// lookup resolves one metadata field from a parsed document.
type lookup func(*goquery.Document) string

// Each field is an ordered lookup chain; the first non-empty trimmed value
// wins, regardless of document order of the matches.
var (
	titleLookups = []lookup{
		metaContent("meta[property='og:title']"),
		metaContent("meta[name='twitter:title'], meta[property='twitter:title']"),
		elementText("title"),
		elementText("h1"),
	}
	descriptionLookups = []lookup{
		metaContent("meta[property='og:description']"),
		metaContent("meta[name='twitter:description'], meta[property='twitter:description']"),
		metaContent("meta[name='description']"),
	}
	faviconLookups = []lookup{
		attrValue("link[rel='icon']", "href"),
		attrValue("link[rel='shortcut icon']", "href"),
		attrValue("link[rel='apple-touch-icon']", "href"),
		attrValue("link[rel='apple-touch-icon-precomposed']", "href"),
	}
	coverImageLookups = []lookup{
		metaContent("meta[property='og:image']"),
		metaContent("meta[name='twitter:image'], meta[property='twitter:image']"),
		metaContent("meta[property='og:image:url']"),
	}
	siteNameLookups = []lookup{
		metaContent("meta[property='og:site_name']"),
		metaContent("meta[name='application-name']"),
	}
	authorLookups = []lookup{
		metaContent("meta[name='author']"),
		metaContent("meta[property='article:author']"),
		metaContent("meta[property='og:article:author']"),
		elementText("[rel='author']"),
		elementText("[class*='author']"),
		elementText("[itemprop='author']"),
	}
	publishedDateLookups = []lookup{
		metaContent("meta[property='article:published_time']"),
		metaContent("meta[name='published_time']"),
		metaContent("meta[name='date']"),
		metaContent("meta[property='og:published_time']"),
		attrValue("time[datetime]", "datetime"),
		elementText("[itemprop='datePublished']"),
		elementText("[class*='date'], [class*='published']"),
	}
)

// ParseDocument parses raw markup for metadata extraction.
func ParseDocument(raw []byte) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(bytes.NewReader(raw))
}

// ExtractMeta resolves every descriptive field through its lookup chain.
// The favicon falls back to /favicon.ico on the page's origin and is always
// returned as an absolute URL; all other values are returned as found.
func ExtractMeta(doc *goquery.Document, base *url.URL) Meta {
	meta := Meta{
		Title:         first(doc, titleLookups),
		Description:   first(doc, descriptionLookups),
		CoverImage:    first(doc, coverImageLookups),
		SiteName:      first(doc, siteNameLookups),
		Author:        first(doc, authorLookups),
		PublishedDate: first(doc, publishedDateLookups),
	}

	meta.Favicon = resolveFavicon(first(doc, faviconLookups), base)
	return meta
}

func first(doc *goquery.Document, chain []lookup) string {
	for _, fn := range chain {
		if v := strings.TrimSpace(fn(doc)); v != "" {
			return v
		}
	}
	return ""
}

func metaContent(selector string) lookup {
	return func(doc *goquery.Document) string {
		return doc.Find(selector).First().AttrOr("content", "")
	}
}

func attrValue(selector, attr string) lookup {
	return func(doc *goquery.Document) string {
		return doc.Find(selector).First().AttrOr(attr, "")
	}
}

func elementText(selector string) lookup {
	return func(doc *goquery.Document) string {
		return doc.Find(selector).First().Text()
	}
}

func resolveFavicon(href string, base *url.URL) string {
	if base == nil {
		return href
	}
	if href == "" {
		origin := url.URL{Scheme: base.Scheme, Host: base.Host, Path: "/favicon.ico"}
		return origin.String()
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
