// Package page turns fetched HTML into cleaned article content and
// page-level descriptive metadata.
package page

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// minFallbackTextLen is the minimum visible text a fallback container must
// carry before it is accepted as the article body.
const minFallbackTextLen = 100

// fallbackSelectors are tried in order when readability extraction yields
// nothing. The last resort, <body>, is handled separately.
var fallbackSelectors = []string{
	"article",
	"[role='article']",
	".content",
	".post-content",
	".entry-content",
	".article-content",
	"main",
	"[class*='content'], [id*='content']",
}

// boilerplateSelector matches descendants stripped from fallback candidates.
const boilerplateSelector = "script, style, nav, header, footer, aside, .ad, .ads, .advertisement, [class*='advert']"

// Content is the result of running the HTML pipeline.
type Content struct {
	// HTML is the sanitized article markup with image URLs resolved and,
	// when requested, text tokens wrapped in addressable spans.
	HTML string
	// Text is the plain-text rendering of HTML.
	Text string
	// Title is the readability-derived title, empty when readability did
	// not produce one.
	Title string
}

// ExtractContent isolates the primary article body from raw page markup.
// Readability runs first; if it yields nothing the ordered container
// fallbacks are tried, ending with the cleaned <body> text.
func ExtractContent(raw []byte, base *url.URL, wrapTokens bool) Content {
	var body, title string

	article, err := readability.FromReader(bytes.NewReader(raw), base)
	if err == nil && strings.TrimSpace(article.Content) != "" {
		body = article.Content
		title = strings.TrimSpace(article.Title)
	} else {
		body = fallbackContent(raw)
	}

	html := Sanitize(body)
	html = AbsolutizeImages(html, base)
	if wrapTokens && LooksLikeHTML(html) {
		html = WrapTokens(html)
	}

	return Content{
		HTML:  html,
		Text:  PlainText(html),
		Title: title,
	}
}

// fallbackContent walks the container selector list and returns the first
// candidate with enough visible text, else the cleaned body markup.
func fallbackContent(raw []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return ""
	}

	for _, selector := range fallbackSelectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		cleaned := sel.Clone()
		cleaned.Find(boilerplateSelector).Remove()
		if len(strings.TrimSpace(cleaned.Text())) <= minFallbackTextLen {
			continue
		}
		if html, err := goquery.OuterHtml(cleaned); err == nil {
			return html
		}
	}

	bodySel := doc.Find("body").First()
	if bodySel.Length() == 0 {
		return ""
	}
	cleaned := bodySel.Clone()
	cleaned.Find(boilerplateSelector).Remove()
	if html, err := goquery.OuterHtml(cleaned); err == nil {
		return html
	}
	return ""
}

// PlainText renders markup down to whitespace-normalized text.
func PlainText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.Join(strings.Fields(html), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
