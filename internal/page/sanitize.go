package page

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

// MaxContentImages caps the number of image URLs collected from content.
const MaxContentImages = 10

// sanitizePolicy drops script/style blocks, inline event handlers, and
// javascript:/data: URI schemes while keeping article formatting. Relative
// URLs survive so image normalization can resolve them afterwards.
var sanitizePolicy = func() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowRelativeURLs(true)
	p.AllowAttrs("datetime").OnElements("time")
	p.AllowAttrs("id").OnElements("span")
	return p
}()

var htmlTagPattern = regexp.MustCompile(`(?s)<[a-zA-Z][^>]*>`)

// Elements whose text content is never token-wrapped.
var tokenSkipElements = map[string]struct{}{
	"script":   {},
	"style":    {},
	"noscript": {},
	"iframe":   {},
	"object":   {},
	"embed":    {},
}

// Sanitize strips unsafe markup from content HTML.
func Sanitize(content string) string {
	return sanitizePolicy.Sanitize(content)
}

// LooksLikeHTML reports whether the content appears to be markup rather
// than plain text.
func LooksLikeHTML(content string) bool {
	return htmlTagPattern.MatchString(content)
}

// AbsolutizeImages rewrites relative <img src> references against the page
// base URL. Absolute URLs, data URIs, and unresolvable sources are left
// unchanged.
func AbsolutizeImages(content string, base *url.URL) string {
	if base == nil || !LooksLikeHTML(content) {
		return content
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return content
	}

	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		src, ok := sel.Attr("src")
		if !ok || src == "" || strings.HasPrefix(src, "data:") {
			return
		}
		ref, err := url.Parse(src)
		if err != nil || ref.IsAbs() {
			return
		}
		sel.SetAttr("src", base.ResolveReference(ref).String())
	})

	if inner, err := doc.Find("body").Html(); err == nil {
		return inner
	}
	return content
}

// CollectImages returns up to MaxContentImages image URLs from content in
// document order, skipping data URIs.
func CollectImages(content string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil
	}

	var images []string
	doc.Find("img").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		src, ok := sel.Attr("src")
		if !ok || src == "" || strings.HasPrefix(src, "data:") {
			return true
		}
		images = append(images, src)
		return len(images) < MaxContentImages
	})
	return images
}

// WrapTokens replaces every non-whitespace text token with a uniquely
// identified inline span, leaving whitespace untouched. The IDs are a
// monotonic counter scoped to the page, giving later highlight features a
// stable anchor per token without changing the rendered text.
func WrapTokens(content string) string {
	root, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return content
	}

	counter := 0
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if _, skip := tokenSkipElements[strings.ToLower(n.Data)]; skip {
				return
			}
		}
		for c := n.FirstChild; c != nil; {
			next := c.NextSibling
			if c.Type == html.TextNode {
				wrapTextNode(n, c, &counter)
			} else {
				walk(c)
			}
			c = next
		}
	}
	walk(root)

	body := findElement(root, "body")
	if body == nil {
		return content
	}
	var b strings.Builder
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&b, c); err != nil {
			return content
		}
	}
	return b.String()
}

// wrapTextNode splits a text node into whitespace runs and tokens,
// replacing it with span-wrapped tokens interleaved with the original
// whitespace.
func wrapTextNode(parent, text *html.Node, counter *int) {
	if strings.TrimSpace(text.Data) == "" {
		return
	}

	for _, segment := range splitTokens(text.Data) {
		var node *html.Node
		if strings.TrimSpace(segment) == "" {
			node = &html.Node{Type: html.TextNode, Data: segment}
		} else {
			*counter++
			node = &html.Node{
				Type: html.ElementNode,
				Data: "span",
				Attr: []html.Attribute{{Key: "id", Val: fmt.Sprintf("token-%d", *counter)}},
			}
			node.AppendChild(&html.Node{Type: html.TextNode, Data: segment})
		}
		parent.InsertBefore(node, text)
	}
	parent.RemoveChild(text)
}

// splitTokens cuts a string into alternating whitespace and non-whitespace
// runs, preserving every byte.
func splitTokens(s string) []string {
	var segments []string
	start := 0
	inSpace := false
	for i, r := range s {
		isSpace := r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f' || r == '\v'
		if i == 0 {
			inSpace = isSpace
			continue
		}
		if isSpace != inSpace {
			segments = append(segments, s[start:i])
			start = i
			inSpace = isSpace
		}
	}
	if start < len(s) {
		segments = append(segments, s[start:])
	}
	return segments
}

func findElement(n *html.Node, name string) *html.Node {
	if n.Type == html.ElementNode && n.Data == name {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, name); found != nil {
			return found
		}
	}
	return nil
}
