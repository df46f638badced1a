package docparse

import (
	"bytes"

	"github.com/yuin/goldmark"
)

// RenderMarkdown converts markdown source to HTML; the rendered markup is
// the stored content for markdown uploads.
func RenderMarkdown(buf []byte) (Document, error) {
	var out bytes.Buffer
	if err := goldmark.Convert(buf, &out); err != nil {
		return Document{}, wrapParseErr("markdown", err)
	}
	return Document{Content: out.String(), IsHTML: true}, nil
}
