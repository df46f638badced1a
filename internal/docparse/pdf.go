package docparse

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ParsePDF extracts the full text and page count from a PDF buffer.
// Pages that fail to decode are skipped; the library can panic on
// malformed files, which is recovered into an error.
func ParsePDF(buf []byte) (doc Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = wrapParseErr("pdf", fmt.Errorf("malformed document: %v", r))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		return Document{}, wrapParseErr("pdf", err)
	}

	numPages := reader.NumPage()
	var b strings.Builder
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(text)
	}

	return Document{
		Content: b.String(),
		Pages:   numPages,
	}, nil
}
